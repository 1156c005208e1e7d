package scraping

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

const (
	swapButtonSelector  = "button[aria-label='échanger les langues'][title='échanger les langues']"
	langMenuSelector    = "xpath=/html/body/div/div[2]/div[2]/div[1]/div[1]"
	frenchOptionSel     = "div:has-text('Français'):not(:has(div:has-text('Français')))"
	scriptToggleSel     = "xpath=/html/body/div/div[2]/div[3]/div/label/div/div"
	inputSelector       = "textarea"
	translateButtonSel  = "button:has-text('Traduire')"
	resultReadySelector = "xpath=/html/body/div/div[2]/div[4]/p[2]"
)

// BrowserOptions configures the headless browser session
type BrowserOptions struct {
	URL      string
	Headless bool
	// SettleDelay is the pause after UI interactions
	SettleDelay   time.Duration
	ResultTimeout time.Duration
	// ScreenshotDir keeps before/after screenshots when set
	ScreenshotDir string
}

// DefaultBrowserOptions returns the options used by the scrape command
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		URL:           DefaultTranslatorURL,
		Headless:      true,
		SettleDelay:   time.Second,
		ResultTimeout: 15 * time.Second,
	}
}

// BrowserTranslator drives the translator page with a real browser
type BrowserTranslator struct {
	opts    BrowserOptions
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewBrowserTranslator starts playwright and launches chromium
func NewBrowserTranslator(opts BrowserOptions) (*BrowserTranslator, error) {
	if opts.URL == "" {
		opts.URL = DefaultTranslatorURL
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &BrowserTranslator{opts: opts, pw: pw, browser: browser}, nil
}

// Translate opens a fresh page per phrase
func (t *BrowserTranslator) Translate(ctx context.Context, phrase string) (Result, error) {
	logger := logging.GetPipelineLogger("scrape", "translate")

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	page, err := t.browser.NewPage()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	settle := float64(t.opts.SettleDelay.Milliseconds())

	if _, err := page.Goto(t.opts.URL); err != nil {
		return Result{}, fmt.Errorf("failed to load %s: %w", t.opts.URL, err)
	}

	// the swap button only shows on first visit
	swap := page.Locator(swapButtonSelector)
	if err := swap.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(5000),
	}); err == nil {
		if err := swap.Click(); err != nil {
			logger.Debug().Err(err).Msg("Swap button click failed")
		}
		page.WaitForTimeout(settle)
	} else {
		logger.Debug().Msg("No swap button, continuing")
	}

	t.screenshot(page, "page_initiale.png")

	if err := page.Locator(langMenuSelector).Click(); err != nil {
		return Result{}, fmt.Errorf("failed to open language menu: %w", err)
	}
	page.WaitForTimeout(settle)

	if err := page.Locator(frenchOptionSel).First().Click(); err != nil {
		return Result{}, fmt.Errorf("failed to select French: %w", err)
	}
	page.WaitForTimeout(settle)

	if err := page.Locator(scriptToggleSel).Click(); err != nil {
		return Result{}, fmt.Errorf("failed to toggle script: %w", err)
	}

	if err := page.Locator(inputSelector).First().Fill(phrase); err != nil {
		return Result{}, fmt.Errorf("failed to fill phrase: %w", err)
	}
	if err := page.Locator(translateButtonSel).First().Click(); err != nil {
		return Result{}, fmt.Errorf("failed to submit: %w", err)
	}

	if err := page.Locator(resultReadySelector).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(t.opts.ResultTimeout.Milliseconds())),
	}); err != nil {
		return Result{}, fmt.Errorf("translation did not appear: %w", err)
	}

	html, err := page.Content()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read page content: %w", err)
	}
	t.screenshot(page, "resultat_traduction.png")

	res, err := ParseResultHTML(html)
	if err != nil {
		return Result{}, err
	}
	logger.Info().Str("phrase", phrase).Str("latin", res.Latin).Str("arabic", res.Arabic).Msg("Translation obtained")
	return res, nil
}

func (t *BrowserTranslator) screenshot(page playwright.Page, name string) {
	if t.opts.ScreenshotDir == "" {
		return
	}
	path := filepath.Join(t.opts.ScreenshotDir, name)
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(path)}); err != nil {
		logger := logging.GetLogger("scrape")
		logger.Debug().Err(err).Str("path", path).Msg("Screenshot failed")
	}
}

// Close shuts the browser and the playwright driver
func (t *BrowserTranslator) Close() error {
	if err := t.browser.Close(); err != nil {
		t.pw.Stop()
		return err
	}
	return t.pw.Stop()
}
