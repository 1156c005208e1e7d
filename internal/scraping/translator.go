package scraping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultTranslatorURL is the French interface of the learnmoroccan translator
const DefaultTranslatorURL = "https://www.learnmoroccan.com/fr/translator"

// ErrNoTranslation is returned when the result panel holds no text
var ErrNoTranslation = errors.New("no translation found in page")

// Result is a Darija translation in both scripts
type Result struct {
	Latin  string `json:"latin"`
	Arabic string `json:"arabic"`
}

// Target prefers the Arabic script
func (r Result) Target() string {
	if r.Arabic != "" {
		return r.Arabic
	}
	return r.Latin
}

// Translator turns a French phrase into Darija
type Translator interface {
	Translate(ctx context.Context, phrase string) (Result, error)
}

// Result panel: the Arabic rendering is the first paragraph, the Latin one the second
const (
	resultPanelSelector = "body > div > div:nth-of-type(2) > div:nth-of-type(4)"
	arabicSelector      = resultPanelSelector + " > p:nth-of-type(1)"
	latinSelector       = resultPanelSelector + " > p:nth-of-type(2)"
)

// ParseResultHTML extracts the translation from a rendered translator page
func ParseResultHTML(page string) (Result, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse page: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	res := Result{
		Latin:  strings.TrimSpace(doc.Find(latinSelector).First().Text()),
		Arabic: strings.TrimSpace(doc.Find(arabicSelector).First().Text()),
	}
	if res.Latin == "" && res.Arabic == "" {
		return res, ErrNoTranslation
	}
	return res, nil
}
