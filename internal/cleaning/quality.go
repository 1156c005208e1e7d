package cleaning

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// Quality labels attached to records
const (
	LabelSourceTooShort    = "source_too_short"
	LabelTargetTooShort    = "target_too_short"
	LabelEmptyTarget       = "empty_target"
	LabelIdenticalTexts    = "identical_source_target"
	LabelTargetLengthRatio = "target_length_ratio"
	LabelNonArabic         = "non_arabic_characters"
	LabelDirectionMismatch = "direction_mismatch"
)

// QualityCheck is one independent heuristic. Checks only label, they never reject.
type QualityCheck interface {
	Name() string
	Description() string
	Applicable(direction translation.Direction) bool
	Check(record *translation.Record) bool
}

// QualityFilter annotates records with the labels of every failing check
type QualityFilter struct {
	checks        []QualityCheck
	enabledChecks map[string]bool
}

// NewQualityFilter creates a filter with the default checks
func NewQualityFilter(minLength int, minRatio float64) *QualityFilter {
	qf := &QualityFilter{
		checks:        make([]QualityCheck, 0),
		enabledChecks: make(map[string]bool),
	}

	qf.AddCheck(&MinLengthCheck{Side: SideSource, MinRunes: minLength})
	qf.AddCheck(&MinLengthCheck{Side: SideTarget, MinRunes: minLength})
	qf.AddCheck(&EmptyTargetCheck{})
	qf.AddCheck(&IdenticalTextCheck{})
	qf.AddCheck(&LengthRatioCheck{MinRatio: minRatio})
	qf.AddCheck(&ArabicScriptCheck{})

	return qf
}

// AddCheck adds a custom check and enables it
func (qf *QualityFilter) AddCheck(check QualityCheck) {
	qf.checks = append(qf.checks, check)
	qf.enabledChecks[check.Name()] = true
}

// EnableCheck enables a specific check by name
func (qf *QualityFilter) EnableCheck(name string) {
	qf.enabledChecks[name] = true
}

// DisableCheck disables a specific check by name
func (qf *QualityFilter) DisableCheck(name string) {
	qf.enabledChecks[name] = false
}

// Annotate sets record.QualityChecks to the labels of the failing checks.
// The slice is never nil so it serializes as [].
func (qf *QualityFilter) Annotate(record *translation.Record) {
	labels := make([]string, 0)
	for _, check := range qf.checks {
		if !qf.enabledChecks[check.Name()] {
			continue
		}
		if !check.Applicable(record.Direction) {
			continue
		}
		if check.Check(record) {
			labels = append(labels, check.Name())
		}
	}
	record.QualityChecks = labels
}

// GetAvailableChecks returns all checks with descriptions
func (qf *QualityFilter) GetAvailableChecks() map[string]string {
	checks := make(map[string]string)
	for _, check := range qf.checks {
		checks[check.Name()] = check.Description()
	}
	return checks
}

// Side selects which text of a record a check inspects
type Side int

const (
	SideSource Side = iota
	SideTarget
)

// MinLengthCheck flags texts shorter than MinRunes
type MinLengthCheck struct {
	Side     Side
	MinRunes int
}

func (c *MinLengthCheck) Name() string {
	if c.Side == SideSource {
		return LabelSourceTooShort
	}
	return LabelTargetTooShort
}

func (c *MinLengthCheck) Description() string {
	if c.Side == SideSource {
		return "Source text is shorter than the minimum length"
	}
	return "Target text is shorter than the minimum length"
}

func (c *MinLengthCheck) Applicable(direction translation.Direction) bool {
	return true
}

func (c *MinLengthCheck) Check(record *translation.Record) bool {
	text := record.SourceText
	if c.Side == SideTarget {
		text = record.TargetText
	}
	return utf8.RuneCountInString(strings.TrimSpace(text)) < c.MinRunes
}

// EmptyTargetCheck flags records without a translation
type EmptyTargetCheck struct{}

func (c *EmptyTargetCheck) Name() string {
	return LabelEmptyTarget
}

func (c *EmptyTargetCheck) Description() string {
	return "Target text is empty"
}

func (c *EmptyTargetCheck) Applicable(direction translation.Direction) bool {
	return true
}

func (c *EmptyTargetCheck) Check(record *translation.Record) bool {
	return strings.TrimSpace(record.TargetText) == ""
}

// IdenticalTextCheck flags records whose target repeats the source
type IdenticalTextCheck struct{}

func (c *IdenticalTextCheck) Name() string {
	return LabelIdenticalTexts
}

func (c *IdenticalTextCheck) Description() string {
	return "Source and target texts are identical"
}

func (c *IdenticalTextCheck) Applicable(direction translation.Direction) bool {
	return true
}

func (c *IdenticalTextCheck) Check(record *translation.Record) bool {
	src := strings.TrimSpace(record.SourceText)
	return src != "" && src == strings.TrimSpace(record.TargetText)
}

// LengthRatioCheck flags targets much shorter than their source
type LengthRatioCheck struct {
	MinRatio float64
}

func (c *LengthRatioCheck) Name() string {
	return LabelTargetLengthRatio
}

func (c *LengthRatioCheck) Description() string {
	return "Target text is much shorter than the source text"
}

func (c *LengthRatioCheck) Applicable(direction translation.Direction) bool {
	return true
}

func (c *LengthRatioCheck) Check(record *translation.Record) bool {
	srcLen := utf8.RuneCountInString(strings.TrimSpace(record.SourceText))
	if srcLen == 0 {
		return false
	}
	tgtLen := utf8.RuneCountInString(strings.TrimSpace(record.TargetText))
	return float64(tgtLen) < float64(srcLen)*c.MinRatio
}

// ArabicScriptCheck flags Darija targets containing non-Arabic letters
type ArabicScriptCheck struct{}

func (c *ArabicScriptCheck) Name() string {
	return LabelNonArabic
}

func (c *ArabicScriptCheck) Description() string {
	return "Darija target contains characters outside the Arabic script"
}

func (c *ArabicScriptCheck) Applicable(direction translation.Direction) bool {
	return direction.TargetsDarija()
}

func (c *ArabicScriptCheck) Check(record *translation.Record) bool {
	for _, r := range record.TargetText {
		if isArabicRune(r) || unicode.IsSpace(r) || unicode.IsDigit(r) || unicode.IsPunct(r) {
			continue
		}
		return true
	}
	return false
}

// arabicBlocks covers the Arabic, Arabic Supplement, Arabic Extended-A and
// presentation-form blocks. Harakat (Inherited script) and tatweel (Common
// script) sit inside them.
var arabicBlocks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

func isArabicRune(r rune) bool {
	return unicode.Is(unicode.Arabic, r) || unicode.Is(arabicBlocks, r)
}
