package cleaning

import (
	"testing"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/stretchr/testify/assert"
)

func TestQualityFilterLabels(t *testing.T) {
	filter := NewQualityFilter(2, 0.3)

	tests := []struct {
		name     string
		record   translation.Record
		expected []string
	}{
		{
			name:     "clean darija target",
			record:   translation.Record{Direction: translation.FrenchToDarija, SourceText: "Bonjour", TargetText: "سلام"},
			expected: []string{},
		},
		{
			name:     "latin letters in darija target",
			record:   translation.Record{Direction: translation.EnglishToDarija, SourceText: "Thank you", TargetText: "Choukran"},
			expected: []string{LabelNonArabic},
		},
		{
			name:     "latin target outside darija directions",
			record:   translation.Record{Direction: translation.DarijaToFrench, SourceText: "شكرا", TargetText: "Merci"},
			expected: []string{},
		},
		{
			name:     "digits and punctuation allowed",
			record:   translation.Record{Direction: translation.FrenchToDarija, SourceText: "J'ai 20 ans.", TargetText: "عندي 20 عام."},
			expected: []string{},
		},
		{
			name:     "vowelled darija target",
			record:   translation.Record{Direction: translation.FrenchToDarija, SourceText: "Bonjour à vous", TargetText: "سَلَامٌ عْلِيكُمْ"},
			expected: []string{},
		},
		{
			name:     "tatweel in darija target",
			record:   translation.Record{Direction: translation.EnglishToDarija, SourceText: "Hello", TargetText: "سـلام"},
			expected: []string{},
		},
		{
			name:     "mixed latin and arabic target",
			record:   translation.Record{Direction: translation.FrenchToDarija, SourceText: "Bonjour", TargetText: "salam سلام"},
			expected: []string{LabelNonArabic},
		},
		{
			name:     "too short",
			record:   translation.Record{Direction: translation.DarijaToEnglish, SourceText: "ا", TargetText: "a"},
			expected: []string{LabelSourceTooShort, LabelTargetTooShort},
		},
		{
			name:     "empty target",
			record:   translation.Record{Direction: translation.FrenchToDarija, SourceText: "Bonjour", TargetText: ""},
			expected: []string{LabelTargetTooShort, LabelEmptyTarget, LabelTargetLengthRatio},
		},
		{
			name:     "identical texts",
			record:   translation.Record{Direction: translation.DarijaToEnglish, SourceText: "OK", TargetText: "OK"},
			expected: []string{LabelIdenticalTexts},
		},
		{
			name:     "target much shorter",
			record:   translation.Record{Direction: translation.DarijaToFrench, SourceText: "واش ممكن تعاوني فهاد المشكل", TargetText: "Aide"},
			expected: []string{LabelTargetLengthRatio},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := tt.record
			filter.Annotate(&record)
			assert.Equal(t, tt.expected, record.QualityChecks)
		})
	}
}

func TestQualityFilterDisableCheck(t *testing.T) {
	filter := NewQualityFilter(2, 0.3)
	filter.DisableCheck(LabelNonArabic)

	record := translation.Record{Direction: translation.FrenchToDarija, SourceText: "Merci", TargetText: "Choukran"}
	filter.Annotate(&record)
	assert.Empty(t, record.QualityChecks)
	assert.NotNil(t, record.QualityChecks)

	filter.EnableCheck(LabelNonArabic)
	filter.Annotate(&record)
	assert.Equal(t, []string{LabelNonArabic}, record.QualityChecks)

	assert.Len(t, filter.GetAvailableChecks(), 6)
}
