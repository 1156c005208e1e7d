package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input  string
		source string
		target string
		darija bool
	}{
		{"fr_dr", LangFrench, LangDarija, true},
		{"dr_fr", LangDarija, LangFrench, false},
		{"en_dr", LangEnglish, LangDarija, true},
		{" dr_en ", LangDarija, LangEnglish, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDirection(tt.input)
			require.NoError(t, err)

			src, tgt := d.Languages()
			assert.Equal(t, tt.source, src)
			assert.Equal(t, tt.target, tgt)
			assert.Equal(t, tt.darija, d.TargetsDarija())
		})
	}
}

func TestParseDirectionUnknown(t *testing.T) {
	for _, label := range []string{"", "fr_en", "dr", "FR_DR"} {
		_, err := ParseDirection(label)
		assert.ErrorIs(t, err, ErrUnknownDirection, label)
	}

	src, tgt := Direction("xx").Languages()
	assert.Empty(t, src)
	assert.Empty(t, tgt)
}

func TestNormalizeLang(t *testing.T) {
	assert.Equal(t, "dr", NormalizeLang("Darija"))
	assert.Equal(t, "dr", NormalizeLang("dr"))
	assert.Equal(t, "fr", NormalizeLang("français"))
	assert.Equal(t, "en", NormalizeLang(" English "))
	assert.Equal(t, "es", NormalizeLang("es"))
}

func TestRecordValidate(t *testing.T) {
	rec := Record{SourceText: "Bonjour", TargetText: "سلام", Turn: 1, TotalTurns: 1}
	assert.NoError(t, rec.Validate())

	rec.TargetText = "  "
	assert.Error(t, rec.Validate())

	rec.TargetText = "سلام"
	rec.Turn = 2
	assert.Error(t, rec.Validate())
}
