package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := New(Options{})

	tests := []struct {
		text string
		want Intent
	}{
		{"Hast du WhatsApp? Treffen wir uns?", Boundary},
		{"Du bist so hübsch, gib mir deine Nummer", Boundary},
		{"ruf mich an: 0171 2345678", Boundary},
		{"Bist du dumm oder was", Aggressive},
		{"Blasen oder lecken, was magst du?", Sexual},
		{"Das hab ich dir schon gesagt", Repetition},
		{"Hallo, wie geht es dir?", Smalltalk},
		{"Na, alles gut bei dir?", Smalltalk},
		{"Du bist wirklich süß", Compliment},
		{"Wie groß bist du", Question},
		{"Und dein Lieblingsessen?", Question},
		{"Ok", Fallback},
		{"Ich war heute im Kanal schwimmen", Fallback},
		{"Das ist moralisch fragwürdig", Fallback},
		{"Ich bin online", Fallback},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := c.Classify(tt.text, nil)
			assert.Equal(t, tt.want, got.Intent, "keys=%v", got.MatchedKeys)
		})
	}
}

func TestClassify_Confidences(t *testing.T) {
	c := New(Options{})
	want := map[string]float64{
		"whatsapp?":       0.95,
		"idiot":           0.90,
		"geil":            0.85,
		"du bist hübsch":  0.80,
		"wann":            0.75,
		"wie gesagt":      0.70,
		"moin":            0.70,
		"ok":              0.40,
		"   ":             0.20,
	}
	for text, conf := range want {
		assert.InDelta(t, conf, c.Classify(text, nil).Confidence, 1e-9, text)
	}
}

func TestClassify_BoundaryBeatsCompliment(t *testing.T) {
	got := New(Options{}).Classify("Du bist wunderschön, hast du Telegram?", nil)
	require.Equal(t, Boundary, got.Intent)
	assert.Equal(t, []string{"telegram"}, got.MatchedKeys)
}

func TestClassify_SexualFromContext(t *testing.T) {
	c := New(Options{})
	recent := []string{"Hey", "Was machst du so?", "Ich finde dich so geil", "Erzähl"}

	got := c.Classify("ja", recent)
	assert.Equal(t, Sexual, got.Intent)
	assert.Equal(t, "sexual_context", got.Rule)

	assert.Equal(t, Fallback, c.Classify("ja", nil).Intent)
}

func TestClassify_ContextWindowIsBounded(t *testing.T) {
	c := New(Options{ContextTurns: 2})
	recent := []string{"so geil", "neutral", "auch neutral"}
	assert.Equal(t, Fallback, c.Classify("ja", recent).Intent)

	c = New(Options{ContextTurns: 3})
	assert.Equal(t, Sexual, c.Classify("ja", recent).Intent)
}

func TestClassify_RepetitionFromContext(t *testing.T) {
	got := New(Options{}).Classify("ok", []string{"das hatten wir schon"})
	assert.Equal(t, Repetition, got.Intent)
}

func TestClassify_EmptyIgnoresContext(t *testing.T) {
	got := New(Options{}).Classify("  \n", []string{"geil"})
	assert.Equal(t, Fallback, got.Intent)
	assert.InDelta(t, 0.2, got.Confidence, 1e-9)
	assert.Empty(t, got.MatchedKeys)
}

func TestClassify_MatchedKeysInPatternOrder(t *testing.T) {
	got := New(Options{}).Classify("Snapchat oder Instagram?", nil)
	require.Equal(t, Boundary, got.Intent)
	assert.Equal(t, []string{"instagram", "snapchat"}, got.MatchedKeys)
}

func TestClassify_CustomRulesAppend(t *testing.T) {
	rules := append(DefaultRules(), Rule{
		Name: "sadness", Intent: "sadness", Confidence: 0.6, Patterns: []Pattern{Keyword("traurig")},
	})
	got := New(Options{Rules: rules}).Classify("Ich bin traurig", nil)
	assert.Equal(t, Intent("sadness"), got.Intent)
}
