package provider

import (
	"context"
	"time"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/templates"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

// Templates answers from the built-in pools without any model. It never fails.
type Templates struct {
	composer *templates.Composer
	now      func() time.Time
}

func NewTemplates(c *templates.Composer, now func() time.Time) *Templates {
	if now == nil {
		now = time.Now
	}
	return &Templates{composer: c, now: now}
}

func (t *Templates) Name() string { return config.ProviderTemplates }

func (t *Templates) Generate(_ context.Context, history []thread.Turn, _, userMessage string) (string, error) {
	recent := make([]string, 0, len(history))
	for _, turn := range history {
		recent = append(recent, turn.Text)
	}
	// the newest turn is the message itself
	if n := len(recent); n > 0 && recent[n-1] == userMessage {
		recent = recent[:n-1]
	}
	d := t.composer.Compose(templates.DraftInput{Text: userMessage, Recent: recent, Now: t.now()})
	return cleanReply(d.Text)
}
