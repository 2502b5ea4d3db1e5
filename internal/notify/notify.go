// Package notify tells the operator that a draft is waiting in the input field.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stellarlinkco/replypilot/internal/config"
)

// Report describes one generated draft.
type Report struct {
	RunID    string
	DraftID  string
	Event    string
	Intent   string
	Provider string
	Inbound  string
	Text     string
	Flags    []string
	Blocked  bool
	Written  bool
}

type Notifier interface {
	Notify(ctx context.Context, r Report) error
}

// Nop drops every report.
type Nop struct{}

func (Nop) Notify(context.Context, Report) error { return nil }

// FromConfig returns a Telegram notifier when enabled, Nop otherwise.
func FromConfig(cfg config.NotifyConfig, logger *zap.Logger) (Notifier, error) {
	if !cfg.Telegram.Enabled {
		return Nop{}, nil
	}
	t, err := NewTelegram(cfg.Telegram, logger)
	if err != nil {
		return nil, err
	}
	if err := t.Init(); err != nil {
		return nil, err
	}
	return t, nil
}

const inboundPreview = 300

// Summary is the plain-text form of r.
func Summary(r Report) string {
	var b strings.Builder
	switch {
	case r.Blocked:
		b.WriteString("Draft blocked")
	case r.Written:
		b.WriteString("Draft ready")
	default:
		b.WriteString("Draft not written")
	}
	fmt.Fprintf(&b, " (%s", r.Event)
	if r.Intent != "" {
		fmt.Fprintf(&b, ", %s", r.Intent)
	}
	if r.Provider != "" {
		fmt.Fprintf(&b, ", %s", r.Provider)
	}
	b.WriteString(")\n")
	if r.Inbound != "" {
		fmt.Fprintf(&b, "In: %s\n", truncate(r.Inbound, inboundPreview))
	}
	if r.Text != "" {
		fmt.Fprintf(&b, "Out: %s\n", r.Text)
	}
	if len(r.Flags) > 0 {
		fmt.Fprintf(&b, "Flags: %s\n", strings.Join(r.Flags, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
