// Package provider turns a thread history into a candidate reply using one
// of the configured text generators.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/templates"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrEmptyReply      = errors.New("provider returned an empty reply")
)

// Provider generates one candidate reply. history is oldest first.
type Provider interface {
	Name() string
	Generate(ctx context.Context, history []thread.Turn, systemRules, userMessage string) (string, error)
}

// Options carries the collaborators some providers need.
type Options struct {
	// Composer backs the templates provider.
	Composer *templates.Composer
	// RuntimeFactory overrides the agent runtime (tests).
	RuntimeFactory RuntimeFactory
}

// New builds the provider selected by cfg.Provider.Type.
func New(ctx context.Context, cfg *config.Config, opts Options) (Provider, error) {
	switch t := strings.ToLower(strings.TrimSpace(cfg.Provider.Type)); t {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	case config.ProviderLocal:
		return NewLocal(cfg), nil
	case config.ProviderAnthropic, config.ProviderOpenAI:
		factory := opts.RuntimeFactory
		if factory == nil {
			factory = DefaultRuntimeFactory
		}
		return NewAgent(cfg, factory)
	case config.ProviderTemplates:
		if opts.Composer == nil {
			return nil, fmt.Errorf("templates provider: composer is required")
		}
		return NewTemplates(opts.Composer, nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, t)
	}
}

func cleanReply(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyReply
	}
	return s, nil
}
