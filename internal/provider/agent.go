package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cexll/agentsdk-go/pkg/api"
	"github.com/cexll/agentsdk-go/pkg/model"
	"github.com/google/uuid"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

const agentPersona = "Du schreibst kurze, natürliche Chat-Antworten auf Deutsch. Gib nur den Antworttext aus."

// Runtime is the slice of the agent runtime used here (allows mocking in tests).
type Runtime interface {
	Run(ctx context.Context, req api.Request) (*api.Response, error)
	Close()
}

type runtimeAdapter struct {
	rt   *api.Runtime
	root string
}

func (r *runtimeAdapter) Run(ctx context.Context, req api.Request) (*api.Response, error) {
	return r.rt.Run(ctx, req)
}

func (r *runtimeAdapter) Close() {
	r.rt.Close()
	_ = os.RemoveAll(r.root)
}

// RuntimeFactory creates a Runtime instance.
type RuntimeFactory func(cfg *config.Config) (Runtime, error)

// DefaultRuntimeFactory builds an agentsdk-go runtime with every built-in
// tool disabled; replies are plain text generation.
func DefaultRuntimeFactory(cfg *config.Config) (Runtime, error) {
	temp := cfg.Provider.Temperature
	var factory api.ModelFactory
	switch cfg.Provider.Type {
	case config.ProviderOpenAI:
		factory = &model.OpenAIProvider{
			APIKey:      cfg.Provider.APIKey,
			BaseURL:     cfg.Provider.BaseURL,
			ModelName:   cfg.ProviderModel(),
			MaxTokens:   cfg.Provider.MaxTokens,
			Temperature: &temp,
		}
	default:
		factory = &model.AnthropicProvider{
			APIKey:      cfg.Provider.APIKey,
			BaseURL:     cfg.Provider.BaseURL,
			ModelName:   cfg.ProviderModel(),
			MaxTokens:   cfg.Provider.MaxTokens,
			Temperature: &temp,
		}
	}

	root, err := os.MkdirTemp("", "replypilot-agent-")
	if err != nil {
		return nil, fmt.Errorf("create agent workspace: %w", err)
	}
	rt, err := api.New(context.Background(), api.Options{
		ProjectRoot:         root,
		ModelFactory:        factory,
		SystemPrompt:        agentPersona,
		MaxIterations:       1,
		EnabledBuiltinTools: []string{},
	})
	if err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	return &runtimeAdapter{rt: rt, root: root}, nil
}

// Agent generates replies through the agentsdk-go runtime (Anthropic or
// OpenAI models).
type Agent struct {
	name    string
	runtime Runtime
}

func NewAgent(cfg *config.Config, factory RuntimeFactory) (*Agent, error) {
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Provider.Type)
	}
	rt, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	return &Agent{name: cfg.Provider.Type, runtime: rt}, nil
}

func (a *Agent) Name() string { return a.name }

// Generate sends rules, transcript and message as one prompt. Every call uses
// a fresh session so the runtime keeps no conversation of its own.
func (a *Agent) Generate(ctx context.Context, history []thread.Turn, systemRules, userMessage string) (string, error) {
	resp, err := a.runtime.Run(ctx, api.Request{
		Prompt:    agentPrompt(history, systemRules, userMessage),
		SessionID: "reply-" + uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", a.name, err)
	}
	if resp == nil || resp.Result == nil {
		return "", ErrEmptyReply
	}
	return cleanReply(resp.Result.Output)
}

func (a *Agent) Close() {
	a.runtime.Close()
}

func agentPrompt(history []thread.Turn, systemRules, userMessage string) string {
	var b strings.Builder
	b.WriteString("[Regeln]\n")
	b.WriteString(systemRules)
	if len(history) > 0 {
		b.WriteString("\n\n[Verlauf]\n")
		for _, turn := range history {
			role := "user"
			if turn.Direction == thread.DirectionOut {
				role = "model"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, turn.Text)
		}
	}
	b.WriteString("\n[Aktuelle Nachricht]\n")
	b.WriteString(UserTurn(userMessage))
	return b.String()
}
