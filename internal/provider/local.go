package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

// localHistory bounds the turns a local model sees.
const localHistory = 5

// Local talks to an OpenAI-compatible endpoint such as KoboldCpp's /v1.
type Local struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	topP        float64
}

func NewLocal(cfg *config.Config, extra ...option.RequestOption) *Local {
	baseURL := cfg.Provider.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultLocalBaseURL
	}
	apiKey := cfg.Provider.APIKey
	if apiKey == "" {
		apiKey = "local"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	opts = append(opts, extra...)

	return &Local{
		client:      openai.NewClient(opts...),
		model:       cfg.ProviderModel(),
		maxTokens:   int64(cfg.Provider.MaxTokens),
		temperature: cfg.Provider.Temperature,
		topP:        cfg.Provider.TopP,
	}
}

func (l *Local) Name() string { return config.ProviderLocal }

func (l *Local) Generate(ctx context.Context, history []thread.Turn, systemRules, userMessage string) (string, error) {
	if len(history) > localHistory {
		history = history[len(history)-localHistory:]
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemRules))
	for _, turn := range history {
		if turn.Text == "" {
			continue
		}
		if turn.Direction == thread.DirectionOut {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(UserTurn(userMessage)))

	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       l.model,
		Messages:    messages,
		MaxTokens:   openai.Int(l.maxTokens),
		Temperature: openai.Float(l.temperature),
		TopP:        openai.Float(l.topP),
	})
	if err != nil {
		return "", fmt.Errorf("local generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return cleanReply(resp.Choices[0].Message.Content)
}
