package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/thread"
)

// geminiModels is the part of genai.Models used here.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Gemini struct {
	models      geminiModels
	model       string
	maxTokens   int32
	temperature float32
	topP        float32
}

func NewGemini(ctx context.Context, cfg *config.Config) (*Gemini, error) {
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Provider.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models geminiModels, cfg *config.Config) *Gemini {
	return &Gemini{
		models:      models,
		model:       cfg.ProviderModel(),
		maxTokens:   int32(cfg.Provider.MaxTokens),
		temperature: float32(cfg.Provider.Temperature),
		topP:        float32(cfg.Provider.TopP),
	}
}

func (g *Gemini) Name() string { return config.ProviderGemini }

func (g *Gemini) Generate(ctx context.Context, history []thread.Turn, systemRules, userMessage string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		if turn.Text == "" {
			continue
		}
		role := genai.RoleUser
		if turn.Direction == thread.DirectionOut {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText("--- LETZTE NACHRICHT ---\n"+UserTurn(userMessage), genai.RoleUser))

	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemRules, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		TopP:              genai.Ptr(g.topP),
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyReply
	}
	return cleanReply(resp.Text())
}
