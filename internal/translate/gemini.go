package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiConfig configures the Gemini generateContent backend.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL  string
	Settings Settings
}

// Gemini translates through the Gemini API.
type Gemini struct {
	client   *genai.Client
	model    string
	settings Settings
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, settings: cfg.Settings}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Translate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.settings.Temperature),
		TopP:        genai.Ptr(g.settings.TopP),
	}
	if g.settings.TopK > 0 {
		config.TopK = genai.Ptr(float32(g.settings.TopK))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(req, g.settings.Domain)), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return extractGeminiText(resp)
}

// extractGeminiText reads the first candidate's first text part.
func extractGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", invalidResponse("gemini returned no candidates")
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return "", invalidResponse("gemini candidate has no content parts")
	}
	return cleanTranslation(content.Parts[0].Text, "gemini")
}
