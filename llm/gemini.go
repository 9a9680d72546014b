package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, config: generationConfig()}, nil
}

func generationConfig() *genai.GenerateContentConfig {
	var safety []*genai.SafetySetting
	for _, c := range []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	} {
		safety = append(safety, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockThresholdBlockNone})
	}
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.5),
		TopP:             genai.Ptr[float32](1),
		TopK:             genai.Ptr[float32](32),
		MaxOutputTokens:  512,
		ResponseMIMEType: "text/plain",
		SafetySettings:   safety,
	}
}

func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}
