package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"holiday_merch_forge/retry"
)

const (
	defaultGeminiTextModel  = "gemini-2.5-flash"
	defaultGeminiImageModel = "gemini-2.5-flash-image"
)

// GeminiClient implements TextGenerator and ImageGenerator on the
// google genai SDK.
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

func NewGeminiClient(ctx context.Context, cfg *ProviderSettings) (*GeminiClient, error) {
	if cfg == nil {
		return nil, errors.New("provider config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; provide llm.api_key or GEMINI_API_KEY")
	}
	textModel := cfg.Model
	if textModel == "" {
		textModel = defaultGeminiTextModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = defaultGeminiImageModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

func (g *GeminiClient) GenerateStructured(ctx context.Context, prompt, system string, schema *genai.Schema) (json.RawMessage, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(prompt), cfg)
	if err != nil {
		return nil, wrapGenAIError(err)
	}
	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(text), nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, reference []byte, prompt string) ([]byte, error) {
	var parts []*genai.Part
	if len(reference) > 0 {
		parts = append(parts, genai.NewPartFromBytes(reference, "image/png"))
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, contents, nil)
	if err != nil {
		return nil, wrapGenAIError(err)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, ErrNoImage
}

// wrapGenAIError normalizes SDK failures into the canonical remote
// error record so the executor can classify them.
func wrapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &retry.RemoteError{
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Body:       apiErr.Status,
		}
	}
	return err
}
