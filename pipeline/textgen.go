package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/genai"
)

// Sentinel errors for provider responses that succeed at the transport
// level but carry no usable payload. These are content errors, never
// retried beyond the executor's transient handling.
var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrNoImage       = errors.New("model response carried no image payload")
)

// TextGenerator produces structured JSON from a prompt and schema. The
// schema is expressed in genai terms because Gemini is the primary
// provider; other providers translate it into instructions.
type TextGenerator interface {
	GenerateStructured(ctx context.Context, prompt, system string, schema *genai.Schema) (json.RawMessage, error)
}

// ImageGenerator renders an image from a text prompt, optionally
// conditioned on a reference image (image-to-image for mockups). A
// response with no extractable image payload yields ErrNoImage.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, reference []byte, prompt string) ([]byte, error)
}

// ProviderSettings is the base configuration handed to a concrete
// provider implementation.
type ProviderSettings struct {
	Provider   string
	Model      string
	ImageModel string
	APIKey     string
	BaseURL    string
}
