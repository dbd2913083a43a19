package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"holiday_merch_forge/retry"
)

// OpenAIText implements TextGenerator using the official openai-go SDK
// (chat completions). Image generation is not supported on this
// provider; it exists so the text side of the pipeline can run against
// any OpenAI-compatible endpoint.
type OpenAIText struct {
	Model string
	Opts  []option.RequestOption
}

func NewOpenAITextFromConfig(cfg *ProviderSettings) (*OpenAIText, error) {
	if cfg == nil {
		return nil, errors.New("provider config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key or OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIText{Model: cfg.Model, Opts: opts}, nil
}

func (o *OpenAIText) GenerateStructured(ctx context.Context, prompt, system string, schema *genai.Schema) (json.RawMessage, error) {
	client := openai.NewClient(o.Opts...)

	// Chat completions have no schema parameter here, so the schema is
	// carried as an instruction instead.
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var sys strings.Builder
	if system != "" {
		sys.WriteString(system)
		sys.WriteString("\n")
	}
	sys.WriteString("Respond with raw JSON only, no prose and no code fences, matching this JSON schema exactly:\n")
	sys.Write(schemaJSON)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(sys.String()),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(content), nil
}

// stripCodeFence tolerates models that wrap JSON in ```json fences
// despite the instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &retry.RemoteError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
		}
	}
	return err
}
