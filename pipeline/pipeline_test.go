package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"holiday_merch_forge/retry"
)

// fakeText scripts the structured-text collaborator.
type fakeText struct {
	fn    func(prompt, system string, schema *genai.Schema) (json.RawMessage, error)
	calls int

	lastPrompt string
	lastSchema *genai.Schema
}

func (f *fakeText) GenerateStructured(_ context.Context, prompt, system string, schema *genai.Schema) (json.RawMessage, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastSchema = schema
	return f.fn(prompt, system, schema)
}

// fakeImage scripts the image collaborator.
type fakeImage struct {
	fn    func(reference []byte, prompt string) ([]byte, error)
	calls int

	prompts []string
	refs    [][]byte
}

func (f *fakeImage) GenerateImage(_ context.Context, reference []byte, prompt string) ([]byte, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.refs = append(f.refs, reference)
	return f.fn(reference, prompt)
}

func newTestPipeline(t *testing.T, text TextGenerator, image ImageGenerator) *Pipeline {
	t.Helper()
	if text == nil {
		text = &fakeText{fn: func(string, string, *genai.Schema) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		}}
	}
	if image == nil {
		image = &fakeImage{fn: func([]byte, string) ([]byte, error) {
			return []byte("png"), nil
		}}
	}
	logger := slog.New(slog.DiscardHandler)
	p, err := New(text, image, retry.New(logger), logger)
	require.NoError(t, err)
	p.SetMockupPace(time.Nanosecond)
	return p
}

func testConcept() Concept {
	return Concept{
		Title:     "Gnome for the Holidays",
		Slogan:    "Gnome for the Holidays",
		Keywords:  []string{"gnome", "cozy"},
		Vision:    "A tiny gnome under a giant striped hat.",
		Rationale: "Pun plus mascot is a proven seller.",
	}
}
