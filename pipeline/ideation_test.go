package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestIdeateParsesConcepts(t *testing.T) {
	payload := `[
		{"title":"A","slogan":"Sleigh All Day","keywords":["retro","fun"],"vision":"v1","rationale":"r1"},
		{"title":"B","slogan":"Let It Glow","keywords":["neon","winter","glow"],"vision":"v2","rationale":"r2"},
		{"title":"C","slogan":"Merry Everything","keywords":["festive","warm"],"vision":"v3","rationale":"r3"}
	]`
	text := &fakeText{fn: func(string, string, *genai.Schema) (json.RawMessage, error) {
		return json.RawMessage(payload), nil
	}}
	p := newTestPipeline(t, text, nil)

	concepts, err := p.Ideate(context.Background(), "Christmas", StyleMinimalistVector, ProductMug)
	require.NoError(t, err)
	require.Len(t, concepts, 3)
	for _, c := range concepts {
		assert.NotEmpty(t, c.Title)
		assert.NotEmpty(t, c.Slogan)
		assert.NotEmpty(t, c.Vision)
		assert.NotEmpty(t, c.Rationale)
		assert.GreaterOrEqual(t, len(c.Keywords), 2)
		assert.LessOrEqual(t, len(c.Keywords), 3)
	}

	// The request carries theme, style, and product, and asks for an
	// array of fully-required concept objects.
	assert.Contains(t, text.lastPrompt, "Christmas")
	assert.Contains(t, text.lastPrompt, "Minimalist Vector")
	assert.Contains(t, text.lastPrompt, "Mug")
	require.NotNil(t, text.lastSchema)
	assert.Equal(t, genai.TypeArray, text.lastSchema.Type)
	assert.ElementsMatch(t,
		[]string{"title", "slogan", "keywords", "vision", "rationale"},
		text.lastSchema.Items.Required)
}

func TestIdeateAcceptsNonThreeCount(t *testing.T) {
	// The batch size is a provider contract, not locally enforced.
	text := &fakeText{fn: func(string, string, *genai.Schema) (json.RawMessage, error) {
		return json.RawMessage(`[{"title":"Only One","slogan":"s","keywords":["a","b"],"vision":"v","rationale":"r"}]`), nil
	}}
	p := newTestPipeline(t, text, nil)

	concepts, err := p.Ideate(context.Background(), "Halloween", StyleGothicGrunge, ProductTShirt)
	require.NoError(t, err)
	assert.Len(t, concepts, 1)
}

func TestIdeateRejectsMalformedShape(t *testing.T) {
	text := &fakeText{fn: func(string, string, *genai.Schema) (json.RawMessage, error) {
		return json.RawMessage(`{"not":"an array"}`), nil
	}}
	p := newTestPipeline(t, text, nil)

	_, err := p.Ideate(context.Background(), "Easter", StyleKawaiiCute, ProductToteBag)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected shape")
	assert.Equal(t, 1, text.calls)
}
