package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// MockGenerator is a simple stand-in for both collaborators, useful for
// local debugging without API keys. It never calls an external model.
type MockGenerator struct{}

func (MockGenerator) GenerateStructured(_ context.Context, _, _ string, schema *genai.Schema) (json.RawMessage, error) {
	// An array schema means ideation, an object schema means listing copy.
	if schema != nil && schema.Type == genai.TypeArray {
		concepts := []Concept{
			{Title: "Mock Concept One", Slogan: "Merry Everything", Keywords: []string{"festive", "cozy"}, Vision: "A wreath of stars.", Rationale: "Broad seasonal appeal."},
			{Title: "Mock Concept Two", Slogan: "Sleigh All Day", Keywords: []string{"playful", "retro"}, Vision: "A sleigh in motion.", Rationale: "Pun-driven impulse buy."},
			{Title: "Mock Concept Three", Slogan: "Let It Glow", Keywords: []string{"neon", "winter"}, Vision: "Glowing string lights.", Rationale: "Works across products."},
		}
		return json.Marshal(concepts)
	}

	tags := make([]string, 13)
	for i := range tags {
		tags[i] = fmt.Sprintf("mock tag %d", i+1)
	}
	return json.Marshal(ListingCopy{
		Title:       "Mock Listing Title",
		Description: "## About this design\n\nA mock description.",
		Variations:  []string{"Classic fit", "Oversized"},
		Tags:        tags,
	})
}

// mockPNG is the 8-byte PNG signature; enough for anything that only
// moves bytes around.
var mockPNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func (MockGenerator) GenerateImage(_ context.Context, _ []byte, _ string) ([]byte, error) {
	return mockPNG, nil
}
