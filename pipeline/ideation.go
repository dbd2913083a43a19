package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"holiday_merch_forge/retry"
)

// Ideate turns a theme, style, and product type into a batch of
// marketable concepts. The provider is asked for exactly 3; whatever
// count it returns is accepted as-is.
func (p *Pipeline) Ideate(ctx context.Context, theme string, style Style, product ProductType) ([]Concept, error) {
	prompt := buildIdeationPrompt(theme, style, product)

	raw, err := retry.Do(ctx, p.exec, "concept ideation", func(ctx context.Context) (json.RawMessage, error) {
		return p.text.GenerateStructured(ctx, prompt, ideationSystem, conceptSchema())
	})
	if err != nil {
		return nil, err
	}

	var concepts []Concept
	if err := json.Unmarshal(raw, &concepts); err != nil {
		return nil, fmt.Errorf("concept generation returned an unexpected shape: %w", err)
	}
	p.logger.Info("concepts generated", "theme", theme, "style", style, "count", len(concepts))
	return concepts, nil
}
