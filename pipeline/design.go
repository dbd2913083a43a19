package pipeline

import (
	"context"
	"errors"
	"fmt"

	"holiday_merch_forge/retry"
)

// RenderDesign turns one concept into an isolated graphic on a
// transparent background. A response without an image payload is a
// terminal condition for the stage.
func (p *Pipeline) RenderDesign(ctx context.Context, concept Concept, style Style) (*DesignAsset, error) {
	prompt := buildDesignPrompt(concept, style)

	img, err := retry.Do(ctx, p.exec, "design render", func(ctx context.Context) ([]byte, error) {
		return p.image.GenerateImage(ctx, nil, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrNoImage) {
			return nil, fmt.Errorf("no image generated for %q: %w", concept.Title, err)
		}
		return nil, err
	}

	p.logger.Info("design rendered", "concept", concept.Title, "style", style, "bytes", len(img))
	return &DesignAsset{Concept: concept, Style: style, PNG: img}, nil
}
