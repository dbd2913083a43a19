package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"holiday_merch_forge/retry"
)

// GenerateListing produces marketplace copy for one concept. The title,
// variation, and tag limits are part of the request schema; the
// response is passed through without local correction.
func (p *Pipeline) GenerateListing(ctx context.Context, concept Concept, product ProductType, theme string) (ListingCopy, error) {
	prompt := buildListingPrompt(concept, product, theme)

	raw, err := retry.Do(ctx, p.exec, "listing copy", func(ctx context.Context) (json.RawMessage, error) {
		return p.text.GenerateStructured(ctx, prompt, listingSystem, listingSchema())
	})
	if err != nil {
		return ListingCopy{}, err
	}

	var copy ListingCopy
	if err := json.Unmarshal(raw, &copy); err != nil {
		return ListingCopy{}, fmt.Errorf("listing copy returned an unexpected shape: %w", err)
	}
	p.logger.Info("listing copy generated", "concept", concept.Title, "tags", len(copy.Tags))
	return copy, nil
}
