package pipeline

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// FinalizeItem is one (design, product-type) pair selected for
// finalization. The product type may differ from the session default.
type FinalizeItem struct {
	Design      *DesignAsset
	ProductType ProductType
}

// ProgressFunc receives (completed steps, total steps) after each step
// of a finalization batch.
type ProgressFunc func(done, total int)

// Finalize runs listing copy then the mockup batch for each item, in
// input order. The batch is all-or-nothing: the first failure aborts
// and discards any items already completed.
func (p *Pipeline) Finalize(ctx context.Context, items []FinalizeItem, theme string, progress ProgressFunc) ([]*FinalizedProduct, error) {
	if len(items) == 0 {
		return nil, nil
	}

	total := len(items) * (1 + MockupScenesPerDesign)
	done := 0
	report := func() {
		if progress != nil {
			progress(done, total)
		}
	}
	report()

	products := make([]*FinalizedProduct, 0, len(items))
	for _, item := range items {
		if item.Design == nil {
			return nil, fmt.Errorf("selection references a missing design")
		}
		concept := item.Design.Concept

		listing, err := p.GenerateListing(ctx, concept, item.ProductType, theme)
		if err != nil {
			return nil, err
		}
		done++
		report()

		mockups, err := p.GenerateMockups(ctx, item.Design, item.ProductType, theme, func() {
			done++
			report()
		})
		if err != nil {
			return nil, err
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generate product id: %w", err)
		}
		products = append(products, &FinalizedProduct{
			ID:          "prod-" + id,
			Concept:     concept,
			Design:      item.Design,
			Mockups:     mockups,
			Listing:     listing,
			ProductType: item.ProductType,
		})
	}

	return products, nil
}
