package publisher

import "holiday_merch_forge/pipeline"

// CatalogEntry maps a product type onto the provider's catalog: which
// blueprint to print, through which print provider, on which variants,
// and onto which print area. These ids must be preserved exactly;
// publish correctness depends on them.
type CatalogEntry struct {
	BlueprintID     int
	PrintProviderID int
	VariantIDs      []int
	Placement       string
}

var catalog = map[pipeline.ProductType]CatalogEntry{
	pipeline.ProductTShirt: {
		BlueprintID:     6,
		PrintProviderID: 103,
		VariantIDs:      []int{12100, 12101, 12102, 12103, 12104, 12105},
		Placement:       "front",
	},
	pipeline.ProductHoodie: {
		BlueprintID:     77,
		PrintProviderID: 29,
		VariantIDs:      []int{32901, 32902, 32903, 32904, 32905},
		Placement:       "front",
	},
	pipeline.ProductSweatshirt: {
		BlueprintID:     49,
		PrintProviderID: 29,
		VariantIDs:      []int{25301, 25302, 25303, 25304, 25305},
		Placement:       "front",
	},
	pipeline.ProductMug: {
		BlueprintID:     68,
		PrintProviderID: 9,
		VariantIDs:      []int{33719, 33720},
		Placement:       "front",
	},
	pipeline.ProductToteBag: {
		BlueprintID:     348,
		PrintProviderID: 28,
		VariantIDs:      []int{45101, 45102},
		Placement:       "front",
	},
	pipeline.ProductPoster: {
		BlueprintID:     97,
		PrintProviderID: 99,
		VariantIDs:      []int{33742, 33743, 33744},
		Placement:       "front",
	},
	pipeline.ProductPhoneCase: {
		BlueprintID:     268,
		PrintProviderID: 27,
		VariantIDs:      []int{42101, 42102, 42103},
		Placement:       "front",
	},
}

// CatalogFor returns the catalog mapping for a product type.
func CatalogFor(pt pipeline.ProductType) (CatalogEntry, bool) {
	entry, ok := catalog[pt]
	return entry, ok
}
