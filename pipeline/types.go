package pipeline

// Style is one of the supported visual directions for a design.
type Style string

const (
	StyleMinimalistVector  Style = "Minimalist Vector"
	StyleVintageRetro      Style = "Vintage Retro"
	StyleKawaiiCute        Style = "Kawaii Cute"
	StyleGothicGrunge      Style = "Gothic Grunge"
	StyleDreamyWatercolor  Style = "Dreamy Watercolor"
	StyleBoldTypography    Style = "Bold Typography"
	StyleCartoonMascot     Style = "Cartoon Mascot"
	StyleGeometricAbstract Style = "Geometric Abstract"
)

// Styles lists every supported style, in presentation order.
var Styles = []Style{
	StyleMinimalistVector,
	StyleVintageRetro,
	StyleKawaiiCute,
	StyleGothicGrunge,
	StyleDreamyWatercolor,
	StyleBoldTypography,
	StyleCartoonMascot,
	StyleGeometricAbstract,
}

// ProductType is one of the supported print-on-demand products.
type ProductType string

const (
	ProductTShirt     ProductType = "T-Shirt"
	ProductHoodie     ProductType = "Hoodie"
	ProductSweatshirt ProductType = "Sweatshirt"
	ProductMug        ProductType = "Mug"
	ProductToteBag    ProductType = "Tote Bag"
	ProductPoster     ProductType = "Poster"
	ProductPhoneCase  ProductType = "Phone Case"
)

// ProductTypes lists every supported product type.
var ProductTypes = []ProductType{
	ProductTShirt,
	ProductHoodie,
	ProductSweatshirt,
	ProductMug,
	ProductToteBag,
	ProductPoster,
	ProductPhoneCase,
}

// ParseProductType reports whether s names a supported product type.
func ParseProductType(s string) (ProductType, bool) {
	for _, pt := range ProductTypes {
		if string(pt) == s {
			return pt, true
		}
	}
	return "", false
}

// Concept is one marketable product idea. Produced by ideation in
// batches; immutable once produced. Titles are unique within a batch by
// provider contract.
type Concept struct {
	// Title names the concept.
	Title string `json:"title"`
	// Slogan is the short marketable text rendered onto the design,
	// not a style description.
	Slogan string `json:"slogan"`
	// Keywords are 2-3 style-fusion keywords.
	Keywords []string `json:"keywords"`
	// Vision is a one-sentence description of the artwork.
	Vision string `json:"vision"`
	// Rationale is a one-sentence reason the concept would sell.
	Rationale string `json:"rationale"`
}

// DesignAsset is one rendered graphic on a transparent background,
// bound to exactly one concept and style. Never mutated after creation.
type DesignAsset struct {
	Concept Concept `json:"concept"`
	Style   Style   `json:"style"`
	PNG     []byte  `json:"png"`
}

// ListingCopy is marketplace-ready copy for one finalized product. The
// length and count limits are requested of the provider but not
// re-validated here; a non-conforming response passes through as-is.
type ListingCopy struct {
	// Title is at most 140 characters.
	Title string `json:"title"`
	// Description is free-form markdown.
	Description string `json:"description"`
	// Variations holds 2-3 variation suggestions.
	Variations []string `json:"variations"`
	// Tags holds exactly 13 tags of at most 20 characters each.
	Tags []string `json:"tags"`
}

// Mockup is one photoreal scene render of a design on a product.
type Mockup struct {
	Scene string `json:"scene"`
	PNG   []byte `json:"png"`
}

// FinalizedProduct aggregates everything produced for one selected
// design. PublishedID is attached in place by the publish stage; it is
// the only mutation after creation.
type FinalizedProduct struct {
	ID          string      `json:"id"`
	Concept     Concept     `json:"concept"`
	Design      *DesignAsset `json:"-"`
	Mockups     []Mockup    `json:"-"`
	Listing     ListingCopy `json:"listing"`
	ProductType ProductType `json:"productType"`
	PublishedID string      `json:"publishedId,omitempty"`
}
