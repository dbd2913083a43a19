package pipeline

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Art-direction blocks, one per style. Unknown styles fall back to the
// Minimalist Vector block.
var styleDirections = map[Style]string{
	StyleMinimalistVector:  "Clean flat vector shapes, a restrained 3-4 color palette, generous negative space, crisp geometric linework, no gradients or texture.",
	StyleVintageRetro:      "Distressed 70s screen-print texture, muted sunset palette, arched type, halftone shading, worn-in edges.",
	StyleKawaiiCute:        "Chubby rounded characters with blushing cheeks, pastel palette, thick soft outlines, sparkles and tiny hearts.",
	StyleGothicGrunge:      "High-contrast black and bone-white, ornate blackletter accents, scratchy ink texture, thorns and moody shadows.",
	StyleDreamyWatercolor:  "Soft translucent watercolor washes, delicate pigment blooms, loose wet-on-wet edges, airy pastel gradients.",
	StyleBoldTypography:    "Type-first composition, heavy condensed sans or chunky serif, tight kerning, strong baseline grid, maximum two ink colors.",
	StyleCartoonMascot:     "A single expressive mascot character, thick confident outlines, flat cel shading, exaggerated face and pose.",
	StyleGeometricAbstract: "Interlocking geometric forms, Bauhaus-inspired palette, precise symmetry, overlapping translucent shapes.",
}

func directionFor(style Style) string {
	if d, ok := styleDirections[style]; ok {
		return d
	}
	return styleDirections[StyleMinimalistVector]
}

const ideationSystem = "You are a senior print-on-demand merch strategist. You invent design concepts that sell, not generic clipart ideas."

func buildIdeationPrompt(theme string, style Style, product ProductType) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Invent exactly 3 distinct, marketable %s design concepts for the holiday theme %q in the %q visual style.\n", product, theme, style))
	sb.WriteString("Rules:\n")
	sb.WriteString("- Each concept title must be unique within the batch.\n")
	sb.WriteString("- The slogan is the short text printed on the product itself. It must be catchy and marketable, never a description of the art style.\n")
	sb.WriteString("- Give 2-3 keywords fusing the theme with the style.\n")
	sb.WriteString("- Vision is one sentence describing the artwork.\n")
	sb.WriteString("- Rationale is one sentence on why this would sell.\n")
	return sb.String()
}

// conceptSchema is the structured-output contract for ideation: an
// array of concepts with every field required.
func conceptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":  {Type: genai.TypeString},
				"slogan": {Type: genai.TypeString, Description: "Short marketable text printed on the product."},
				"keywords": {
					Type:     genai.TypeArray,
					Items:    &genai.Schema{Type: genai.TypeString},
					MinItems: genai.Ptr(int64(2)),
					MaxItems: genai.Ptr(int64(3)),
				},
				"vision":    {Type: genai.TypeString},
				"rationale": {Type: genai.TypeString},
			},
			Required: []string{"title", "slogan", "keywords", "vision", "rationale"},
		},
	}
}

func buildDesignPrompt(concept Concept, style Style) string {
	var sb strings.Builder
	sb.WriteString("Create a single isolated graphic for apparel printing, on a fully transparent background. ")
	sb.WriteString("No mockup, no scene, no product, no model - only the artwork itself.\n")
	sb.WriteString(fmt.Sprintf("The graphic must include the text %q rendered verbatim, with no spelling deviation and no extra words anywhere in the image.\n", concept.Slogan))
	sb.WriteString(fmt.Sprintf("Artwork vision: %s\n", concept.Vision))
	sb.WriteString("Art direction: ")
	sb.WriteString(directionFor(style))
	return sb.String()
}

const listingSystem = "You are an SEO copywriter for handmade-marketplace product listings. You write copy that ranks in search and converts browsers into buyers."

func buildListingPrompt(concept Concept, product ProductType, theme string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a marketplace listing for a %s featuring the design %q (slogan: %q, theme: %s).\n", product, concept.Title, concept.Slogan, theme))
	sb.WriteString("Rules:\n")
	sb.WriteString("- Title: at most 140 characters, keyword-rich, front-loaded.\n")
	sb.WriteString("- Description: markdown, warm and specific, covering the design, materials, and gifting occasions.\n")
	sb.WriteString("- Variations: 2-3 suggestions for alternate colorways or formats.\n")
	sb.WriteString("- Tags: exactly 13 tags, each at most 20 characters, lowercase.\n")
	return sb.String()
}

// listingSchema requests the marketplace limits from the provider. The
// limits are not re-validated locally; see ListingCopy.
func listingSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString, MaxLength: genai.Ptr(int64(140))},
			"description": {Type: genai.TypeString},
			"variations": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: genai.Ptr(int64(2)),
				MaxItems: genai.Ptr(int64(3)),
			},
			"tags": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString, MaxLength: genai.Ptr(int64(20))},
				MinItems: genai.Ptr(int64(13)),
				MaxItems: genai.Ptr(int64(13)),
			},
		},
		Required: []string{"title", "description", "variations", "tags"},
	}
}

// SceneTemplate is one mockup scene. Label order is significant for
// filenames and gallery position; the renders themselves are
// independent of each other.
type SceneTemplate struct {
	Label  string
	Prompt string
}

// Invariant suffix on every scene prompt.
const photorealSuffix = " Photorealistic product photography, natural soft lighting, sharp focus. Any person in frame has a clearly visible, friendly face."

var lifestyleColorways = []string{"black", "white", "heather gray", "navy", "forest green", "burgundy"}

// sceneTemplates returns the fixed ordered list of 12 mockup scenes for
// one design.
func sceneTemplates(product ProductType, theme string, concept Concept) []SceneTemplate {
	templates := []SceneTemplate{
		{
			Label:  "hero",
			Prompt: fmt.Sprintf("Apply this exact graphic to a %s and shoot a neutral hero product photo on a clean seamless studio background.", product),
		},
	}
	for _, color := range lifestyleColorways {
		templates = append(templates, SceneTemplate{
			Label:  "lifestyle-" + strings.ReplaceAll(color, " ", "-"),
			Prompt: fmt.Sprintf("Apply this exact graphic to a %s %s worn or used by a happy person in a candid everyday lifestyle scene.", color, product),
		})
	}
	templates = append(templates,
		SceneTemplate{
			Label:  "studio-alt-colors",
			Prompt: fmt.Sprintf("Apply this exact graphic to a sand-colored %s in a minimal studio still-life with soft shadows, a sky-blue variant visible behind it.", product),
		},
		SceneTemplate{
			Label:  "detail-closeup",
			Prompt: fmt.Sprintf("Extreme close-up of this exact graphic printed on the %s, showing fabric or surface texture and print fidelity.", product),
		},
		SceneTemplate{
			Label:  "flatlay",
			Prompt: fmt.Sprintf("Top-down flatlay of the %s with this exact graphic, styled with props evoking %s.", product, strings.Join(concept.Keywords, ", ")),
		},
		SceneTemplate{
			Label:  "holiday-lifestyle",
			Prompt: fmt.Sprintf("Apply this exact graphic to a %s in a cozy %s setting with seasonal decorations softly blurred in the background.", product, theme),
		},
		SceneTemplate{
			Label:  "angled-folded",
			Prompt: fmt.Sprintf("The %s with this exact graphic, folded or angled on a wooden surface, shot from a three-quarter angle.", product),
		},
	)
	for i := range templates {
		templates[i].Prompt += photorealSuffix
	}
	return templates
}

// MockupScenesPerDesign is the number of scene templates attempted per
// design. Progress totals depend on it.
const MockupScenesPerDesign = 12
