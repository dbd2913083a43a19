// Package publisher drives the print-on-demand commerce API: shop
// resolution, asset upload, and product creation.
package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"holiday_merch_forge/pipeline"
	"holiday_merch_forge/retry"
)

const (
	defaultBaseURL    = "https://api.printify.com/v1"
	defaultPriceCents = 1999

	// The uploaded artwork is centered on the primary print area at
	// this scale.
	printScale = 0.8
)

// ErrNoShops reports a credential with no shops behind it.
var ErrNoShops = errors.New("no shops found for the provided credential")

// Shop is one storefront reachable with the credential.
type Shop struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type uploadResp struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
}

type createProductResp struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type productImage struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
	Angle int     `json:"angle"`
}

type placeholder struct {
	Position string         `json:"position"`
	Images   []productImage `json:"images"`
}

type printArea struct {
	VariantIDs   []int         `json:"variant_ids"`
	Placeholders []placeholder `json:"placeholders"`
}

type productVariant struct {
	ID        int  `json:"id"`
	Price     int  `json:"price"`
	IsEnabled bool `json:"is_enabled"`
}

type createProductPayload struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Tags            []string         `json:"tags"`
	BlueprintID     int              `json:"blueprint_id"`
	PrintProviderID int              `json:"print_provider_id"`
	Variants        []productVariant `json:"variants"`
	PrintAreas      []printArea      `json:"print_areas"`
}

type uploadPayload struct {
	FileName string `json:"file_name"`
	Contents string `json:"contents"`
}

// Publisher executes the three-call publish sequence against the
// commerce API, each call going through the retry executor.
type Publisher struct {
	cfg     Config
	client  *http.Client
	exec    *retry.Executor
	logger  *slog.Logger
	baseURL string
}

func New(cfg Config, client *http.Client, exec *retry.Executor, logger *slog.Logger) (*Publisher, error) {
	if cfg.APIToken == "" {
		return nil, ErrNoToken
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if exec == nil {
		return nil, errors.New("retry executor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Publisher{
		cfg:     cfg,
		client:  client,
		exec:    exec,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Publish resolves the shop, uploads the design, and creates the
// listing. It returns the created listing id. There is no idempotence
// guard here; calling it twice creates a duplicate listing.
func (p *Publisher) Publish(ctx context.Context, product *pipeline.FinalizedProduct) (string, error) {
	if product == nil || product.Design == nil {
		return "", errors.New("finalized product with a design asset is required")
	}
	entry, ok := CatalogFor(product.ProductType)
	if !ok {
		return "", fmt.Errorf("no catalog mapping for product type %q", product.ProductType)
	}

	shops, err := retry.Do(ctx, p.exec, "resolve shop", func(ctx context.Context) ([]Shop, error) {
		return p.listShops(ctx)
	})
	if err != nil {
		return "", err
	}
	if len(shops) == 0 {
		return "", ErrNoShops
	}
	shop := shops[0]
	p.logger.Info("publishing to shop", "shop", shop.Title, "id", shop.ID)

	filename := safeFilename(product.Concept.Title) + ".png"
	assetID, err := retry.Do(ctx, p.exec, "upload design", func(ctx context.Context) (string, error) {
		return p.uploadImage(ctx, product.Design.PNG, filename)
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("design uploaded", "file", filename, "asset_id", assetID)

	created, err := retry.Do(ctx, p.exec, "create listing", func(ctx context.Context) (createProductResp, error) {
		return p.createProduct(ctx, shop.ID, entry, assetID, product.Listing)
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("listing created", "listing_id", created.ID, "title", created.Title)
	return created.ID, nil
}

func (p *Publisher) listShops(ctx context.Context) ([]Shop, error) {
	var shops []Shop
	if err := p.doJSON(ctx, http.MethodGet, "/shops.json", nil, &shops, "resolve shop"); err != nil {
		return nil, err
	}
	return shops, nil
}

func (p *Publisher) uploadImage(ctx context.Context, png []byte, filename string) (string, error) {
	payload := uploadPayload{
		FileName: filename,
		Contents: base64.StdEncoding.EncodeToString(png),
	}
	var resp uploadResp
	if err := p.doJSON(ctx, http.MethodPost, "/uploads/images.json", payload, &resp, "upload design"); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("upload response carried no asset id")
	}
	return resp.ID, nil
}

func (p *Publisher) createProduct(ctx context.Context, shopID int, entry CatalogEntry, assetID string, listing pipeline.ListingCopy) (createProductResp, error) {
	price := p.cfg.DefaultPriceCents
	if price == 0 {
		price = defaultPriceCents
	}
	variants := make([]productVariant, len(entry.VariantIDs))
	for i, id := range entry.VariantIDs {
		variants[i] = productVariant{ID: id, Price: price, IsEnabled: true}
	}

	description, err := renderDescription(listing.Description)
	if err != nil {
		return createProductResp{}, err
	}

	payload := createProductPayload{
		Title:           listing.Title,
		Description:     description,
		Tags:            listing.Tags,
		BlueprintID:     entry.BlueprintID,
		PrintProviderID: entry.PrintProviderID,
		Variants:        variants,
		PrintAreas: []printArea{{
			VariantIDs: entry.VariantIDs,
			Placeholders: []placeholder{{
				Position: entry.Placement,
				Images: []productImage{{
					ID:    assetID,
					X:     0.5,
					Y:     0.5,
					Scale: printScale,
					Angle: 0,
				}},
			}},
		}},
	}

	var resp createProductResp
	path := fmt.Sprintf("/shops/%d/products.json", shopID)
	if err := p.doJSON(ctx, http.MethodPost, path, payload, &resp, "create listing"); err != nil {
		return createProductResp{}, err
	}
	if resp.ID == "" {
		return createProductResp{}, errors.New("create response carried no listing id")
	}
	return resp, nil
}

// doJSON performs one authenticated JSON round trip. HTTP-level
// failures come back as a canonical remote error carrying the raw
// response body, so the executor can classify them and callers can
// surface the provider's own message.
func (p *Publisher) doJSON(ctx context.Context, method, path string, payload, out any, op string) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &retry.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("commerce api: %s failed", op),
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("commerce api: %s returned malformed JSON: %w", op, err)
		}
	}
	return nil
}

// renderDescription converts the listing's markdown description to the
// HTML the marketplace expects.
func renderDescription(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// safeFilename derives a filesystem-safe name from a concept title.
func safeFilename(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "design"
	}
	return name
}
