package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"holiday_merch_forge/pipeline"
	"holiday_merch_forge/publisher"
	"holiday_merch_forge/retry"
	"holiday_merch_forge/server"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to config.json")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	theme := flag.String("theme", "", "holiday theme for one-shot CLI mode")
	styleName := flag.String("style", string(pipeline.StyleMinimalistVector), "visual style")
	productName := flag.String("product", string(pipeline.ProductTShirt), "product type")
	outDir := flag.String("out", "out", "output directory for one-shot CLI mode")
	mock := flag.Bool("mock", false, "use the mock generators (no API keys needed)")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := publisher.LoadConfig(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fatal(err)
		}
		cfg = publisher.DefaultConfig()
	}

	exec := retry.New(logger)
	pipe, err := buildPipeline(cfg, exec, logger, *mock)
	if err != nil {
		fatal(err)
	}

	var pub server.Publisher
	if cfg.APIToken != "" {
		p, err := publisher.New(cfg, nil, exec, logger)
		if err != nil {
			fatal(err)
		}
		pub = p
	}

	if *serve {
		srv, err := server.New(pipe, pub, logger)
		if err != nil {
			fatal(err)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		if listen == "" {
			listen = ":8080"
		}
		logger.Info("starting web server", "addr", listen)
		fatal(http.ListenAndServe(listen, srv.Routes()))
		return
	}

	if *theme == "" {
		fmt.Fprintln(os.Stderr, "--theme is required (or use --serve)")
		os.Exit(1)
	}
	if err := runOnce(pipe, *theme, *styleName, *productName, *outDir, logger); err != nil {
		fatal(err)
	}
}

func buildPipeline(cfg publisher.Config, exec *retry.Executor, logger *slog.Logger, mock bool) (*pipeline.Pipeline, error) {
	if mock {
		p, err := pipeline.New(pipeline.MockGenerator{}, pipeline.MockGenerator{}, exec, logger)
		if err != nil {
			return nil, err
		}
		p.SetMockupPace(time.Millisecond)
		return p, nil
	}

	llm := cfg.LLM
	if llm == nil || llm.APIKey == "" {
		return nil, fmt.Errorf("llm config missing; set llm.api_key in config or GEMINI_API_KEY")
	}

	// Image generation always runs on Gemini; only the text side is
	// switchable, mirroring the providers' capability split.
	ctx := context.Background()
	geminiKey := llm.APIKey
	if llm.Provider == "openai" {
		geminiKey = os.Getenv("GEMINI_API_KEY")
	}
	gemini, err := pipeline.NewGeminiClient(ctx, &pipeline.ProviderSettings{
		Model:      llm.Model,
		ImageModel: llm.ImageModel,
		APIKey:     geminiKey,
	})
	if err != nil {
		return nil, err
	}

	var text pipeline.TextGenerator = gemini
	switch llm.Provider {
	case "", "gemini":
	case "openai":
		text, err = pipeline.NewOpenAITextFromConfig(&pipeline.ProviderSettings{
			Provider: llm.Provider,
			Model:    llm.Model,
			APIKey:   llm.APIKey,
			BaseURL:  llm.BaseURL,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("llm provider %s not supported", llm.Provider)
	}

	return pipeline.New(text, gemini, exec, logger)
}

// runOnce drives the full pipeline for one theme from the command line
// and writes every asset to disk: ideation, a design per concept, then
// finalization over all designs.
func runOnce(pipe *pipeline.Pipeline, theme, styleName, productName, outDir string, logger *slog.Logger) error {
	product, ok := pipeline.ParseProductType(productName)
	if !ok {
		return fmt.Errorf("unknown product type %q", productName)
	}
	style := pipeline.Style(styleName)
	ctx := context.Background()

	concepts, err := pipe.Ideate(ctx, theme, style, product)
	if err != nil {
		return err
	}

	var items []pipeline.FinalizeItem
	for _, concept := range concepts {
		asset, err := pipe.RenderDesign(ctx, concept, style)
		if err != nil {
			return err
		}
		items = append(items, pipeline.FinalizeItem{Design: asset, ProductType: product})
	}

	products, err := pipe.Finalize(ctx, items, theme, func(done, total int) {
		logger.Info("finalize progress", "done", done, "total", total)
	})
	if err != nil {
		return err
	}

	for _, p := range products {
		dir := filepath.Join(outDir, p.ID)
		if err := os.MkdirAll(filepath.Join(dir, "mockups"), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "design.png"), p.Design.PNG, 0o644); err != nil {
			return err
		}
		for i, m := range p.Mockups {
			name := fmt.Sprintf("%02d-%s.png", i+1, m.Scene)
			if err := os.WriteFile(filepath.Join(dir, "mockups", name), m.PNG, 0o644); err != nil {
				return err
			}
		}
		listing := fmt.Sprintf("%s\n\n%s\n\nTags: %v\n", p.Listing.Title, p.Listing.Description, p.Listing.Tags)
		if err := os.WriteFile(filepath.Join(dir, "listing.md"), []byte(listing), 0o644); err != nil {
			return err
		}
		fmt.Printf("%s  %s (%d mockups)\n", p.ID, p.Concept.Title, len(p.Mockups))
	}
	return nil
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
