package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/config"
	"github.com/garyjia/invoice-insights/internal/container"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to config.yaml")
	file := flag.String("file", "", "Invoice file (PDF, image or HTML) to extract")
	prompt := flag.String("prompt", "Reply with the single word: ready", "Prompt for the text generation check")
	timeout := flag.Duration("timeout", 60*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Initialize logger
	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== AI Connection Check ===")
	fmt.Printf("  Provider: %s\n", containerCfg.AI.Provider)
	fmt.Printf("  Timeout: %v\n\n", *timeout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ai, err := container.ProvideAI(ctx, &containerCfg.AI, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer ai.Close()

	if ai.Generator == nil {
		fmt.Fprintln(os.Stderr, "ERROR: no text generator configured")
		os.Exit(1)
	}

	start := time.Now()
	text, err := ai.Generator.GenerateText(ctx, *prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: text generation failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "Check the API key, network access and quota.")
		os.Exit(1)
	}
	fmt.Printf("✓ Text generation answered in %v\n  %s\n\n", time.Since(start), text)

	if *file == "" {
		fmt.Println("✅ AI check PASSED (no -file given, extraction skipped)")
		return
	}

	if ai.Extractor == nil {
		fmt.Fprintln(os.Stderr, "ERROR: no extractor configured, set ai.openai.api_key")
		os.Exit(1)
	}

	result, err := extract(ctx, ai.Extractor, containerCfg, *file, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: extraction failed: %v\n", err)
		os.Exit(1)
	}

	inv, err := entity.Normalize(result.Fields, "check-ai", time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: extracted fields do not normalize: %v\n", err)
	}

	fmt.Println("=== Extracted Fields ===")
	out, _ := json.MarshalIndent(result.Fields, "", "  ")
	fmt.Println(string(out))
	if inv != nil {
		fmt.Printf("\nNormalized: %s %s on %s (%s, confidence %s)\n",
			inv.Vendor, inv.Amount.StringFixed(2), inv.Date, inv.Category, confidence(inv))
	}

	fmt.Println("\n✅ AI check PASSED")
}

func extract(ctx context.Context, extractor port.AIExtractor, cfg *container.Config, path string, logger *zap.Logger) (*port.ExtractionResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	renderer := container.ProvideRenderer(&cfg.Document, logger)
	doc, err := renderer.Prepare(ctx, content, filepath.Base(path), http.DetectContentType(content))
	if err != nil {
		return nil, err
	}

	if doc.Kind == port.DocumentText {
		return extractor.ExtractFromText(ctx, doc.Text)
	}
	return extractor.ExtractFromImage(ctx, doc.Image, doc.MimeType)
}

func confidence(inv *entity.Invoice) string {
	if inv.AIConfidence == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", *inv.AIConfidence)
}
