package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/coverflow/internal/domain"
	"github.com/dunamismax/coverflow/internal/id"
	"github.com/dunamismax/coverflow/internal/pipeline"
)

// coverprep runs the fixed cover preparation against one local file:
// check the source ratio against the expected 2.6 prefix, resize so the
// larger dimension is 1200, shave 5px, then add a 5px #8F3D3A border.
func main() {
	logger := log.New(os.Stderr, "[coverprep] ", log.LstdFlags|log.Lmsgprefix)

	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <input_path> <output_path>\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	inputPath, outputPath := os.Args[1], os.Args[2]

	if err := pipeline.Startup(); err != nil {
		logger.Fatalf("pipeline startup failed: %v", err)
	}
	defer pipeline.Shutdown()

	processor, err := pipeline.NewFileProcessor(outputPath)
	if err != nil {
		logger.Fatalf("initialize pipeline processor: %v", err)
	}

	steps := domain.DefaultCoverPipeline()
	if format := outputFormat(outputPath); format != "" {
		// Every step re-encodes, so pin them all to the destination
		// format rather than bouncing through the source codec.
		for i := range steps {
			steps[i].Format = format
		}
	}

	result, err := processor.Process(context.Background(), pipeline.Request{
		JobID:      id.New(),
		SourceType: domain.SourceTypeLocalFile,
		ObjectKey:  inputPath,
		RatioCheck: domain.DefaultRatioCheck(),
		Pipeline:   steps,
	})

	// The ratio warning is advisory and precedes the transformations,
	// so it prints even when a later step fails.
	if result.Source.Checked && !result.Source.RatioInSpec {
		fmt.Println(result.Source.RatioWarning())
	}
	if err != nil {
		logger.Fatalf("prepare %s: %v", inputPath, err)
	}
}

func outputFormat(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpg", "jpeg", "png", "webp":
		return ext
	default:
		return ""
	}
}
