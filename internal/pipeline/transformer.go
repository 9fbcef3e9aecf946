package pipeline

import (
	"context"

	"github.com/dunamismax/coverflow/internal/domain"
)

// Transformer applies one pipeline step to an encoded image. Probe
// reports the dimensions and detected format without transforming,
// which feeds the advisory ratio check.
type Transformer interface {
	Probe(ctx context.Context, input []byte) (width, height int, format string, err error)
	Transform(ctx context.Context, input []byte, step domain.PipelineStep) (data []byte, format string, width, height int, err error)
}

func normalizeOutputFormat(format string) string {
	switch format {
	case "jpg":
		return "jpeg"
	case "jpeg", "png", "webp":
		return format
	default:
		return "png"
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
