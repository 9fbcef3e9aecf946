package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/coverflow/internal/domain"
	_ "golang.org/x/image/webp"
)

type imagingTransformer struct{}

func (t imagingTransformer) Probe(ctx context.Context, input []byte) (int, int, string, error) {
	select {
	case <-ctx.Done():
		return 0, 0, "", ctx.Err()
	default:
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return 0, 0, "", fmt.Errorf("probe source image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, "", errors.New("source image has invalid dimensions")
	}
	return cfg.Width, cfg.Height, format, nil
}

func (t imagingTransformer) Transform(ctx context.Context, input []byte, step domain.PipelineStep) ([]byte, string, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, "", 0, 0, ctx.Err()
	default:
	}

	src, srcFormat, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, "", 0, 0, fmt.Errorf("decode source image: %w", err)
	}

	var out image.Image
	switch strings.ToLower(strings.TrimSpace(step.Action)) {
	case domain.ActionResize:
		out, err = resizeToBound(src, step.Size)
	case domain.ActionShave:
		out, err = shaveEdges(src, step.Margin)
	case domain.ActionBorder:
		out, err = paintBorder(src, step.Border)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidStepAction, step.Action)
	}
	if err != nil {
		return nil, "", 0, 0, err
	}

	format := normalizeOutputFormat(strings.ToLower(strings.TrimSpace(step.Format)))
	if strings.TrimSpace(step.Format) == "" {
		format = normalizeOutputFormat(strings.ToLower(srcFormat))
	}

	output, err := encodeImage(out, format, step.Quality)
	if err != nil {
		return nil, "", 0, 0, err
	}

	bounds := out.Bounds()
	return output, format, bounds.Dx(), bounds.Dy(), nil
}

// resizeToBound scales so the larger source dimension equals size,
// preserving aspect ratio. Smaller images are scaled up.
func resizeToBound(src image.Image, size int) (image.Image, error) {
	if size <= 0 {
		return nil, errors.New("resize action requires size > 0")
	}

	srcBounds := src.Bounds()
	srcW := srcBounds.Dx()
	srcH := srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, errors.New("source image has invalid dimensions")
	}

	if srcW >= srcH {
		return imaging.Resize(src, size, 0, imaging.Lanczos), nil
	}
	return imaging.Resize(src, 0, size, imaging.Lanczos), nil
}

func shaveEdges(src image.Image, margin int) (image.Image, error) {
	if margin <= 0 {
		return nil, errors.New("shave action requires margin > 0")
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 2*margin || bounds.Dy() <= 2*margin {
		return nil, fmt.Errorf("image %dx%d too small to shave %dpx from each edge", bounds.Dx(), bounds.Dy(), margin)
	}

	rect := image.Rect(
		bounds.Min.X+margin,
		bounds.Min.Y+margin,
		bounds.Max.X-margin,
		bounds.Max.Y-margin,
	)
	return imaging.Crop(src, rect), nil
}

// paintBorder grows the canvas by the border width on every side and
// fills the new margin with the border color, so it is the exact
// inverse of a same-width shave.
func paintBorder(src image.Image, border *domain.Border) (image.Image, error) {
	if border == nil {
		return nil, errors.New("border action requires border settings")
	}
	if border.Width <= 0 {
		return nil, errors.New("border action requires border.width > 0")
	}

	fill, err := border.RGBA()
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	canvas := imaging.New(bounds.Dx()+2*border.Width, bounds.Dy()+2*border.Width, fill)
	return imaging.Paste(canvas, src, image.Pt(border.Width, border.Width)), nil
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "jpeg":
		if quality <= 0 || quality > 100 {
			quality = 80
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case "png":
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		if err := encoder.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case "webp":
		return nil, errors.New("webp export requires govips build tag")
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	return buf.Bytes(), nil
}
