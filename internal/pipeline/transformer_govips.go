//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/coverflow/internal/domain"
)

type govipsTransformer struct{}

func (t govipsTransformer) Probe(ctx context.Context, input []byte) (int, int, string, error) {
	select {
	case <-ctx.Done():
		return 0, 0, "", ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(input)
	if err != nil {
		return 0, 0, "", fmt.Errorf("probe source image: %w", err)
	}
	defer img.Close()

	if img.Width() <= 0 || img.Height() <= 0 {
		return 0, 0, "", fmt.Errorf("source image has invalid dimensions")
	}
	return img.Width(), img.Height(), formatName(vips.DetermineImageType(input)), nil
}

func (t govipsTransformer) Transform(ctx context.Context, input []byte, step domain.PipelineStep) ([]byte, string, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, "", 0, 0, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(input)
	if err != nil {
		return nil, "", 0, 0, fmt.Errorf("decode source image: %w", err)
	}
	defer img.Close()

	switch strings.ToLower(strings.TrimSpace(step.Action)) {
	case domain.ActionResize:
		err = applyGovipsResize(img, step.Size)
	case domain.ActionShave:
		err = applyGovipsShave(img, step.Margin)
	case domain.ActionBorder:
		err = applyGovipsBorder(img, step.Border)
	default:
		return nil, "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidStepAction, step.Action)
	}
	if err != nil {
		return nil, "", 0, 0, err
	}

	format := formatForStep(step.Format, input)
	data, err := exportGovipsImage(img, format, step.Quality)
	if err != nil {
		return nil, "", 0, 0, err
	}

	return data, format, img.Width(), img.Height(), nil
}

func applyGovipsResize(img *vips.ImageRef, size int) error {
	if size <= 0 {
		return fmt.Errorf("resize action requires size > 0")
	}

	bound := max(img.Width(), img.Height())
	if bound <= 0 {
		return fmt.Errorf("source image has invalid dimensions")
	}

	scale := float64(size) / float64(bound)
	if scale <= 0 {
		return fmt.Errorf("invalid resize scale")
	}

	if err := img.Resize(scale, vips.KernelLanczos3); err != nil {
		return fmt.Errorf("resize image: %w", err)
	}
	return nil
}

func applyGovipsShave(img *vips.ImageRef, margin int) error {
	if margin <= 0 {
		return fmt.Errorf("shave action requires margin > 0")
	}
	if img.Width() <= 2*margin || img.Height() <= 2*margin {
		return fmt.Errorf("image %dx%d too small to shave %dpx from each edge", img.Width(), img.Height(), margin)
	}

	if err := img.ExtractArea(margin, margin, img.Width()-2*margin, img.Height()-2*margin); err != nil {
		return fmt.Errorf("shave image: %w", err)
	}
	return nil
}

func applyGovipsBorder(img *vips.ImageRef, border *domain.Border) error {
	if border == nil {
		return fmt.Errorf("border action requires border settings")
	}
	if border.Width <= 0 {
		return fmt.Errorf("border action requires border.width > 0")
	}

	fill, err := border.RGBA()
	if err != nil {
		return err
	}

	if err := img.EmbedBackground(
		border.Width,
		border.Width,
		img.Width()+2*border.Width,
		img.Height()+2*border.Width,
		&vips.Color{R: fill.R, G: fill.G, B: fill.B},
	); err != nil {
		return fmt.Errorf("apply border: %w", err)
	}
	return nil
}

func formatForStep(stepFormat string, input []byte) string {
	if strings.TrimSpace(stepFormat) != "" {
		return normalizeOutputFormat(strings.ToLower(strings.TrimSpace(stepFormat)))
	}
	return formatName(vips.DetermineImageType(input))
}

func formatName(imageType vips.ImageType) string {
	switch imageType {
	case vips.ImageTypeJPEG:
		return "jpeg"
	case vips.ImageTypeWEBP:
		return "webp"
	default:
		return "png"
	}
}

func exportGovipsImage(img *vips.ImageRef, format string, quality int) ([]byte, error) {
	switch format {
	case "jpeg":
		params := vips.NewJpegExportParams()
		if quality > 0 && quality <= 100 {
			params.Quality = quality
		}
		data, _, err := img.ExportJpeg(params)
		if err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return data, nil
	case "png":
		params := vips.NewPngExportParams()
		if quality > 0 && quality <= 100 {
			params.Quality = quality
		}
		data, _, err := img.ExportPng(params)
		if err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return data, nil
	case "webp":
		params := vips.NewWebpExportParams()
		if quality > 0 && quality <= 100 {
			params.Quality = quality
		}
		data, _, err := img.ExportWebp(params)
		if err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
