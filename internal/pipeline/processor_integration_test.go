package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dunamismax/coverflow/internal/domain"
)

func TestFileProcessor_CoverPipeline(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "input.png")
	outputPath := filepath.Join(tmp, "cover.png")

	// 2.6:1 cover spread, so the ratio check passes.
	srcBytes := buildTestPNG(t, 520, 200)
	if err := os.WriteFile(inputPath, srcBytes, 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}

	processor, err := NewFileProcessor(outputPath)
	if err != nil {
		t.Fatalf("new file processor: %v", err)
	}

	result, err := processor.Process(context.Background(), Request{
		JobID:      "job-cover-1",
		SourceType: SourceTypeLocalFile,
		ObjectKey:  inputPath,
		RatioCheck: domain.DefaultRatioCheck(),
		Pipeline:   domain.DefaultCoverPipeline(),
	})
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if !result.Source.Checked {
		t.Fatal("expected ratio check to run")
	}
	if !result.Source.RatioInSpec {
		t.Fatalf("expected ratio %s to be in spec", result.Source.RatioText)
	}

	out := decodeImageFile(t, outputPath)
	bounds := out.Bounds()

	// Resize targets the larger dimension; shave+border keeps the size.
	if bounds.Dx() != 1200 {
		t.Fatalf("expected final width 1200, got %d", bounds.Dx())
	}
	wantHeight := 462 // round(1200 * 200 / 520)
	if bounds.Dy() != wantHeight {
		t.Fatalf("expected final height %d, got %d", wantHeight, bounds.Dy())
	}
	if result.Output.Width != bounds.Dx() || result.Output.Height != bounds.Dy() {
		t.Fatalf("result dimensions %dx%d disagree with file %dx%d",
			result.Output.Width, result.Output.Height, bounds.Dx(), bounds.Dy())
	}

	verifyBorder(t, out, domain.CoverBorderWidth, color.NRGBA{R: 0x8F, G: 0x3D, B: 0x3A, A: 255})
}

func TestFileProcessor_PortraitResizeBoundsHeight(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "input.png")
	outputPath := filepath.Join(tmp, "out.png")

	if err := os.WriteFile(inputPath, buildTestPNG(t, 100, 400), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}

	processor, err := NewFileProcessor(outputPath)
	if err != nil {
		t.Fatalf("new file processor: %v", err)
	}

	result, err := processor.Process(context.Background(), Request{
		JobID:      "job-portrait",
		SourceType: SourceTypeLocalFile,
		ObjectKey:  inputPath,
		Pipeline: []domain.PipelineStep{
			{ID: "resize", Action: domain.ActionResize, Size: 200},
		},
	})
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if result.Output.Height != 200 {
		t.Fatalf("expected height 200 for portrait input, got %d", result.Output.Height)
	}
	if result.Output.Width != 50 {
		t.Fatalf("expected width 50 for portrait input, got %d", result.Output.Width)
	}
	if result.Source.Checked {
		t.Fatal("expected no ratio check without a policy")
	}
}

func TestFileProcessor_RatioOutOfSpec(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "input.png")

	// Square input: ratio text "1", nowhere near the 2.6 prefix.
	if err := os.WriteFile(inputPath, buildTestPNG(t, 64, 64), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}

	processor, err := NewFileProcessor(filepath.Join(tmp, "out.png"))
	if err != nil {
		t.Fatalf("new file processor: %v", err)
	}

	result, err := processor.Process(context.Background(), Request{
		JobID:      "job-off-ratio",
		SourceType: SourceTypeLocalFile,
		ObjectKey:  inputPath,
		RatioCheck: domain.DefaultRatioCheck(),
		Pipeline: []domain.PipelineStep{
			{ID: "resize", Action: domain.ActionResize, Size: 32},
		},
	})
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if result.Source.RatioInSpec {
		t.Fatal("expected square image ratio to be out of spec")
	}
	if got := result.Source.RatioWarning(); got != "Ratio is out of spec: ratio=1" {
		t.Fatalf("unexpected ratio warning: %q", got)
	}
}

func TestFileProcessor_MissingInputWritesNothing(t *testing.T) {
	tmp := t.TempDir()
	outputPath := filepath.Join(tmp, "out.png")

	processor, err := NewFileProcessor(outputPath)
	if err != nil {
		t.Fatalf("new file processor: %v", err)
	}

	_, err = processor.Process(context.Background(), Request{
		JobID:      "job-missing",
		SourceType: SourceTypeLocalFile,
		ObjectKey:  filepath.Join(tmp, "does-not-exist.png"),
		Pipeline:   domain.DefaultCoverPipeline(),
	})
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err=%v", statErr)
	}
}

func TestFileProcessor_NotIdempotent(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "input.png")
	outputPath := filepath.Join(tmp, "out.jpg")

	if err := os.WriteFile(inputPath, buildTestPNG(t, 520, 200), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}

	processor, err := NewFileProcessor(outputPath)
	if err != nil {
		t.Fatalf("new file processor: %v", err)
	}

	// Pin every step to the destination format, the way the coverprep
	// CLI does. With a lossless codec the chain reaches a fixed point
	// after the first run (the shave removes exactly the border the
	// previous run painted), so it is JPEG re-encoding that keeps
	// degrading the output on every run over its own result.
	steps := domain.DefaultCoverPipeline()
	for i := range steps {
		steps[i].Format = "jpeg"
	}

	req := Request{
		JobID:      "job-twice",
		SourceType: SourceTypeLocalFile,
		ObjectKey:  inputPath,
		Pipeline:   steps,
	}
	firstResult, err := processor.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read first pass output: %v", err)
	}

	req.ObjectKey = outputPath
	secondResult, err := processor.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	second, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read second pass output: %v", err)
	}

	if firstResult.Output.Width != secondResult.Output.Width ||
		firstResult.Output.Height != secondResult.Output.Height {
		t.Fatalf("dimensions drifted between runs: %dx%d vs %dx%d",
			firstResult.Output.Width, firstResult.Output.Height,
			secondResult.Output.Width, secondResult.Output.Height)
	}
	if bytes.Equal(first, second) {
		t.Fatal("expected second pass over a lossy output to differ")
	}
}

func TestFileProcessor_RatioSurvivesFailedStep(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "input.png")

	// Square input: out of spec. The oversized shave then fails, but
	// the ratio check already ran and must come back with the error.
	if err := os.WriteFile(inputPath, buildTestPNG(t, 64, 64), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}

	processor, err := NewFileProcessor(filepath.Join(tmp, "out.png"))
	if err != nil {
		t.Fatalf("new file processor: %v", err)
	}

	result, err := processor.Process(context.Background(), Request{
		JobID:      "job-failed-step",
		SourceType: SourceTypeLocalFile,
		ObjectKey:  inputPath,
		RatioCheck: domain.DefaultRatioCheck(),
		Pipeline: []domain.PipelineStep{
			{ID: "shave", Action: domain.ActionShave, Margin: 32},
		},
	})
	if err == nil {
		t.Fatal("expected shave to fail on a 64x64 image")
	}

	if !result.Source.Checked {
		t.Fatal("expected ratio check to survive the failed step")
	}
	if result.Source.RatioInSpec {
		t.Fatal("expected square image ratio to be out of spec")
	}
	if got := result.Source.RatioWarning(); got != "Ratio is out of spec: ratio=1" {
		t.Fatalf("unexpected ratio warning: %q", got)
	}
}

func TestLocalProcessor_UnsupportedSourceType(t *testing.T) {
	processor, err := NewLocalProcessor(t.TempDir())
	if err != nil {
		t.Fatalf("new local processor: %v", err)
	}

	_, err = processor.Process(context.Background(), Request{
		JobID:      "job-unsupported",
		SourceType: "s3_presigned",
		ObjectKey:  "uploads/job/source",
		Pipeline:   domain.DefaultCoverPipeline(),
	})
	if err == nil {
		t.Fatal("expected unsupported source_type error")
	}
}

func TestShaveRejectsTinyImage(t *testing.T) {
	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "tiny.png")
	if err := os.WriteFile(inputPath, buildTestPNG(t, 8, 8), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}

	processor, err := NewFileProcessor(filepath.Join(tmp, "out.png"))
	if err != nil {
		t.Fatalf("new file processor: %v", err)
	}

	_, err = processor.Process(context.Background(), Request{
		JobID:      "job-tiny",
		SourceType: SourceTypeLocalFile,
		ObjectKey:  inputPath,
		Pipeline: []domain.PipelineStep{
			{ID: "shave", Action: domain.ActionShave, Margin: 5},
		},
	})
	if err == nil {
		t.Fatal("expected shave to fail on an 8x8 image")
	}
}

func buildTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}

func decodeImageFile(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open image %s: %v", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode image %s: %v", path, err)
	}
	return img
}

func verifyBorder(t *testing.T, img image.Image, width int, want color.NRGBA) {
	t.Helper()

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			inBorder := x < bounds.Min.X+width || x >= bounds.Max.X-width ||
				y < bounds.Min.Y+width || y >= bounds.Max.Y-width
			if !inBorder {
				continue
			}
			got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if got != want {
				t.Fatalf("border pixel (%d,%d) = %+v, want %+v", x, y, got, want)
			}
		}
	}
}
