package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/coverflow/internal/domain"
)

const SourceTypeLocalFile = "local_file"

var (
	ErrUnsupportedSourceType = errors.New("unsupported source_type")
	ErrInvalidStepAction     = errors.New("invalid pipeline action")
)

type Request struct {
	JobID      string
	SourceType string
	ObjectKey  string
	RatioCheck *domain.RatioCheck
	Pipeline   []domain.PipelineStep
}

// Output describes the single artifact written after the last step.
type Output struct {
	Path   string
	Format string
	Bytes  int
	Width  int
	Height int
	Steps  int
}

type Result struct {
	Source      SourceInfo
	SourceBytes int
	Output      Output
}

type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

type Emitter interface {
	Emit(ctx context.Context, req Request, data []byte, format string, width, height int) (Output, error)
}

// Processor runs a prepare request: fetch the source, check its ratio,
// chain the transformation steps, and emit the final artifact. Steps
// chain because shave and border operate on the resized result, not on
// the original source.
type Processor struct {
	fetcher     Fetcher
	transformer Transformer
	emitter     Emitter
}

func NewLocalProcessor(outputDir string) (*Processor, error) {
	transformer, err := newTransformer()
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}

	return &Processor{
		fetcher:     LocalFileFetcher{},
		transformer: transformer,
		emitter:     LocalDirEmitter{OutputDir: outputDir},
	}, nil
}

// NewFileProcessor prepares a single local file into an exact output
// path. This is the coverprep CLI configuration.
func NewFileProcessor(outputPath string) (*Processor, error) {
	transformer, err := newTransformer()
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}

	return &Processor{
		fetcher:     LocalFileFetcher{},
		transformer: transformer,
		emitter:     LocalPathEmitter{Path: outputPath},
	}, nil
}

func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return Result{}, errors.New("job_id is required")
	}
	if len(req.Pipeline) == 0 {
		return Result{}, errors.New("pipeline must contain at least one step")
	}

	sourceBytes, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch stage: %w", err)
	}

	width, height, format, err := p.transformer.Probe(ctx, sourceBytes)
	if err != nil {
		return Result{}, fmt.Errorf("probe stage: %w", err)
	}

	result := Result{
		Source:      checkRatio(width, height, format, req.RatioCheck),
		SourceBytes: len(sourceBytes),
	}

	// The ratio check is advisory and already done, so downstream
	// failures return the partial result: callers still get Source.
	data := sourceBytes
	outFormat := format
	outWidth, outHeight := width, height
	for _, step := range req.Pipeline {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		data, outFormat, outWidth, outHeight, err = p.transformer.Transform(ctx, data, step)
		if err != nil {
			return result, fmt.Errorf("transform stage step=%s action=%s: %w", step.ID, step.Action, err)
		}
	}

	output, err := p.emitter.Emit(ctx, req, data, outFormat, outWidth, outHeight)
	if err != nil {
		return result, fmt.Errorf("emit stage: %w", err)
	}
	output.Steps = len(req.Pipeline)
	result.Output = output

	return result, nil
}

type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if !strings.EqualFold(req.SourceType, SourceTypeLocalFile) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSourceType, req.SourceType)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(req.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("read input file %s: %w", req.ObjectKey, err)
	}
	return data, nil
}

// LocalDirEmitter writes the prepared cover under OutputDir/<job>/.
type LocalDirEmitter struct {
	OutputDir string
}

func (e LocalDirEmitter) Emit(_ context.Context, req Request, data []byte, format string, width, height int) (Output, error) {
	if strings.TrimSpace(e.OutputDir) == "" {
		return Output{}, errors.New("output directory is required")
	}

	jobDir := filepath.Join(e.OutputDir, sanitizePathToken(req.JobID))
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create output dir: %w", err)
	}

	fullPath := filepath.Join(jobDir, "cover."+normalizeOutputFormat(format))
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return Output{}, fmt.Errorf("write output file: %w", err)
	}

	return Output{
		Path:   fullPath,
		Format: normalizeOutputFormat(format),
		Bytes:  len(data),
		Width:  width,
		Height: height,
	}, nil
}

// LocalPathEmitter overwrites one exact destination path.
type LocalPathEmitter struct {
	Path string
}

func (e LocalPathEmitter) Emit(_ context.Context, _ Request, data []byte, format string, width, height int) (Output, error) {
	if strings.TrimSpace(e.Path) == "" {
		return Output{}, errors.New("output path is required")
	}

	if err := os.WriteFile(e.Path, data, 0o644); err != nil {
		return Output{}, fmt.Errorf("write output file: %w", err)
	}

	return Output{
		Path:   e.Path,
		Format: normalizeOutputFormat(format),
		Bytes:  len(data),
		Width:  width,
		Height: height,
	}, nil
}

func sanitizePathToken(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
