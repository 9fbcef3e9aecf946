package domain

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"
)

const (
	JobStatusCreated    = "created"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"

	SourceTypeLocalFile   = "local_file"
	SourceTypeS3Presigned = "s3_presigned"

	ActionResize = "resize"
	ActionShave  = "shave"
	ActionBorder = "border"
)

// Cover profile: the fixed preparation applied by the coverprep CLI and
// used as the default when a job submits an empty pipeline.
const (
	CoverRatioPrefix = "2.6"
	CoverResizeSize  = 1200
	CoverMargin      = 5
	CoverBorderWidth = 5
	CoverBorderColor = "#8F3D3A"
)

type CreateJobRequest struct {
	SourceType string         `json:"source_type"`
	WebhookURL string         `json:"webhook_url,omitempty"`
	ObjectKey  string         `json:"object_key,omitempty"`
	RatioCheck *RatioCheck    `json:"ratio_check,omitempty"`
	Pipeline   []PipelineStep `json:"pipeline,omitempty"`
}

// PipelineStep is one link in a chained transformation: the output of a
// step feeds the next, and only the final result is emitted.
type PipelineStep struct {
	ID      string  `json:"id"`
	Action  string  `json:"action"`
	Size    int     `json:"size,omitempty"`
	Margin  int     `json:"margin,omitempty"`
	Border  *Border `json:"border,omitempty"`
	Format  string  `json:"format,omitempty"`
	Quality int     `json:"quality,omitempty"`
}

// Border describes a solid frame painted over the outer Width pixels.
type Border struct {
	Width int    `json:"width"`
	Color string `json:"color"`
}

// RGBA parses the border's #RRGGBB color.
func (b Border) RGBA() (color.NRGBA, error) {
	hexStr := strings.TrimSpace(b.Color)
	if len(hexStr) != 7 || hexStr[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("border color must be #RRGGBB, got %q", b.Color)
	}

	var channels [3]uint8
	for i := 0; i < 3; i++ {
		hi, okHi := hexNibble(hexStr[1+2*i])
		lo, okLo := hexNibble(hexStr[2+2*i])
		if !okHi || !okLo {
			return color.NRGBA{}, fmt.Errorf("border color must be #RRGGBB, got %q", b.Color)
		}
		channels[i] = hi<<4 | lo
	}

	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}, nil
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// RatioCheck is an advisory policy on the source image's width/height
// ratio. A mismatch never fails a job; it only surfaces a warning.
type RatioCheck struct {
	ExpectedPrefix string `json:"expected_prefix"`
}

func DefaultRatioCheck() *RatioCheck {
	return &RatioCheck{ExpectedPrefix: CoverRatioPrefix}
}

// DefaultCoverPipeline returns the fixed resize/shave/border sequence
// used for print covers.
func DefaultCoverPipeline() []PipelineStep {
	return []PipelineStep{
		{ID: "resize", Action: ActionResize, Size: CoverResizeSize},
		{ID: "shave", Action: ActionShave, Margin: CoverMargin},
		{ID: "border", Action: ActionBorder, Border: &Border{Width: CoverBorderWidth, Color: CoverBorderColor}},
	}
}

type Job struct {
	ID         string
	UserID     string
	Status     string
	SourceType string
	WebhookURL string
	RatioCheck *RatioCheck
	Pipeline   []PipelineStep
	ObjectKey  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r CreateJobRequest) Validate() error {
	sourceType := strings.ToLower(strings.TrimSpace(r.SourceType))
	if sourceType == "" {
		return errors.New("source_type is required")
	}
	if sourceType != SourceTypeLocalFile && sourceType != SourceTypeS3Presigned {
		return fmt.Errorf("unsupported source_type: %s", r.SourceType)
	}
	if sourceType == SourceTypeLocalFile && strings.TrimSpace(r.ObjectKey) == "" {
		return errors.New("object_key is required for source_type=local_file")
	}
	if r.RatioCheck != nil && strings.TrimSpace(r.RatioCheck.ExpectedPrefix) == "" {
		return errors.New("ratio_check.expected_prefix is required when ratio_check is set")
	}
	for i, step := range r.Pipeline {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("pipeline[%d]: %w", i, err)
		}
	}
	return nil
}

func (s PipelineStep) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("id is required")
	}

	switch strings.ToLower(strings.TrimSpace(s.Action)) {
	case ActionResize:
		if s.Size <= 0 {
			return errors.New("resize action requires size > 0")
		}
	case ActionShave:
		if s.Margin <= 0 {
			return errors.New("shave action requires margin > 0")
		}
	case ActionBorder:
		if s.Border == nil {
			return errors.New("border action requires border settings")
		}
		if s.Border.Width <= 0 {
			return errors.New("border action requires border.width > 0")
		}
		if _, err := s.Border.RGBA(); err != nil {
			return err
		}
	case "":
		return errors.New("action is required")
	default:
		return fmt.Errorf("unsupported action: %s", s.Action)
	}
	return nil
}
