package domain

import (
	"image/color"
	"testing"
)

func TestCreateJobRequestValidate(t *testing.T) {
	valid := CreateJobRequest{
		SourceType: SourceTypeS3Presigned,
		Pipeline:   DefaultCoverPipeline(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	emptyPipeline := CreateJobRequest{SourceType: SourceTypeS3Presigned}
	if err := emptyPipeline.Validate(); err != nil {
		t.Fatalf("expected empty pipeline to be valid (defaults apply), got error: %v", err)
	}

	invalid := CreateJobRequest{}
	if err := invalid.Validate(); err == nil {
		t.Fatal("expected validation error for empty request")
	}

	missingObjectKey := CreateJobRequest{
		SourceType: SourceTypeLocalFile,
		Pipeline:   DefaultCoverPipeline(),
	}
	if err := missingObjectKey.Validate(); err == nil {
		t.Fatal("expected validation error for local_file object_key")
	}

	unsupportedSourceType := CreateJobRequest{
		SourceType: "http_url",
		Pipeline:   DefaultCoverPipeline(),
	}
	if err := unsupportedSourceType.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported source_type")
	}

	blankRatioPrefix := CreateJobRequest{
		SourceType: SourceTypeS3Presigned,
		RatioCheck: &RatioCheck{ExpectedPrefix: "  "},
	}
	if err := blankRatioPrefix.Validate(); err == nil {
		t.Fatal("expected validation error for blank ratio_check prefix")
	}
}

func TestPipelineStepValidate(t *testing.T) {
	cases := []struct {
		name    string
		step    PipelineStep
		wantErr bool
	}{
		{name: "resize ok", step: PipelineStep{ID: "r", Action: ActionResize, Size: 1200}},
		{name: "resize missing size", step: PipelineStep{ID: "r", Action: ActionResize}, wantErr: true},
		{name: "shave ok", step: PipelineStep{ID: "s", Action: ActionShave, Margin: 5}},
		{name: "shave missing margin", step: PipelineStep{ID: "s", Action: ActionShave}, wantErr: true},
		{name: "border ok", step: PipelineStep{ID: "b", Action: ActionBorder, Border: &Border{Width: 5, Color: "#8F3D3A"}}},
		{name: "border missing settings", step: PipelineStep{ID: "b", Action: ActionBorder}, wantErr: true},
		{name: "border bad color", step: PipelineStep{ID: "b", Action: ActionBorder, Border: &Border{Width: 5, Color: "red"}}, wantErr: true},
		{name: "missing id", step: PipelineStep{Action: ActionResize, Size: 10}, wantErr: true},
		{name: "unknown action", step: PipelineStep{ID: "x", Action: "rotate"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.step.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected step to validate, got error: %v", err)
			}
		})
	}
}

func TestBorderRGBA(t *testing.T) {
	border := Border{Width: 5, Color: "#8F3D3A"}
	got, err := border.RGBA()
	if err != nil {
		t.Fatalf("parse border color: %v", err)
	}
	want := color.NRGBA{R: 0x8F, G: 0x3D, B: 0x3A, A: 255}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	for _, bad := range []string{"", "8F3D3A", "#8F3D3", "#8F3D3AZ", "#GG0000"} {
		if _, err := (Border{Width: 1, Color: bad}).RGBA(); err == nil {
			t.Fatalf("expected parse error for %q", bad)
		}
	}
}

func TestDefaultCoverPipeline(t *testing.T) {
	steps := DefaultCoverPipeline()
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[0].Action != ActionResize || steps[0].Size != 1200 {
		t.Fatalf("unexpected resize step: %+v", steps[0])
	}
	if steps[1].Action != ActionShave || steps[1].Margin != 5 {
		t.Fatalf("unexpected shave step: %+v", steps[1])
	}
	if steps[2].Action != ActionBorder || steps[2].Border == nil || steps[2].Border.Color != "#8F3D3A" {
		t.Fatalf("unexpected border step: %+v", steps[2])
	}
	for _, step := range steps {
		if err := step.Validate(); err != nil {
			t.Fatalf("default step %s should validate: %v", step.ID, err)
		}
	}
}
