package pipeline

import (
	"testing"

	"github.com/dunamismax/coverflow/internal/domain"
)

func TestFormatRatio(t *testing.T) {
	cases := []struct {
		width, height int
		wantText      string
	}{
		{520, 200, "2.6"},
		{64, 64, "1"},
		{640, 480, "1.3333333333333333"},
		{2607, 1000, "2.607"},
	}

	for _, tc := range cases {
		_, text := FormatRatio(tc.width, tc.height)
		if text != tc.wantText {
			t.Fatalf("FormatRatio(%d, %d) = %q, want %q", tc.width, tc.height, text, tc.wantText)
		}
	}
}

func TestCheckRatio(t *testing.T) {
	check := domain.DefaultRatioCheck()

	inSpec := checkRatio(2607, 1000, "png", check)
	if !inSpec.Checked || !inSpec.RatioInSpec {
		t.Fatalf("expected 2.607 to match prefix 2.6, got %+v", inSpec)
	}

	outOfSpec := checkRatio(640, 480, "jpeg", check)
	if !outOfSpec.Checked || outOfSpec.RatioInSpec {
		t.Fatalf("expected 1.333... to miss prefix 2.6, got %+v", outOfSpec)
	}
	if want := "Ratio is out of spec: ratio=1.3333333333333333"; outOfSpec.RatioWarning() != want {
		t.Fatalf("unexpected warning %q, want %q", outOfSpec.RatioWarning(), want)
	}

	unchecked := checkRatio(640, 480, "jpeg", nil)
	if unchecked.Checked {
		t.Fatal("expected no check without a policy")
	}
	if unchecked.Width != 640 || unchecked.Height != 480 || unchecked.Format != "jpeg" {
		t.Fatalf("unexpected source info %+v", unchecked)
	}
}
