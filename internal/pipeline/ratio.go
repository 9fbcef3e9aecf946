package pipeline

import (
	"strconv"
	"strings"

	"github.com/dunamismax/coverflow/internal/domain"
)

// SourceInfo describes the fetched source image and the outcome of the
// advisory ratio check. Checked is false when the request carried no
// ratio policy.
type SourceInfo struct {
	Width       int
	Height      int
	Format      string
	Ratio       float64
	RatioText   string
	Checked     bool
	RatioInSpec bool
}

// RatioWarning is the advisory line surfaced when the source ratio does
// not match the expected prefix.
func (s SourceInfo) RatioWarning() string {
	return "Ratio is out of spec: ratio=" + s.RatioText
}

// FormatRatio renders width/height as the shortest decimal text that
// round-trips, which is what the prefix check compares against.
func FormatRatio(width, height int) (float64, string) {
	ratio := float64(width) / float64(height)
	return ratio, strconv.FormatFloat(ratio, 'g', -1, 64)
}

func checkRatio(width, height int, format string, check *domain.RatioCheck) SourceInfo {
	info := SourceInfo{
		Width:  width,
		Height: height,
		Format: format,
	}
	info.Ratio, info.RatioText = FormatRatio(width, height)

	if check == nil {
		return info
	}

	info.Checked = true
	info.RatioInSpec = strings.HasPrefix(info.RatioText, check.ExpectedPrefix)
	return info
}
