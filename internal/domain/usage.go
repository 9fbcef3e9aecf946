package domain

import "time"

type UsageLog struct {
	UserID        string
	JobID         string
	SourcePixels  int64
	OutputPixels  int64
	OutputBytes   int64
	RatioInSpec   bool
	ComputeTimeMS int64
	CreatedAt     time.Time
}
