package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/coverflow/internal/domain"
	"github.com/hibiken/asynq"
)

const TypePrepareCover = "cover:prepare"

type PrepareCoverPayload struct {
	JobID       string                `json:"job_id"`
	SourceType  string                `json:"source_type"`
	WebhookURL  string                `json:"webhook_url,omitempty"`
	ObjectKey   string                `json:"object_key"`
	RatioCheck  *domain.RatioCheck    `json:"ratio_check,omitempty"`
	Pipeline    []domain.PipelineStep `json:"pipeline"`
	RequestedAt time.Time             `json:"requested_at"`
}

func NewPrepareCoverTask(payload PrepareCoverPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal prepare payload: %w", err)
	}
	return asynq.NewTask(TypePrepareCover, body), nil
}

func ParsePrepareCoverPayload(task *asynq.Task) (PrepareCoverPayload, error) {
	var payload PrepareCoverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PrepareCoverPayload{}, fmt.Errorf("unmarshal prepare payload: %w", err)
	}
	return payload, nil
}
