package worker

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/dunamismax/coverflow/internal/config"
	"github.com/dunamismax/coverflow/internal/domain"
	"github.com/dunamismax/coverflow/internal/pipeline"
	"github.com/dunamismax/coverflow/internal/queue"
	"github.com/dunamismax/coverflow/internal/storage"
	"github.com/dunamismax/coverflow/internal/store"
)

func TestNewServerWithNilWebhookClientSkipsDispatch(t *testing.T) {
	storageClient, err := storage.NewClient(storage.Config{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "covers",
	})
	if err != nil {
		t.Fatalf("new storage client: %v", err)
	}

	s, err := NewServer(
		log.New(io.Discard, "", 0),
		config.QueueConfig{RedisAddr: "localhost:6379", Name: "default"},
		config.WorkerConfig{Concurrency: 1, MaxActiveJobs: 1, LocalOutputDir: t.TempDir()},
		storageClient,
		nil,
		store.NewMemoryJobStore(),
		nil,
	)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	// A typed-nil *webhook.Client in the interface field would slip
	// past the nil guard and panic inside Send.
	if s.webhookClient != nil {
		t.Fatal("expected nil webhook sender for a nil client")
	}
	if err := s.dispatchWebhook(context.Background(), queue.PrepareCoverPayload{
		JobID:      "job-1",
		WebhookURL: "http://example.invalid/hook",
	}, "job.completed", map[string]any{"job_id": "job-1"}); err != nil {
		t.Fatalf("dispatch with nil client: %v", err)
	}
}

func TestRecordUsageWritesUsageLog(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	if err := jobStore.Create(context.Background(), domain.Job{
		ID:         "job-1",
		UserID:     "user-1",
		Status:     domain.JobStatusProcessing,
		SourceType: domain.SourceTypeLocalFile,
		ObjectKey:  "input.png",
		Pipeline:   domain.DefaultCoverPipeline(),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	usageStore := &captureUsageStore{}
	s := &Server{
		logger:     log.New(io.Discard, "", 0),
		jobStore:   jobStore,
		usageStore: usageStore,
		metrics:    newMetrics(),
	}

	s.recordUsage(context.Background(), "job-1", pipeline.Result{
		Source: pipeline.SourceInfo{
			Width:       2600,
			Height:      1000,
			Checked:     true,
			RatioInSpec: true,
		},
		SourceBytes: 10_000,
		Output: pipeline.Output{
			Width:  1200,
			Height: 462,
			Bytes:  4_000,
		},
	}, 250*time.Millisecond)

	if !usageStore.called {
		t.Fatal("expected usage log to be written")
	}
	if usageStore.log.UserID != "user-1" {
		t.Fatalf("expected user_id=user-1, got %s", usageStore.log.UserID)
	}
	if usageStore.log.SourcePixels != 2_600_000 {
		t.Fatalf("expected source_pixels=2600000, got %d", usageStore.log.SourcePixels)
	}
	if usageStore.log.OutputPixels != 554_400 {
		t.Fatalf("expected output_pixels=554400, got %d", usageStore.log.OutputPixels)
	}
	if usageStore.log.OutputBytes != 4_000 {
		t.Fatalf("expected output_bytes=4000, got %d", usageStore.log.OutputBytes)
	}
	if !usageStore.log.RatioInSpec {
		t.Fatal("expected ratio_in_spec=true")
	}
	if usageStore.log.ComputeTimeMS != 250 {
		t.Fatalf("expected compute_time_ms=250, got %d", usageStore.log.ComputeTimeMS)
	}
}

func TestRecordUsageDefaultsAnonymousAndClampsComputeTime(t *testing.T) {
	usageStore := &captureUsageStore{}
	s := &Server{
		logger:     log.New(io.Discard, "", 0),
		usageStore: usageStore,
		metrics:    newMetrics(),
	}

	s.recordUsage(context.Background(), "job-2", pipeline.Result{
		Source: pipeline.SourceInfo{Width: 64, Height: 64, Checked: true, RatioInSpec: false},
		Output: pipeline.Output{Width: 32, Height: 32, Bytes: 200},
	}, 0)

	if usageStore.log.UserID != "anonymous" {
		t.Fatalf("expected anonymous user, got %s", usageStore.log.UserID)
	}
	if usageStore.log.RatioInSpec {
		t.Fatal("expected ratio_in_spec=false for checked out-of-spec source")
	}
	if usageStore.log.ComputeTimeMS < 1 {
		t.Fatalf("expected compute_time_ms to be at least 1, got %d", usageStore.log.ComputeTimeMS)
	}
}

type captureUsageStore struct {
	called bool
	log    domain.UsageLog
}

func (s *captureUsageStore) CreateUsageLog(_ context.Context, usage domain.UsageLog) error {
	s.called = true
	s.log = usage
	return nil
}
