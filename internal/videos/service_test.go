package videos

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"synchro-backend/internal/queue"
	localstore "synchro-backend/internal/shared/storage/object/local"
	"synchro-backend/internal/usage"
	"synchro-backend/internal/workflows"
)

type recordingRunner struct {
	runs chan [2]string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{runs: make(chan [2]string, 4)}
}

func (r *recordingRunner) Run(ctx context.Context, videoID, workflowID string) error {
	_ = ctx
	r.runs <- [2]string{videoID, workflowID}
	return nil
}

type recordingQueue struct {
	sent []queue.Message
	err  error
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	_ = ctx
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, msg)
	return nil
}

func newVideoService(t *testing.T, runner AnalysisRunner, q queue.Client) (*Service, *MemoryRepo, *workflows.MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	workflowRepo := workflows.NewMemoryRepo()
	svc := &Service{
		Store:        localstore.New(t.TempDir()),
		Repo:         repo,
		WorkflowRepo: workflowRepo,
		Usage:        usage.NewService(),
		Queue:        q,
		Analysis:     runner,
	}
	return svc, repo, workflowRepo
}

func TestUploadCreatesVideoAndPendingWorkflow(t *testing.T) {
	runner := newRecordingRunner()
	svc, repo, workflowRepo := newVideoService(t, runner, nil)
	ctx := context.Background()

	result, err := svc.Upload(ctx, "u1", "demo.mp4", "", "video/mp4", 16, strings.NewReader("fake video bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.Video.Status != StatusUploaded {
		t.Fatalf("expected uploaded, got %s", result.Video.Status)
	}
	if result.Workflow.Status != workflows.StatusPending {
		t.Fatalf("expected pending workflow, got %s", result.Workflow.Status)
	}
	if result.Workflow.Title != "Workflow from demo" {
		t.Fatalf("unexpected title %q", result.Workflow.Title)
	}
	if result.Video.WorkflowID != result.Workflow.ID {
		t.Fatal("video not linked to workflow")
	}

	if _, err := repo.GetByID(ctx, result.Video.ID); err != nil {
		t.Fatalf("video not persisted: %v", err)
	}
	if _, err := workflowRepo.GetByID(ctx, result.Workflow.ID); err != nil {
		t.Fatalf("workflow not persisted: %v", err)
	}

	// Without a queue the pipeline starts in-process.
	select {
	case pair := <-runner.runs:
		if pair[0] != result.Video.ID || pair[1] != result.Workflow.ID {
			t.Fatalf("unexpected run %v", pair)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected analysis to start")
	}
}

func TestUploadPrefersQueue(t *testing.T) {
	runner := newRecordingRunner()
	q := &recordingQueue{}
	svc, _, _ := newVideoService(t, runner, q)

	ctx := WithRequestID(context.Background(), "req-9")
	result, err := svc.Upload(ctx, "u1", "demo.mp4", "My workflow", "video/mp4", 16, strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.Workflow.Title != "My workflow" {
		t.Fatalf("unexpected title %q", result.Workflow.Title)
	}

	if len(q.sent) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(q.sent))
	}
	msg := q.sent[0]
	if msg.VideoID != result.Video.ID || msg.WorkflowID != result.Workflow.ID {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.RequestID != "req-9" || msg.Version != 1 {
		t.Fatalf("unexpected metadata %+v", msg)
	}

	select {
	case <-runner.runs:
		t.Fatal("in-process run should not start when queue accepts")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUploadFallsBackWhenQueueFails(t *testing.T) {
	runner := newRecordingRunner()
	q := &recordingQueue{err: errors.New("sqs down")}
	svc, _, _ := newVideoService(t, runner, q)

	if _, err := svc.Upload(context.Background(), "u1", "demo.mp4", "", "video/mp4", 16, strings.NewReader("bytes")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	select {
	case <-runner.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("expected in-process fallback run")
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _, _ := newVideoService(t, newRecordingRunner(), nil)
	_, err := svc.Upload(context.Background(), "u1", "demo.gif", "", "image/gif", 16, strings.NewReader("bytes"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadAcceptsContentTypeParams(t *testing.T) {
	svc, _, _ := newVideoService(t, newRecordingRunner(), nil)
	if _, err := svc.Upload(context.Background(), "u1", "demo.mp4", "", "video/mp4; codecs=avc1", 16, strings.NewReader("bytes")); err != nil {
		t.Fatalf("upload: %v", err)
	}
}

func TestUploadEnforcesQuota(t *testing.T) {
	svc, _, _ := newVideoService(t, newRecordingRunner(), nil)
	ctx := context.Background()

	// Exhaust the analysis allowance.
	if _, err := svc.Usage.ConsumeAnalysis(ctx, "u1", 10); err != nil {
		t.Fatalf("consume: %v", err)
	}

	_, err := svc.Upload(ctx, "u1", "demo.mp4", "", "video/mp4", 16, strings.NewReader("bytes"))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestGetHidesOtherUsersVideos(t *testing.T) {
	svc, repo, _ := newVideoService(t, newRecordingRunner(), nil)
	ctx := context.Background()
	if err := repo.Create(ctx, Video{ID: "v1", UserID: "owner"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "owner", "v1"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := svc.Get(ctx, "stranger", "v1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReleasesStorage(t *testing.T) {
	svc, _, _ := newVideoService(t, newRecordingRunner(), nil)
	ctx := context.Background()

	result, err := svc.Upload(ctx, "u1", "demo.mp4", "", "video/mp4", 16, strings.NewReader("0123456789abcdef"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	before, _ := svc.Usage.Get(ctx, "u1")
	if before.StorageUsedBytes == 0 {
		t.Fatal("expected storage accounted after upload")
	}

	if err := svc.Delete(ctx, "u1", result.Video.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", result.Video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	after, _ := svc.Usage.Get(ctx, "u1")
	if after.StorageUsedBytes != before.StorageUsedBytes-result.Video.SizeBytes {
		t.Fatalf("expected storage released, before=%d after=%d", before.StorageUsedBytes, after.StorageUsedBytes)
	}
}
