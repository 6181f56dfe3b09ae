package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"synchro-backend/internal/shared/storage/object"
	localstore "synchro-backend/internal/shared/storage/object/local"
	"synchro-backend/internal/videos"
	"synchro-backend/internal/vision"
	"synchro-backend/internal/workflows"
)

type stubExtractor struct {
	frames int
	err    error
}

func (e stubExtractor) ExtractFrames(ctx context.Context, videoPath, outDir string, limit int) ([]string, error) {
	_ = ctx
	_ = videoPath
	if e.err != nil {
		return nil, e.err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, e.frames)
	for i := 0; i < e.frames && i < limit; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("frame_%03d.jpg", i+1))
		if err := os.WriteFile(p, []byte("jpegdata"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func newPipeline(t *testing.T, frames int, visionClient vision.Client) (*Service, videos.Repo, workflows.Repo, object.ObjectStore) {
	t.Helper()
	store := localstore.New(t.TempDir())
	videoRepo := videos.NewMemoryRepo()
	workflowRepo := workflows.NewMemoryRepo()
	svc := &Service{
		Videos:    videoRepo,
		Workflows: workflowRepo,
		Store:     store,
		Extractor: stubExtractor{frames: frames},
		Vision:    visionClient,
		Models:    []string{"model-a"},
		Backoff:   1,
	}
	return svc, videoRepo, workflowRepo, store
}

func seedVideo(t *testing.T, store object.ObjectStore, videoRepo videos.Repo, workflowRepo workflows.Repo) (string, string) {
	t.Helper()
	ctx := context.Background()

	key := "videos/u1/source.mp4"
	if _, err := store.SaveWithKey(ctx, key, "video/mp4", strings.NewReader("fake video bytes")); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := workflowRepo.Create(ctx, workflows.Workflow{ID: "wf-1", UserID: "u1", Title: "Demo", Status: workflows.StatusPending}); err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	if err := videoRepo.Create(ctx, videos.Video{
		ID:          "vid-1",
		UserID:      "u1",
		WorkflowID:  "wf-1",
		FileName:    "source.mp4",
		StoragePath: key,
		Status:      videos.StatusUploaded,
	}); err != nil {
		t.Fatalf("create video: %v", err)
	}
	return "vid-1", "wf-1"
}

func stepsResponse(n int) json.RawMessage {
	steps := make([]string, 0, n)
	for i := 0; i < n; i++ {
		steps = append(steps, fmt.Sprintf(`{"type": "action", "action": "click-%d", "description": "Step %d", "confidence": 90}`, i+1, i+1))
	}
	return json.RawMessage(`{"steps": [` + strings.Join(steps, ",") + `]}`)
}

type fixedVision struct {
	raw  json.RawMessage
	errs map[string]error
}

func (f fixedVision) AnalyzeFrames(ctx context.Context, input vision.AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	if err, ok := f.errs[input.Model]; ok && err != nil {
		return nil, err
	}
	return f.raw, nil
}

func TestRunCompletesAndPersistsSteps(t *testing.T) {
	svc, videoRepo, workflowRepo, store := newPipeline(t, 2, fixedVision{raw: stepsResponse(2)})
	ctx := context.Background()
	videoID, workflowID := seedVideo(t, store, videoRepo, workflowRepo)

	if err := svc.Run(ctx, videoID, workflowID); err != nil {
		t.Fatalf("run: %v", err)
	}

	video, err := videoRepo.GetByID(ctx, videoID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if video.Status != videos.StatusCompleted || video.Progress != 100 {
		t.Fatalf("expected completed/100, got %s/%d", video.Status, video.Progress)
	}

	w, err := workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if w.Status != workflows.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s", w.Status)
	}
	if w.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}

	steps, err := workflowRepo.ListSteps(ctx, workflowID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	for i, step := range steps {
		if step.SequenceNo != i+1 {
			t.Fatalf("expected sequence %d, got %d", i+1, step.SequenceNo)
		}
		if step.ScreenshotURL == "" {
			t.Fatalf("expected screenshot for step %d", i+1)
		}
	}

	// Screenshots were actually stored under their deterministic keys.
	rc, err := store.Open(ctx, ScreenshotKey(workflowID, 0))
	if err != nil {
		t.Fatalf("open screenshot: %v", err)
	}
	rc.Close()
}

func TestRunFallsBackAcrossModels(t *testing.T) {
	client := fixedVision{
		raw: stepsResponse(1),
		errs: map[string]error{
			"model-a": vision.ErrUnavailable,
			"model-b": vision.ErrUnavailable,
		},
	}
	svc, videoRepo, workflowRepo, store := newPipeline(t, 1, client)
	svc.Models = []string{"model-a", "model-b", "model-c"}
	ctx := context.Background()
	videoID, workflowID := seedVideo(t, store, videoRepo, workflowRepo)

	if err := svc.Run(ctx, videoID, workflowID); err != nil {
		t.Fatalf("run: %v", err)
	}
	video, _ := videoRepo.GetByID(ctx, videoID)
	if video.Status != videos.StatusCompleted {
		t.Fatalf("expected completed, got %s", video.Status)
	}
}

func TestRunZeroFramesFails(t *testing.T) {
	svc, videoRepo, workflowRepo, store := newPipeline(t, 0, fixedVision{raw: stepsResponse(1)})
	ctx := context.Background()
	videoID, workflowID := seedVideo(t, store, videoRepo, workflowRepo)

	if err := svc.Run(ctx, videoID, workflowID); err != nil {
		t.Fatalf("run should absorb pipeline failures: %v", err)
	}

	video, _ := videoRepo.GetByID(ctx, videoID)
	if video.Status != videos.StatusError {
		t.Fatalf("expected error status, got %s", video.Status)
	}
	if video.ErrorMessage == "" {
		t.Fatal("expected error message")
	}

	w, _ := workflowRepo.GetByID(ctx, workflowID)
	if w.Status != workflows.StatusPending {
		t.Fatalf("expected pending, got %s", w.Status)
	}
	steps, _ := workflowRepo.ListSteps(ctx, workflowID)
	if len(steps) != 0 {
		t.Fatalf("expected no steps, got %d", len(steps))
	}
}

func TestRunModelFormatErrorFails(t *testing.T) {
	svc, videoRepo, workflowRepo, store := newPipeline(t, 1, fixedVision{raw: json.RawMessage(`total nonsense`)})
	ctx := context.Background()
	videoID, workflowID := seedVideo(t, store, videoRepo, workflowRepo)

	if err := svc.Run(ctx, videoID, workflowID); err != nil {
		t.Fatalf("run should absorb pipeline failures: %v", err)
	}
	video, _ := videoRepo.GetByID(ctx, videoID)
	if video.Status != videos.StatusError {
		t.Fatalf("expected error status, got %s", video.Status)
	}
}

func TestMergeStepsLeavesGapForFailedUpload(t *testing.T) {
	steps := []rawStep{
		{Type: "action", Action: "one", Confidence: 80},
		{Type: "action", Action: "two", Confidence: 80},
		{Type: "action", Action: "three", Confidence: 80},
	}
	urls := []string{"", "workflows/wf/screenshots/frame_1.jpg"}

	rows := mergeSteps("wf", steps, urls)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ScreenshotURL != "" {
		t.Fatal("expected gap for failed upload")
	}
	if rows[1].ScreenshotURL != urls[1] {
		t.Fatalf("expected screenshot key, got %q", rows[1].ScreenshotURL)
	}
	if rows[2].ScreenshotURL != "" {
		t.Fatal("expected gap past end of uploads")
	}
}
