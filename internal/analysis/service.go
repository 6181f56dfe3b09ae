package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"synchro-backend/internal/shared/metrics"
	"synchro-backend/internal/shared/storage/object"
	"synchro-backend/internal/shared/telemetry"
	"synchro-backend/internal/videos"
	"synchro-backend/internal/vision"
	"synchro-backend/internal/workflows"
)

const (
	progressDownloaded = 10
	progressExtracted  = 40
	progressAnalyzed   = 70
	progressUploaded   = 90
	progressDone       = 100

	screenshotMimeType = "image/jpeg"
)

// Service orchestrates the video analysis pipeline: download, frame
// extraction, model analysis with fallback, screenshot upload, and step
// persistence. One Run per video/workflow pair; stages execute strictly in
// order and any failure moves the pair to error/pending with no retry.
type Service struct {
	Videos    videos.Repo
	Workflows workflows.Repo
	Store     object.ObjectStore
	Extractor FrameExtractor
	Vision    vision.Client
	// Models is the fallback preference order; empty means the client's
	// default model only.
	Models []string
	// Backoff overrides the delay between fallback models, for tests.
	Backoff time.Duration
}

// Run executes the pipeline and reflects the outcome in persisted status
// fields. It never returns a non-nil error for pipeline failures — those are
// absorbed into the error/pending transition — only for bookkeeping failures
// the caller may want to retry (e.g. a queue consumer leaving the message
// in flight).
func (s *Service) Run(ctx context.Context, videoID, workflowID string) error {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, videoID, workflowID, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.Videos.UpdateStatusProgress(ctx, videoID, videos.StatusProcessing, progressDownloaded); err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"video_id":          videoID,
		"workflow_id":       workflowID,
		"status":            videos.StatusProcessing,
		"status_transition": "uploaded->processing",
	})

	if err := s.process(ctx, videoID, workflowID); err != nil {
		s.fail(ctx, videoID, workflowID, err)
		return nil
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("analysis.status", map[string]any{
		"video_id":          videoID,
		"workflow_id":       workflowID,
		"status":            videos.StatusCompleted,
		"status_transition": "processing->completed",
	})
	return nil
}

func (s *Service) process(ctx context.Context, videoID, workflowID string) error {
	video, err := s.Videos.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("video lookup: %w", err)
	}

	workDir, err := os.MkdirTemp("", "synchro-analysis-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Stage 1: download.
	videoPath, err := s.download(ctx, video, workDir)
	if err != nil {
		return err
	}

	// Stage 2: extract frames.
	framePaths, err := s.extract(ctx, videoPath, filepath.Join(workDir, "frames"))
	if err != nil {
		return err
	}
	if err := s.Videos.UpdateStatusProgress(ctx, videoID, videos.StatusProcessing, progressExtracted); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}

	frames, err := readFrames(framePaths)
	if err != nil {
		return &ExtractionError{Err: err}
	}

	// Stage 3: analyze with model fallback.
	fallback := newFallbackClient(s.Vision, s.Models)
	if s.Backoff > 0 {
		fallback.backoff = s.Backoff
	}
	raw, model, err := fallback.analyze(ctx, vision.AnalyzeInput{
		Prompt:   analysisPrompt,
		Frames:   frames,
		MimeType: screenshotMimeType,
	})
	if err != nil {
		return fmt.Errorf("model analysis: %w", err)
	}
	steps, err := ParseSteps(string(raw))
	if err != nil {
		return err
	}
	if err := s.Videos.UpdateStatusProgress(ctx, videoID, videos.StatusProcessing, progressAnalyzed); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	telemetry.Info("analysis.model_response", map[string]any{
		"video_id":    videoID,
		"workflow_id": workflowID,
		"model":       model,
		"step_count":  len(steps),
	})

	// Stage 4: upload screenshots. One failed upload leaves a gap but never
	// aborts the loop.
	screenshotURLs := s.uploadScreenshots(ctx, workflowID, framePaths)
	if err := s.Videos.UpdateStatusProgress(ctx, videoID, videos.StatusProcessing, progressUploaded); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}

	// Stage 5: merge and persist, then the joint terminal transition.
	rows := mergeSteps(workflowID, steps, screenshotURLs)
	if err := s.Workflows.InsertSteps(ctx, rows); err != nil {
		return fmt.Errorf("insert steps: %w", err)
	}
	completedAt := time.Now().UTC()
	if err := s.Workflows.MarkAnalyzed(ctx, workflowID, completedAt); err != nil {
		return fmt.Errorf("mark workflow analyzed: %w", err)
	}
	if err := s.Videos.UpdateStatusProgress(ctx, videoID, videos.StatusCompleted, progressDone); err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return nil
}

func (s *Service) download(ctx context.Context, video videos.Video, workDir string) (string, error) {
	if video.StoragePath == "" {
		return "", &DownloadError{StoragePath: video.StoragePath, Err: fmt.Errorf("empty storage path")}
	}

	src, err := s.Store.Open(ctx, video.StoragePath)
	if err != nil {
		return "", &DownloadError{StoragePath: video.StoragePath, Err: err}
	}
	defer src.Close()

	videoPath := filepath.Join(workDir, "source"+filepath.Ext(video.FileName))
	dst, err := os.OpenFile(videoPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", &DownloadError{StoragePath: video.StoragePath, Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", &DownloadError{StoragePath: video.StoragePath, Err: err}
	}
	return videoPath, nil
}

func (s *Service) extract(ctx context.Context, videoPath, framesDir string) ([]string, error) {
	framePaths, err := s.Extractor.ExtractFrames(ctx, videoPath, framesDir, maxFrames)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	if len(framePaths) == 0 {
		return nil, &ExtractionError{Err: fmt.Errorf("no frames extracted")}
	}
	if len(framePaths) > maxFrames {
		framePaths = framePaths[:maxFrames]
	}
	return framePaths, nil
}

// uploadScreenshots stores each frame under a deterministic key. Index i of
// the result is the storage key for frame i, or "" when that upload failed.
func (s *Service) uploadScreenshots(ctx context.Context, workflowID string, framePaths []string) []string {
	urls := make([]string, len(framePaths))
	for i, framePath := range framePaths {
		key := ScreenshotKey(workflowID, i)
		f, err := os.Open(framePath)
		if err != nil {
			telemetry.Error("analysis.screenshot_upload_failed", map[string]any{
				"workflow_id": workflowID,
				"frame_index": i,
				"error":       err.Error(),
			})
			continue
		}
		_, err = s.Store.SaveWithKey(ctx, key, screenshotMimeType, f)
		f.Close()
		if err != nil {
			telemetry.Error("analysis.screenshot_upload_failed", map[string]any{
				"workflow_id": workflowID,
				"frame_index": i,
				"error":       err.Error(),
			})
			continue
		}
		urls[i] = key
	}
	return urls
}

// ScreenshotKey returns the storage key for a workflow's frame screenshot.
func ScreenshotKey(workflowID string, frameIndex int) string {
	return fmt.Sprintf("workflows/%s/screenshots/frame_%d.jpg", workflowID, frameIndex)
}

// mergeSteps zips analysis steps with screenshot keys by index. Indices past
// the end of the screenshot list, or whose upload failed, get no screenshot.
func mergeSteps(workflowID string, steps []rawStep, screenshotURLs []string) []workflows.Step {
	now := time.Now().UTC()
	rows := make([]workflows.Step, 0, len(steps))
	for i, step := range steps {
		row := workflows.Step{
			ID:               uuid.NewString(),
			WorkflowID:       workflowID,
			SequenceNo:       i + 1,
			Type:             step.Type,
			Action:           step.Action,
			Description:      step.Description,
			Confidence:       clampConfidence(step.Confidence),
			TimestampSeconds: step.TimestampSeconds,
			CreatedAt:        now,
		}
		if i < len(screenshotURLs) && screenshotURLs[i] != "" {
			row.ScreenshotURL = screenshotURLs[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func readFrames(framePaths []string) ([][]byte, error) {
	frames := make([][]byte, 0, len(framePaths))
	for _, p := range framePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", filepath.Base(p), err)
		}
		frames = append(frames, data)
	}
	return frames, nil
}

// fail converts any pipeline error into the error/pending transition. The
// workflow reverts to pending rather than a distinct failed state; there is
// no automatic retry.
func (s *Service) fail(ctx context.Context, videoID, workflowID string, cause error) {
	metrics.IncAnalysisFailed()
	telemetry.Error("analysis.failed", map[string]any{
		"video_id":    videoID,
		"workflow_id": workflowID,
		"error":       cause.Error(),
	})

	if err := s.Videos.SetError(ctx, videoID, cause.Error()); err != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"video_id": videoID,
			"error":    err.Error(),
		})
	}
	if err := s.Workflows.RevertPending(ctx, workflowID); err != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"workflow_id": workflowID,
			"error":       err.Error(),
		})
	}
	telemetry.Info("analysis.status", map[string]any{
		"video_id":          videoID,
		"workflow_id":       workflowID,
		"status":            videos.StatusError,
		"status_transition": "processing->error",
	})
}
