package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"synchro-backend/internal/queue"
	"synchro-backend/internal/shared/metrics"
	"synchro-backend/internal/shared/storage/object"
	"synchro-backend/internal/shared/telemetry"
	"synchro-backend/internal/usage"
	"synchro-backend/internal/workflows"
)

// MaxUploadBytes caps a single video upload.
const MaxUploadBytes = 100 << 20

// ErrQuotaExceeded indicates the user's plan quota blocks the upload.
var ErrQuotaExceeded = errors.New("plan quota exceeded")

var allowedMimeTypes = map[string]struct{}{
	"video/mp4":       {},
	"video/webm":      {},
	"video/quicktime": {},
}

// AnalysisRunner starts the analysis pipeline for a video/workflow pair.
type AnalysisRunner interface {
	Run(ctx context.Context, videoID, workflowID string) error
}

// Service contains business logic for videos. Uploads are accepted and
// acknowledged immediately; analysis runs asynchronously via the queue, or
// an in-process goroutine when no queue is configured.
type Service struct {
	Store        object.ObjectStore
	Repo         Repo
	WorkflowRepo workflows.Repo
	Usage        *usage.Service
	Queue        queue.Client
	Analysis     AnalysisRunner
}

// UploadResult pairs the stored video with the workflow created for it.
type UploadResult struct {
	Video    Video              `json:"video"`
	Workflow workflows.Workflow `json:"workflow"`
}

// Upload stores the file, creates the video and its pending workflow, and
// kicks off analysis.
func (s *Service) Upload(ctx context.Context, userID, fileName, title, declaredType string, sizeHint int64, r io.Reader) (UploadResult, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return UploadResult{}, ErrInvalidInput
	}
	if _, ok := allowedMimeTypes[normalizeMimeType(declaredType)]; !ok {
		return UploadResult{}, ErrUnsupportedType
	}

	if s.Usage != nil {
		allowed, _, err := s.Usage.CanUpload(ctx, userID, sizeHint)
		if err != nil {
			return UploadResult{}, err
		}
		if !allowed {
			return UploadResult{}, ErrQuotaExceeded
		}
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return UploadResult{}, err
	}

	now := time.Now().UTC()
	workflow := workflows.Workflow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     workflowTitle(title, fileName),
		Status:    workflows.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.WorkflowRepo.Create(ctx, workflow); err != nil {
		return UploadResult{}, err
	}

	video := Video{
		ID:          uuid.NewString(),
		UserID:      userID,
		WorkflowID:  workflow.ID,
		FileName:    fileName,
		StoragePath: storageKey,
		SizeBytes:   size,
		MimeType:    mimeType,
		Status:      StatusUploaded,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, video); err != nil {
		return UploadResult{}, err
	}

	if s.Usage != nil {
		if _, err := s.Usage.AddStorage(ctx, userID, size); err != nil {
			telemetry.Error("videos.usage_storage_failed", map[string]any{
				"video_id": video.ID,
				"error":    err.Error(),
			})
		}
		if _, err := s.Usage.ConsumeAnalysis(ctx, userID, 1); err != nil {
			telemetry.Error("videos.usage_consume_failed", map[string]any{
				"video_id": video.ID,
				"error":    err.Error(),
			})
		}
	}

	metrics.IncVideosUploaded()
	telemetry.Info("videos.uploaded", map[string]any{
		"video_id":    video.ID,
		"workflow_id": workflow.ID,
		"size_bytes":  size,
		"mime_type":   mimeType,
	})

	s.dispatch(ctx, video.ID, workflow.ID)
	return UploadResult{Video: video, Workflow: workflow}, nil
}

// dispatch hands the pair to the queue, falling back to an in-process run.
// The upload response never waits for analysis.
func (s *Service) dispatch(ctx context.Context, videoID, workflowID string) {
	if s.Queue != nil {
		msg := queue.Message{
			VideoID:    videoID,
			WorkflowID: workflowID,
			RequestID:  requestIDFromContext(ctx),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		if err := s.Queue.Send(ctx, msg); err == nil {
			return
		} else {
			telemetry.Error("videos.enqueue_failed", map[string]any{
				"video_id": videoID,
				"error":    err.Error(),
			})
		}
	}
	if s.Analysis == nil {
		telemetry.Error("videos.no_analysis_path", map[string]any{"video_id": videoID})
		return
	}
	go func() {
		// Detach from the request context so the pipeline survives the
		// response being written.
		if err := s.Analysis.Run(context.Background(), videoID, workflowID); err != nil {
			telemetry.Error("videos.inline_analysis_failed", map[string]any{
				"video_id": videoID,
				"error":    err.Error(),
			})
		}
	}()
}

// Get returns a video owned by the user.
func (s *Service) Get(ctx context.Context, userID, videoID string) (Video, error) {
	video, err := s.Repo.GetByID(ctx, videoID)
	if err != nil {
		return Video{}, err
	}
	if video.UserID != userID {
		return Video{}, ErrNotFound
	}
	return video, nil
}

// List returns the user's videos, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Video, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Delete removes the video record, its stored object, and releases the
// storage quota. The workflow and its steps survive the video deletion.
func (s *Service) Delete(ctx context.Context, userID, videoID string) error {
	video, err := s.Get(ctx, userID, videoID)
	if err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, videoID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, video.StoragePath); err != nil {
		telemetry.Error("videos.object_delete_failed", map[string]any{
			"video_id": videoID,
			"error":    err.Error(),
		})
	}
	if s.Usage != nil {
		if _, err := s.Usage.AddStorage(ctx, userID, -video.SizeBytes); err != nil {
			telemetry.Error("videos.usage_release_failed", map[string]any{
				"video_id": videoID,
				"error":    err.Error(),
			})
		}
	}
	return nil
}

func workflowTitle(title, fileName string) string {
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if base == "" {
		base = fileName
	}
	return fmt.Sprintf("Workflow from %s", base)
}

func normalizeMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

type requestIDKey struct{}

// WithRequestID attaches a request ID for queue message propagation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
