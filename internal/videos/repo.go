package videos

import "context"

// Repo persists video records.
type Repo interface {
	Create(ctx context.Context, v Video) error
	GetByID(ctx context.Context, id string) (Video, error)
	GetByWorkflow(ctx context.Context, workflowID string) (Video, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Video, error)
	// UpdateStatusProgress sets status and progress, clearing any error message.
	UpdateStatusProgress(ctx context.Context, id, status string, progress int) error
	// SetError moves the video to the error state with a message.
	SetError(ctx context.Context, id, message string) error
	Delete(ctx context.Context, id string) error
}
