package workflows

import (
	"context"
	"time"
)

// Repo persists workflows, steps, and shares.
type Repo interface {
	Create(ctx context.Context, w Workflow) error
	GetByID(ctx context.Context, id string) (Workflow, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Workflow, error)
	ListByTeam(ctx context.Context, teamID string, limit, offset int) ([]Workflow, error)
	UpdateTitle(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error

	// MarkAnalyzed moves the workflow to its terminal analyzed state.
	MarkAnalyzed(ctx context.Context, id string, completedAt time.Time) error
	// RevertPending puts a workflow back to pending after a failed analysis.
	RevertPending(ctx context.Context, id string) error

	// InsertSteps writes all steps for a workflow in one bulk insert.
	InsertSteps(ctx context.Context, steps []Step) error
	ListSteps(ctx context.Context, workflowID string) ([]Step, error)
	CountSteps(ctx context.Context, workflowID string) (int, error)

	MigrateToTeam(ctx context.Context, id, teamID string) error
	CreateShare(ctx context.Context, s Share) error
	ListSharesByTeam(ctx context.Context, teamID string) ([]Share, error)
}
