package workflows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, w Workflow) error {
	const query = `
INSERT INTO workflows (id, user_id, team_id, title, status, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	status := w.Status
	if status == "" {
		status = StatusPending
	}
	var teamID sql.NullString
	if w.TeamID != "" {
		teamID = sql.NullString{String: w.TeamID, Valid: true}
	}
	var completedAt sql.NullTime
	if w.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *w.CompletedAt, Valid: true}
	}
	updatedAt := w.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = w.CreatedAt
	}

	_, err := r.DB.ExecContext(ctx, query, w.ID, w.UserID, teamID, w.Title, status, completedAt, w.CreatedAt, updatedAt)
	return err
}

const workflowColumns = `id, user_id, team_id, title, status, completed_at, created_at, updated_at`

func (r *PGRepo) GetByID(ctx context.Context, id string) (Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`
	return scanWorkflow(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Workflow, error) {
	query := `SELECT ` + workflowColumns + `
FROM workflows
WHERE user_id = $1 AND team_id IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	return r.list(ctx, query, userID, normalizeLimit(limit), offset)
}

func (r *PGRepo) ListByTeam(ctx context.Context, teamID string, limit, offset int) ([]Workflow, error) {
	query := `SELECT ` + workflowColumns + `
FROM workflows
WHERE team_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	return r.list(ctx, query, teamID, normalizeLimit(limit), offset)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Workflow, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateTitle(ctx context.Context, id, title string) error {
	const query = `UPDATE workflows SET title = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, title, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM workflows WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) MarkAnalyzed(ctx context.Context, id string, completedAt time.Time) error {
	const query = `UPDATE workflows SET status = $1, completed_at = $2, updated_at = NOW() WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, StatusAnalyzed, completedAt, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) RevertPending(ctx context.Context, id string) error {
	const query = `UPDATE workflows SET status = $1, completed_at = NULL, updated_at = NOW() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, StatusPending, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// InsertSteps writes all rows in one statement so a job's steps land
// atomically.
func (r *PGRepo) InsertSteps(ctx context.Context, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO workflow_steps (id, workflow_id, sequence_no, step_type, action, description, confidence, timestamp_seconds, screenshot_url, created_at) VALUES `)

	args := make([]any, 0, len(steps)*10)
	for i, step := range steps {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 10
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10))

		var ts sql.NullFloat64
		if step.TimestampSeconds != nil {
			ts = sql.NullFloat64{Float64: *step.TimestampSeconds, Valid: true}
		}
		var screenshot sql.NullString
		if step.ScreenshotURL != "" {
			screenshot = sql.NullString{String: step.ScreenshotURL, Valid: true}
		}
		args = append(args, step.ID, step.WorkflowID, step.SequenceNo, step.Type, step.Action,
			step.Description, step.Confidence, ts, screenshot, step.CreatedAt)
	}

	_, err := r.DB.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *PGRepo) ListSteps(ctx context.Context, workflowID string) ([]Step, error) {
	const query = `
SELECT id, workflow_id, sequence_no, step_type, action, description, confidence, timestamp_seconds, screenshot_url, created_at
FROM workflow_steps
WHERE workflow_id = $1
ORDER BY sequence_no ASC`

	rows, err := r.DB.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var step Step
		var ts sql.NullFloat64
		var screenshot sql.NullString
		if err := rows.Scan(&step.ID, &step.WorkflowID, &step.SequenceNo, &step.Type, &step.Action,
			&step.Description, &step.Confidence, &ts, &screenshot, &step.CreatedAt); err != nil {
			return nil, err
		}
		if ts.Valid {
			step.TimestampSeconds = &ts.Float64
		}
		if screenshot.Valid {
			step.ScreenshotURL = screenshot.String
		}
		out = append(out, step)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountSteps(ctx context.Context, workflowID string) (int, error) {
	const query = `SELECT COUNT(*) FROM workflow_steps WHERE workflow_id = $1`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, workflowID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PGRepo) MigrateToTeam(ctx context.Context, id, teamID string) error {
	const query = `UPDATE workflows SET team_id = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, teamID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) CreateShare(ctx context.Context, s Share) error {
	const query = `
INSERT INTO workflow_shares (id, workflow_id, team_id, shared_by, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (workflow_id, team_id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, s.ID, s.WorkflowID, s.TeamID, s.SharedBy, s.CreatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyShared
	}
	return nil
}

func (r *PGRepo) ListSharesByTeam(ctx context.Context, teamID string) ([]Share, error) {
	const query = `
SELECT id, workflow_id, team_id, shared_by, created_at
FROM workflow_shares
WHERE team_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Share
	for rows.Next() {
		var s Share
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.TeamID, &s.SharedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (Workflow, error) {
	var w Workflow
	var teamID sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&w.ID, &w.UserID, &teamID, &w.Title, &w.Status, &completedAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Workflow{}, ErrNotFound
		}
		return Workflow{}, err
	}
	if teamID.Valid {
		w.TeamID = teamID.String
	}
	if completedAt.Valid {
		w.CompletedAt = &completedAt.Time
	}
	return w, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

var _ Repo = (*PGRepo)(nil)
