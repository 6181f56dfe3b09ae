package videos

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const videoColumns = `id, user_id, workflow_id, file_name, storage_path, size_bytes, mime_type, status, progress, error_message, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, v Video) error {
	const query = `
INSERT INTO videos (id, user_id, workflow_id, file_name, storage_path, size_bytes, mime_type, status, progress, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10, $11)`

	status := v.Status
	if status == "" {
		status = StatusUploaded
	}
	updatedAt := v.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = v.CreatedAt
	}

	_, err := r.DB.ExecContext(ctx, query, v.ID, v.UserID, v.WorkflowID, v.FileName, v.StoragePath,
		v.SizeBytes, v.MimeType, status, v.Progress, v.CreatedAt, updatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	return scanVideo(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) GetByWorkflow(ctx context.Context, workflowID string) (Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE workflow_id = $1`
	return scanVideo(r.DB.QueryRowContext(ctx, query, workflowID))
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Video, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + videoColumns + `
FROM videos
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateStatusProgress(ctx context.Context, id, status string, progress int) error {
	const query = `
UPDATE videos SET status = $1, progress = $2, error_message = NULL, updated_at = NOW()
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, status, progress, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) SetError(ctx context.Context, id, message string) error {
	const query = `
UPDATE videos SET status = $1, error_message = $2, updated_at = NOW()
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, StatusError, message, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM videos WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (Video, error) {
	var v Video
	var errMsg sql.NullString
	err := row.Scan(&v.ID, &v.UserID, &v.WorkflowID, &v.FileName, &v.StoragePath, &v.SizeBytes,
		&v.MimeType, &v.Status, &v.Progress, &errMsg, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		return Video{}, err
	}
	if errMsg.Valid {
		v.ErrorMessage = errMsg.String
	}
	return v, nil
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

var _ Repo = (*PGRepo)(nil)
