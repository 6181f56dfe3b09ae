package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *pgStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *pgStore) ConsumeAnalysis(ctx context.Context, userID string, n int) (Usage, error) {
	if n <= 0 {
		return s.ensure(ctx, userID)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}

	if u.AnalysesUsed+n > u.AnalysisLimit {
		err = ErrLimitReached
		return Usage{}, err
	}
	u.AnalysesUsed += n
	if _, err = tx.ExecContext(ctx, `
UPDATE usage SET analyses_used = $1 WHERE user_id = $2`, u.AnalysesUsed, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) AddStorage(ctx context.Context, userID string, delta int64) (Usage, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}

	if delta > 0 && u.StorageUsedBytes+delta > u.StorageLimitBytes {
		err = ErrStorageExceeded
		return Usage{}, err
	}
	u.StorageUsedBytes += delta
	if u.StorageUsedBytes < 0 {
		u.StorageUsedBytes = 0
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE usage SET storage_used_bytes = $1 WHERE user_id = $2`, u.StorageUsedBytes, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Reset(ctx context.Context, userID string) (Usage, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	now := time.Now().UTC()
	u.AnalysesUsed = 0
	u.ResetsAt = now.Add(periodLength)
	if _, err = tx.ExecContext(ctx, `
UPDATE usage SET analyses_used = 0, resets_at = $1 WHERE user_id = $2`, u.ResetsAt, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) ensure(ctx context.Context, userID string) (Usage, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	u, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Usage, error) {
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT plan, analysis_limit, analyses_used, storage_limit_bytes, storage_used_bytes, resets_at
FROM usage WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&u.Plan, &u.AnalysisLimit, &u.AnalysesUsed, &u.StorageLimitBytes, &u.StorageUsedBytes, &u.ResetsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			u = defaultUsage()
			if _, err = tx.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, analysis_limit, analyses_used, storage_limit_bytes, storage_used_bytes, resets_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				userID, u.Plan, u.AnalysisLimit, u.AnalysesUsed, u.StorageLimitBytes, u.StorageUsedBytes, u.ResetsAt); err != nil {
				return Usage{}, err
			}
			return u, nil
		}
		return Usage{}, err
	}

	now := time.Now().UTC()
	if now.After(u.ResetsAt) || now.Equal(u.ResetsAt) {
		u.AnalysesUsed = 0
		u.ResetsAt = now.Add(periodLength)
		if _, err = tx.ExecContext(ctx, `UPDATE usage SET analyses_used = $1, resets_at = $2 WHERE user_id = $3`, u.AnalysesUsed, u.ResetsAt, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}
