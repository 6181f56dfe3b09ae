package usage

import "context"

type store interface {
	Get(ctx context.Context, userID string) (Usage, error)
	EnsurePeriod(ctx context.Context, userID string) (Usage, error)
	ConsumeAnalysis(ctx context.Context, userID string, n int) (Usage, error)
	AddStorage(ctx context.Context, userID string, delta int64) (Usage, error)
	Reset(ctx context.Context, userID string) (Usage, error)
}

// Service manages usage data via an underlying store.
type Service struct {
	store store
}

// NewService constructs a Service with in-memory store.
func NewService() *Service {
	return &Service{store: newMemoryStore()}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store) *Service {
	return &Service{store: pgStore}
}

// Get returns the current usage for a user, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, userID string) (Usage, error) {
	return s.store.Get(ctx, userID)
}

// EnsurePeriod resets the analysis counter if the period has expired.
func (s *Service) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, userID)
}

// CanUpload reports whether the user has quota left for one more analysis
// and the given additional bytes of storage.
func (s *Service) CanUpload(ctx context.Context, userID string, sizeBytes int64) (bool, Usage, error) {
	u, err := s.store.EnsurePeriod(ctx, userID)
	if err != nil {
		return false, Usage{}, err
	}
	if u.AnalysesUsed+1 > u.AnalysisLimit {
		return false, u, nil
	}
	if u.StorageUsedBytes+sizeBytes > u.StorageLimitBytes {
		return false, u, nil
	}
	return true, u, nil
}

// ConsumeAnalysis increments the analysis counter by n if within quota.
func (s *Service) ConsumeAnalysis(ctx context.Context, userID string, n int) (Usage, error) {
	return s.store.ConsumeAnalysis(ctx, userID, n)
}

// AddStorage adjusts the storage counter. A negative delta releases space
// when a video is deleted.
func (s *Service) AddStorage(ctx context.Context, userID string, delta int64) (Usage, error) {
	return s.store.AddStorage(ctx, userID, delta)
}

// Reset zeroes the analysis counter and restarts the window. Storage usage
// tracks live objects and is not reset.
func (s *Service) Reset(ctx context.Context, userID string) (Usage, error) {
	return s.store.Reset(ctx, userID)
}
