package videos

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used for tests and dev without a database.
type MemoryRepo struct {
	mu     sync.RWMutex
	videos map[string]Video
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{videos: make(map[string]Video)}
}

func (r *MemoryRepo) Create(ctx context.Context, v Video) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[v.ID] = v
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Video, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.videos[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	return v, nil
}

func (r *MemoryRepo) GetByWorkflow(ctx context.Context, workflowID string) (Video, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.videos {
		if v.WorkflowID == workflowID {
			return v, nil
		}
	}
	return Video{}, ErrNotFound
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Video, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Video
	for _, v := range r.videos {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) UpdateStatusProgress(ctx context.Context, id, status string, progress int) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	v.Progress = progress
	v.ErrorMessage = ""
	v.UpdatedAt = time.Now().UTC()
	r.videos[id] = v
	return nil
}

func (r *MemoryRepo) SetError(ctx context.Context, id, message string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return ErrNotFound
	}
	v.Status = StatusError
	v.ErrorMessage = message
	v.UpdatedAt = time.Now().UTC()
	r.videos[id] = v
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return ErrNotFound
	}
	delete(r.videos, id)
	return nil
}

// ClaimGuest reassigns a guest's videos to an authenticated user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, v := range r.videos {
		if v.UserID == guestUserID {
			v.UserID = authedUserID
			v.UpdatedAt = time.Now().UTC()
			r.videos[id] = v
			count++
		}
	}
	return count, nil
}

var _ Repo = (*MemoryRepo)(nil)
