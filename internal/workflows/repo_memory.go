package workflows

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used for tests and dev without a database.
type MemoryRepo struct {
	mu        sync.RWMutex
	workflows map[string]Workflow
	steps     map[string][]Step
	shares    map[string]Share
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		workflows: make(map[string]Workflow),
		steps:     make(map[string][]Step),
		shares:    make(map[string]Share),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, w Workflow) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[w.ID] = w
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Workflow, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workflows[id]
	if !ok {
		return Workflow{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Workflow, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Workflow
	for _, w := range r.workflows {
		if w.UserID == userID && w.TeamID == "" {
			out = append(out, w)
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *MemoryRepo) ListByTeam(ctx context.Context, teamID string, limit, offset int) ([]Workflow, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Workflow
	for _, w := range r.workflows {
		if w.TeamID == teamID {
			out = append(out, w)
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *MemoryRepo) UpdateTitle(ctx context.Context, id, title string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return ErrNotFound
	}
	w.Title = title
	w.UpdatedAt = time.Now().UTC()
	r.workflows[id] = w
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(r.workflows, id)
	delete(r.steps, id)
	return nil
}

func (r *MemoryRepo) MarkAnalyzed(ctx context.Context, id string, completedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return ErrNotFound
	}
	w.Status = StatusAnalyzed
	w.CompletedAt = &completedAt
	w.UpdatedAt = time.Now().UTC()
	r.workflows[id] = w
	return nil
}

func (r *MemoryRepo) RevertPending(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return ErrNotFound
	}
	w.Status = StatusPending
	w.CompletedAt = nil
	w.UpdatedAt = time.Now().UTC()
	r.workflows[id] = w
	return nil
}

func (r *MemoryRepo) InsertSteps(ctx context.Context, steps []Step) error {
	_ = ctx
	if len(steps) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	workflowID := steps[0].WorkflowID
	r.steps[workflowID] = append(r.steps[workflowID], steps...)
	return nil
}

func (r *MemoryRepo) ListSteps(ctx context.Context, workflowID string) ([]Step, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	steps := make([]Step, len(r.steps[workflowID]))
	copy(steps, r.steps[workflowID])
	sort.Slice(steps, func(i, j int) bool { return steps[i].SequenceNo < steps[j].SequenceNo })
	return steps, nil
}

func (r *MemoryRepo) CountSteps(ctx context.Context, workflowID string) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps[workflowID]), nil
}

func (r *MemoryRepo) MigrateToTeam(ctx context.Context, id, teamID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return ErrNotFound
	}
	w.TeamID = teamID
	w.UpdatedAt = time.Now().UTC()
	r.workflows[id] = w
	return nil
}

func (r *MemoryRepo) CreateShare(ctx context.Context, s Share) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.shares {
		if existing.WorkflowID == s.WorkflowID && existing.TeamID == s.TeamID {
			return ErrAlreadyShared
		}
	}
	r.shares[s.ID] = s
	return nil
}

func (r *MemoryRepo) ListSharesByTeam(ctx context.Context, teamID string) ([]Share, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Share
	for _, s := range r.shares {
		if s.TeamID == teamID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ClaimGuest reassigns a guest's workflows to an authenticated user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, w := range r.workflows {
		if w.UserID == guestUserID {
			w.UserID = authedUserID
			w.UpdatedAt = time.Now().UTC()
			r.workflows[id] = w
			count++
		}
	}
	return count, nil
}

func paginate(items []Workflow, limit, offset int) []Workflow {
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ Repo = (*MemoryRepo)(nil)
