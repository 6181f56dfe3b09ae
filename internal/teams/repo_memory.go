package teams

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo used for tests and dev without a database.
type MemoryRepo struct {
	mu      sync.RWMutex
	teams   map[string]Team
	members map[string][]Member
	invites map[string]Invite
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		teams:   make(map[string]Team),
		members: make(map[string][]Member),
		invites: make(map[string]Invite),
	}
}

func (r *MemoryRepo) CreateTeam(ctx context.Context, team Team, owner Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[team.ID] = team
	r.members[team.ID] = append(r.members[team.ID], owner)
	return nil
}

func (r *MemoryRepo) GetTeam(ctx context.Context, id string) (Team, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	team, ok := r.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	return team, nil
}

func (r *MemoryRepo) ListTeamsByUser(ctx context.Context, userID string) ([]Team, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Team
	for teamID, members := range r.members {
		for _, m := range members {
			if m.UserID == userID {
				if team, ok := r.teams[teamID]; ok {
					out = append(out, team)
				}
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) DeleteTeam(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return ErrNotFound
	}
	delete(r.teams, id)
	delete(r.members, id)
	for invID, inv := range r.invites {
		if inv.TeamID == id {
			delete(r.invites, invID)
		}
	}
	return nil
}

func (r *MemoryRepo) AddMember(ctx context.Context, m Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[m.TeamID]; !ok {
		return ErrNotFound
	}
	for _, existing := range r.members[m.TeamID] {
		if existing.UserID == m.UserID {
			return ErrAlreadyMember
		}
	}
	r.members[m.TeamID] = append(r.members[m.TeamID], m)
	return nil
}

func (r *MemoryRepo) RemoveMember(ctx context.Context, teamID, userID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.members[teamID]
	for i, m := range members {
		if m.UserID == userID {
			r.members[teamID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return ErrNotMember
}

func (r *MemoryRepo) ListMembers(ctx context.Context, teamID string) ([]Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.teams[teamID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]Member, len(r.members[teamID]))
	copy(out, r.members[teamID])
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *MemoryRepo) GetMember(ctx context.Context, teamID, userID string) (Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members[teamID] {
		if m.UserID == userID {
			return m, nil
		}
	}
	return Member{}, ErrNotMember
}

func (r *MemoryRepo) CreateInvite(ctx context.Context, inv Invite) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[inv.ID] = inv
	return nil
}

func (r *MemoryRepo) GetInviteByToken(ctx context.Context, token string) (Invite, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.invites {
		if inv.Token == token {
			return inv, nil
		}
	}
	return Invite{}, ErrInviteNotFound
}

func (r *MemoryRepo) MarkInviteAccepted(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[id]
	if !ok {
		return ErrInviteNotFound
	}
	now := nowUTC()
	inv.AcceptedAt = &now
	r.invites[id] = inv
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
