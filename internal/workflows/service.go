package workflows

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"synchro-backend/internal/shared/storage/object"
	"synchro-backend/internal/teams"
)

// Service contains business logic for workflows, steps, and team access.
type Service struct {
	Repo     Repo
	TeamRepo teams.Repo
	Store    object.ObjectStore
}

// WorkflowDetail is a workflow with its ordered steps.
type WorkflowDetail struct {
	Workflow Workflow `json:"workflow"`
	Steps    []Step   `json:"steps"`
}

// Get returns a workflow with steps if the user may read it.
func (s *Service) Get(ctx context.Context, userID, workflowID string) (WorkflowDetail, error) {
	w, err := s.Repo.GetByID(ctx, workflowID)
	if err != nil {
		return WorkflowDetail{}, err
	}
	ok, err := s.canRead(ctx, w, userID)
	if err != nil {
		return WorkflowDetail{}, err
	}
	if !ok {
		return WorkflowDetail{}, ErrNotFound
	}

	steps, err := s.Repo.ListSteps(ctx, workflowID)
	if err != nil {
		return WorkflowDetail{}, err
	}
	if steps == nil {
		steps = []Step{}
	}
	return WorkflowDetail{Workflow: w, Steps: steps}, nil
}

// List returns the user's personal workflows, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Workflow, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// ListTeam returns a team's workflows plus workflows shared with the team.
// The caller must be a member.
func (s *Service) ListTeam(ctx context.Context, teamID, userID string, limit, offset int) (owned, shared []Workflow, err error) {
	if s.TeamRepo == nil {
		return nil, nil, ErrForbidden
	}
	if _, err := s.TeamRepo.GetMember(ctx, teamID, userID); err != nil {
		return nil, nil, ErrNotFound
	}

	owned, err = s.Repo.ListByTeam(ctx, teamID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	shares, err := s.Repo.ListSharesByTeam(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	for _, share := range shares {
		w, err := s.Repo.GetByID(ctx, share.WorkflowID)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, nil, err
		}
		shared = append(shared, w)
	}
	return owned, shared, nil
}

// Rename updates the workflow title. Requires write access.
func (s *Service) Rename(ctx context.Context, userID, workflowID, title string) (Workflow, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 200 {
		return Workflow{}, ErrInvalidInput
	}

	w, err := s.requireWrite(ctx, userID, workflowID)
	if err != nil {
		return Workflow{}, err
	}
	if err := s.Repo.UpdateTitle(ctx, workflowID, title); err != nil {
		return Workflow{}, err
	}
	w.Title = title
	w.UpdatedAt = time.Now().UTC()
	return w, nil
}

// Delete removes a workflow and its steps. Only the original owner may
// delete, even after migration to a team.
func (s *Service) Delete(ctx context.Context, userID, workflowID string) error {
	w, err := s.Repo.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}
	if w.UserID != userID {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, workflowID)
}

// MigrateToTeam moves ownership of a personal workflow to a team. The
// caller must own the workflow and belong to the team. A workflow already
// owned by a team cannot move again.
func (s *Service) MigrateToTeam(ctx context.Context, userID, workflowID, teamID string) (Workflow, error) {
	w, err := s.Repo.GetByID(ctx, workflowID)
	if err != nil {
		return Workflow{}, err
	}
	if w.UserID != userID {
		return Workflow{}, ErrNotFound
	}
	if w.TeamID != "" {
		return Workflow{}, ErrOwnedByTeam
	}
	if s.TeamRepo == nil {
		return Workflow{}, ErrForbidden
	}
	if _, err := s.TeamRepo.GetMember(ctx, teamID, userID); err != nil {
		return Workflow{}, ErrForbidden
	}

	if err := s.Repo.MigrateToTeam(ctx, workflowID, teamID); err != nil {
		return Workflow{}, err
	}
	w.TeamID = teamID
	w.UpdatedAt = time.Now().UTC()
	return w, nil
}

// Share grants a team read access to a personal workflow without moving
// ownership. Sharing the same workflow with the same team twice fails with
// ErrAlreadyShared.
func (s *Service) Share(ctx context.Context, userID, workflowID, teamID string) (Share, error) {
	w, err := s.Repo.GetByID(ctx, workflowID)
	if err != nil {
		return Share{}, err
	}
	if w.UserID != userID {
		return Share{}, ErrNotFound
	}
	if w.TeamID != "" {
		return Share{}, ErrOwnedByTeam
	}
	if s.TeamRepo == nil {
		return Share{}, ErrForbidden
	}
	if _, err := s.TeamRepo.GetMember(ctx, teamID, userID); err != nil {
		return Share{}, ErrForbidden
	}

	share := Share{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		TeamID:     teamID,
		SharedBy:   userID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.CreateShare(ctx, share); err != nil {
		return Share{}, err
	}
	return share, nil
}

// OpenScreenshot streams the stored screenshot of one step.
func (s *Service) OpenScreenshot(ctx context.Context, userID, workflowID string, sequenceNo int) (io.ReadCloser, error) {
	detail, err := s.Get(ctx, userID, workflowID)
	if err != nil {
		return nil, err
	}
	for _, step := range detail.Steps {
		if step.SequenceNo == sequenceNo {
			if step.ScreenshotURL == "" {
				return nil, ErrNotFound
			}
			return s.Store.Open(ctx, step.ScreenshotURL)
		}
	}
	return nil, ErrNotFound
}

func (s *Service) canRead(ctx context.Context, w Workflow, userID string) (bool, error) {
	if w.UserID == userID {
		return true, nil
	}
	if s.TeamRepo == nil {
		return false, nil
	}
	if w.TeamID != "" {
		if _, err := s.TeamRepo.GetMember(ctx, w.TeamID, userID); err == nil {
			return true, nil
		}
	}

	// Shared workflows are readable by members of any team they were
	// shared with.
	userTeams, err := s.TeamRepo.ListTeamsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, team := range userTeams {
		shares, err := s.Repo.ListSharesByTeam(ctx, team.ID)
		if err != nil {
			return false, err
		}
		for _, share := range shares {
			if share.WorkflowID == w.ID {
				return true, nil
			}
		}
	}
	return false, nil
}

// requireWrite permits the owner, or any team member for team-owned
// workflows.
func (s *Service) requireWrite(ctx context.Context, userID, workflowID string) (Workflow, error) {
	w, err := s.Repo.GetByID(ctx, workflowID)
	if err != nil {
		return Workflow{}, err
	}
	if w.UserID == userID {
		return w, nil
	}
	if w.TeamID != "" && s.TeamRepo != nil {
		if _, err := s.TeamRepo.GetMember(ctx, w.TeamID, userID); err == nil {
			return w, nil
		}
	}
	return Workflow{}, ErrNotFound
}
