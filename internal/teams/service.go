package teams

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"synchro-backend/internal/email"
	"synchro-backend/internal/shared/telemetry"
)

const inviteTTL = 7 * 24 * time.Hour

type Service struct {
	Repo   Repo
	Email  email.Sender
	AppURL string

	now func() time.Time
}

func NewService(repo Repo, sender email.Sender, appURL string) *Service {
	return &Service{Repo: repo, Email: sender, AppURL: appURL, now: nowUTC}
}

func nowUTC() time.Time { return time.Now().UTC() }

func (s *Service) CreateTeam(ctx context.Context, name, ownerID string) (Team, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return Team{}, ErrInvalidInput
	}

	now := s.now()
	team := Team{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
	}
	owner := Member{
		TeamID:   team.ID,
		UserID:   ownerID,
		Role:     RoleOwner,
		JoinedAt: now,
	}
	if err := s.Repo.CreateTeam(ctx, team, owner); err != nil {
		return Team{}, err
	}
	return team, nil
}

func (s *Service) ListMyTeams(ctx context.Context, userID string) ([]Team, error) {
	return s.Repo.ListTeamsByUser(ctx, userID)
}

// ListMembers returns team members; the caller must be one of them.
func (s *Service) ListMembers(ctx context.Context, teamID, callerID string) ([]Member, error) {
	if _, err := s.Repo.GetMember(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	return s.Repo.ListMembers(ctx, teamID)
}

// DeleteTeam removes a team. Only the owner may delete it.
func (s *Service) DeleteTeam(ctx context.Context, teamID, callerID string) error {
	member, err := s.Repo.GetMember(ctx, teamID, callerID)
	if err != nil {
		return err
	}
	if member.Role != RoleOwner {
		return ErrForbidden
	}
	return s.Repo.DeleteTeam(ctx, teamID)
}

// Invite creates a time-limited invite and emails the join link. Any
// member may invite.
func (s *Service) Invite(ctx context.Context, teamID, callerID, inviteeEmail string) (Invite, error) {
	inviteeEmail = strings.ToLower(strings.TrimSpace(inviteeEmail))
	if inviteeEmail == "" || !strings.Contains(inviteeEmail, "@") {
		return Invite{}, ErrInvalidInput
	}

	if _, err := s.Repo.GetMember(ctx, teamID, callerID); err != nil {
		return Invite{}, err
	}
	team, err := s.Repo.GetTeam(ctx, teamID)
	if err != nil {
		return Invite{}, err
	}

	now := s.now()
	inv := Invite{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Email:     inviteeEmail,
		Token:     uuid.NewString(),
		InvitedBy: callerID,
		ExpiresAt: now.Add(inviteTTL),
		CreatedAt: now,
	}
	if err := s.Repo.CreateInvite(ctx, inv); err != nil {
		return Invite{}, err
	}

	if s.Email != nil {
		msg := email.Message{
			To:      inviteeEmail,
			Subject: fmt.Sprintf("You've been invited to join %s", team.Name),
			Body: fmt.Sprintf("You've been invited to join the team %q.\n\nOpen %s/invites?token=%s to accept. The invite expires in 7 days.",
				team.Name, strings.TrimRight(s.AppURL, "/"), inv.Token),
		}
		if err := s.Email.Send(ctx, msg); err != nil {
			telemetry.Error("teams.invite_email_failed", map[string]any{
				"teamId": teamID,
				"error":  err.Error(),
			})
		}
	}
	return inv, nil
}

// AcceptInvite joins the caller to the invite's team.
func (s *Service) AcceptInvite(ctx context.Context, token, userID string) (Team, error) {
	inv, err := s.Repo.GetInviteByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return Team{}, err
	}
	if inv.AcceptedAt != nil {
		return Team{}, ErrInviteAccepted
	}
	if s.now().After(inv.ExpiresAt) {
		return Team{}, ErrInviteExpired
	}

	member := Member{
		TeamID:   inv.TeamID,
		UserID:   userID,
		Role:     RoleMember,
		JoinedAt: s.now(),
	}
	if err := s.Repo.AddMember(ctx, member); err != nil && err != ErrAlreadyMember {
		return Team{}, err
	}
	if err := s.Repo.MarkInviteAccepted(ctx, inv.ID); err != nil {
		return Team{}, err
	}
	return s.Repo.GetTeam(ctx, inv.TeamID)
}
