package teams

import "context"

type Repo interface {
	CreateTeam(ctx context.Context, team Team, owner Member) error
	GetTeam(ctx context.Context, id string) (Team, error)
	ListTeamsByUser(ctx context.Context, userID string) ([]Team, error)
	DeleteTeam(ctx context.Context, id string) error

	AddMember(ctx context.Context, m Member) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	ListMembers(ctx context.Context, teamID string) ([]Member, error)
	GetMember(ctx context.Context, teamID, userID string) (Member, error)

	CreateInvite(ctx context.Context, inv Invite) error
	GetInviteByToken(ctx context.Context, token string) (Invite, error)
	MarkInviteAccepted(ctx context.Context, id string) error
}
