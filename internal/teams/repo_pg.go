package teams

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) CreateTeam(ctx context.Context, team Team, owner Member) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO teams (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
		team.ID, team.Name, team.OwnerID, team.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		owner.TeamID, owner.UserID, owner.Role, owner.JoinedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepo) GetTeam(ctx context.Context, id string) (Team, error) {
	const query = `SELECT id, name, owner_id, created_at FROM teams WHERE id = $1`
	var team Team
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.OwnerID, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Team{}, ErrNotFound
		}
		return Team{}, err
	}
	return team, nil
}

func (r *PGRepo) ListTeamsByUser(ctx context.Context, userID string) ([]Team, error) {
	const query = `
SELECT t.id, t.name, t.owner_id, t.created_at
FROM teams t
JOIN team_members m ON m.team_id = t.id
WHERE m.user_id = $1
ORDER BY t.created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var team Team
		if err := rows.Scan(&team.ID, &team.Name, &team.OwnerID, &team.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, team)
	}
	return out, rows.Err()
}

func (r *PGRepo) DeleteTeam(ctx context.Context, id string) error {
	const query = `DELETE FROM teams WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) AddMember(ctx context.Context, m Member) error {
	const query = `
INSERT INTO team_members (team_id, user_id, role, joined_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (team_id, user_id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, m.TeamID, m.UserID, m.Role, m.JoinedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (r *PGRepo) RemoveMember(ctx context.Context, teamID, userID string) error {
	const query = `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, teamID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotMember
	}
	return nil
}

func (r *PGRepo) ListMembers(ctx context.Context, teamID string) ([]Member, error) {
	const query = `
SELECT team_id, user_id, role, joined_at
FROM team_members
WHERE team_id = $1
ORDER BY joined_at ASC`

	rows, err := r.DB.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetMember(ctx context.Context, teamID, userID string) (Member, error) {
	const query = `SELECT team_id, user_id, role, joined_at FROM team_members WHERE team_id = $1 AND user_id = $2`
	var m Member
	err := r.DB.QueryRowContext(ctx, query, teamID, userID).Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Member{}, ErrNotMember
		}
		return Member{}, err
	}
	return m, nil
}

func (r *PGRepo) CreateInvite(ctx context.Context, inv Invite) error {
	const query = `
INSERT INTO team_invites (id, team_id, email, token, invited_by, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query, inv.ID, inv.TeamID, inv.Email, inv.Token, inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt)
	return err
}

func (r *PGRepo) GetInviteByToken(ctx context.Context, token string) (Invite, error) {
	const query = `
SELECT id, team_id, email, token, invited_by, expires_at, accepted_at, created_at
FROM team_invites
WHERE token = $1`
	var inv Invite
	var acceptedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, token).Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Token,
		&inv.InvitedBy, &inv.ExpiresAt, &acceptedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invite{}, ErrInviteNotFound
		}
		return Invite{}, err
	}
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	return inv, nil
}

func (r *PGRepo) MarkInviteAccepted(ctx context.Context, id string) error {
	const query = `UPDATE team_invites SET accepted_at = NOW() WHERE id = $1 AND accepted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInviteAccepted
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
