package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"synchro-backend/internal/users"
	"synchro-backend/internal/videos"
	"synchro-backend/internal/workflows"
)

var (
	ErrWrongPassword = errors.New("current password is incorrect")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
)

type Service struct {
	Users        users.Repo
	VideoRepo    videos.Repo
	WorkflowRepo workflows.Repo
}

type ClaimResult struct {
	MigratedVideos    int `json:"migratedVideos"`
	MigratedWorkflows int `json:"migratedWorkflows"`
}

func NewService(userRepo users.Repo, videoRepo videos.Repo, workflowRepo workflows.Repo) *Service {
	return &Service{Users: userRepo, VideoRepo: videoRepo, WorkflowRepo: workflowRepo}
}

// ChangePassword verifies the caller's current password and replaces it.
// The current password is not required while none is set yet.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if utf8.RuneCountInString(newPassword) < 8 {
		return ErrWeakPassword
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
			return ErrWrongPassword
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Users.UpdatePasswordHash(ctx, userID, string(hash))
}

// ClaimGuest moves a guest identity's videos and workflows to the
// authenticated user.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}

	if videoPG, ok := s.VideoRepo.(*videos.PGRepo); ok && videoPG != nil && videoPG.DB != nil {
		if workflowPG, ok := s.WorkflowRepo.(*workflows.PGRepo); ok && workflowPG != nil && workflowPG.DB != nil {
			return claimWithTx(ctx, videoPG.DB, guestUserID, authedUserID)
		}
	}

	videoCount, err := claimVideos(ctx, s.VideoRepo, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	workflowCount, err := claimWorkflows(ctx, s.WorkflowRepo, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedVideos: videoCount, MigratedWorkflows: workflowCount}, nil
}

func claimWithTx(ctx context.Context, db *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	videoRes, err := tx.ExecContext(ctx, `UPDATE videos SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	videoCount, _ := videoRes.RowsAffected()

	workflowRes, err := tx.ExecContext(ctx, `UPDATE workflows SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	workflowCount, _ := workflowRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedVideos: int(videoCount), MigratedWorkflows: int(workflowCount)}, nil
}

type guestClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

func claimVideos(ctx context.Context, repo videos.Repo, guestUserID, authedUserID string) (int, error) {
	if claimer, ok := repo.(guestClaimer); ok {
		return claimer.ClaimGuest(ctx, guestUserID, authedUserID)
	}
	return 0, errors.New("videos repo does not support claim")
}

func claimWorkflows(ctx context.Context, repo workflows.Repo, guestUserID, authedUserID string) (int, error) {
	if claimer, ok := repo.(guestClaimer); ok {
		return claimer.ClaimGuest(ctx, guestUserID, authedUserID)
	}
	return 0, errors.New("workflows repo does not support claim")
}
