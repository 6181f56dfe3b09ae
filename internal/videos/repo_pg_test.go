package videos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateDefaultsStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	video := Video{
		ID:          "video-1",
		UserID:      "user-1",
		WorkflowID:  "workflow-1",
		FileName:    "demo.mp4",
		StoragePath: "videos/user-1/video-1/demo.mp4",
		SizeBytes:   2048,
		MimeType:    "video/mp4",
		CreatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO videos").
		WithArgs(
			video.ID,
			video.UserID,
			video.WorkflowID,
			video.FileName,
			video.StoragePath,
			video.SizeBytes,
			video.MimeType,
			StatusUploaded,
			0,
			video.CreatedAt,
			video.CreatedAt, // updated_at mirrors created_at when unset
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("FROM videos WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusProgressMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE videos SET status").
		WithArgs(StatusProcessing, 10, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateStatusProgress(context.Background(), "missing", StatusProcessing, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
