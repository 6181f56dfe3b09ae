package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func usageRow(used, limit int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"plan", "analysis_limit", "analyses_used", "storage_limit_bytes", "storage_used_bytes", "resets_at",
	}).AddRow("Starter", limit, used, int64(2<<30), int64(0), time.Now().UTC().Add(24*time.Hour))
}

func TestPGStoreConsumeAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM usage WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(usageRow(3, 10))
	mock.ExpectExec("UPDATE usage SET analyses_used").
		WithArgs(4, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := store.ConsumeAnalysis(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("ConsumeAnalysis: %v", err)
	}
	if u.AnalysesUsed != 4 {
		t.Fatalf("expected 4 used, got %d", u.AnalysesUsed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreConsumeAnalysisOverLimitRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM usage WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(usageRow(10, 10))
	mock.ExpectRollback()

	if _, err := store.ConsumeAnalysis(context.Background(), "user-1", 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreGetCreatesDefaultRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM usage WHERE user_id").
		WithArgs("fresh-user").
		WillReturnRows(sqlmock.NewRows([]string{"plan"}))
	mock.ExpectExec("INSERT INTO usage").
		WithArgs("fresh-user", "Starter", 10, 0, int64(2<<30), int64(0), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	u, err := store.Get(context.Background(), "fresh-user")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if u.Plan != "Starter" || u.AnalysisLimit != 10 {
		t.Fatalf("unexpected defaults %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
