package usage

import (
	"context"
	"errors"
	"testing"
)

func TestGetInitializesDefaults(t *testing.T) {
	svc := NewService()
	u, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Plan != "Starter" || u.AnalysisLimit != 10 {
		t.Fatalf("unexpected defaults %+v", u)
	}
	if u.StorageLimitBytes != 2<<30 {
		t.Fatalf("unexpected storage limit %d", u.StorageLimitBytes)
	}
	if u.ResetsAt.IsZero() {
		t.Fatal("expected resetsAt to be set")
	}
}

func TestCanUploadChecksBothQuotas(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	ok, _, err := svc.CanUpload(ctx, "u1", 1024)
	if err != nil || !ok {
		t.Fatalf("expected allowed, got ok=%v err=%v", ok, err)
	}

	// Analysis quota exhausted.
	if _, err := svc.ConsumeAnalysis(ctx, "u1", 10); err != nil {
		t.Fatalf("consume: %v", err)
	}
	ok, _, err = svc.CanUpload(ctx, "u1", 1024)
	if err != nil {
		t.Fatalf("can upload: %v", err)
	}
	if ok {
		t.Fatal("expected analysis quota to block upload")
	}

	// Storage quota exhausted for a different user.
	if _, err := svc.AddStorage(ctx, "u2", 2<<30); err != nil {
		t.Fatalf("add storage: %v", err)
	}
	ok, _, err = svc.CanUpload(ctx, "u2", 1)
	if err != nil {
		t.Fatalf("can upload: %v", err)
	}
	if ok {
		t.Fatal("expected storage quota to block upload")
	}
}

func TestConsumeAnalysisOverLimit(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	if _, err := svc.ConsumeAnalysis(ctx, "u1", 11); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
}

func TestAddStorageOverLimit(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	if _, err := svc.AddStorage(ctx, "u1", (2<<30)+1); !errors.Is(err, ErrStorageExceeded) {
		t.Fatalf("expected ErrStorageExceeded, got %v", err)
	}
}

func TestAddStorageNeverGoesNegative(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	u, err := svc.AddStorage(ctx, "u1", -1024)
	if err != nil {
		t.Fatalf("add storage: %v", err)
	}
	if u.StorageUsedBytes != 0 {
		t.Fatalf("expected 0, got %d", u.StorageUsedBytes)
	}
}

func TestResetClearsAnalysesNotStorage(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	if _, err := svc.ConsumeAnalysis(ctx, "u1", 3); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := svc.AddStorage(ctx, "u1", 4096); err != nil {
		t.Fatalf("add storage: %v", err)
	}

	u, err := svc.Reset(ctx, "u1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if u.AnalysesUsed != 0 {
		t.Fatalf("expected analyses cleared, got %d", u.AnalysesUsed)
	}
	if u.StorageUsedBytes != 4096 {
		t.Fatalf("expected storage untouched, got %d", u.StorageUsedBytes)
	}
}
