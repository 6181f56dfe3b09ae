package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"synchro-backend/internal/vision"
)

type scriptedVision struct {
	errs   map[string]error
	called []string
}

func (s *scriptedVision) AnalyzeFrames(ctx context.Context, input vision.AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	s.called = append(s.called, input.Model)
	if err, ok := s.errs[input.Model]; ok && err != nil {
		return nil, err
	}
	return json.RawMessage(`{"steps": []}`), nil
}

func TestFallbackWalksModelsOnUnavailable(t *testing.T) {
	base := &scriptedVision{errs: map[string]error{
		"model-a": vision.ErrUnavailable,
		"model-b": errors.New("http status 503 from upstream"),
	}}
	fc := newFallbackClient(base, []string{"model-a", "model-b", "model-c"})
	fc.backoff = 0

	raw, model, err := fc.analyze(context.Background(), vision.AnalyzeInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "model-c" {
		t.Fatalf("expected model-c, got %q", model)
	}
	if raw == nil {
		t.Fatal("expected a response")
	}
	if len(base.called) != 3 {
		t.Fatalf("expected 3 attempts, got %v", base.called)
	}
}

func TestFallbackAbortsOnOtherErrors(t *testing.T) {
	base := &scriptedVision{errs: map[string]error{
		"model-a": errors.New("invalid api key"),
	}}
	fc := newFallbackClient(base, []string{"model-a", "model-b"})
	fc.backoff = 0

	_, _, err := fc.analyze(context.Background(), vision.AnalyzeInput{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(base.called) != 1 {
		t.Fatalf("expected 1 attempt, got %v", base.called)
	}
}

func TestFallbackExhaustedReturnsLastError(t *testing.T) {
	base := &scriptedVision{errs: map[string]error{
		"model-a": vision.ErrUnavailable,
		"model-b": vision.ErrUnavailable,
	}}
	fc := newFallbackClient(base, []string{"model-a", "model-b"})
	fc.backoff = 0

	_, _, err := fc.analyze(context.Background(), vision.AnalyzeInput{})
	if !errors.Is(err, vision.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(base.called) != 2 {
		t.Fatalf("expected 2 attempts, got %v", base.called)
	}
}

func TestFallbackEmptyListUsesInputModel(t *testing.T) {
	base := &scriptedVision{}
	fc := newFallbackClient(base, nil)
	fc.backoff = 0

	_, model, err := fc.analyze(context.Background(), vision.AnalyzeInput{Model: "default-model"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "default-model" {
		t.Fatalf("expected default-model, got %q", model)
	}
}
