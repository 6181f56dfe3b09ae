package analysis

import (
	"context"
	"encoding/json"
	"time"

	"synchro-backend/internal/shared/telemetry"
	"synchro-backend/internal/vision"
)

const fallbackBackoff = 1 * time.Second

// fallbackClient walks an ordered model preference list. Only
// unavailable-class errors advance to the next model; any other error
// aborts immediately. Exhausting the list returns the last error.
type fallbackClient struct {
	base    vision.Client
	models  []string
	backoff time.Duration
}

func newFallbackClient(base vision.Client, models []string) *fallbackClient {
	return &fallbackClient{
		base:    base,
		models:  models,
		backoff: fallbackBackoff,
	}
}

// analyze returns the raw response and the model that produced it.
func (f *fallbackClient) analyze(ctx context.Context, input vision.AnalyzeInput) (json.RawMessage, string, error) {
	models := f.models
	if len(models) == 0 {
		models = []string{input.Model}
	}

	var lastErr error
	for i, model := range models {
		attempt := input
		attempt.Model = model
		raw, err := f.base.AnalyzeFrames(ctx, attempt)
		if err == nil {
			return raw, model, nil
		}
		if !vision.IsUnavailable(err) {
			return nil, model, err
		}
		lastErr = err
		telemetry.Error("analysis.model_unavailable", map[string]any{
			"model": model,
			"error": err.Error(),
		})
		if i == len(models)-1 {
			break
		}
		select {
		case <-time.After(f.backoff):
		case <-ctx.Done():
			return nil, model, ctx.Err()
		}
	}
	return nil, "", lastErr
}
