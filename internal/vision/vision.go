package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
)

// Client abstracts multimodal model providers for frame analysis.
type Client interface {
	AnalyzeFrames(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
}

// AnalyzeInput captures one frame-analysis request. Model overrides the
// client's default when non-empty, which is how the fallback chain walks
// its preference list.
type AnalyzeInput struct {
	Prompt   string
	Frames   [][]byte
	MimeType string
	Model    string
}

// ErrUnavailable marks a provider outage. Only this error class advances
// the model fallback chain; anything else aborts immediately.
var ErrUnavailable = errors.New("vision model unavailable")

// IsUnavailable reports whether err represents a service-unavailable class
// failure worth retrying on the next model.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 503") || strings.Contains(msg, "http status 529") {
		return true
	}
	if strings.Contains(msg, "service unavailable") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "model is unavailable") {
		return true
	}
	return false
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("vision client not configured")

// PlaceholderClient is a stub implementation used when no provider is wired.
type PlaceholderClient struct{}

// AnalyzeFrames returns ErrNotConfigured.
func (PlaceholderClient) AnalyzeFrames(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotConfigured
}
