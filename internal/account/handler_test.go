package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"synchro-backend/internal/ratelimit"
	"synchro-backend/internal/users"
	"synchro-backend/internal/videos"
	"synchro-backend/internal/workflows"
)

func newTestRouter(t *testing.T, limiter *ratelimit.Limiter, userID string, guest bool) (*gin.Engine, *users.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := users.NewMemoryRepo()
	svc := NewService(userRepo, videos.NewMemoryRepo(), workflows.NewMemoryRepo())
	handler := NewHandler(svc, limiter)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	return router, userRepo
}

func postPassword(router *gin.Engine, current, next string) *httptest.ResponseRecorder {
	body := `{"currentPassword": "` + current + `", "newPassword": "` + next + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/password", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestChangePasswordRejectsGuests(t *testing.T) {
	router, _ := newTestRouter(t, ratelimit.New(nil), "guest:abc", true)
	resp := postPassword(router, "", "longenough")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	router, userRepo := newTestRouter(t, ratelimit.New(nil), "user-1", false)
	hash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
	if err := userRepo.Upsert(context.Background(), users.User{ID: "user-1", Email: "a@b.c", PasswordHash: string(hash)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	resp := postPassword(router, "nope", "newpassword")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %q", payload.Error.Code)
	}
}

func TestChangePasswordRateLimited(t *testing.T) {
	limiter := ratelimit.New(nil,
		ratelimit.WithLimits(15*time.Minute, 2),
		ratelimit.WithRand(func() float64 { return 1 }),
	)
	router, userRepo := newTestRouter(t, limiter, "user-1", false)
	hash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
	if err := userRepo.Upsert(context.Background(), users.User{ID: "user-1", Email: "a@b.c", PasswordHash: string(hash)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Failed attempts burn the budget.
	for i := 0; i < 2; i++ {
		if resp := postPassword(router, "nope", "newpassword"); resp.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.Code)
		}
	}

	resp := postPassword(router, "oldpassword", "newpassword")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				MinutesRemaining int `json:"minutesRemaining"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected rate_limited, got %q", payload.Error.Code)
	}
	if payload.Error.Details.MinutesRemaining < 1 {
		t.Fatalf("expected minutesRemaining >= 1, got %d", payload.Error.Details.MinutesRemaining)
	}
}

func TestChangePasswordSuccessResetsLimiter(t *testing.T) {
	limiter := ratelimit.New(nil,
		ratelimit.WithLimits(15*time.Minute, 2),
		ratelimit.WithRand(func() float64 { return 1 }),
	)
	router, userRepo := newTestRouter(t, limiter, "user-1", false)
	if err := userRepo.Upsert(context.Background(), users.User{ID: "user-1", Email: "a@b.c"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// One failed attempt, then a success.
	if resp := postPassword(router, "", "short"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := postPassword(router, "", "longenough"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	// The counter was cleared, so the full budget is available again.
	decision := limiter.Check("user-1")
	if !decision.Allowed || decision.Remaining != 2 {
		t.Fatalf("expected fresh allowance, got %+v", decision)
	}
}

func TestClaimGuestMigratesVideos(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userRepo := users.NewMemoryRepo()
	videoRepo := videos.NewMemoryRepo()
	workflowRepo := workflows.NewMemoryRepo()
	svc := NewService(userRepo, videoRepo, workflowRepo)
	handler := NewHandler(svc, ratelimit.New(nil))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("isGuest", false)
		c.Next()
	})
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	guestID := "11111111-1111-1111-1111-111111111111"
	if err := videoRepo.Create(context.Background(), videos.Video{ID: "v1", UserID: "guest:" + guestID}); err != nil {
		t.Fatalf("create video: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedVideos != 1 {
		t.Fatalf("expected 1 migrated video, got %d", result.MigratedVideos)
	}
}

func TestClaimGuestRejectsInvalidGuestID(t *testing.T) {
	router, _ := newTestRouter(t, ratelimit.New(nil), "user-1", false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", "not-a-uuid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
