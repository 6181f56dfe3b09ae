package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"synchro-backend/internal/account"
	googleauth "synchro-backend/internal/auth"
	"synchro-backend/internal/shared/config"
	"synchro-backend/internal/shared/metrics"
	"synchro-backend/internal/shared/server/middleware"
	"synchro-backend/internal/shared/server/respond"
	"synchro-backend/internal/teams"
	"synchro-backend/internal/uploads"
	"synchro-backend/internal/usage"
	"synchro-backend/internal/users"
	"synchro-backend/internal/videos"
	"synchro-backend/internal/workflows"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are
// skipped so tests can wire only the slice they exercise.
type RouterDeps struct {
	Config          config.Config
	AccountHandler  *account.Handler
	VideoHandler    *videos.Handler
	WorkflowHandler *workflows.Handler
	TeamHandler     *teams.Handler
	UsageHandler    *usage.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(cfg.Env),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.VideoHandler != nil {
		deps.VideoHandler.RegisterRoutes(api)
	}
	if deps.WorkflowHandler != nil {
		deps.WorkflowHandler.RegisterRoutes(api)
	}
	if deps.TeamHandler != nil {
		deps.TeamHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
	}
	uploads.RegisterRoutes(api)

	if cfg.Env == "dev" && deps.UsageHandler != nil {
		dev := api.Group("/dev")
		deps.UsageHandler.RegisterDevRoutes(dev)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
