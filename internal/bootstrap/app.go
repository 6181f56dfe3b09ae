package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"synchro-backend/internal/account"
	"synchro-backend/internal/analysis"
	googleauth "synchro-backend/internal/auth"
	"synchro-backend/internal/email"
	"synchro-backend/internal/queue"
	"synchro-backend/internal/ratelimit"
	"synchro-backend/internal/shared/config"
	"synchro-backend/internal/shared/server"
	"synchro-backend/internal/shared/storage/db"
	"synchro-backend/internal/shared/storage/object"
	localstore "synchro-backend/internal/shared/storage/object/local"
	s3store "synchro-backend/internal/shared/storage/object/s3"
	"synchro-backend/internal/teams"
	"synchro-backend/internal/usage"
	"synchro-backend/internal/users"
	"synchro-backend/internal/videos"
	"synchro-backend/internal/vision"
	"synchro-backend/internal/vision/gemini"
	"synchro-backend/internal/workflows"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Email  email.Sender

	Limiter *ratelimit.Limiter

	UsersRepo    users.Repo
	VideoRepo    videos.Repo
	WorkflowRepo workflows.Repo
	TeamRepo     teams.Repo

	UsersService    *users.Service
	UsageService    *usage.Service
	VideoService    *videos.Service
	WorkflowService *workflows.Service
	TeamService     *teams.Service
	AccountService  *account.Service
	AnalysisService *analysis.Service

	UserHandler     *users.Handler
	UsageHandler    *usage.Handler
	VideoHandler    *videos.Handler
	WorkflowHandler *workflows.Handler
	TeamHandler     *teams.Handler
	AccountHandler  *account.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Router: nil,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AccountHandler:  app.AccountHandler,
		VideoHandler:    app.VideoHandler,
		WorkflowHandler: app.WorkflowHandler,
		TeamHandler:     app.TeamHandler,
		UsageHandler:    app.UsageHandler,
		UserHandler:     app.UserHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("SYNCHRO_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildVision(cfg config.Config) (vision.Client, error) {
	if cfg.VisionProvider != "gemini" {
		return vision.PlaceholderClient{}, nil
	}
	model := ""
	if len(cfg.VisionModels) > 0 {
		model = cfg.VisionModels[0]
	}
	client, err := gemini.NewClient(os.Getenv("GEMINI_API_KEY"), model)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: gemini unavailable; analysis will fail until configured: %v", err)
			return vision.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return client, nil
}

func buildEmail(cfg config.Config) email.Sender {
	if cfg.EmailProvider == "smtp" {
		return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	}
	return email.LogSender{}
}

func buildServices(app *App) error {
	var (
		userRepo     users.Repo
		videoRepo    videos.Repo
		workflowRepo workflows.Repo
		teamRepo     teams.Repo
	)

	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		videoRepo = &videos.PGRepo{DB: app.DB}
		workflowRepo = &workflows.PGRepo{DB: app.DB}
		teamRepo = &teams.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		videoRepo = videos.NewMemoryRepo()
		workflowRepo = workflows.NewMemoryRepo()
		teamRepo = teams.NewMemoryRepo()
	}

	var usageSvc *usage.Service
	if app.DB != nil {
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB))
	} else {
		usageSvc = usage.NewService()
	}

	visionClient, err := buildVision(app.Config)
	if err != nil {
		return err
	}

	analysisSvc := &analysis.Service{
		Videos:    videoRepo,
		Workflows: workflowRepo,
		Store:     app.Store,
		Extractor: &analysis.FFmpegExtractor{Binary: app.Config.FFmpegBinary},
		Vision:    visionClient,
		Models:    app.Config.VisionModels,
	}

	videoSvc := &videos.Service{
		Store:        app.Store,
		Repo:         videoRepo,
		WorkflowRepo: workflowRepo,
		Usage:        usageSvc,
		Queue:        app.Queue,
		Analysis:     analysisSvc,
	}

	workflowSvc := &workflows.Service{
		Repo:     workflowRepo,
		TeamRepo: teamRepo,
		Store:    app.Store,
	}

	sender := buildEmail(app.Config)
	teamSvc := teams.NewService(teamRepo, sender, app.Config.UIRedirectURL)

	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.Email = sender
	app.Limiter = ratelimit.New(ratelimit.NewMemoryStore())

	app.UsersRepo = userRepo
	app.VideoRepo = videoRepo
	app.WorkflowRepo = workflowRepo
	app.TeamRepo = teamRepo

	app.UsersService = userSvc
	app.UsageService = usageSvc
	app.VideoService = videoSvc
	app.WorkflowService = workflowSvc
	app.TeamService = teamSvc
	app.AccountService = account.NewService(userRepo, videoRepo, workflowRepo)
	app.AnalysisService = analysisSvc

	app.UserHandler = users.NewHandler(userSvc)
	app.UsageHandler = usage.NewHandler(usageSvc)
	app.VideoHandler = videos.NewHandler(videoSvc)
	app.WorkflowHandler = workflows.NewHandler(workflowSvc)
	app.TeamHandler = teams.NewHandler(teamSvc)
	app.AccountHandler = account.NewHandler(app.AccountService, app.Limiter)
	app.GoogleAuth = googleAuthSvc

	if app.VideoHandler == nil || app.WorkflowHandler == nil || app.UsageHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
