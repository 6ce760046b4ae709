// Package main runs the CFP ethics workshops HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bhfe/cfp-workshops/config"
	"github.com/bhfe/cfp-workshops/internal/auth"
	"github.com/bhfe/cfp-workshops/internal/dashboard"
	"github.com/bhfe/cfp-workshops/internal/importer"
	"github.com/bhfe/cfp-workshops/internal/materials"
	"github.com/bhfe/cfp-workshops/internal/middleware"
	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/internal/signins"
	"github.com/bhfe/cfp-workshops/internal/templates"
	"github.com/bhfe/cfp-workshops/internal/worker"
	"github.com/bhfe/cfp-workshops/internal/workshops"
	"github.com/bhfe/cfp-workshops/pkg/database"
	"github.com/bhfe/cfp-workshops/pkg/queue"
	"github.com/bhfe/cfp-workshops/pkg/redis"
	"github.com/bhfe/cfp-workshops/pkg/response"
	"github.com/bhfe/cfp-workshops/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.TemplatesBucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			TemplatesBucket:      cfg.AWS.TemplatesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	if err := auth.EnsureAdmin(ctx, authRepo, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}

	// Workshops and the sign-in date lookup cache they invalidate
	workshopRepo := workshops.NewRepository(pool)
	lookup := signins.NewLookup(workshopRepo, rdb.Client, logger)
	workshopHandler := workshops.NewHandler(workshopRepo, lookup, logger)

	// Sign-ins
	signinRepo := signins.NewRepository(pool)
	signinService := signins.NewService(signinRepo, workshopRepo, lookup, logger)
	signinHandler := signins.NewHandler(signinRepo, workshopRepo, signinService, lookup, logger)

	// CSV import
	importHandler := importer.NewHandler(importer.New(workshopRepo, lookup, logger), logger)

	// Templates (uploads mirrored to S3 by the worker)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	templateRepo := templates.NewRepository(pool)
	var objects templates.ObjectStore
	if s3Client != nil {
		objects = s3Client
	}
	templateHandler := templates.NewHandler(templateRepo, cfg.Materials.TemplatesDir, cfg.Materials.MaxTemplateUploadBytes(), jobQueue, objects, logger)

	// Materials generation
	processor := materials.NewTemplateProcessor(cfg.Materials.ScratchDir, logger)
	generator := materials.NewGenerator(workshopRepo, templateRepo, processor, cfg.Materials.GeneratedDir, logger)
	materialsHandler := materials.NewHandler(generator, logger)

	dashboardHandler := dashboard.NewHandler(workshopRepo, signinRepo, templateRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins()))
	router.Use(middleware.Logger(logger))

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public: attendee sign-in form
	router.GET("/signin/workshops", signinHandler.WorkshopsByDate)
	router.POST("/signin", signinHandler.Submit)

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	admin := models.RoleAdmin
	staff := models.RoleStaff

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole(admin), authHandler.List)
		api.POST("/users", middleware.RequireRole(admin), authHandler.CreateUser)

		api.GET("/dashboard", dashboardHandler.Summary)

		// Workshops
		api.GET("/workshops", workshopHandler.List)
		api.GET("/workshops/chapters", workshopHandler.Chapters)
		api.POST("/workshops", middleware.RequireRole(admin, staff), workshopHandler.Create)
		api.POST("/workshops/import", middleware.RequireRole(admin), importHandler.Import)
		api.GET("/workshops/:id", workshopHandler.GetByID)
		api.PUT("/workshops/:id", middleware.RequireRole(admin, staff), workshopHandler.Update)
		api.DELETE("/workshops/:id", middleware.RequireRole(admin), workshopHandler.Delete)
		api.GET("/workshops/:id/evaluations", signinHandler.Summary)
		api.GET("/workshops/:id/materials", middleware.RequireRole(admin, staff), materialsHandler.Download)

		// Sign-ins
		api.GET("/signins", signinHandler.List)
		api.GET("/signins/export", signinHandler.Export)
		api.POST("/signins", middleware.RequireRole(admin, staff), signinHandler.Create)
		api.DELETE("/signins/:id", middleware.RequireRole(admin), signinHandler.Delete)

		// Templates
		api.GET("/templates", templateHandler.List)
		api.POST("/templates", middleware.RequireRole(admin), templateHandler.Upload)
		api.POST("/templates/:id/toggle", middleware.RequireRole(admin), templateHandler.Toggle)
		api.DELETE("/templates/:id", middleware.RequireRole(admin), templateHandler.Delete)
		api.GET("/templates/:id/download", templateHandler.Download)
		api.GET("/templates/:id/placeholders", templateHandler.Placeholders)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (template mirror to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		mirror := worker.NewTemplateMirrorProcessor(templateRepo, s3Client, jobQueue, logger)
		go mirror.Run(workerCtx)
		logger.Info("template mirror worker started", zap.String("bucket", s3Client.Bucket()))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
