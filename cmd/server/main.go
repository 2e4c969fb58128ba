package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"workorder-tracker/internal/config"
	"workorder-tracker/internal/events"
	apphttp "workorder-tracker/internal/http"
	"workorder-tracker/internal/metrics"
	"workorder-tracker/internal/repository/sqlite"
	"workorder-tracker/internal/service"
	"workorder-tracker/internal/storage"
	"workorder-tracker/internal/token"
	"workorder-tracker/internal/twofactor"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)

	tokens, err := token.NewService(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatalf("token service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	workorderRepo := sqlite.NewWorkorderRepository(db)
	commentRepo := sqlite.NewCommentRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := workorderRepo.Init(ctx); err != nil {
		logger.Fatalf("init workorder repository: %v", err)
	}
	if err := commentRepo.Init(ctx); err != nil {
		logger.Fatalf("init comment repository: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	bus := events.NewBus(events.Config{
		MaxBacklog: cfg.Events.MaxBacklog,
		Logger:     logger.WithField("component", "events"),
		Recorder:   collector,
	})
	defer bus.Close()

	authy := twofactor.NewAuthyClient(twofactor.AuthyConfig{
		BaseURL: cfg.Authy.BaseURL,
		APIKey:  cfg.Authy.APIKey,
		Timeout: cfg.Authy.Timeout,
	})
	twoFactor := twofactor.NewService(authy, userRepo, twofactor.Config{
		Region:   cfg.Authy.Region,
		Timeout:  cfg.Authy.Timeout,
		Logger:   logger.WithField("component", "twofactor"),
		Recorder: collector,
	})

	uploader, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	authService := service.NewAuthService(userRepo, twoFactor, tokens, service.AuthOptions{
		RequireCode: cfg.Auth.RequireCode,
		Logger:      logger,
	})
	userService := service.NewUserService(userRepo)
	workorderService := service.NewWorkorderService(workorderRepo, bus, logger)
	commentService := service.NewCommentService(commentRepo, workorderRepo, uploader, logger)

	limiter := apphttp.NewRateLimiter(apphttp.RateLimitConfig{
		Rate:  rate.Limit(cfg.RateLimit.RPS),
		Burst: cfg.RateLimit.Burst,
	}, logger)
	defer limiter.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Deps{
		Auth:           authService,
		Users:          userService,
		Workorders:     workorderService,
		Comments:       commentService,
		Tokens:         tokens,
		Events:         bus,
		Limiter:        limiter,
		Recorder:       collector,
		MetricsHandler: metrics.Handler(registry),
		Logger:         logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}
	// event streams never go idle on their own; closing the bus ends them
	srv.RegisterOnShutdown(bus.Close)

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	bus.Close()

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, logger.GetLevel())
	}
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

// buildStorage returns nil when no bucket is configured; comments then reject photos.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Uploader, error) {
	if cfg.Storage.Bucket == "" {
		logger.Warn("storage bucket not configured, photo uploads disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.S3Config{
		Bucket:        cfg.Storage.Bucket,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}), nil
}
