package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"macro-compass/internal/advisor"
	"macro-compass/internal/cache"
	"macro-compass/internal/config"
	"macro-compass/internal/db"
	"macro-compass/internal/domain"
	"macro-compass/internal/engine"
	"macro-compass/internal/engine/zscore"
	"macro-compass/internal/handler"
	"macro-compass/internal/job"
	"macro-compass/internal/repository"
	"macro-compass/internal/service"
	"macro-compass/pkg/logging"
	"macro-compass/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "macro-compass/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newSystemRepoFunc      = repository.NewSystemRepository
	newSignalRepoFunc      = repository.NewSignalRepository
	newSignalServiceFunc   = service.NewSignalService
	newRefresherFunc       = job.NewSignalRefresher
	startRefresherFunc     = func(r *job.SignalRefresher, ctx context.Context) { go r.Start(ctx) }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Macro Compass API
// @version         1.0
// @description     Portfolio allocation signals composed from valuation and trend systems.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	// Create repositories and run migrations. Without Postgres the stores
	// stay nil and the service validates and computes without persisting.
	var systemStore service.SystemStore
	var signalStore service.SignalStore
	if db.Pool != nil {
		systemRepo := newSystemRepoFunc(db.Pool, tracer)
		signalRepo := newSignalRepoFunc(db.Pool, tracer)
		if err := systemRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run system migrations: %v", err)
		}
		if err := signalRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run signal migrations: %v", err)
		}
		systemStore = systemRepo
		signalStore = signalRepo
	}

	// Composition pipeline
	pipeline := engine.NewEngine(&engine.Config{
		ZScore: &zscore.Config{
			Method:        zscore.Method(cfg.ZScoreMethod),
			RollingWindow: cfg.ZScoreWindow,
		},
	}, logger)

	var redisClient service.RedisClient
	if cache.Client != nil {
		redisClient = cache.Client
	}

	signalService := newSignalServiceFunc(
		tracer,
		pipeline,
		systemStore,
		signalStore,
		redisClient,
		allowedAssets(cfg.AllowedAssets),
		time.Duration(cfg.SignalCacheSecs)*time.Second,
		logger,
	)

	var llm advisor.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llm = advisor.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	advisorService := advisor.NewAdvisorService(tracer, llm, cfg.OpenAIModel)

	// Background refresh keeps the latest-signal cache warm
	refresher := newRefresherFunc(tracer, signalService, cfg.SignalRefreshSecs, logger)
	startRefresherFunc(refresher, ctx)

	h := newHandlerFunc(tracer, signalService, advisorService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("macro-compass"))

	h.RegisterRoutes(r, handler.APIKeyAuth(cfg.APIKey))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info().Msg("server exiting")
}

func allowedAssets(csv string) domain.AssetSet {
	if strings.TrimSpace(csv) == "" {
		return domain.NewAssetSet(domain.SupportedAssets...)
	}
	var assets []domain.Asset
	for _, raw := range strings.Split(csv, ",") {
		a := domain.Asset(strings.ToLower(strings.TrimSpace(raw)))
		if domain.IsSupportedAsset(a) {
			assets = append(assets, a)
		}
	}
	if len(assets) == 0 {
		return domain.NewAssetSet(domain.SupportedAssets...)
	}
	return domain.NewAssetSet(assets...)
}
