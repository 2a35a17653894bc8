package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/bryanwahyu/audit-gateway/internal/application"
	appadvisory "github.com/bryanwahyu/audit-gateway/internal/application/advisory"
	appaudit "github.com/bryanwahyu/audit-gateway/internal/application/audit"
	"github.com/bryanwahyu/audit-gateway/internal/config"
	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
	aiclient "github.com/bryanwahyu/audit-gateway/internal/infra/ai/openai"
	"github.com/bryanwahyu/audit-gateway/internal/infra/backend"
	"github.com/bryanwahyu/audit-gateway/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/audit-gateway/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/audit-gateway/internal/infra/db/postgres"
	"github.com/bryanwahyu/audit-gateway/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/audit-gateway/internal/infra/storage"
	"github.com/bryanwahyu/audit-gateway/internal/middleware"
	"github.com/bryanwahyu/audit-gateway/internal/notify"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// backend client
	client := backend.New(cfg.Backend.BaseURL, cfg.BackendTimeout())

	// task cache store
	checkers := map[string]middleware.HealthChecker{
		"backend": &middleware.BackendHealthChecker{BaseURL: cfg.Backend.BaseURL},
	}
	var taskCache domain.TaskCache
	switch cfg.Cache.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		taskCache = mysqlp.NewTaskCacheRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		taskCache = postgresp.NewTaskCacheRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "memory":
		taskCache = cache.NewMemoryStore()
	default:
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rc.Close()
		taskCache = cache.NewRedisStore(rc, cfg.CacheTTL())
		checkers["redis"] = &middleware.RedisHealthChecker{Client: rc}
	}

	// decision record archive (optional)
	var archive domain.Archive
	if cfg.Archive.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		archive = store
	}

	auditSvc := &appaudit.Service{
		Backend: client,
		Cache:   taskCache,
		Archive: archive,
		Clock:   application.SystemClock{},
	}

	// AI advisory (optional)
	var advisorySvc *appadvisory.Service
	if cfg.AI.APIKey != "" {
		advisorySvc = appadvisory.NewService(aiclient.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model))
	}

	// new-task poller
	levels := make([]domain.Stage, 0, len(cfg.Poll.Levels))
	for _, l := range cfg.Poll.Levels {
		levels = append(levels, domain.Stage(l))
	}
	if len(levels) == 0 {
		levels = []domain.Stage{domain.StageJunior, domain.StageIntermediate, domain.StageSenior, domain.StageCommittee}
	}
	poller := &notify.Poller{
		Backend:  client,
		Cache:    taskCache,
		Levels:   levels,
		Interval: cfg.PollInterval(),
		TTL:      cfg.NotificationTTL(),
		Clock:    application.SystemClock{},
	}
	go poller.Run(ctx)

	// router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(100, 50))

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(auditSvc, advisorySvc, client, poller))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("gateway listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down gateway...")
	cancel() // stops the poller

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
