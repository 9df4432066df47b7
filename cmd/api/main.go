package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/practice-api/internal/config"
	"github.com/jwalitptl/practice-api/internal/handler"
	activityHandler "github.com/jwalitptl/practice-api/internal/handler/activity"
	appointmentHandler "github.com/jwalitptl/practice-api/internal/handler/appointment"
	groupHandler "github.com/jwalitptl/practice-api/internal/handler/group"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/practice-api/internal/handler/patient"
	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	recommendationHandler "github.com/jwalitptl/practice-api/internal/handler/recommendation"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/repository/memory"
	"github.com/jwalitptl/practice-api/internal/repository/mongodb"
	"github.com/jwalitptl/practice-api/internal/repository/postgres"
	"github.com/jwalitptl/practice-api/internal/router"
	activityService "github.com/jwalitptl/practice-api/internal/service/activity"
	appointmentService "github.com/jwalitptl/practice-api/internal/service/appointment"
	"github.com/jwalitptl/practice-api/internal/service/attendance"
	"github.com/jwalitptl/practice-api/internal/service/cascade"
	eventService "github.com/jwalitptl/practice-api/internal/service/event"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	groupService "github.com/jwalitptl/practice-api/internal/service/group"
	"github.com/jwalitptl/practice-api/internal/service/membership"
	patientService "github.com/jwalitptl/practice-api/internal/service/patient"
	recommendationService "github.com/jwalitptl/practice-api/internal/service/recommendation"
	"github.com/jwalitptl/practice-api/internal/service/visit"
	"github.com/jwalitptl/practice-api/pkg/assets"
	"github.com/jwalitptl/practice-api/pkg/generator"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

const metricsNamespace = "practice_api"

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger(cfg.Log.ToLoggerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := promclient.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(metricsNamespace)
	m.Register(registry)

	deps := map[string]health.Pinger{}

	// Document store.
	var store repository.Store
	var outbox repository.OutboxRepository
	switch cfg.Store {
	case "memory":
		mem := memory.NewStore()
		store = mem.Repositories()
		outbox = mem.Outbox()
		log.Warn("using in-memory store; data is lost on restart")
	default:
		mdb, err := mongodb.NewDB(ctx, cfg.ToMongoConfig())
		if err != nil {
			log.Fatal(err, "failed to connect to mongo")
		}
		defer func() { _ = mdb.Close(context.Background()) }()
		if err := mdb.EnsureIndexes(ctx); err != nil {
			log.Fatal(err, "failed to create mongo indexes")
		}
		store = mdb.Repositories()
		deps["mongo"] = mdb

		db, err := postgres.NewDB(cfg.Postgres.ToPostgresConfig())
		if err != nil {
			log.Fatal(err, "failed to connect to outbox database")
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatal(err, "failed to create outbox schema")
		}
		outbox = postgres.NewOutboxRepository(postgres.NewBaseRepository(db))
		deps["postgres"] = pingSQL(db)
	}

	// Collaborators.
	releaser, err := assets.New(ctx, cfg.Assets.ToAssetsConfig())
	if err != nil {
		log.Fatal(err, "failed to configure asset store")
	}
	releaser = assets.WithMetrics(releaser, m)

	genCfg := cfg.Generator.ToGeneratorConfig()
	var gen generator.Generator = generator.NewGeminiClient(genCfg, m)
	if genCfg.CacheTTL > 0 {
		gen = generator.NewCached(gen, genCfg.CacheTTL)
	}

	// Services.
	recorder := flow.Recorder{
		Logger:  log,
		Metrics: m,
		Events:  eventService.NewService(outbox, log),
	}
	concurrency := cfg.Cascade.Concurrency
	visitSvc := visit.NewService(store, concurrency)
	membershipSvc := membership.NewService(store, recorder, concurrency)
	cascadeSvc := cascade.NewService(store, visitSvc, membershipSvc, releaser, recorder)
	attendanceSvc := attendance.NewService(store, recorder)

	patientSvc := patientService.NewService(store, membershipSvc, visitSvc, cascadeSvc)
	groupSvc := groupService.NewService(store, membershipSvc, cascadeSvc)
	appointmentSvc := appointmentService.NewService(store, visitSvc, cascadeSvc, attendanceSvc, recorder)
	activitySvc := activityService.NewService(store, visitSvc, cascadeSvc, gen, recorder)
	recommendationSvc := recommendationService.NewService(store, log)

	// HTTP.
	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal(err, "failed to register validators")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.Secret, cfg.Auth.Issuer)

	r := router.NewRouter(
		authMiddleware,
		handler.NewHandler(),
		health.NewHandler(deps),
		prometheus.New(registry, metricsNamespace),
		log,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RequestTimeout:   cfg.Server.RequestTimeout,
			MetricsPath:      cfg.Server.MetricsPath,
			CORSConfig:       cfg.CORS.ToCORSConfig(),
		},
		patientHandler.NewHandler(patientSvc),
		groupHandler.NewHandler(groupSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		activityHandler.NewHandler(activitySvc),
		recommendationHandler.NewHandler(recommendationSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	log.Info("server exited")
}

func pingSQL(db *sqlx.DB) health.PingFunc {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
