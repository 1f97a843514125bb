package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsMerger/internal/config"
	"NewsMerger/internal/dedup"
	"NewsMerger/internal/domain"
	"NewsMerger/internal/infrastructure/artifactfs"
	"NewsMerger/internal/infrastructure/fetch"
	"NewsMerger/internal/infrastructure/llm"
	"NewsMerger/internal/infrastructure/ml"
	"NewsMerger/internal/infrastructure/parser"
	"NewsMerger/internal/infrastructure/scheduler"
	"NewsMerger/internal/infrastructure/storage"
	"NewsMerger/internal/infrastructure/telegram"
	"NewsMerger/internal/logging"
	"NewsMerger/internal/metrics"
	"NewsMerger/internal/normalize"
	"NewsMerger/internal/ports"
	"NewsMerger/internal/reconcile"
	"NewsMerger/internal/scanner"
	"NewsMerger/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	cron     *scheduler.CronScheduler
	registry *prometheus.Registry
	db       *sql.DB
}

// New validates cfg and builds every adapter the pipeline needs.
// Nothing is contacted over the network here; the database is only opened lazily by database/sql.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := artifactfs.New(cfg.Artifacts.Dir)
	if err != nil {
		return nil, err
	}

	scanners := scanner.NewRegistry()
	scanners.Register(parser.NewHTMLScanner(nil))
	scanners.Register(parser.NewRSSScanner(nil))
	source := parser.NewStrategySource(scanners, cfg.Sources, baseLogger.With("component", "source"))

	priority := make([]domain.SourceName, 0, len(cfg.Pipeline.SourcePriority))
	for _, name := range cfg.Pipeline.SourcePriority {
		priority = append(priority, domain.SourceName(name))
	}
	deduplicator, err := dedup.New(dedup.Options{
		Threshold:      cfg.Pipeline.SimilarityThreshold,
		SourcePriority: priority,
		Workers:        cfg.Pipeline.Workers,
	}, baseLogger.With("component", "dedup"))
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var embedder ports.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = ml.NewClient(cfg.Embedding, cfg.Pipeline.EmbeddingDimension)
	} else {
		baseLogger.Warn("embedding API key not set, enriched articles will be partial")
	}

	var (
		db         *sql.DB
		repository ports.ArticleRepository
		reconciler *reconcile.Reconciler
	)
	if cfg.Database.DSN != "" {
		if db, err = storage.Open(cfg.Database.DSN); err != nil {
			return nil, err
		}
		repo := storage.NewPostgresRepository(db, cfg.Database.Table)
		repository = repo
		reconciler = reconcile.New(repo, reconcile.Options{
			EmbeddingDimension: cfg.Pipeline.EmbeddingDimension,
			Workers:            cfg.Pipeline.Workers,
		}, baseLogger.With("component", "reconcile"))
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:       source,
		Artifacts:    store,
		Normalizer:   normalize.New(normalizeRules(cfg.Sources), baseLogger.With("component", "normalize")),
		Deduplicator: deduplicator,
		Downloader:   fetch.NewPageDownloader(nil, 0),
		Analyzer:     llm.NewChatGPTClient(cfg.LLM),
		Embedder:     embedder,
		Repository:   repository,
		Reconciler:   reconciler,
		Notifier:     notifier,
		Metrics:      metrics.New(registry),
		Logger:       baseLogger.With("component", "pipeline"),
		BatchCount:   cfg.Pipeline.BatchCount,
		EnrichDelay:  cfg.Pipeline.EnrichDelay,
		Workers:      cfg.Pipeline.Workers,
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		cron:     scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
		registry: registry,
		db:       db,
	}, nil
}

// Pipeline exposes the stage services to the command layer.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// MetricsHandler serves the application's Prometheus registry.
func (a *Application) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// Run performs a single full pipeline execution.
func (a *Application) Run(ctx context.Context) error {
	_, err := a.pipeline.RunAll(ctx)
	return err
}

// Schedule runs the pipeline on the configured cron expression and serves /metrics until ctx ends.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.cron.Validate(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())
	server := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serveErr := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		go func() {
			a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	jobs := usecase.NewScheduler(a.cron, a.pipeline)
	if err := jobs.Start(ctx); err != nil {
		return err
	}
	if next, err := a.cron.Next(time.Now()); err == nil {
		a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "next_run", next)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		a.logger.Error("metrics server failed", "error", runErr)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := jobs.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := server.Shutdown(stopCtx); err != nil {
		a.logger.Warn("metrics server shutdown", "error", err)
	}
	return runErr
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func normalizeRules(sources []config.SourceConfig) map[domain.SourceName]normalize.SourceRules {
	rules := make(map[domain.SourceName]normalize.SourceRules, len(sources))
	for _, src := range sources {
		rules[domain.SourceName(src.Name)] = normalize.SourceRules{
			BaseURL: src.URL,
			Fields:  src.Fields,
		}
	}
	return rules
}
