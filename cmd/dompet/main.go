package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dompet/internal/amqp"
	"dompet/internal/analytics"
	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/conversation"
	apphttp "dompet/internal/http"
	"dompet/internal/ingestion"
	"dompet/internal/insights"
	applog "dompet/internal/log"
	"dompet/internal/memory"
	"dompet/internal/observability"
	"dompet/internal/planner"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *applog.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	metrics := observability.NewMetrics(observability.Namespace)
	if res.Cache != nil {
		watchCache(metrics, res)
	}

	tracker, closeTracker, err := newTracker(cfg, res, metrics, logger)
	if err != nil {
		return err
	}
	defer closeTracker()

	ins := insights.NewService(res.Ledger)
	conv := conversation.NewService(
		memory.NewStoreWithLimit(cfg.HistoryLimit),
		planner.New(),
		ins,
		conversation.WithTracker(tracker),
		conversation.WithMetrics(metrics),
		conversation.WithLogger(logger),
	)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Conversation:       conv,
		Insights:           ins,
		Ingestion:          ingestion.NewService(res.Ledger, tracker, logger),
		Metrics:            metrics,
		Ready:              res.Ready,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
	})
	srv.ReadTimeout = cfg.RequestTimeout + 5*time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting dompet server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.LedgerBackend,
			"environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newTracker publishes to the broker when one is configured, through a
// buffered queue so requests never wait on it. Without a broker the sqlite
// backend stores events in-process and the others only log them.
func newTracker(cfg *config.Config, res *backend.BackendResult, metrics *observability.Metrics, logger *applog.Logger) (analytics.Tracker, func(), error) {
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		async := analytics.NewAsync(analytics.NewPublisher(client),
			analytics.DefaultBufferSize, analytics.DefaultTrackTimeout, logger)
		metrics.GaugeFunc("analytics_pending_events", "Analytics events waiting to be published.",
			func() float64 { return float64(async.Pending()) })
		metrics.CounterFunc("analytics_dropped_events_total", "Analytics events dropped because the queue was full.",
			func() float64 { return float64(async.Dropped()) })
		metrics.CounterFunc("analytics_publish_failures_total", "Analytics events the broker rejected.",
			func() float64 { return float64(async.Failed()) })

		logger.Info("Publishing analytics events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return async, func() {
			ctx, cancel := context.WithTimeout(context.Background(), analytics.DefaultTrackTimeout)
			defer cancel()
			if err := async.Close(ctx); err != nil {
				logger.Warn("Analytics queue not drained", applog.FieldError, err, "pending", async.Pending())
			}
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", applog.FieldError, err)
			}
		}, nil
	}
	if res.Events != nil {
		logger.Info("Storing analytics events in sqlite")
		return res.Events, func() {}, nil
	}
	logger.Info("Analytics events are logged only - no AMQP_URL provided")
	return analytics.NewLogTracker(logger), func() {}, nil
}

func watchCache(metrics *observability.Metrics, res *backend.BackendResult) {
	metrics.CounterFunc("ledger_cache_hits_total", "Ledger reads served from the cache.", func() float64 {
		hits, _ := res.Cache.Stats()
		return float64(hits)
	})
	metrics.CounterFunc("ledger_cache_misses_total", "Ledger reads that reached the backend.", func() float64 {
		_, misses := res.Cache.Stats()
		return float64(misses)
	})
	metrics.GaugeFunc("ledger_cache_entries", "Live cached ledger ranges.", func() float64 {
		return float64(res.Cache.Entries())
	})
}
