package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"golang.org/x/sync/errgroup"

	"verza/internal/activity"
	activityhandler "verza/internal/activity/handler"
	"verza/internal/assignment"
	assignmenthandler "verza/internal/assignment/handler"
	assignmentmetrics "verza/internal/assignment/metrics"
	"verza/internal/clock"
	"verza/internal/dispute"
	disputehandler "verza/internal/dispute/handler"
	"verza/internal/document"
	"verza/internal/escrow"
	httpapi "verza/internal/http"
	"verza/internal/job"
	jobhandler "verza/internal/job/handler"
	"verza/internal/jwttoken"
	"verza/internal/lifecycle"
	lifecyclemetrics "verza/internal/lifecycle/metrics"
	"verza/internal/platform/config"
	"verza/internal/platform/httpserver"
	"verza/internal/platform/logger"
	"verza/internal/platform/postgres"
	"verza/internal/platform/redis"
)

const activityInboxSize = 1024

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	healthChecks := map[string]httpapi.HealthChecker{}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		jobs     job.Store
		entries  activity.Store
		disputes dispute.Store
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		jobs = job.NewPostgres(pool)
		entries = activity.NewPostgres(pool)
		disputes = dispute.NewPostgres(pool)
		healthChecks["postgres"] = poolHealth{pool}
		log.Info("using postgres stores")
	} else {
		jobs = job.NewInMemoryStore()
		entries = activity.NewInMemoryStore()
		disputes = dispute.NewInMemory()
		log.Warn("POSTGRES_DSN empty, using in-memory stores")
	}

	// Queue index: Redis when configured.
	var queue assignment.QueueIndex
	if cfg.RedisURL != "" {
		client, err := redis.New(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		queue = assignment.NewRedisQueue(client)
		healthChecks["redis"] = client
		log.Info("using redis queue index")
	} else {
		queue = assignment.NewInMemoryQueue()
		log.Warn("REDIS_URL empty, using in-memory queue index")
	}

	// Activity fan-out: Kafka when configured, otherwise entries stay local.
	inbox := make(chan activity.Entry, activityInboxSize)
	var publisher activity.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := activity.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = kafka
		log.Info("publishing activity to kafka", "topic", cfg.KafkaTopic)
	}
	recorder := activity.NewRecorder(entries, inbox, log)

	clk := clock.Real{}
	tokens := jwttoken.NewService(cfg.JWTSigningKey, "verza")
	lcMetrics := lifecyclemetrics.New()
	asMetrics := assignmentmetrics.New()

	lc := lifecycle.NewService(jobs, escrow.NewMemoryLedger(), document.NewInMemoryStore(), recorder, queue, clk, lifecycle.Config{
		ClaimTTL:      cfg.ClaimTTL,
		SLAWindow:     cfg.SLAWindow,
		DisputeWindow: cfg.DisputeWindow,
		CASMaxRetries: cfg.CASMaxRetries,
	}, log, lcMetrics)
	manager := assignment.NewManager(queue, jobs, lc, log, asMetrics)
	sweeper := assignment.NewSweeper(jobs, lc, clk, cfg.SweepInterval, log, asMetrics)
	disputeSvc := dispute.NewService(disputes, lc, clk, log)

	if err := manager.Rebuild(ctx); err != nil {
		return err
	}

	router := httpapi.New(httpapi.Deps{
		Logger:      log,
		TokenParser: tokens,
		Handlers: []httpapi.Registrar{
			jobhandler.New(lc, log),
			assignmenthandler.New(manager, log),
			disputehandler.New(disputeSvc, log),
			activityhandler.New(entries, lc, log),
		},
		HealthChecks: healthChecks,
	})
	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sweeper.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if publisher != nil {
		g.Go(func() error {
			err := activity.NewWorker(publisher, inbox, log).Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type poolHealth struct {
	pool *pgxpool.Pool
}

func (p poolHealth) Health(ctx context.Context) error { return p.pool.Ping(ctx) }
