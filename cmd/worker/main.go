// Command worker consumes evaluation jobs from the queue and writes
// progressive results to Postgres.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/zaizaiboom/futureu913/internal/adapter/ai/openai"
	"github.com/zaizaiboom/futureu913/internal/adapter/ai/stub"
	"github.com/zaizaiboom/futureu913/internal/adapter/ai/tokencount"
	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/adapter/queue/redpanda"
	"github.com/zaizaiboom/futureu913/internal/adapter/repo/postgres"
	"github.com/zaizaiboom/futureu913/internal/adapter/repo/rediscache"
	"github.com/zaizaiboom/futureu913/internal/config"
	"github.com/zaizaiboom/futureu913/internal/domain"
	"github.com/zaizaiboom/futureu913/internal/usecase"
)

// connectWithBackoff retries infra connections during startup so the worker
// survives containers coming up in any order.
func connectWithBackoff[T any](cfg config.Config, name string, connect func() (T, error)) (T, error) {
	initial, maxIv, _, multiplier := cfg.GetQueueBackoffConfig()
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = initial
	expo.MaxInterval = maxIv
	expo.Multiplier = multiplier
	expo.MaxElapsedTime = cfg.StartupConnectMaxWait

	var out T
	op := func() error {
		v, err := connect()
		if err != nil {
			slog.Warn("startup connect failed, retrying",
				slog.String("target", name),
				slog.Any("error", err))
			return err
		}
		out = v
		return nil
	}
	if err := backoff.Retry(op, expo); err != nil {
		return out, err
	}
	return out, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))
	ctx := context.Background()

	pool, err := connectWithBackoff(cfg, "postgres", func() (*pgxpool.Pool, error) {
		return postgres.NewPool(ctx, cfg.DBURL)
	})
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var tasks domain.TaskRepository = postgres.NewTaskRepo(pool)
	var summaries domain.SummaryRepository = postgres.NewSummaryRepo(pool)
	reports := postgres.NewReportRepo(pool)
	questions := postgres.NewQuestionRepo(pool)

	if cfg.RedisAddr != "" {
		rdb, err := connectWithBackoff(cfg, "redis", func() (*redis.Client, error) {
			return rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		})
		if err != nil {
			slog.Warn("redis connect failed, status cache disabled", slog.Any("error", err))
		} else {
			// Caching writes through the worker keeps polled statuses fresh.
			tasks = rediscache.NewTaskCache(tasks, rdb, cfg.StatusCacheTTL)
			summaries = rediscache.NewSummaryCache(summaries, rdb, cfg.StatusCacheTTL)
		}
	}

	// Distinct transactional id from the HTTP server's producer to avoid
	// transactional conflicts across processes.
	producer, err := connectWithBackoff(cfg, "redpanda-producer", func() (*redpanda.Producer, error) {
		return redpanda.NewProducerWithOptions(cfg.KafkaBrokers, "interview-evaluator-worker-producer", redpanda.TopicEvaluations)
	})
	if err != nil {
		slog.Error("queue producer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	var aiClient domain.AIClient
	if cfg.AIEnabled() {
		aiClient = openai.New(cfg)
		slog.Info("AI client initialized", slog.String("model", cfg.AIModel))
	} else {
		aiClient = stub.New()
		slog.Warn("no AI_API_KEY set, using stub AI client")
	}

	prompts := usecase.NewPromptBuilder(tokencount.NewCounter(), cfg.AIModel, cfg.AIAnswerTokenCap)
	norm := usecase.NewNormalizer()
	evaluator := usecase.NewQuestionEvaluator(aiClient, prompts, norm, cfg.AIMaxTokens)
	scorer := usecase.NewLevelBucketSubScorer(time.Now().UnixNano())
	sets := usecase.NewSetEvaluator(evaluator, questions, prompts, norm, aiClient, cfg.AIEnabled(), scorer, cfg.AIMaxTokens)
	svc := usecase.NewService(sets, tasks, summaries, reports, producer)

	consumer, err := connectWithBackoff(cfg, "redpanda-consumer", func() (*redpanda.Consumer, error) {
		return redpanda.NewConsumer(cfg, svc)
	})
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()
	}()

	if err := consumer.Start(runCtx); err != nil && runCtx.Err() == nil {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
