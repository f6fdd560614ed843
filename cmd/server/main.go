// Command server starts the interview evaluation HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zaizaiboom/futureu913/internal/adapter/ai/openai"
	"github.com/zaizaiboom/futureu913/internal/adapter/ai/stub"
	"github.com/zaizaiboom/futureu913/internal/adapter/ai/tokencount"
	httpserver "github.com/zaizaiboom/futureu913/internal/adapter/httpserver"
	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/adapter/queue/redpanda"
	"github.com/zaizaiboom/futureu913/internal/adapter/repo/postgres"
	"github.com/zaizaiboom/futureu913/internal/adapter/repo/rediscache"
	"github.com/zaizaiboom/futureu913/internal/app"
	"github.com/zaizaiboom/futureu913/internal/config"
	"github.com/zaizaiboom/futureu913/internal/domain"
	"github.com/zaizaiboom/futureu913/internal/usecase"
)

// redisAdapter narrows *redis.Client to the readiness interface.
type redisAdapter struct{ c *redis.Client }

func (a redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return a.c.Ping(ctx) }

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Repositories; the Redis status cache is optional and the server runs
	// without it when Redis is unreachable.
	var tasks domain.TaskRepository = postgres.NewTaskRepo(pool)
	var summaries domain.SummaryRepository = postgres.NewSummaryRepo(pool)
	reports := postgres.NewReportRepo(pool)
	questions := postgres.NewQuestionRepo(pool)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			slog.Warn("redis connect failed, status cache disabled", slog.Any("error", err))
			rdb = nil
		} else {
			tasks = rediscache.NewTaskCache(tasks, rdb, cfg.StatusCacheTTL)
			summaries = rediscache.NewSummaryCache(summaries, rdb, cfg.StatusCacheTTL)
		}
	}

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
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

	// Evaluation pipeline
	prompts := usecase.NewPromptBuilder(tokencount.NewCounter(), cfg.AIModel, cfg.AIAnswerTokenCap)
	norm := usecase.NewNormalizer()
	evaluator := usecase.NewQuestionEvaluator(aiClient, prompts, norm, cfg.AIMaxTokens)
	scorer := usecase.NewLevelBucketSubScorer(time.Now().UnixNano())
	sets := usecase.NewSetEvaluator(evaluator, questions, prompts, norm, aiClient, cfg.AIEnabled(), scorer, cfg.AIMaxTokens)
	svc := usecase.NewService(sets, tasks, summaries, reports, producer)

	// Question bank seeding is best effort; hint lookups fall back to
	// placeholder guidance when the bank is empty.
	if cfg.QuestionsFile != "" {
		if n, err := seedQuestionsFromYAML(ctx, questions, cfg.QuestionsFile); err != nil {
			slog.Warn("question seeding skipped", slog.Any("error", err))
		} else {
			slog.Info("question bank seeded", slog.Int("count", n))
		}
	}

	srv := httpserver.NewServer(cfg, svc)
	var redisCheck app.RedisClient
	if rdb != nil {
		redisCheck = redisAdapter{c: rdb}
	}
	srv.DBCheck, srv.RedisCheck, srv.BrokerCheck = app.BuildReadinessChecks(pool, redisCheck, producer)

	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
