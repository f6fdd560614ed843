// Package rediscache decorates the task and summary repositories with a
// Redis read-through cache for status polling. Only settled rows are cached;
// pending state always hits Postgres so progress is never stale.
package rediscache

import (
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

func tasksKey(sessionID string) string   { return "status:tasks:" + sessionID }
func summaryKey(sessionID string) string { return "status:summary:" + sessionID }

// TaskCache wraps a TaskRepository.
type TaskCache struct {
	inner domain.TaskRepository
	rdb   *redis.Client
	ttl   time.Duration
}

func NewTaskCache(inner domain.TaskRepository, rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{inner: inner, rdb: rdb, ttl: ttl}
}

// CreatePending passes through and invalidates the session's cached list.
func (c *TaskCache) CreatePending(ctx domain.Context, sessionID string, questionIndex int) (*domain.EvaluationTask, bool, error) {
	existing, created, err := c.inner.CreatePending(ctx, sessionID, questionIndex)
	if err == nil && created {
		c.invalidate(ctx, tasksKey(sessionID))
	}
	return existing, created, err
}

// Upsert passes through and invalidates the session's cached list.
func (c *TaskCache) Upsert(ctx domain.Context, t domain.EvaluationTask) error {
	if err := c.inner.Upsert(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, tasksKey(t.SessionID))
	return nil
}

// ListBySession serves from Redis when a settled snapshot is cached,
// otherwise reads Postgres and caches the list if every row is terminal.
// Cache failures degrade to the underlying repository.
func (c *TaskCache) ListBySession(ctx domain.Context, sessionID string) ([]domain.EvaluationTask, error) {
	if b, err := c.rdb.Get(ctx, tasksKey(sessionID)).Bytes(); err == nil {
		var tasks []domain.EvaluationTask
		if err := json.Unmarshal(b, &tasks); err == nil {
			return tasks, nil
		}
	}

	tasks, err := c.inner.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(tasks) > 0 && allSettled(tasks) {
		if b, err := json.Marshal(tasks); err == nil {
			if err := c.rdb.Set(ctx, tasksKey(sessionID), b, c.ttl).Err(); err != nil {
				slog.Debug("task cache write failed", slog.Any("error", err))
			}
		}
	}
	return tasks, nil
}

// Get is not cached; single-row reads are cheap and rare.
func (c *TaskCache) Get(ctx domain.Context, sessionID string, questionIndex int) (domain.EvaluationTask, error) {
	return c.inner.Get(ctx, sessionID, questionIndex)
}

func (c *TaskCache) invalidate(ctx domain.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		slog.Debug("cache invalidation failed", slog.String("key", key), slog.Any("error", err))
	}
}

func allSettled(tasks []domain.EvaluationTask) bool {
	for _, t := range tasks {
		if t.Status == domain.TaskPending {
			return false
		}
	}
	return true
}

// SummaryCache wraps a SummaryRepository.
type SummaryCache struct {
	inner domain.SummaryRepository
	rdb   *redis.Client
	ttl   time.Duration
}

func NewSummaryCache(inner domain.SummaryRepository, rdb *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{inner: inner, rdb: rdb, ttl: ttl}
}

// Upsert passes through and invalidates the cached record.
func (c *SummaryCache) Upsert(ctx domain.Context, s domain.SummaryRecord) error {
	if err := c.inner.Upsert(ctx, s); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, summaryKey(s.SessionID)).Err(); err != nil {
		slog.Debug("cache invalidation failed", slog.String("session_id", s.SessionID), slog.Any("error", err))
	}
	return nil
}

// Get serves settled summaries from Redis, reading through on miss.
func (c *SummaryCache) Get(ctx domain.Context, sessionID string) (domain.SummaryRecord, error) {
	if b, err := c.rdb.Get(ctx, summaryKey(sessionID)).Bytes(); err == nil {
		var rec domain.SummaryRecord
		if err := json.Unmarshal(b, &rec); err == nil {
			return rec, nil
		}
	}

	rec, err := c.inner.Get(ctx, sessionID)
	if err != nil {
		return domain.SummaryRecord{}, err
	}
	if rec.Status != domain.TaskPending {
		if b, err := json.Marshal(rec); err == nil {
			if err := c.rdb.Set(ctx, summaryKey(sessionID), b, c.ttl).Err(); err != nil {
				slog.Debug("summary cache write failed", slog.Any("error", err))
			}
		}
	}
	return rec, nil
}

// NewClient builds a go-redis client and verifies connectivity.
func NewClient(ctx domain.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("op=rediscache.connect: %w", err)
	}
	return rdb, nil
}
