package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/zaizaiboom/futureu913/internal/config"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// JobHandler dispatches decoded queue payloads.
type JobHandler interface {
	ProcessSet(ctx domain.Context, payload domain.EvaluateSetPayload) error
	ProcessSingle(ctx domain.Context, payload domain.EvaluateSinglePayload) error
}

// Consumer is a read-committed consumer-group worker over the evaluations
// topic. A semaphore bounds concurrent jobs; poll failures back off
// exponentially and reset on the first healthy poll.
type Consumer struct {
	client  *kgo.Client
	handler JobHandler
	cfg     config.Config
	topic   string
	groupID string
	sem     chan struct{}
}

// NewConsumer constructs a consumer for the default topic and group.
func NewConsumer(cfg config.Config, handler JobHandler) (*Consumer, error) {
	return NewConsumerWithTopic(cfg, handler, TopicEvaluations, "interview-evaluator-workers")
}

// NewConsumerWithTopic allows tests to isolate topics and groups.
func NewConsumerWithTopic(cfg config.Config, handler JobHandler, topic, groupID string) (*Consumer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}

	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))),
	)

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.DialTimeout(10*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda consumer client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, topic, 8, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	concurrency := cfg.ConsumerMaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Consumer{
		client:  client,
		handler: handler,
		cfg:     cfg,
		topic:   topic,
		groupID: groupID,
		sem:     make(chan struct{}, concurrency),
	}, nil
}

// Start polls until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("redpanda consumer starting",
		slog.String("topic", c.topic),
		slog.String("group_id", c.groupID),
		slog.Int("max_concurrency", cap(c.sem)))

	initial, maxIv, _, multiplier := c.cfg.GetQueueBackoffConfig()
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = initial
	expo.MaxInterval = maxIv
	expo.Multiplier = multiplier
	expo.MaxElapsedTime = 0 // poll loop retries forever

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return fmt.Errorf("op=consumer.poll: client closed")
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if fe.Err == context.Canceled {
					return ctx.Err()
				}
				slog.Error("fetch error",
					slog.String("topic", fe.Topic),
					slog.Int("partition", int(fe.Partition)),
					slog.Any("error", fe.Err))
			}
			wait := expo.NextBackOff()
			slog.Warn("backing off after fetch errors", slog.Duration("wait", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		expo.Reset()

		fetches.EachRecord(func(record *kgo.Record) {
			select {
			case c.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func(rec *kgo.Record) {
				defer func() { <-c.sem }()
				if err := c.processRecord(ctx, rec); err != nil {
					slog.Error("record processing failed",
						slog.Int64("offset", rec.Offset),
						slog.Int("partition", int(rec.Partition)),
						slog.Any("error", err))
				}
				c.client.MarkCommitRecords(rec)
			}(record)
		})
	}
}

// processRecord decodes and dispatches one record by its job_type header.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) error {
	tracer := otel.Tracer("queue.consumer")
	ctx, span := tracer.Start(ctx, "ProcessEvaluationJob")
	defer span.End()

	jobType, messageID := "", ""
	for _, h := range record.Headers {
		switch h.Key {
		case HeaderJobType:
			jobType = string(h.Value)
		case HeaderMessageID:
			messageID = string(h.Value)
		}
	}

	switch jobType {
	case JobTypeSet:
		var payload domain.EvaluateSetPayload
		if err := json.Unmarshal(record.Value, &payload); err != nil {
			return fmt.Errorf("unmarshal set payload: %w", err)
		}
		slog.Info("processing set job",
			slog.String("message_id", messageID),
			slog.String("session_id", payload.SessionID),
			slog.String("evaluation_id", payload.EvaluationID),
			slog.Int("question_count", len(payload.Questions)))
		return c.handler.ProcessSet(ctx, payload)
	case JobTypeSingle:
		var payload domain.EvaluateSinglePayload
		if err := json.Unmarshal(record.Value, &payload); err != nil {
			return fmt.Errorf("unmarshal single payload: %w", err)
		}
		slog.Info("processing single job",
			slog.String("message_id", messageID),
			slog.String("session_id", payload.SessionID),
			slog.Int("question_index", payload.QuestionIndex))
		return c.handler.ProcessSingle(ctx, payload)
	default:
		// Unknown types are logged and committed; redelivery cannot fix them.
		slog.Warn("skipping record with unknown job type",
			slog.String("job_type", jobType),
			slog.Int64("offset", record.Offset))
		return nil
	}
}

// Close closes the underlying client.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
