// Package redpanda provides Redpanda/Kafka queue integration for evaluation
// jobs. Publishing uses a transactional producer for exactly-once delivery;
// consumption runs a read-committed consumer group.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

const (
	// TopicEvaluations carries both set and single-question jobs.
	TopicEvaluations = "evaluation-jobs"

	// HeaderJobType distinguishes payload kinds on the shared topic.
	HeaderJobType = "job_type"
	JobTypeSet    = "set"
	JobTypeSingle = "single"

	// HeaderMessageID carries a unique id per produced record for log
	// correlation across producer and worker.
	HeaderMessageID = "message_id"
)

// Producer wraps a transactional Kafka producer and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	topic  string
	// Serializes transactions; the franz-go transactional producer allows
	// one in-flight transaction per client.
	transactionChan chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithOptions(brokers, "interview-evaluator-producer", TopicEvaluations)
}

// NewProducerWithOptions allows tests to isolate transactional ids and topics.
func NewProducerWithOptions(brokers []string, transactionalID, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	slog.Info("creating redpanda producer",
		slog.Any("brokers", brokers),
		slog.String("transactional_id", transactionalID))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, topic, 8, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	return &Producer{
		client:          client,
		topic:           topic,
		transactionChan: make(chan struct{}, 1),
	}, nil
}

// EnqueueSet publishes a question-set job keyed by session id.
func (p *Producer) EnqueueSet(ctx domain.Context, payload domain.EvaluateSetPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.produce(ctx, payload.SessionID, JobTypeSet, b)
}

// EnqueueSingle publishes a single-question job keyed by session id so all
// of a session's work lands on one partition, in order.
func (p *Producer) EnqueueSingle(ctx domain.Context, payload domain.EvaluateSinglePayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.produce(ctx, payload.SessionID, JobTypeSingle, b)
}

func (p *Producer) produce(ctx domain.Context, key, jobType string, value []byte) error {
	select {
	case p.transactionChan <- struct{}{}:
		defer func() { <-p.transactionChan }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	messageID := uuid.NewString()
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderJobType, Value: []byte(jobType)},
			{Key: HeaderMessageID, Value: []byte(messageID)},
		},
	}
	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	slog.Debug("job enqueued",
		slog.String("topic", p.topic),
		slog.String("job_type", jobType),
		slog.String("key", key),
		slog.String("message_id", messageID))
	return nil
}

// Ping checks broker connectivity, for readiness probes.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
