package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagramforge/core/common/logger"
)

// ConsumerConfig configures a RedisConsumer's group membership and retry
// policy.
type ConsumerConfig struct {
	Stream       string        // Redis stream name
	Group        string        // Redis consumer group name
	Consumer     string        // Redis consumer name (this process/goroutine)
	DLQStream    string        // dead letter stream for exhausted-retry jobs
	BatchSize    int64         // messages to claim per XREADGROUP call
	Block        time.Duration // how long to block waiting for new messages
	MaxAttempts  int           // retries before a job is sent to the DLQ
	RequeueDelay time.Duration // delay applied before a requeued XADD
}

// Message is a claimed-but-unparsed stream entry; Ack/Requeue/SendDLQ need
// only its ID and Raw fields, so callers that fail to parse a Task can still
// acknowledge or dead-letter it.
type Message struct {
	ID  string
	Raw redis.XMessage
}

// MessageProcessor handles one parsed Task.
type MessageProcessor func(ctx context.Context, task Task) error

// RedisConsumer reads Tasks from a consumer group, acking, requeueing, or
// dead-lettering each one depending on processing outcome.
type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

// NewRedisConsumer creates the consumer group (if absent) and returns a
// RedisConsumer bound to it.
func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	c := &RedisConsumer{client: client, cfg: cfg}
	if err := c.ensureGroup(context.Background()); err != nil { //nolint:contextcheck
		return nil, err
	}
	return c, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Start from "0" rather than "$" so a freshly (re)started consumer
	// sees everything already on the stream instead of only new entries.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil &&
		err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Read claims up to BatchSize undelivered entries, parsing each into a
// Task. An entry that fails to parse is acked immediately (it can never be
// processed successfully) and logged, rather than returned as an error that
// would abort the whole batch.
func (c *RedisConsumer) Read(ctx context.Context) ([]Task, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "queue.consumer"})

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var tasks []Task
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			task, parseErr := ParseMessage(msg)
			if parseErr != nil {
				slog.ErrorContext(ctx, "failed to parse job",
					"error", parseErr,
					"raw_message_id", msg.ID,
					"stream", c.cfg.Stream)
				_ = c.AckRaw(ctx, msg.ID)
				continue
			}
			tasks = append(tasks, task)
		}
	}

	if len(tasks) > 0 {
		slog.DebugContext(ctx, "read jobs from stream",
			"count", len(tasks),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}
	return tasks, nil
}

// Ack acknowledges task.messageID (set on every Task returned by
// ParseMessage), removing it from the group's pending-entries list.
func (c *RedisConsumer) Ack(ctx context.Context, task Task) error {
	return c.AckRaw(ctx, task.messageID)
}

func (c *RedisConsumer) AckRaw(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, messageID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	slog.DebugContext(ctx, "job acknowledged", "stream", c.cfg.Stream)
	return nil
}

// Requeue acks the current delivery and re-enqueues task with its attempt
// counter incremented, honoring cfg.RequeueDelay.
func (c *RedisConsumer) Requeue(ctx context.Context, task Task, errMsg string) error {
	return c.RequeueWithAttempt(ctx, task, task.Attempt+1, errMsg)
}

func (c *RedisConsumer) RequeueWithAttempt(ctx context.Context, task Task, attempt int, errMsg string) error {
	if attempt <= 0 {
		attempt = 1
	}
	if attempt > c.cfg.MaxAttempts && c.cfg.MaxAttempts > 0 {
		return c.SendDLQ(ctx, task, errMsg)
	}

	if err := c.Ack(ctx, task); err != nil {
		return fmt.Errorf("acking job for requeue: %w", err)
	}

	values := taskValues(task, attempt)
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if c.cfg.RequeueDelay > 0 {
		time.Sleep(c.cfg.RequeueDelay)
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	slog.InfoContext(ctx, "job requeued for retry", "next_attempt", attempt, "reason", errMsg)
	return nil
}

// SendDLQ acks the current delivery and appends task to the configured DLQ
// stream, recording the final error.
func (c *RedisConsumer) SendDLQ(ctx context.Context, task Task, errMsg string) error {
	if err := c.Ack(ctx, task); err != nil {
		return fmt.Errorf("acking job for dlq: %w", err)
	}

	values := taskValues(task, task.Attempt)
	values["error"] = errMsg

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	slog.ErrorContext(ctx, "job sent to DLQ", "final_error", errMsg, "dlq_stream", c.cfg.DLQStream)
	return nil
}

// ParseMessage decodes a raw stream entry into a Task, validating the
// fields required by its TaskType.
func ParseMessage(msg redis.XMessage) (Task, error) {
	taskTypeStr, err := optionalString(msg.Values, "task_type")
	if err != nil {
		return Task{}, err
	}
	taskType := TaskType(taskTypeStr)
	if taskType == "" {
		return Task{}, fmt.Errorf("missing task_type")
	}

	requestID, err := optionalString(msg.Values, "request_id")
	if err != nil {
		return Task{}, err
	}
	traceID, err := optionalString(msg.Values, "trace_id")
	if err != nil {
		return Task{}, err
	}
	attempt, err := optionalInt(msg.Values, "attempt")
	if err != nil {
		return Task{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	task := Task{
		TaskType:  taskType,
		RequestID: requestID,
		TraceID:   traceID,
		Attempt:   attempt,
		messageID: msg.ID,
	}

	switch taskType {
	case TaskTypePrimitiveIngest:
		task.PrimitiveKey, err = optionalString(msg.Values, "primitive_key")
		if err != nil {
			return Task{}, err
		}
		task.SourceDomain, err = optionalString(msg.Values, "source_domain")
		if err != nil {
			return Task{}, err
		}
		task.SourceURI, err = optionalString(msg.Values, "source_uri")
		if err != nil {
			return Task{}, err
		}
		if task.PrimitiveKey == "" {
			return Task{}, fmt.Errorf("missing primitive_key")
		}
	case TaskTypeRefinement:
		task.SceneRef, err = optionalString(msg.Values, "scene_ref")
		if err != nil {
			return Task{}, err
		}
		task.Domain, err = optionalString(msg.Values, "domain")
		if err != nil {
			return Task{}, err
		}
		task.TargetStep, err = optionalInt(msg.Values, "target_step")
		if err != nil {
			return Task{}, err
		}
		if task.SceneRef == "" {
			return Task{}, fmt.Errorf("missing scene_ref")
		}
	default:
		return Task{}, fmt.Errorf("unknown task_type %q", taskType)
	}

	return task, nil
}

func optionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func optionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}

func taskValues(task Task, attempt int) map[string]any {
	values := map[string]any{
		"task_type": string(task.TaskType),
		"attempt":   attempt,
	}
	if task.RequestID != "" {
		values["request_id"] = task.RequestID
	}
	if task.TraceID != "" {
		values["trace_id"] = task.TraceID
	}

	switch task.TaskType {
	case TaskTypePrimitiveIngest:
		values["primitive_key"] = task.PrimitiveKey
		if task.SourceDomain != "" {
			values["source_domain"] = task.SourceDomain
		}
		if task.SourceURI != "" {
			values["source_uri"] = task.SourceURI
		}
	case TaskTypeRefinement:
		values["scene_ref"] = task.SceneRef
		if task.Domain != "" {
			values["domain"] = task.Domain
		}
		values["target_step"] = task.TargetStep
	}

	return values
}
