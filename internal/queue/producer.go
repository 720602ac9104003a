package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/diagramforge/core/common/logger"
)

// Producer enqueues a Task onto the job stream.
type Producer interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
}

// NewRedisProducer returns a Producer that XADDs onto stream.
func NewRedisProducer(client *redis.Client, stream string) Producer {
	return &redisProducer{client: client, stream: stream}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RequestID: task.RequestID,
		Component: "queue.producer",
	})

	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	values := taskValues(task, attempt)

	// TODO - cap stream growth with XADD MAXLEN once job volume is known.
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue task (stream=%s): %w", p.stream, err)
	}

	slog.InfoContext(ctx, "enqueued job",
		"task_type", task.TaskType,
		"attempt", attempt,
		"trace_id", task.TraceID,
		"stream", p.stream)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
