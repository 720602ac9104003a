package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagramforge/core/common/id"
	"github.com/diagramforge/core/common/logger"
	"github.com/diagramforge/core/common/otel"
	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/queue"
	"github.com/diagramforge/core/internal/storage"
)

// worker consumes the jobs cmd/server enqueues on a primitive-library
// cache miss (internal/pipeline's Orchestrator.loadPrimitives) and fills
// the gap so the next request for the same primitive_hint is served from
// cache. A redis consumer group drives a reclaim-free run loop (single
// consumer, no contention to reclaim from) with signal-based graceful
// shutdown.
func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "diagramforge worker starting", "env", cfg.Env)

	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	stream := queue.StreamName(string(cfg.Env))
	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       stream,
		Group:        cfg.Queue.ConsumerGroupName,
		Consumer:     consumerName(),
		DLQStream:    queue.DLQStreamName(string(cfg.Env)),
		BatchSize:    10,
		Block:        5 * time.Second,
		MaxAttempts:  3,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", stream, "group", cfg.Queue.ConsumerGroupName)

	primitiveStore, err := newPrimitiveStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize primitive store", "error", err)
		os.Exit(1)
	}
	lib := primitive.NewLibrary(primitiveStore)
	if err := lib.Bootstrap(ctx); err != nil {
		slog.WarnContext(ctx, "primitive library bootstrap failed, continuing", "error", err)
	}

	process := newMessageProcessor(consumer, lib)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go runLoop(ctx, &wg, consumer, process)

	slog.InfoContext(ctx, "worker running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutdown signal received, initiating graceful shutdown...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.InfoContext(ctx, "graceful shutdown completed")
	case <-time.After(30 * time.Second):
		slog.WarnContext(ctx, "shutdown timeout exceeded, forcing exit")
	}

	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "shutdown complete")
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "diagramforge-worker"
	}
	return "diagramforge-worker-" + host
}

func runLoop(ctx context.Context, wg *sync.WaitGroup, consumer *queue.RedisConsumer, process queue.MessageProcessor) {
	defer wg.Done()
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "worker.loop"})
	slog.InfoContext(ctx, "worker loop started")

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "worker loop stopping")
			return
		default:
			tasks, err := consumer.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.ErrorContext(ctx, "failed to read from stream", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for _, task := range tasks {
				if ctx.Err() != nil {
					return
				}
				if err := processSafe(ctx, task, process); err != nil {
					slog.ErrorContext(ctx, "job processing failed", "error", err, "task_type", task.TaskType)
					handleFailure(ctx, consumer, task, err)
				}
			}
		}
	}
}

func processSafe(ctx context.Context, task queue.Task, process queue.MessageProcessor) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered", "panic", r, "duration_ms", time.Since(start).Milliseconds())
			err = fmt.Errorf("panic: %v", r)
			return
		}
		if err == nil {
			slog.DebugContext(ctx, "job processed", "duration_ms", time.Since(start).Milliseconds())
		}
	}()
	return process(ctx, task)
}

const maxAttempts = 3

func handleFailure(ctx context.Context, consumer *queue.RedisConsumer, task queue.Task, err error) {
	if task.Attempt >= maxAttempts {
		if dlqErr := consumer.SendDLQ(ctx, task, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}
	if requeueErr := consumer.Requeue(ctx, task, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue", "error", requeueErr)
	}
}

// newMessageProcessor only handles TaskTypePrimitiveIngest: it's the only
// kind the Orchestrator ever produces (SPEC_FULL.md's refinement loop runs
// inline and synchronously; TaskTypeRefinement exists in internal/queue for
// a future async refinement mode but has no producer yet, so it reaches the
// default arm below instead of pretending to resume a scene that was never
// persisted anywhere).
func newMessageProcessor(consumer *queue.RedisConsumer, lib *primitive.Library) queue.MessageProcessor {
	return func(ctx context.Context, task queue.Task) error {
		switch task.TaskType {
		case queue.TaskTypePrimitiveIngest:
			if err := ingestPrimitive(ctx, lib, task); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported task_type: %s", task.TaskType)
		}

		if err := consumer.Ack(ctx, task); err != nil {
			slog.WarnContext(ctx, "failed to ack job", "error", err)
		}
		return nil
	}
}

// ingestPrimitive fills one Primitive Library cache miss. When the job
// carries a SourceURI it fetches the fragment from there (an asset upload
// or an external symbol repository); otherwise it falls back to a
// generated placeholder fragment, matching TaskTypePrimitiveIngest's "or
// generated symbol" case, so a repeated miss on the same hint still stops
// after one round trip through the queue.
func ingestPrimitive(ctx context.Context, lib *primitive.Library, task queue.Task) error {
	if task.PrimitiveKey == "" {
		return errors.New("primitive_ingest job missing primitive_key")
	}

	fragment, err := fetchFragment(ctx, task.SourceURI)
	if err != nil {
		slog.WarnContext(ctx, "fragment fetch failed, using placeholder", "error", err, "primitive_key", task.PrimitiveKey)
	}
	if fragment == "" {
		fragment = placeholderFragment(task.PrimitiveKey)
	}

	return lib.Ingest(ctx, task.SourceDomain, task.PrimitiveKey, nil, fragment)
}

func fetchFragment(ctx context.Context, sourceURI string) (string, error) {
	if sourceURI == "" {
		return "", nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, sourceURI, nil)
	if err != nil {
		return "", fmt.Errorf("building fetch request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching fragment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching fragment: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("reading fragment body: %w", err)
	}
	return string(body), nil
}

func placeholderFragment(primitiveKey string) string {
	return fmt.Sprintf(`<g class="primitive-placeholder" data-key=%q><rect width="40" height="40" fill="none" stroke="#999" stroke-dasharray="3,2"/></g>`, primitiveKey)
}

// newPrimitiveStore mirrors cmd/server's backend selection so the worker
// fills the same store the request path reads from.
func newPrimitiveStore(ctx context.Context, cfg config.Config) (primitive.Store, error) {
	switch cfg.Pipeline.PrimitiveLibraryBackend {
	case "sqlite":
		path := cfg.Pipeline.PrimitiveLibraryPath
		if path == "" {
			path = "primitives.db"
		}
		return primitive.NewSQLiteStore(path)
	case "postgres":
		database, err := storage.New(ctx, storage.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns, MinConns: cfg.DB.MinConns})
		if err != nil {
			return nil, fmt.Errorf("connect primitive library database: %w", err)
		}
		return primitive.NewPostgresStore(database.Pool()), nil
	case "typesense":
		return primitive.NewTypesenseStore(cfg.Pipeline.PrimitiveLibraryPath, os.Getenv("TYPESENSE_API_KEY")), nil
	default:
		return primitive.NewMemoryStore(), nil
	}
}

const banner = `
               o8o
               ` + "`" + `"'
oooooowoooo. oooo  oooo  ooo. .oo.
` + "`" + `888'   ` + "`" + `88b` + "`" + `888  ` + "`" + `888  ` + "`" + `888P"Y88b
 888     888 888   888   888   888
 888     888 888   888   888   888
o888o   o888oo888o` + "`" + `V88V"V8P'o888o o888o
          diagramforge worker :: primitive ingest consumer
`
