package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/diagramforge/core/common/id"
	"github.com/diagramforge/core/common/logger"
	"github.com/diagramforge/core/common/otel"
	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/extract"
	"github.com/diagramforge/core/internal/httpapi/middleware"
	httprouter "github.com/diagramforge/core/internal/httpapi/router"
	"github.com/diagramforge/core/internal/llmadapter"
	"github.com/diagramforge/core/internal/pgraph"
	"github.com/diagramforge/core/internal/pipeline"
	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/queue"
	"github.com/diagramforge/core/internal/storage"
)

// version is overridden at build time via -ldflags; "dev" is what every
// local run and GET /health reports otherwise.
var version = "dev"

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// OTel inits before the logger; the production logger writes slog JSON to
	// stdout and does not go through the OTel log provider.
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "diagramforge starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	// --- durable trace store (optional: only when a database is configured)
	var traceStore *storage.TraceStore
	if cfg.DB.DSN != "" {
		database, err := storage.New(ctx, storage.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns, MinConns: cfg.DB.MinConns})
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		traceStore = storage.NewTraceStore(database)
		if err := traceStore.EnsureSchema(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to ensure trace_records schema", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "database connected", "trace_store", "postgres")
	} else {
		slog.InfoContext(ctx, "no DATABASE_URL configured; traces are file-only")
	}

	// --- redis (optional: only needed to enqueue background primitive jobs)
	var producer queue.Producer
	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "redis unavailable; primitive cache misses will not be queued", "error", err)
	} else {
		producer = queue.NewRedisProducer(redisClient, queue.StreamName(string(cfg.Env)))
		defer producer.Close()
		slog.InfoContext(ctx, "redis connected", "stream", queue.StreamName(string(cfg.Env)))
	}

	// --- primitive library (backend selected by PRIMITIVE_LIBRARY_BACKEND)
	primitiveStore, err := newPrimitiveStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize primitive store", "error", err)
		os.Exit(1)
	}
	lib := primitive.NewLibrary(primitiveStore)
	if err := lib.Bootstrap(ctx); err != nil {
		slog.WarnContext(ctx, "primitive library bootstrap failed, continuing with whatever loaded", "error", err)
	}
	slog.InfoContext(ctx, "primitive library ready", "backend", cfg.Pipeline.PrimitiveLibraryBackend)

	// --- LLM adapter (optional: only constructed when a phase needs it)
	var llm *llmadapter.Adapter
	if cfg.Pipeline.EnableLLMPlanning || cfg.Pipeline.EnableLLMAudit || cfg.Pipeline.EnableLLMEnrichment {
		llm, err = llmadapter.New(llmadapter.Config{
			Backend: cfg.LLM.Backend,
			APIKey:  os.Getenv(cfg.LLM.APIKeyEnv),
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to construct llm adapter", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "llm adapter ready", "backend", cfg.LLM.Backend, "model", cfg.LLM.Model)
	} else {
		slog.InfoContext(ctx, "no llm-backed phase enabled; skipping llm adapter construction")
	}

	// --- ontology mirror (optional: best-effort, never blocks startup)
	var ontology *pgraph.ArangoMirror
	if cfg.Pipeline.EnableOntologyValidation && cfg.Arango.Configured() {
		ontology, err = pgraph.NewArangoMirror(ctx, pgraph.ArangoConfig{
			URL:      cfg.Arango.URL,
			Username: cfg.Arango.Username,
			Password: cfg.Arango.Password,
			Database: cfg.Arango.Database,
		})
		if err != nil {
			slog.WarnContext(ctx, "ontology mirror unavailable, continuing without it", "error", err)
		} else {
			slog.InfoContext(ctx, "ontology mirror connected", "database", cfg.Arango.Database)
		}
	}

	extractor := extract.NewManager(ctx, 2*time.Second, enabledExtractors(cfg.Pipeline.NLPTools)...)
	slog.InfoContext(ctx, "nlp extractors ready", "available", len(extractor.Adapters()))

	orchestrator := pipeline.New(cfg, extractor, llm, lib, ontology, traceStore).WithProducer(producer)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := setupRouter(cfg, httprouter.Dependencies{
		Cfg:          cfg,
		Orchestrator: orchestrator,
		Primitives:   lib,
		LLM:          llm,
		TraceStore:   traceStore,
		Version:      version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := redisClient.Close(); err != nil {
		slog.ErrorContext(shutdownCtx, "redis close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, deps httprouter.Dependencies) *gin.Engine {
	engine := gin.New()

	// Order matters: OTel creates span -> Recovery catches panics -> Logger logs with trace context.
	if cfg.OTel.Enabled() {
		engine.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	httprouter.SetupRoutes(engine, deps)

	return engine
}

// enabledExtractors maps the nlp_tools flags GET /health reports (§6) onto
// the extract.Adapter each one names; NewManager further filters by
// Available, so a tool enabled here but missing its runtime dependency
// still degrades cleanly instead of failing startup.
func enabledExtractors(tools map[string]bool) []extract.Adapter {
	candidates := []struct {
		key     string
		adapter extract.Adapter
	}{
		{"rule_triples", extract.NewRuleTriples()},
		{"dependency", extract.NewDependency()},
		{"scientific_ner", extract.NewScientificNER()},
		{"chemistry", extract.NewChemistry()},
		{"math", extract.NewMath()},
		{"semantic", extract.NewSemantic()},
		{"embedder", extract.NewEmbedder()},
	}
	var out []extract.Adapter
	for _, c := range candidates {
		if tools[c.key] {
			out = append(out, c.adapter)
		}
	}
	return out
}

// newPrimitiveStore constructs the primitive.Store named by
// PRIMITIVE_LIBRARY_BACKEND. config.Validate already rejected
// backend=postgres without a DSN, so the postgres branch here never needs
// its own nil check.
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
oooooooooo.    o8o
` + "`" + `888'   ` + "`" + `Y8b   ` + "`" + `"'
 888      888 oooo   .oooo.    .oooooooo oooo d8b  .oooo.   ooo. .oo.  .oo.
 888      888 ` + "`" + `888  ` + "`" + `P  )88b  888' ` + "`" + `88b  ` + "`" + `888""8P ` + "`" + `P  )88b  ` + "`" + `888P"Y88bP"Y88b
 888      888  888   .oP"888  888   888   888      .oP"888   888   888   888
 888     d88'  888  d8(  888  ` + "`" + `88bod8P'   888     d8(  888   888   888   888
o888bood8P'   o888o ` + "`" + `Y888""8o  ` + "`" + `8oooooo.  d888b    ` + "`" + `Y888""8o o888o o888o o888o
                                d"     YD
                                "Y88888P'
          diagramforge :: problem text -> svg diagram
`
