// Package config loads and validates diagramforge's runtime configuration.
//
// Every field is read through this type, never through an ad hoc
// getattr(obj, name, default)-style accessor: unknown environment keys are
// ignored (not rejected — env vars are not a closed namespace) but every
// field recognised here has exactly one default, set in one place, and
// Validate rejects combinations that can never produce a working service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

// ValidationMode controls how domain-rule validation failures affect the response.
type ValidationMode string

const (
	ValidationStrict ValidationMode = "strict"
	ValidationWarn   ValidationMode = "warn"
	ValidationOff    ValidationMode = "off"
)

// Config is the single, validated view of process configuration. It is
// loaded once at startup by Load and passed by value to every component
// that needs it; apart from the API-key lookups in cmd/server and cmd/worker
// (the variable named by LLM.APIKeyEnv, and TYPESENSE_API_KEY), nothing in
// this codebase reads os.Getenv directly outside this package.
type Config struct {
	Env  Env
	Port string

	DB       DBConfig
	OTel     OTelConfig
	Pipeline PipelineConfig
	LLM      LLMConfig
	Queue    QueueConfig
	Log      LogConfig
	Arango   ArangoConfig
}

type DBConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

func (c OTelConfig) Enabled() bool { return c.Endpoint != "" }

type QueueConfig struct {
	RedisURL          string
	PrimitiveStream   string
	RefinementStream  string
	ConsumerGroupName string
}

type LLMConfig struct {
	Backend   string // "openai", "anthropic", "ollama", "mock"
	Model     string
	APIKeyEnv string
	BaseURL   string
}

// ArangoConfig configures the optional ontology mirror (§3.5, §DOMAIN STACK).
// Empty URL means the mirror is unconfigured; Load never requires it, even
// when enable_ontology_validation is on — the mirror is best-effort (a
// failed write is logged, not returned), so a missing backend degrades to
// "ontology check skipped",
// never a startup failure.
type ArangoConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c ArangoConfig) Configured() bool { return c.URL != "" }

type LogConfig struct {
	Dir string
}

// PipelineConfig holds the per-request feature flags and budgets described
// in SPEC_FULL.md §6. Every flag defaults to false (§9's anti-pattern fix:
// no feature is silently enabled, and no feature is silently disabled by a
// missing key either — Load sets every field explicitly).
type PipelineConfig struct {
	CanvasWidth  int
	CanvasHeight int

	ValidationMode ValidationMode

	NLPTools map[string]bool

	EnableLLMPlanning        bool
	EnableLLMAudit           bool
	EnableLLMEnrichment      bool
	EnableVisualValidation   bool
	EnablePrimitiveLibrary   bool
	EnableOntologyValidation bool
	EnableLayoutSymbolic     bool
	EnableLayoutCustomSolver bool
	EnableRefinement         bool

	RefinementMaxIterations int
	RefinementTargetScore   float64

	RequestTimeout time.Duration

	PrimitiveLibraryBackend string // "memory", "sqlite", "postgres", "typesense"
	PrimitiveLibraryPath    string

	MaxInputChars int

	TraceHeaderName string
}

func defaultNLPTools() map[string]bool {
	return map[string]bool{
		"rule_triples":   true,
		"dependency":     true,
		"scientific_ner": true,
		"embedder":       false,
		"chemistry":      true,
		"math":           true,
		"semantic":       false,
	}
}

// Load reads configuration from the environment (optionally via a .env
// file, loaded best-effort) and returns a validated Config.
func Load() (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	cfg := Config{
		Env:  Env(getEnv("APP_ENV", string(EnvDevelopment))),
		Port: getEnv("PORT", "8080"),
		DB: DBConfig{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "diagramforge"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Queue: QueueConfig{
			RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PrimitiveStream:   getEnv("QUEUE_PRIMITIVE_STREAM", "diagramforge:primitives"),
			RefinementStream:  getEnv("QUEUE_REFINEMENT_STREAM", "diagramforge:refinement"),
			ConsumerGroupName: getEnv("QUEUE_CONSUMER_GROUP", "diagramforge-workers"),
		},
		LLM: LLMConfig{
			Backend:   getEnv("LLM_BACKEND", "mock"),
			Model:     getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKeyEnv: getEnv("LLM_API_KEY_ENV", "OPENAI_API_KEY"),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
		},
		Arango: ArangoConfig{
			URL:      getEnv("ARANGO_URL", ""),
			Username: getEnv("ARANGO_USERNAME", ""),
			Password: getEnv("ARANGO_PASSWORD", ""),
			Database: getEnv("ARANGO_DATABASE", "diagramforge"),
		},
		Log: LogConfig{
			Dir: getEnv("LOG_DIR", "logs"),
		},
		Pipeline: PipelineConfig{
			CanvasWidth:    getEnvInt("CANVAS_WIDTH", 1200),
			CanvasHeight:   getEnvInt("CANVAS_HEIGHT", 800),
			ValidationMode: ValidationMode(getEnv("VALIDATION_MODE", string(ValidationWarn))),
			NLPTools:       defaultNLPTools(),

			EnableLLMPlanning:        getEnvBool("ENABLE_LLM_PLANNING", false),
			EnableLLMAudit:           getEnvBool("ENABLE_LLM_AUDIT", false),
			EnableLLMEnrichment:      getEnvBool("ENABLE_LLM_ENRICHMENT", false),
			EnableVisualValidation:   getEnvBool("ENABLE_VISUAL_VALIDATION", false),
			EnablePrimitiveLibrary:   getEnvBool("ENABLE_PRIMITIVE_LIBRARY", false),
			EnableOntologyValidation: getEnvBool("ENABLE_ONTOLOGY_VALIDATION", false),
			EnableLayoutSymbolic:     getEnvBool("ENABLE_LAYOUT_SYMBOLIC", false),
			EnableLayoutCustomSolver: getEnvBool("ENABLE_LAYOUT_CUSTOM_SOLVER", false),
			EnableRefinement:         getEnvBool("ENABLE_REFINEMENT", false),

			RefinementMaxIterations: getEnvInt("REFINEMENT_MAX_ITERATIONS", 3),
			RefinementTargetScore:   getEnvFloat("REFINEMENT_TARGET_SCORE", 90),

			RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 30000)) * time.Millisecond,

			PrimitiveLibraryBackend: getEnv("PRIMITIVE_LIBRARY_BACKEND", "memory"),
			PrimitiveLibraryPath:    getEnv("PRIMITIVE_LIBRARY_PATH", ""),

			MaxInputChars: getEnvInt("MAX_INPUT_CHARS", 8000),

			TraceHeaderName: getEnv("TRACE_HEADER_NAME", "X-Request-ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configuration combinations that cannot produce a working
// service. It never silently disables a feature in response to bad input —
// that is exactly the defensive-default anti-pattern this type exists to
// avoid.
func (c Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("config: invalid APP_ENV %q", c.Env)
	}
	if c.Pipeline.CanvasWidth < 400 || c.Pipeline.CanvasHeight < 300 {
		return fmt.Errorf("config: canvas dimensions must be at least 400x300, got %dx%d",
			c.Pipeline.CanvasWidth, c.Pipeline.CanvasHeight)
	}
	switch c.Pipeline.ValidationMode {
	case ValidationStrict, ValidationWarn, ValidationOff:
	default:
		return fmt.Errorf("config: invalid validation_mode %q", c.Pipeline.ValidationMode)
	}
	switch c.Pipeline.PrimitiveLibraryBackend {
	case "memory", "sqlite", "postgres", "typesense":
	default:
		return fmt.Errorf("config: invalid primitive_library backend %q", c.Pipeline.PrimitiveLibraryBackend)
	}
	if c.Pipeline.PrimitiveLibraryBackend == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("config: primitive_library backend=postgres requires DATABASE_URL")
	}
	if c.Pipeline.RefinementMaxIterations < 0 {
		return fmt.Errorf("config: refinement_max_iterations must be >= 0")
	}
	if c.Pipeline.MaxInputChars <= 0 {
		return fmt.Errorf("config: max_input_chars must be > 0")
	}
	switch c.LLM.Backend {
	case "openai", "anthropic", "ollama", "mock":
	default:
		return fmt.Errorf("config: invalid llm backend %q", c.LLM.Backend)
	}
	return nil
}

func (c Config) IsProduction() bool  { return c.Env == EnvProduction }
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
