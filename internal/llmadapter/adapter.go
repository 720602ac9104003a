// Package llmadapter wraps common/llm.Client with the domain-level contract
// SPEC_FULL.md §4.5 describes: schema-validated, retried, cost/latency
// accounted calls that degrade to ErrLLMUnavailable (never an unhandled
// panic) so every caller can fall back to a deterministic heuristic.
package llmadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diagramforge/core/common/llm"
)

// ErrLLMUnavailable is returned once retries are exhausted; callers MUST
// treat this as "use the rule-based fallback", never as a fatal pipeline
// error (§4.5, §7: LLM_FAILURE is non-fatal unless no fallback exists).
var ErrLLMUnavailable = errors.New("llmadapter: backend unavailable after retries")

// Backend names recognised by New.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendLocal     = "ollama" // OpenAI-compatible HTTP surface pointed at a local base_url
	BackendMock      = "mock"
)

// CallRecord mirrors internal/store/llm_eval.go's accounting fields
// (stage, model, latency_ms, prompt/completion tokens), generalized from a
// persisted DB row to an in-memory trace entry the Pipeline Orchestrator
// attaches to its Trace Logger record.
type CallRecord struct {
	Stage            string
	Model            string
	PromptID         string
	LatencyMS        int64
	PromptTokens     int
	CompletionTokens int
	EstimatedCostUSD float64
	Attempts         int
	Error            string
}

// costPerKTokens is a rough, documented-as-approximate USD/1K-token rate
// table used only for the trace's estimated_cost_usd field; it has no
// bearing on correctness.
var costPerKTokens = map[string]float64{
	"gpt-4o-mini":                0.00015,
	"claude-sonnet-4-5-20250514": 0.003,
}

// Request is one structured-output LLM call.
type Request struct {
	Stage        string // "planning", "audit", "enrichment", "semantic_validation"
	PromptID     string
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64
}

// Adapter is the LLM Adapter component: a schema-validated, retried client
// over one configured backend.
type Adapter struct {
	client     llm.Client
	maxRetries int
	cfg        Config
}

// Config selects and configures a backend.
type Config struct {
	Backend    string
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int // default 3
}

// New constructs an Adapter for the configured backend. An unknown backend
// name falls back to BackendMock rather than failing pipeline construction,
// since enable_llm_* flags default off and a misconfigured backend should
// degrade, not crash, the server (§9's anti-defensive-default fix applies to
// config validation at startup, not to this graceful-degradation path).
func New(cfg Config) (*Adapter, error) {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	var (
		c   llm.Client
		err error
	)
	switch cfg.Backend {
	case BackendOpenAI, BackendLocal:
		c, err = llm.New(llm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case BackendAnthropic:
		c, err = llm.NewAnthropicStructuredClient(llm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case BackendMock:
		c = NewMockClient(cfg.Model)
	default:
		slog.Warn("llmadapter: unknown backend, using mock", "backend", cfg.Backend)
		c = NewMockClient(cfg.Model)
	}
	if err != nil {
		return nil, fmt.Errorf("llmadapter: construct %s client: %w", cfg.Backend, err)
	}
	return &Adapter{client: c, maxRetries: retries, cfg: cfg}, nil
}

// rebuildWithoutProxy reconstructs the backend client with its HTTP
// transport's Proxy forced to nil, for the one-time SOCKS-misconfiguration
// recovery described in §4.5. A no-op for the mock backend.
func (a *Adapter) rebuildWithoutProxy() error {
	noProxyCfg := llm.Config{
		APIKey: a.cfg.APIKey, BaseURL: a.cfg.BaseURL, Model: a.cfg.Model,
		HTTPClient: &http.Client{Transport: NoProxyTransport()},
	}
	var (
		c   llm.Client
		err error
	)
	switch a.cfg.Backend {
	case BackendOpenAI, BackendLocal:
		c, err = llm.New(noProxyCfg)
	case BackendAnthropic:
		c, err = llm.NewAnthropicStructuredClient(noProxyCfg)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	a.client = c
	return nil
}

// Call performs a schema-validated request, retrying on transport or schema
// failure with exponential backoff, and recovering once from the known
// SOCKS-proxy misconfiguration by retrying with proxying forced off.
func (a *Adapter) Call(ctx context.Context, req Request, result any) (CallRecord, error) {
	rec := CallRecord{Stage: req.Stage, Model: a.client.Model(), PromptID: req.PromptID}
	start := time.Now()

	socksRetried := false
	var lastErr error
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		rec.Attempts = attempt
		llmReq := llm.Request{
			SystemPrompt: req.SystemPrompt,
			UserPrompt:   req.UserPrompt,
			SchemaName:   req.SchemaName,
			Schema:       req.Schema,
			MaxTokens:    req.MaxTokens,
			Temperature:  req.Temperature,
		}
		resp, err := a.client.Chat(ctx, llmReq, result)
		if err == nil {
			rec.LatencyMS = time.Since(start).Milliseconds()
			rec.PromptTokens = resp.PromptTokens
			rec.CompletionTokens = resp.CompletionTokens
			rec.EstimatedCostUSD = estimateCost(rec.Model, resp.PromptTokens, resp.CompletionTokens)
			return rec, nil
		}
		lastErr = err

		if !socksRetried && isSOCKSMisconfiguration(err) {
			socksRetried = true
			slog.WarnContext(ctx, "llmadapter: retrying once with proxy forced off", "error", err)
			if rebuildErr := a.rebuildWithoutProxy(); rebuildErr != nil {
				slog.WarnContext(ctx, "llmadapter: failed to rebuild client without proxy", "error", rebuildErr)
			}
			continue // immediate retry, not counted against backoff delay
		}

		if !llm.IsRetryable(ctx, err) {
			break
		}
		if attempt < a.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = a.maxRetries // exit loop
			}
		}
	}

	rec.LatencyMS = time.Since(start).Milliseconds()
	rec.Error = lastErr.Error()
	return rec, fmt.Errorf("%w: %v", ErrLLMUnavailable, lastErr)
}

func estimateCost(model string, promptTokens, completionTokens int) float64 {
	rate, ok := costPerKTokens[model]
	if !ok {
		rate = 0.001
	}
	return rate * float64(promptTokens+completionTokens) / 1000
}

// isSOCKSMisconfiguration detects the known failure mode where an
// inherited SOCKS_PROXY/ALL_PROXY environment variable routes the LLM
// backend's HTTP client through an unreachable SOCKS proxy (§4.5).
func isSOCKSMisconfiguration(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "socks") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && strings.Contains(msg, "proxyconnect")
}

// NoProxyTransport returns a clone of http.DefaultTransport with Proxy set
// to nil; rebuildWithoutProxy installs it for the one-time SOCKS recovery in
// Call.
func NoProxyTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	return t
}
