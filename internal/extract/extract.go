// Package extract implements the Extractor Adapters: a uniform interface
// around each NLP tool the pipeline fans out to, plus the manager that runs
// them concurrently via errgroup and merges their results into a property
// graph, grounded on the teacher's fan-out/join style in
// internal/pipeline/processor.go generalized from "jobs" to "adapters".
package extract

import "context"

// Status is an adapter's per-call outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
	StatusUnavail Status = "unavailable"
)

// Item is one tool-native extracted fact: a triple, a typed entity, a
// dependency edge, an embedding, a formula, whatever the adapter natively
// produces. Kind disambiguates interpretation; Fields carries the payload.
type Item struct {
	Kind   string
	Fields map[string]any
}

// Result is the uniform wrapper every adapter returns, per SPEC_FULL.md §3's
// Extractor Result shape.
type Result struct {
	ToolID   string
	Status   Status
	Items    []Item
	Metadata map[string]any
	Errors   []string
}

// Adapter is the interface every extractor implements. Extract must never
// return a non-nil error across this boundary in normal operation — on any
// internal failure it reports status=failed in the Result instead. The
// manager reports any non-nil error as status=failed; an adapter still
// running when the manager's per-adapter context ends is reported as
// status=timeout.
type Adapter interface {
	// ToolID is this adapter's stable identifier, used for tool-priority
	// tie-breaking during graph merge.
	ToolID() string
	// Available is called once at construction; it may load lexicons or
	// models. A false return permanently disables the adapter without
	// failing pipeline startup.
	Available(ctx context.Context) bool
	// Extract runs the adapter against text, respecting ctx's deadline.
	Extract(ctx context.Context, text string) (Result, error)
}

// Priority is the fixed tool-priority order used for scalar-attribute and
// node-type tie-breaks during property-graph merge (§3, §4.2). Index 0 is
// lowest priority. embedder is deliberately absent: it contributes
// embeddings only and never participates in a scalar/type tie-break (see
// pgraph.ToolPriority, which this mirrors).
var Priority = []string{
	"rule_triples",
	"dependency",
	"scientific_ner",
	"chemistry",
	"math",
	"semantic",
}
