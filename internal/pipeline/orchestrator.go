// Package pipeline hosts the Pipeline Orchestrator and its error type (see
// error.go). The Orchestrator drives every phase named in SPEC_FULL.md §4.1
// in fixed order, each guarded by a config feature flag, wrapping every call
// in a Trace Logger span and falling back to a deterministic heuristic
// wherever the phase table allows one. Grounded on internal/brain's
// Orchestrator: an injected-dependencies struct plus a single sequential
// driver method, context enriched via common/logger.WithLogFields at request
// start and again once the domain is known.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagramforge/core/common/id"
	"github.com/diagramforge/core/common/logger"
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/classify"
	"github.com/diagramforge/core/internal/config"
	"github.com/diagramforge/core/internal/extract"
	"github.com/diagramforge/core/internal/interpret"
	"github.com/diagramforge/core/internal/label"
	"github.com/diagramforge/core/internal/layout"
	"github.com/diagramforge/core/internal/llmadapter"
	"github.com/diagramforge/core/internal/pgraph"
	"github.com/diagramforge/core/internal/planner"
	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/queue"
	"github.com/diagramforge/core/internal/refine"
	"github.com/diagramforge/core/internal/render"
	"github.com/diagramforge/core/internal/scene"
	"github.com/diagramforge/core/internal/storage"
	"github.com/diagramforge/core/internal/trace"
	"github.com/diagramforge/core/internal/validate"
)

// Orchestrator wires every pipeline component together. All fields except
// cfg, extractor and solver are optional (nil-able) so the server can run with a
// reduced dependency set (e.g. no Postgres, no configured LLM backend) and
// simply skip the phases that need them.
type Orchestrator struct {
	cfg config.Config

	extractor  *extract.Manager
	llm        *llmadapter.Adapter  // nil: every LLM-backed phase is skipped/falls back
	primitives *primitive.Library   // nil: render never splices a stored fragment
	ontology   *pgraph.ArangoMirror // nil: ontology check phase is always skipped
	traceStore *storage.TraceStore  // nil: trace record is file-only
	solver     *layout.Solver

	producer queue.Producer // nil: primitive cache misses are never queued for background fetch
}

// WithProducer attaches a queue.Producer the Orchestrator uses to enqueue
// background primitive-ingest jobs on a cache miss (§4.6). Returns o so
// callers can chain it onto New; a nil or never-called WithProducer leaves
// cache misses unqueued, which render treats the same as today: draw the
// built-in symbol and move on.
func (o *Orchestrator) WithProducer(p queue.Producer) *Orchestrator {
	o.producer = p
	return o
}

// New constructs an Orchestrator. Pass nil for any optional dependency the
// caller did not configure; New itself never fails, since every dependency
// is optional at this layer (config.Validate is what rejects impossible
// combinations at startup).
func New(cfg config.Config, extractor *extract.Manager, llm *llmadapter.Adapter, primitives *primitive.Library, ontology *pgraph.ArangoMirror, traceStore *storage.TraceStore) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		extractor:  extractor,
		llm:        llm,
		primitives: primitives,
		ontology:   ontology,
		traceStore: traceStore,
		solver:     layout.New(0),
	}
}

// Overrides carries the partial-config a single POST /generate request may
// supply, layered on top of the process-wide config.Config (§6).
type Overrides struct {
	CanvasWidth    int
	CanvasHeight   int
	ValidationMode config.ValidationMode
}

// Metadata is the non-SVG half of a successful (or partial) response, and
// maps directly onto POST /generate's `metadata` object (§6).
type Metadata struct {
	RequestID            string
	Domain               canonical.Domain
	ComplexityScore      float64
	Strategy             canonical.Strategy
	LayoutTierUsed       layout.Tier
	GraphNodes           int
	GraphEdges           int
	RefinementIterations int
	Warnings             []string
	Partial              bool
}

// Result is everything a successful Generate call returns.
type Result struct {
	SVG      string
	Metadata Metadata
	Trace    trace.Record
}

const (
	minCanvasWidth  = 400
	minCanvasHeight = 300
)

// Generate runs the full phase sequence for one problem_text and returns
// either a complete Result or a fatal *Error, per §7's propagation policy:
// even on a fatal error the caller gets back a RequestID and whatever trace
// was accumulated, never a bare Go error.
func (o *Orchestrator) Generate(ctx context.Context, text string, overrides Overrides) (Result, *Error) {
	requestID := id.NewRequestID()
	warnings := []string{}

	tr, err := trace.New(o.cfg.Log.Dir, requestID)
	if err != nil {
		return Result{}, NewError(KindInternal, "could not open trace log", requestID).WithCause(err)
	}

	timeout := o.cfg.Pipeline.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = logger.WithLogFields(ctx, logger.LogFields{RequestID: requestID, Component: "pipeline.orchestrator"})

	validationMode := overrides.ValidationMode
	if validationMode == "" {
		validationMode = o.cfg.Pipeline.ValidationMode
	}

	// --- input validation ---------------------------------------------
	trimmed := strings.TrimSpace(text)
	maxChars := o.cfg.Pipeline.MaxInputChars
	if maxChars <= 0 {
		maxChars = 8000
	}
	if trimmed == "" {
		return o.fail(tr, requestID, warnings, Metadata{}, "", KindInputInvalid, "problem_text is empty", nil, false)
	}
	if len(trimmed) > maxChars {
		return o.fail(tr, requestID, warnings, Metadata{}, "", KindInputInvalid,
			fmt.Sprintf("problem_text exceeds %d characters", maxChars), nil, false)
	}
	canvasWidth, canvasHeight := o.cfg.Pipeline.CanvasWidth, o.cfg.Pipeline.CanvasHeight
	if overrides.CanvasWidth > 0 {
		canvasWidth = overrides.CanvasWidth
	}
	if overrides.CanvasHeight > 0 {
		canvasHeight = overrides.CanvasHeight
	}
	if canvasWidth > 0 && canvasWidth < minCanvasWidth || canvasHeight > 0 && canvasHeight < minCanvasHeight {
		return o.fail(tr, requestID, warnings, Metadata{}, "", KindInputInvalid,
			fmt.Sprintf("canvas must be at least %dx%d", minCanvasWidth, minCanvasHeight), nil, false)
	}

	meta := Metadata{RequestID: requestID}

	// --- phase 0: NLP enrichment (extractor adapters, errgroup fan-out) -
	finishExtract := tr.Phase("extract")
	graph, results := o.extractor.Run(ctx, trimmed)
	var failedTools []string
	for _, r := range results {
		if r.Status == extract.StatusFailed || r.Status == extract.StatusUnavail || r.Status == extract.StatusTimeout {
			failedTools = append(failedTools, r.ToolID)
		}
	}
	extractStatus := trace.StatusSuccess
	if len(failedTools) > 0 {
		extractStatus = trace.StatusWarn
		warnings = append(warnings, fmt.Sprintf("extractor tools unavailable or failed: %s", strings.Join(failedTools, ", ")))
	}
	finishExtract(extractStatus, logger.Truncate(trimmed, 120),
		fmt.Sprintf("%d/%d tools ran", len(results)-len(failedTools), len(results)), nil)

	// --- phase 0.5: property graph build (already produced by Run) -----
	finishGraph := tr.Phase("graph_build")
	if graph == nil {
		graph = pgraph.New()
	}
	meta.GraphNodes, meta.GraphEdges = graph.NodeCount(), graph.EdgeCount()
	graphStatus := trace.StatusSuccess
	if meta.GraphNodes == 0 {
		graphStatus = trace.StatusWarn
		warnings = append(warnings, "property graph is empty; continuing from raw text only")
	}
	finishGraph(graphStatus, "", fmt.Sprintf("%d nodes, %d edges", meta.GraphNodes, meta.GraphEdges), nil)

	// --- phase 0.6: optional enrichment LLM -----------------------------
	finishEnrich := tr.Phase("llm_enrichment")
	if o.cfg.Pipeline.EnableLLMEnrichment && o.llm != nil {
		if enrichErr := o.enrichGraph(ctx, graph, trimmed); enrichErr != nil {
			warnings = append(warnings, "llm enrichment failed, continuing with heuristic graph: "+enrichErr.Error())
			finishEnrich(trace.StatusWarn, "", "heuristic fallback", enrichErr)
		} else {
			meta.GraphNodes, meta.GraphEdges = graph.NodeCount(), graph.EdgeCount()
			finishEnrich(trace.StatusSuccess, "", fmt.Sprintf("%d nodes, %d edges", meta.GraphNodes, meta.GraphEdges), nil)
		}
	} else {
		finishEnrich(trace.StatusSkipped, "", "disabled", nil)
	}

	// --- phase 1: canonicalize + complexity (critical) ------------------
	finishCanon := tr.Phase("canonicalize")
	spec := classify.Classify(graph, trimmed)
	meta.Domain = spec.Domain
	meta.ComplexityScore = spec.ComplexityScore
	ctx = logger.WithLogFields(ctx, logger.LogFields{Domain: logger.Ptr(string(spec.Domain))})
	finishCanon(trace.StatusSuccess, "", fmt.Sprintf("domain=%s objects=%d complexity=%.2f", spec.Domain, len(spec.Objects), spec.ComplexityScore), nil)

	// --- phase 2: plan (fallback to identity-mapping heuristic) ---------
	finishPlan := tr.Phase("plan")
	plan := planner.Plan(spec)
	if len(plan.Entities) == 0 {
		plan = fallbackPlan(spec)
		warnings = append(warnings, "planner produced no entities; used single-placeholder fallback")
		finishPlan(trace.StatusWarn, "", fmt.Sprintf("%d entities (fallback)", len(plan.Entities)),
			NewError(KindPlanEmpty, "planner produced zero entities", requestID))
	} else {
		finishPlan(trace.StatusSuccess, "", fmt.Sprintf("%d entities, strategy=%s", len(plan.Entities), plan.Strategy), nil)
	}
	if len(plan.Entities) == 0 {
		return o.fail(tr, requestID, warnings, meta, "", KindPlanEmpty, "no entities to draw, even after fallback", nil, false)
	}
	meta.Strategy = plan.Strategy

	// --- phase 3: interpret -> unpositioned scene (critical) ------------
	finishInterpret := tr.Phase("interpret")
	sc := interpret.For(spec.Domain).Interpret(plan)
	if canvasWidth > 0 {
		sc.Canvas.Width = float64(canvasWidth)
	}
	if canvasHeight > 0 {
		sc.Canvas.Height = float64(canvasHeight)
	}
	if refErr := sc.ValidateReferences(); refErr != nil {
		finishInterpret(trace.StatusFailed, "", "", refErr)
		return o.fail(tr, requestID, warnings, meta, "", KindInternal, "interpreter produced a dangling constraint reference", refErr, false)
	}
	finishInterpret(trace.StatusSuccess, "", fmt.Sprintf("%d objects", len(sc.Objects)), nil)

	// --- phase 3.5: ontology check (best-effort, never fatal) -----------
	finishOntology := tr.Phase("ontology_check")
	if o.cfg.Pipeline.EnableOntologyValidation && o.ontology != nil {
		o.ontology.Mirror(ctx, requestID, graph)
		finishOntology(trace.StatusSuccess, "", "mirrored to ontology backend", nil)
	} else {
		finishOntology(trace.StatusSkipped, "", "ontology backend not configured", nil)
	}

	// --- phase 4: domain validation (record, never fatal) ---------------
	finishDomainValidate := tr.Phase("domain_validate")
	report := validate.Validate(&sc, spec.Domain)
	domainFindings := domainRuleFindings(report)
	finishDomainValidate(statusForReport(report), "", fmt.Sprintf("score=%.1f findings=%d", report.Score, len(report.Findings)), nil)
	if validationMode == config.ValidationStrict {
		for _, f := range domainFindings {
			if f.Severity == validate.SeverityCritical {
				return o.fail(tr, requestID, warnings, meta, "", KindValidationError, f.Message, nil, false)
			}
		}
	}
	if validationMode == config.ValidationWarn {
		for _, f := range domainFindings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", f.Category, f.Message))
		}
	}

	// --- phase 5: layout solve (cascade, at least one tier MUST succeed) -
	finishLayout := tr.Phase("layout_solve")
	layoutResult, layoutErr := o.solver.Solve(ctx, &sc)
	if layoutErr != nil {
		finishLayout(trace.StatusFailed, "", "", layoutErr)
		return o.fail(tr, requestID, warnings, meta, "", KindLayoutUnsat, "no layout tier produced a satisfying assignment", layoutErr, false)
	}
	meta.LayoutTierUsed = layoutResult.Tier
	if len(layoutResult.DroppedConstraints) > 0 {
		warnings = append(warnings, fmt.Sprintf("layout dropped %d low-priority constraint(s)", len(layoutResult.DroppedConstraints)))
	}
	finishLayout(trace.StatusSuccess, "", fmt.Sprintf("tier=%s dropped=%d", layoutResult.Tier, len(layoutResult.DroppedConstraints)), nil)

	// --- phase 5.5: label place (skip on failure) -----------------------
	finishLabel := tr.Phase("label_place")
	if labelErr := placeLabelsSafely(&sc, spec.Domain); labelErr != nil {
		warnings = append(warnings, "label placement failed, labels left at default offsets")
		finishLabel(trace.StatusWarn, "", "", labelErr)
	} else {
		finishLabel(trace.StatusSuccess, "", "", nil)
	}

	// --- phase 5.6: spatial validate (feeds refinement) -----------------
	finishSpatial := tr.Phase("spatial_validate")
	report = validate.Validate(&sc, spec.Domain)
	finishSpatial(statusForReport(report), "", fmt.Sprintf("score=%.1f findings=%d", report.Score, len(report.Findings)), nil)

	// --- phase 6: render (critical) --------------------------------------
	finishRender := tr.Phase("render")
	primitives := o.loadPrimitives(ctx, &sc, spec.Domain, requestID)
	renderer := render.New(spec.Domain)
	svg, renderErr := renderer.Render(&sc, primitives)
	if renderErr != nil {
		finishRender(trace.StatusFailed, "", "", renderErr)
		return o.fail(tr, requestID, warnings, meta, "", KindRenderFailure, "renderer failed", renderErr, false)
	}
	finishRender(trace.StatusSuccess, "", fmt.Sprintf("%d bytes", len(svg)), nil)

	// --- phase 6.5: visual validation (optional; no backend in this build)
	tr.Phase("visual_validate")(trace.StatusSkipped, "", "no visual validation backend configured", nil)

	// --- phase 7: optional LLM audit --------------------------------------
	finishAudit := tr.Phase("llm_audit")
	if o.cfg.Pipeline.EnableLLMAudit && o.llm != nil {
		audit, auditErr := o.auditSVG(ctx, &sc, spec)
		if auditErr != nil {
			warnings = append(warnings, "llm audit unavailable: "+auditErr.Error())
			finishAudit(trace.StatusWarn, "", "", auditErr)
		} else {
			finishAudit(trace.StatusSuccess, "", fmt.Sprintf("score=%.1f issues=%d", audit.OverallScore, len(audit.Issues)), nil)
			for _, iss := range audit.Issues {
				if iss.Severity == "critical" {
					report.Findings = append(report.Findings, auditFinding(iss))
				} else {
					warnings = append(warnings, fmt.Sprintf("audit: %s", iss.Description))
				}
			}
			report.Score = rescore(report)
		}
	} else {
		finishAudit(trace.StatusSkipped, "", "disabled", nil)
	}

	// --- phase 8: refinement loop (bounded) -------------------------------
	finishRefine := tr.Phase("refine")
	targetScore := o.cfg.Pipeline.RefinementTargetScore
	if o.cfg.Pipeline.EnableRefinement && report.Score < targetScore {
		refineResult := refine.Loop(ctx, &sc, spec.Domain, o.solver, o.cfg.Pipeline.RefinementMaxIterations, targetScore)
		meta.RefinementIterations = refineResult.Iterations
		if len(refineResult.AppliedFixes) > 0 {
			if resvg, rerr := renderer.Render(&sc, primitives); rerr == nil {
				svg = resvg
			} else {
				warnings = append(warnings, "re-render after refinement failed, returning pre-refinement svg")
			}
		}
		finishRefine(trace.StatusSuccess, "", fmt.Sprintf("iterations=%d score=%.1f", refineResult.Iterations, refineResult.FinalScore), nil)
	} else {
		finishRefine(trace.StatusSkipped, "", "refinement not needed or disabled", nil)
	}

	meta.Warnings = warnings
	rec, finErr := tr.Finish(nil)
	if finErr != nil {
		warnings = append(warnings, "trace record could not be written to disk")
		meta.Warnings = warnings
	}
	o.persistTrace(rec)

	return Result{SVG: svg, Metadata: meta, Trace: rec}, nil
}

// fail aborts the pipeline, finishing the trace with overallErr and
// persisting whatever was accumulated, per §7: even a fatal error returns a
// RequestID and partial trace rather than a bare error.
func (o *Orchestrator) fail(tr *trace.Tracer, requestID string, warnings []string, meta Metadata, partialSVG string, kind Kind, message string, cause error, partial bool) (Result, *Error) {
	meta.RequestID = requestID
	meta.Warnings = warnings
	meta.Partial = partial
	pipeErr := NewError(kind, message, requestID)
	if cause != nil {
		pipeErr = pipeErr.WithCause(cause)
	}
	if partial {
		pipeErr = pipeErr.WithPartial()
	}
	rec, _ := tr.Finish(pipeErr)
	o.persistTrace(rec)
	return Result{SVG: partialSVG, Metadata: meta, Trace: rec}, pipeErr
}

func (o *Orchestrator) persistTrace(rec trace.Record) {
	if o.traceStore == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.traceStore.Save(saveCtx, rec) // best-effort: the file-based trace is the record of truth
}

// loadPrimitives queries the Primitive Library once per distinct
// primitive_hint present in sc, building the hint-keyed map render.Render
// expects. Returns nil if the library is unavailable or disabled, which
// render treats as "always draw the built-in symbol". A miss is queued as
// a background primitive_ingest job (best-effort, never blocks render) so
// the next request for the same hint can be served from cache.
func (o *Orchestrator) loadPrimitives(ctx context.Context, sc *scene.Scene, domain canonical.Domain, requestID string) map[string]primitive.Entry {
	if o.primitives == nil || !o.cfg.Pipeline.EnablePrimitiveLibrary {
		return nil
	}
	out := make(map[string]primitive.Entry)
	queued := make(map[string]bool)
	for _, obj := range sc.Objects {
		hint, _ := obj.Properties["primitive_hint"].(string)
		if hint == "" {
			continue
		}
		if _, ok := out[hint]; ok {
			continue
		}
		entry, found, err := o.primitives.Query(ctx, string(domain), hint, obj.Properties)
		if err != nil || !found {
			if o.producer != nil && !queued[hint] {
				queued[hint] = true
				_ = o.producer.Enqueue(ctx, queue.Task{
					TaskType:     queue.TaskTypePrimitiveIngest,
					RequestID:    requestID,
					PrimitiveKey: hint,
					SourceDomain: string(domain),
				})
			}
			continue
		}
		out[hint] = entry
	}
	return out
}

// placeLabelsSafely wraps label.Place in a recover so a label-placer
// defect degrades to "labels keep their default offset" instead of failing
// the whole request, matching the phase table's "skip on failure".
func placeLabelsSafely(sc *scene.Scene, domain canonical.Domain) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("label placer panic: %v", r)
		}
	}()
	label.Place(sc, domain)
	return nil
}
