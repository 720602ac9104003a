// Package refine implements the Refinement Loop: a bounded iterate/
// re-validate cycle that applies safe, local auto-fixes for validator
// findings and, when a fix changes layout-affecting constraints,
// re-invokes the Layout Solver (SPEC_FULL.md §4.12). Grounded on
// internal/brain/orchestrator.go's runPlannerCycle attempt loop
// (validate, and on failure retry up to a fixed bound, logging each
// attempt via slog).
package refine

import (
	"context"
	"log/slog"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/label"
	"github.com/diagramforge/core/internal/layout"
	"github.com/diagramforge/core/internal/scene"
	"github.com/diagramforge/core/internal/validate"
)

const (
	DefaultMaxIterations = 3
	DefaultTargetScore   = 90.0
)

// Result summarizes what the loop did, for the response's
// refinement_iterations/warnings fields.
type Result struct {
	Iterations   int
	FinalScore   float64
	AppliedFixes []string
	Report       validate.Report
}

// Loop runs Validate, applies any safe auto-fixes it recognizes, and
// re-invokes solver/label.Place when a fix touched layout-affecting
// state, until the score reaches targetScore, no auto-fixable finding
// remains, or maxIterations is exhausted.
func Loop(ctx context.Context, sc *scene.Scene, domain canonical.Domain, solver *layout.Solver, maxIterations int, targetScore float64) Result {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if targetScore <= 0 {
		targetScore = DefaultTargetScore
	}

	var applied []string
	iterations := 0
	report := validate.Validate(sc, domain)

	for iteration := 0; iteration < maxIterations; iteration++ {
		if report.Score >= targetScore {
			break
		}

		fixed, layoutAffected := applyFixes(sc, report.Findings)
		if len(fixed) == 0 {
			slog.WarnContext(ctx, "refinement loop found no auto-fixable finding",
				"iteration", iteration, "score", report.Score)
			break
		}
		applied = append(applied, fixed...)
		iterations++

		if layoutAffected {
			resolveLayout(ctx, sc, solver, domain)
		}

		report = validate.Validate(sc, domain)
		slog.InfoContext(ctx, "refinement iteration complete",
			"iteration", iteration, "score", report.Score, "fixes", fixed)
	}

	return Result{
		Iterations:   iterations,
		FinalScore:   report.Score,
		AppliedFixes: applied,
		Report:       report,
	}
}

// resolveLayout clears every object's position and re-runs the Layout
// Solver followed by the Label Placer, matching the ordering the rest of
// the pipeline uses (§4.9 then §4.10).
func resolveLayout(ctx context.Context, sc *scene.Scene, solver *layout.Solver, domain canonical.Domain) {
	for _, o := range sc.Objects {
		if o.PrimitiveType != "text" {
			o.ClearPos()
		}
	}
	if _, err := solver.Solve(ctx, sc); err != nil {
		slog.WarnContext(ctx, "refinement loop's layout re-solve failed", "error", err)
		return
	}
	label.Place(sc, domain)
}

// applyFixes applies every safe, local auto-fix it recognizes among
// findings and reports whether any of them requires a layout re-solve.
func applyFixes(sc *scene.Scene, findings []validate.Finding) ([]string, bool) {
	var applied []string
	layoutAffected := false

	for _, f := range findings {
		switch f.AutoFixHint {
		case "nudge_apart":
			if nudgeApart(sc, f.ObjectIDs) {
				applied = append(applied, f.Category+":nudge_apart")
			}
		case "grow_canvas":
			if growCanvas(sc, f.ObjectIDs) {
				applied = append(applied, f.Category+":grow_canvas")
			}
		case "raise_layer":
			if raiseLayer(sc, f.ObjectIDs) {
				applied = append(applied, f.Category+":raise_layer")
			}
		case "add_return_connection":
			if addReturnConnection(sc, f.ObjectIDs) {
				applied = append(applied, f.Category+":add_return_connection")
				layoutAffected = true
			}
		}
	}
	return applied, layoutAffected
}

// nudgeApart pushes two overlapping objects apart along their shorter
// overlap axis, directly — a local position tweak, not a constraint
// change, so it doesn't require re-running the solver.
func nudgeApart(sc *scene.Scene, ids []string) bool {
	if len(ids) != 2 {
		return false
	}
	a, ok1 := sc.ObjectByID(ids[0])
	b, ok2 := sc.ObjectByID(ids[1])
	if !ok1 || !ok2 || !a.HasPosition() || !b.HasPosition() {
		return false
	}
	ap, bp := a.Pos(), b.Pos()
	aw, ah := dimsOf(a)
	bw, bh := dimsOf(b)
	overlapX := min(ap.X+aw/2, bp.X+bw/2) - max(ap.X-aw/2, bp.X-bw/2)
	overlapY := min(ap.Y+ah/2, bp.Y+bh/2) - max(ap.Y-ah/2, bp.Y-bh/2)

	if overlapX < overlapY {
		sep := overlapX/2 + 1
		if ap.X < bp.X {
			ap.X -= sep
			bp.X += sep
		} else {
			ap.X += sep
			bp.X -= sep
		}
	} else {
		sep := overlapY/2 + 1
		if ap.Y < bp.Y {
			ap.Y -= sep
			bp.Y += sep
		} else {
			ap.Y += sep
			bp.Y -= sep
		}
	}
	a.SetPos(ap)
	b.SetPos(bp)
	return true
}

// growCanvas expands the canvas just enough to bring every named object
// back inside it.
func growCanvas(sc *scene.Scene, ids []string) bool {
	grew := false
	for _, id := range ids {
		o, ok := sc.ObjectByID(id)
		if !ok || !o.HasPosition() {
			continue
		}
		p := o.Pos()
		w, h := dimsOf(o)
		if need := p.X + w/2; need > sc.Canvas.Width {
			sc.Canvas.Width = need
			grew = true
		}
		if need := p.Y + h/2; need > sc.Canvas.Height {
			sc.Canvas.Height = need
			grew = true
		}
	}
	return grew
}

// raiseLayer moves a contained object's layer above its container's.
func raiseLayer(sc *scene.Scene, ids []string) bool {
	if len(ids) != 2 {
		return false
	}
	inner, ok1 := sc.ObjectByID(ids[0])
	outer, ok2 := sc.ObjectByID(ids[1])
	if !ok1 || !ok2 {
		return false
	}
	if inner.Layer >= outer.Layer {
		return false
	}
	inner.Layer = outer.Layer + 1
	return true
}

// addReturnConnection adds a critical adjacency constraint back to the
// power source, giving the layout solver a reason to close the visual
// loop, and flags that a re-solve is needed.
func addReturnConnection(sc *scene.Scene, ids []string) bool {
	if len(ids) != 1 || len(sc.Objects) < 2 {
		return false
	}
	source := ids[0]
	last := sc.Objects[len(sc.Objects)-1].ID
	if last == source {
		return false
	}
	sc.Constraints = append(sc.Constraints, canonical.Constraint{
		Kind:      canonical.KindAdjacent,
		ObjectIDs: []string{last, source},
		Priority:  canonical.PriorityHigh,
		Weight:    0.5,
	})
	return true
}

func dimsOf(o *scene.Object) (float64, float64) {
	if o.Dimensions.Radius > 0 {
		return o.Dimensions.Radius * 2, o.Dimensions.Radius * 2
	}
	return o.Dimensions.Width, o.Dimensions.Height
}
