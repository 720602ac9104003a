// Package layout implements the Layout Solver: the three-tier cascade that
// assigns (x, y) positions to a Scene's objects so that every constraint
// the Domain Interpreters attached is satisfied (SPEC_FULL.md §4.9).
//
// No Go SMT/constraint-programming binding exists anywhere in the example
// corpus; tier 1 is a from-scratch iterative constraint solver rather than
// a binding to an external library.
package layout

import (
	"context"
	"errors"
	"time"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// Tier names the cascade stage that produced a solution, recorded so the
// Trace Logger and Validation Report can explain which strategy ran.
type Tier string

const (
	TierConstraint Tier = "constraint_solver"
	TierSymbolic   Tier = "symbolic_geometric"
	TierHeuristic  Tier = "heuristic"
)

// ErrUnsatisfiable is returned when all three tiers fail to position every
// object within the time budget. The orchestrator wraps this in a
// pipeline.Error{Kind: KindLayoutUnsat}.
var ErrUnsatisfiable = errors.New("layout: no tier produced a satisfying assignment")

// Result reports which tier solved the scene and what, if anything, had to
// give.
type Result struct {
	Tier               Tier
	DroppedConstraints []canonical.Constraint
}

// Solver runs the cascade. Timeout bounds tier 1's search only, per §4.9's
// "time-boxed (default 5s)"; tiers 2 and 3 are bounded by their own
// closed-form/iteration-count limits and don't need a wall-clock budget.
type Solver struct {
	Timeout time.Duration
}

// New returns a Solver with the given tier-1 time budget. A zero timeout
// defaults to 5 seconds.
func New(timeout time.Duration) *Solver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Solver{Timeout: timeout}
}

// Solve positions every object in sc, mutating it in place, and reports
// which tier succeeded. It never panics; a cascade that exhausts all three
// tiers returns ErrUnsatisfiable and leaves sc unpositioned.
func (s *Solver) Solve(ctx context.Context, sc *scene.Scene) (Result, error) {
	if len(sc.Objects) == 0 {
		return Result{Tier: TierConstraint}, nil
	}

	constraints := filterConflictingAligned(sc.Constraints)

	tctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	if dropped, ok := solveConstraintTier(tctx, sc, constraints); ok {
		return Result{Tier: TierConstraint, DroppedConstraints: dropped}, nil
	}

	if ok := trySymbolicTier(sc, constraints); ok {
		return Result{Tier: TierSymbolic}, nil
	}

	if ok := solveHeuristicTier(sc, constraints); ok {
		return Result{Tier: TierHeuristic}, nil
	}

	return Result{}, ErrUnsatisfiable
}
