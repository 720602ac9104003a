package layout_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/layout"
	"github.com/diagramforge/core/internal/scene"
)

func twoObjectScene() *scene.Scene {
	return &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "a", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 40}},
			{ID: "b", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 40}},
		},
	}
}

func TestSolveSatisfiesCriticalAlignedHorizontally(t *testing.T) {
	sc := twoObjectScene()
	sc.Constraints = []canonical.Constraint{
		{Kind: canonical.KindAlignedHorizontally, ObjectIDs: []string{"a", "b"}, Priority: canonical.PriorityCritical},
	}

	solver := layout.New(time.Second)
	result, err := solver.Solve(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, layout.TierConstraint, result.Tier)

	a, _ := sc.ObjectByID("a")
	b, _ := sc.ObjectByID("b")
	require.True(t, a.HasPosition())
	require.True(t, b.HasPosition())
	require.InDelta(t, a.Pos().Y, b.Pos().Y, 1.0)
}

func TestSolveDistanceWinsOverConflictingAlignment(t *testing.T) {
	sc := twoObjectScene()
	sc.Constraints = []canonical.Constraint{
		{Kind: canonical.KindDistance, ObjectIDs: []string{"a", "b"}, Distance: canonical.DistanceValue{Exact: 100, IsExact: true}, Priority: canonical.PriorityCritical},
		{Kind: canonical.KindAlignedHorizontally, ObjectIDs: []string{"a", "b"}, Priority: canonical.PriorityLow},
	}

	solver := layout.New(time.Second)
	result, err := solver.Solve(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, layout.TierConstraint, result.Tier)

	a, _ := sc.ObjectByID("a")
	b, _ := sc.ObjectByID("b")
	dist := distance(a.Pos(), b.Pos())
	require.InDelta(t, 100, dist, 1.0)
}

func TestSolveDropsLowPriorityConstraintOnUnsat(t *testing.T) {
	sc := twoObjectScene()
	// A low-priority above and a low-priority below on the same pair contradict
	// each other: one of them must be dropped before the rest can be satisfied.
	sc.Constraints = []canonical.Constraint{
		{Kind: canonical.KindDistance, ObjectIDs: []string{"a", "b"}, Distance: canonical.DistanceValue{Exact: 300, IsExact: true}, Priority: canonical.PriorityCritical},
		{Kind: canonical.KindAbove, ObjectIDs: []string{"a", "b"}, MinGap: 10, Priority: canonical.PriorityLow},
		{Kind: canonical.KindBelow, ObjectIDs: []string{"a", "b"}, MinGap: 10, Priority: canonical.PriorityLow},
	}

	solver := layout.New(time.Second)
	result, err := solver.Solve(context.Background(), sc)
	require.NoError(t, err)
	require.NotEmpty(t, result.DroppedConstraints)
}

func TestSolveEmptySceneSucceedsTrivially(t *testing.T) {
	sc := &scene.Scene{Canvas: scene.DefaultCanvas()}
	solver := layout.New(time.Second)
	result, err := solver.Solve(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, layout.TierConstraint, result.Tier)
}

func TestSolveStackedHLineOrdersObjectsLeftToRight(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "a", Dimensions: scene.Dimensions{Width: 20, Height: 20}},
			{ID: "b", Dimensions: scene.Dimensions{Width: 20, Height: 20}},
			{ID: "c", Dimensions: scene.Dimensions{Width: 20, Height: 20}},
		},
		Constraints: []canonical.Constraint{
			{Kind: canonical.KindStackedH, ObjectIDs: []string{"a", "b", "c"}, Priority: canonical.PriorityHigh},
		},
	}

	solver := layout.New(time.Second)
	result, err := solver.Solve(context.Background(), sc)
	require.NoError(t, err)
	require.Contains(t, []layout.Tier{layout.TierConstraint, layout.TierSymbolic}, result.Tier)

	a, _ := sc.ObjectByID("a")
	b, _ := sc.ObjectByID("b")
	c, _ := sc.ObjectByID("c")
	require.Less(t, a.Pos().X, b.Pos().X)
	require.Less(t, b.Pos().X, c.Pos().X)
}

// TestSolveAlwaysPositionsEveryObject is a property test of the solver:
// for any constraint set built from the universal vocabulary over a handful
// of objects, Solve never panics and, on success, positions every object.
func TestSolveAlwaysPositionsEveryObject(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "n")
		sc := &scene.Scene{Canvas: scene.DefaultCanvas()}
		ids := make([]string, n)
		for i := 0; i < n; i++ {
			id := rapid.StringMatching(`[a-z][0-9]`).Draw(t, "id")
			ids[i] = id
			sc.Objects = append(sc.Objects, &scene.Object{
				ID:         id,
				Dimensions: scene.Dimensions{Width: float64(rapid.IntRange(10, 60).Draw(t, "w")), Height: float64(rapid.IntRange(10, 60).Draw(t, "h"))},
			})
		}
		if len(ids) >= 2 {
			kind := []canonical.Kind{canonical.KindAlignedHorizontally, canonical.KindNoOverlap, canonical.KindAdjacent}[rapid.IntRange(0, 2).Draw(t, "kind")]
			objIDs := ids[:2]
			if kind == canonical.KindNoOverlap {
				objIDs = ids
			}
			sc.Constraints = append(sc.Constraints, canonical.Constraint{
				Kind:      kind,
				ObjectIDs: objIDs,
				Priority:  canonical.PriorityHigh,
			})
		}

		solver := layout.New(200 * time.Millisecond)
		result, err := solver.Solve(context.Background(), sc)
		if err != nil {
			require.ErrorIs(t, err, layout.ErrUnsatisfiable)
			return
		}
		require.NotEmpty(t, result.Tier)
		require.True(t, sc.AllPositioned())
	})
}

func distance(a, b scene.Position) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Hypot(dx, dy)
}
