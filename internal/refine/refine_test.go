package refine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/layout"
	"github.com/diagramforge/core/internal/refine"
	"github.com/diagramforge/core/internal/scene"
)

func overlappingScene() *scene.Scene {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "a", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 40}},
			{ID: "b", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 40}},
		},
	}
	sc.Objects[0].SetPos(scene.Position{X: 100, Y: 100, Anchor: scene.AnchorCenter})
	sc.Objects[1].SetPos(scene.Position{X: 110, Y: 100, Anchor: scene.AnchorCenter})
	return sc
}

func TestLoopImprovesScoreByNudgingOverlapApart(t *testing.T) {
	sc := overlappingScene()
	solver := layout.New(time.Second)

	result := refine.Loop(context.Background(), sc, canonical.DomainOther, solver, refine.DefaultMaxIterations, refine.DefaultTargetScore)

	require.Greater(t, result.Iterations, 0)
	require.NotEmpty(t, result.AppliedFixes)

	a, _ := sc.ObjectByID("a")
	b, _ := sc.ObjectByID("b")
	dx := a.Pos().X - b.Pos().X
	require.Greater(t, dx*dx, 100.0)
}

func TestLoopStopsImmediatelyWhenAlreadyAboveTarget(t *testing.T) {
	sc := &scene.Scene{Canvas: scene.DefaultCanvas()}
	solver := layout.New(time.Second)

	result := refine.Loop(context.Background(), sc, canonical.DomainOther, solver, refine.DefaultMaxIterations, refine.DefaultTargetScore)

	require.Equal(t, 0, result.Iterations)
	require.Equal(t, 100.0, result.FinalScore)
}

func TestLoopGrowsCanvasForOutOfBoundsObject(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "a", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 40}},
		},
	}
	sc.Objects[0].SetPos(scene.Position{X: sc.Canvas.Width + 100, Y: 100, Anchor: scene.AnchorCenter})
	solver := layout.New(time.Second)

	result := refine.Loop(context.Background(), sc, canonical.DomainOther, solver, refine.DefaultMaxIterations, refine.DefaultTargetScore)

	require.NotEmpty(t, result.AppliedFixes)
	require.GreaterOrEqual(t, sc.Canvas.Width, sc.Objects[0].Pos().X+20)
}
