package label_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/label"
	"github.com/diagramforge/core/internal/scene"
)

func positionedScene() *scene.Scene {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "r1", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 40}},
			{ID: "label_r1", PrimitiveType: "text", TargetObject: "r1", Text: "R1", Dimensions: scene.Dimensions{Width: 30, Height: 14}},
		},
	}
	sc.Objects[0].SetPos(scene.Position{X: 200, Y: 200, Anchor: scene.AnchorCenter})
	return sc
}

func TestPlaceAssignsEveryLabelAPosition(t *testing.T) {
	sc := positionedScene()
	label.Place(sc, canonical.DomainElectronics)

	lbl, ok := sc.ObjectByID("label_r1")
	require.True(t, ok)
	require.True(t, lbl.HasPosition())
}

func TestPlacePrefersNonOverlappingCandidate(t *testing.T) {
	sc := positionedScene()
	// Crowd every direction except "right" with obstacles so the placer is
	// forced to pick it.
	obstacles := []string{"above", "below", "left", "above_right", "above_left", "below_right", "below_left"}
	target, _ := sc.ObjectByID("r1")
	offsets := map[string][2]float64{
		"above":       {0, -1},
		"below":       {0, 1},
		"left":        {-1, 0},
		"above_right": {1, -1},
		"above_left":  {-1, -1},
		"below_right": {1, 1},
		"below_left":  {-1, 1},
	}
	for i, name := range obstacles {
		off := offsets[name]
		o := &scene.Object{
			ID:            "obstacle_" + name,
			PrimitiveType: "rectangle",
			Dimensions:    scene.Dimensions{Width: 80, Height: 80},
		}
		o.SetPos(scene.Position{
			X:      target.Pos().X + off[0]*50,
			Y:      target.Pos().Y + off[1]*50,
			Anchor: scene.AnchorCenter,
		})
		sc.Objects = append(sc.Objects, o)
		_ = i
	}

	label.Place(sc, canonical.DomainElectronics)
	lbl, _ := sc.ObjectByID("label_r1")
	require.True(t, lbl.HasPosition())
	require.Greater(t, lbl.Pos().X, target.Pos().X)
}

func TestPlaceSkipsLabelWithUnpositionedTarget(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "r1", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 40}},
			{ID: "label_r1", PrimitiveType: "text", TargetObject: "r1", Text: "R1"},
		},
	}
	label.Place(sc, canonical.DomainOther)

	lbl, _ := sc.ObjectByID("label_r1")
	require.False(t, lbl.HasPosition())
}

func TestPlaceIsDeterministicAcrossRuns(t *testing.T) {
	sc1 := positionedScene()
	sc2 := positionedScene()
	label.Place(sc1, canonical.DomainMechanics)
	label.Place(sc2, canonical.DomainMechanics)

	l1, _ := sc1.ObjectByID("label_r1")
	l2, _ := sc2.ObjectByID("label_r1")
	require.Equal(t, l1.Pos(), l2.Pos())
}
