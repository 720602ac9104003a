package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/render"
	"github.com/diagramforge/core/internal/scene"
)

func basicScene() *scene.Scene {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "r1", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 40, Height: 20}, Properties: map[string]any{"primitive_hint": "resistor"}},
			{ID: "label_r1", PrimitiveType: "text", Text: "R1", TargetObject: "r1"},
		},
	}
	sc.Objects[0].SetPos(scene.Position{X: 100, Y: 100, Anchor: scene.AnchorCenter})
	sc.Objects[1].SetPos(scene.Position{X: 100, Y: 70, Anchor: scene.AnchorCenter})
	return sc
}

func TestGenericRendererProducesValidSVGEnvelope(t *testing.T) {
	sc := basicScene()
	out, err := render.New(canonical.DomainOther).Render(sc, nil)
	require.NoError(t, err)
	require.Contains(t, out, "<svg")
	require.Contains(t, out, "</svg>")
	require.Contains(t, out, "R1")
}

func TestCircuitRendererDrawsResistorZigzag(t *testing.T) {
	sc := basicScene()
	out, err := render.New(canonical.DomainElectronics).Render(sc, nil)
	require.NoError(t, err)
	require.Contains(t, out, "polyline")
}

func TestRenderSplicesStoredPrimitiveFragment(t *testing.T) {
	sc := basicScene()
	primitives := map[string]primitive.Entry{
		"resistor": {SVGFragment: "<rect class=\"stored-fragment\" width=\"1\" height=\"1\"/>"},
	}
	out, err := render.New(canonical.DomainElectronics).Render(sc, primitives)
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "stored-fragment"))
}

func TestRenderSkipsUnpositionedShapeButDrawsConnectionLineBetweenPositionedEndpoints(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "a", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 20, Height: 20}},
			{ID: "b", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 20, Height: 20}},
			{ID: "line-1", PrimitiveType: "line", Properties: map[string]any{"from": "a", "to": "b"}},
			{ID: "unsolved", PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: 20, Height: 20}},
		},
	}
	sc.Objects[0].SetPos(scene.Position{X: 50, Y: 50, Anchor: scene.AnchorCenter})
	sc.Objects[1].SetPos(scene.Position{X: 150, Y: 50, Anchor: scene.AnchorCenter})

	out, err := render.New(canonical.DomainOther).Render(sc, nil)
	require.NoError(t, err)
	require.Contains(t, out, "line")
}
