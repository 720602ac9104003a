package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
	"github.com/diagramforge/core/internal/validate"
)

func rect(id string, x, y, w, h float64) *scene.Object {
	o := &scene.Object{ID: id, PrimitiveType: "rectangle", Dimensions: scene.Dimensions{Width: w, Height: h}}
	o.SetPos(scene.Position{X: x, Y: y, Anchor: scene.AnchorCenter})
	return o
}

func TestValidateFlagsUndeclaredOverlap(t *testing.T) {
	sc := &scene.Scene{
		Canvas:  scene.DefaultCanvas(),
		Objects: []*scene.Object{rect("a", 100, 100, 40, 40), rect("b", 110, 100, 40, 40)},
	}
	report := validate.Validate(sc, canonical.DomainOther)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "spatial_overlap" {
			found = true
		}
	}
	require.True(t, found)
	require.Less(t, report.Score, 100.0)
}

func TestValidateAllowsDeclaredContainmentOverlap(t *testing.T) {
	sc := &scene.Scene{
		Canvas:  scene.DefaultCanvas(),
		Objects: []*scene.Object{rect("inner", 100, 100, 20, 20), rect("outer", 100, 100, 80, 80)},
		Constraints: []canonical.Constraint{
			{Kind: canonical.KindContainment, ObjectIDs: []string{"inner", "outer"}},
		},
	}
	report := validate.Validate(sc, canonical.DomainOther)
	for _, f := range report.Findings {
		require.NotEqual(t, "spatial_overlap", f.Category)
	}
}

func TestValidateFlagsOutOfBounds(t *testing.T) {
	sc := &scene.Scene{
		Canvas:  scene.DefaultCanvas(),
		Objects: []*scene.Object{rect("a", -10, 10, 40, 40)},
	}
	report := validate.Validate(sc, canonical.DomainOther)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "out_of_bounds" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateFlagsOpenCircuitLoop(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "bat1", Properties: map[string]any{"primitive_hint": "battery"}},
			{ID: "r1", Properties: map[string]any{"primitive_hint": "resistor"}},
			{ID: "line-1", PrimitiveType: "line", Properties: map[string]any{"from": "bat1", "to": "r1", "relation_kind": "connects_to"}},
		},
	}
	report := validate.Validate(sc, canonical.DomainElectronics)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "circuit_kirchhoff_loop" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidatePassesClosedCircuitLoop(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "bat1", Properties: map[string]any{"primitive_hint": "battery"}},
			{ID: "r1", Properties: map[string]any{"primitive_hint": "resistor"}},
			{ID: "line-1", PrimitiveType: "line", Properties: map[string]any{"from": "bat1", "to": "r1", "relation_kind": "connects_to"}},
			{ID: "line-2", PrimitiveType: "line", Properties: map[string]any{"from": "r1", "to": "bat1", "relation_kind": "connects_to"}},
		},
	}
	report := validate.Validate(sc, canonical.DomainElectronics)
	for _, f := range report.Findings {
		require.NotEqual(t, "circuit_kirchhoff_loop", f.Category)
	}
}

func TestValidateFlagsForceImbalance(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "f1", Properties: map[string]any{"force_x": 10.0, "force_y": 0.0}},
			{ID: "f2", Properties: map[string]any{"force_x": 0.0, "force_y": 0.0}},
		},
	}
	report := validate.Validate(sc, canonical.DomainMechanics)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "mechanics_force_equilibrium" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateFlagsUnbalancedStoichiometry(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "h2", Properties: map[string]any{"side": "reactant", "coefficient": 2.0, "element_counts": map[string]float64{"H": 2}}},
			{ID: "o2", Properties: map[string]any{"side": "reactant", "coefficient": 1.0, "element_counts": map[string]float64{"O": 2}}},
			{ID: "h2o", Properties: map[string]any{"side": "product", "coefficient": 1.0, "element_counts": map[string]float64{"H": 2, "O": 1}}},
		},
	}
	report := validate.Validate(sc, canonical.DomainChemistry)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "chemistry_stoichiometry" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateLensEquationWithinTolerancePasses(t *testing.T) {
	sc := &scene.Scene{
		Canvas: scene.DefaultCanvas(),
		Objects: []*scene.Object{
			{ID: "lens1", Properties: map[string]any{"focal_length": 10.0, "object_distance": 20.0, "image_distance": 20.0}},
		},
	}
	report := validate.Validate(sc, canonical.DomainOptics)
	for _, f := range report.Findings {
		require.NotEqual(t, "optics_lens_equation", f.Category)
	}
}
