package interpret_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/interpret"
)

func plan() canonical.DiagramPlan {
	return canonical.DiagramPlan{
		Entities: []canonical.Object{
			{ID: "r1", Properties: map[string]any{"primitive_hint": "resistor"}},
			{ID: "c1", Properties: map[string]any{"primitive_hint": "capacitor"}},
		},
		Relations: []canonical.Relation{{SubjectID: "r1", Kind: "connects_to", TargetID: "c1"}},
		StyleHints: map[string]canonical.StyleHint{
			"r1": {Fill: "none", Stroke: "#222", Layer: "shapes"},
			"c1": {Fill: "none", Stroke: "#222", Layer: "shapes"},
		},
	}
}

func TestCircuitInterpreterProducesUnpositionedScene(t *testing.T) {
	s := interpret.For(canonical.DomainElectronics).Interpret(plan())
	require.Len(t, s.Objects, 3) // 2 entities + 1 connection line
	for _, o := range s.Objects {
		require.False(t, o.HasPosition())
	}
	require.NotEmpty(t, s.Constraints)
}

func TestForFallsBackToGeneric(t *testing.T) {
	i := interpret.For(canonical.DomainBiology)
	require.IsType(t, interpret.GenericInterpreter{}, i)
}
