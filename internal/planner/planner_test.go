package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/planner"
)

func TestPlanProducesEntitiesAndStyles(t *testing.T) {
	spec := canonical.CanonicalSpec{
		Domain: canonical.DomainElectronics,
		Objects: []canonical.Object{
			{ID: "r1", Type: "Object", Properties: map[string]any{"label": "resistor"}},
			{ID: "c1", Type: "Object", Properties: map[string]any{"label": "capacitor"}},
		},
		Relationships: []canonical.Relationship{
			{SubjectID: "r1", Relation: "connects to", TargetID: "c1"},
		},
	}

	plan := planner.Plan(spec)
	require.Len(t, plan.Entities, 2)
	require.Len(t, plan.Relations, 1)
	require.Equal(t, "connects_to", plan.Relations[0].Kind)
	require.NotEmpty(t, plan.StyleHints)
	require.NotEmpty(t, plan.GlobalConstraints)
}

func TestPlanOfEmptySpecHasNoEntitiesOrRelations(t *testing.T) {
	spec := canonical.CanonicalSpec{Domain: canonical.DomainOther}
	plan := planner.Plan(spec)
	require.Empty(t, plan.Entities)
	require.Empty(t, plan.Relations)
	require.NotNil(t, plan.StyleHints)
}
