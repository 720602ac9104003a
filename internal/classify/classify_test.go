package classify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/classify"
	"github.com/diagramforge/core/internal/pgraph"
)

func TestClassifyDetectsElectronicsDomain(t *testing.T) {
	g := pgraph.New()
	g.AddNode("rule_triples", pgraph.Node{ID: "r1", Label: "resistor", Type: pgraph.NodeObject})
	g.AddNode("rule_triples", pgraph.Node{ID: "c1", Label: "capacitor", Type: pgraph.NodeObject})
	g.AddEdge("rule_triples", pgraph.Edge{Source: "r1", Target: "c1", Relation: "connects to"})

	spec := classify.Classify(g, "The resistor is connected to the capacitor in series with a 9V battery.")
	require.Equal(t, canonical.DomainElectronics, spec.Domain)
	require.Len(t, spec.Objects, 2)
	require.Len(t, spec.Relationships, 1)
}

func TestClassifyDropsMeasurementAndStopNodes(t *testing.T) {
	g := pgraph.New()
	g.AddNode("rule_triples", pgraph.Node{ID: "m1", Label: "12 mm", Type: pgraph.NodeQuantity})
	g.AddNode("rule_triples", pgraph.Node{ID: "and1", Label: "and", Type: pgraph.NodeOther})
	g.AddNode("rule_triples", pgraph.Node{ID: "block1", Label: "block", Type: pgraph.NodeObject})

	spec := classify.Classify(g, "a block resting on an incline")
	require.Len(t, spec.Objects, 1)
	require.Equal(t, "block1", spec.Objects[0].ID)
}

func TestStrategyPrefersConstraintBasedWhenConstraintsPresent(t *testing.T) {
	spec := canonical.CanonicalSpec{ComplexityScore: 0.1}
	require.Equal(t, canonical.StrategyConstraintBased, classify.Strategy(spec, true))
	require.Equal(t, canonical.StrategyHeuristic, classify.Strategy(spec, false))
}
