package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// CircuitInterpreter handles electronics problems. Circuits imply a closed
// loop (§4.6): if no two-object constraint already links the first and last
// entity, this adds an adjacency constraint between them so the loop closes
// visually.
type CircuitInterpreter struct{}

func (CircuitInterpreter) Interpret(plan canonical.DiagramPlan) scene.Scene {
	s := baseScene(plan)
	addConnectionLines(&s, plan)

	if len(plan.Entities) >= 2 {
		first, last := plan.Entities[0].ID, plan.Entities[len(plan.Entities)-1].ID
		if first != last && !hasConstraintBetween(s.Constraints, first, last) {
			s.Constraints = append(s.Constraints, canonical.Constraint{
				Kind: canonical.KindAdjacent, ObjectIDs: []string{first, last},
				Priority: canonical.PriorityHigh, Weight: 0.7,
			})
		}
	}
	return s
}

func hasConstraintBetween(constraints []canonical.Constraint, a, b string) bool {
	for _, c := range constraints {
		if len(c.ObjectIDs) != 2 {
			continue
		}
		if (c.ObjectIDs[0] == a && c.ObjectIDs[1] == b) || (c.ObjectIDs[0] == b && c.ObjectIDs[1] == a) {
			return true
		}
	}
	return false
}
