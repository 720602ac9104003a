package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// ChemistryInterpreter handles molecule/reaction problems: "part_of"-derived
// bonds (mapped to adjacent_to by the planner's RelationMapper) become
// distance constraints with an 8–24 px range so bonded atoms render close
// together, matching a skeletal structural-formula convention.
type ChemistryInterpreter struct{}

func (ChemistryInterpreter) Interpret(plan canonical.DiagramPlan) scene.Scene {
	s := baseScene(plan)
	addConnectionLines(&s, plan)

	for _, r := range plan.Relations {
		if r.Kind != "adjacent_to" {
			continue
		}
		s.Constraints = append(s.Constraints, canonical.Constraint{
			Kind: canonical.KindDistance, ObjectIDs: []string{r.SubjectID, r.TargetID},
			Distance: canonical.DistanceValue{Min: 8, Max: 24},
			Priority: canonical.PriorityHigh, Weight: 0.7,
		})
	}
	return s
}
