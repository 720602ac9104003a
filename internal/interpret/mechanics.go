package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// MechanicsInterpreter handles forces/motion problems: objects connected by
// an "acts_on" relation (e.g. a block acted on by a force) get a `stacked_v`
// constraint so the acting object renders above the acted-upon one, and an
// adjacency so they stay visually linked.
type MechanicsInterpreter struct{}

func (MechanicsInterpreter) Interpret(plan canonical.DiagramPlan) scene.Scene {
	s := baseScene(plan)
	addConnectionLines(&s, plan)

	for _, r := range plan.Relations {
		if r.Kind != "acts_on" {
			continue
		}
		s.Constraints = append(s.Constraints,
			canonical.Constraint{Kind: canonical.KindStackedV, ObjectIDs: []string{r.SubjectID, r.TargetID},
				Priority: canonical.PriorityHigh, Weight: 0.8},
			canonical.Constraint{Kind: canonical.KindAdjacent, ObjectIDs: []string{r.SubjectID, r.TargetID},
				Priority: canonical.PriorityLow, Weight: 0.4},
		)
	}
	return s
}
