package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// ThermoInterpreter handles heat/pressure/gas problems: an "inside" relation
// (e.g. gas inside a cylinder) becomes a containment constraint.
type ThermoInterpreter struct{}

func (ThermoInterpreter) Interpret(plan canonical.DiagramPlan) scene.Scene {
	s := baseScene(plan)
	addConnectionLines(&s, plan)

	for _, r := range plan.Relations {
		if r.Kind != "inside" {
			continue
		}
		s.Constraints = append(s.Constraints, canonical.Constraint{
			Kind: canonical.KindContainment, ObjectIDs: []string{r.SubjectID, r.TargetID},
			Priority: canonical.PriorityCritical, Weight: 1.0,
		})
	}
	return s
}
