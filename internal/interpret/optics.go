package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// OpticsInterpreter handles lens/mirror problems: every entity is aligned
// along a shared optical axis, since that's the defining visual convention
// of a ray diagram.
type OpticsInterpreter struct{}

func (OpticsInterpreter) Interpret(plan canonical.DiagramPlan) scene.Scene {
	s := baseScene(plan)
	addConnectionLines(&s, plan)

	if len(plan.Entities) >= 2 {
		ids := make([]string, 0, len(plan.Entities))
		for _, e := range plan.Entities {
			ids = append(ids, e.ID)
		}
		s.Constraints = append(s.Constraints, canonical.Constraint{
			Kind: canonical.KindAlignedHorizontally, ObjectIDs: ids,
			Priority: canonical.PriorityCritical, Weight: 1.0,
		})
	}
	return s
}
