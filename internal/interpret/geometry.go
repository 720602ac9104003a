package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// GeometryInterpreter handles shape/angle/coordinate problems. No extra
// domain rule applies beyond the planner's own constraint set: geometry
// problems encode their spatial relationships directly as constraints
// (aligned_*, distance, between) rather than implying them from relations.
type GeometryInterpreter struct{}

func (GeometryInterpreter) Interpret(plan canonical.DiagramPlan) scene.Scene {
	s := baseScene(plan)
	addConnectionLines(&s, plan)
	return s
}
