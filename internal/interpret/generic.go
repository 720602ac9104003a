package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// GenericInterpreter is the fallback for any domain without a dedicated
// interpreter (e.g. biology, other), and for Domain "other" entirely.
type GenericInterpreter struct{}

func (GenericInterpreter) Interpret(plan canonical.DiagramPlan) scene.Scene {
	s := baseScene(plan)
	addConnectionLines(&s, plan)
	return s
}
