// Package interpret implements the Domain Interpreters: one per domain,
// translating a DiagramPlan into an unpositioned Scene. Grounded on the
// teacher's per-domain-strategy dispatch idiom (a small registry keyed by a
// string enum, same shape as internal/brain's action-kind switch).
package interpret

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// Interpreter converts a DiagramPlan into an unpositioned Scene. It MUST NOT
// compute pixel coordinates (§4.7) — every produced Object has no Position
// set; the Layout Solver fills that in later.
type Interpreter interface {
	Interpret(plan canonical.DiagramPlan) scene.Scene
}

// registry maps a Domain to its interpreter. Generic handles every domain
// without a dedicated entry, per §4.7's "one per domain ... generic" list.
var registry = map[canonical.Domain]Interpreter{
	canonical.DomainElectronics: CircuitInterpreter{},
	canonical.DomainMechanics:   MechanicsInterpreter{},
	canonical.DomainOptics:      OpticsInterpreter{},
	canonical.DomainThermo:      ThermoInterpreter{},
	canonical.DomainChemistry:   ChemistryInterpreter{},
	canonical.DomainGeometry:    GeometryInterpreter{},
}

// For selects the interpreter for a domain, falling back to Generic.
func For(domain canonical.Domain) Interpreter {
	if i, ok := registry[domain]; ok {
		return i
	}
	return GenericInterpreter{}
}

// baseScene builds the common skeleton every interpreter starts from: one
// scene.Object per plan entity (unpositioned), with dimensions/style/layer
// assigned from the plan's style hints, plus the plan's global constraints
// copied verbatim.
func baseScene(plan canonical.DiagramPlan) scene.Scene {
	s := scene.Scene{
		Canvas:      scene.DefaultCanvas(),
		Constraints: append([]canonical.Constraint(nil), plan.GlobalConstraints...),
	}
	for _, e := range plan.Entities {
		hint, _ := e.Properties["primitive_hint"].(string)
		obj := &scene.Object{
			ID:            e.ID,
			PrimitiveType: primitiveTypeFor(hint),
			Dimensions:    dimensionsFor(hint),
			Properties:    e.Properties,
			Layer:         layerFor(plan.StyleHints[e.ID].Layer),
		}
		if sh, ok := plan.StyleHints[e.ID]; ok {
			obj.Style = scene.Style{Fill: sh.Fill, Stroke: sh.Stroke, Width: 1.5}
		}
		s.Objects = append(s.Objects, obj)
	}
	return s
}

func primitiveTypeFor(hint string) string {
	switch hint {
	case "":
		return "rectangle"
	case "generic_shape":
		return "rectangle"
	case "label_only":
		return "text"
	default:
		return hint
	}
}

func dimensionsFor(hint string) scene.Dimensions {
	switch hint {
	case "resistor":
		return scene.Dimensions{Width: 40, Height: 16}
	case "capacitor":
		return scene.Dimensions{Width: 6, Height: 30}
	case "battery":
		return scene.Dimensions{Width: 10, Height: 36}
	case "lens", "mirror":
		return scene.Dimensions{Width: 8, Height: 60}
	case "spring":
		return scene.Dimensions{Width: 60, Height: 16}
	case "label_only":
		return scene.Dimensions{Width: 48, Height: 14}
	default:
		return scene.Dimensions{Width: 36, Height: 36}
	}
}

func layerFor(hint string) scene.Layer {
	switch hint {
	case "labels":
		return scene.LayerLabels
	case "lines":
		return scene.LayerLines
	case "annotations":
		return scene.LayerAnnotations
	case "background":
		return scene.LayerBackground
	default:
		return scene.LayerShapes
	}
}

// addConnectionLines appends a "line" object between every connects_to /
// acts_on relation pair, targeting the second endpoint for the renderer's
// z-order (lines sit above shapes, below labels).
func addConnectionLines(s *scene.Scene, plan canonical.DiagramPlan) {
	for i, r := range plan.Relations {
		if r.Kind != "connects_to" && r.Kind != "acts_on" {
			continue
		}
		s.Objects = append(s.Objects, &scene.Object{
			ID:            "line-" + r.SubjectID + "-" + r.TargetID + "-" + itoa(i),
			PrimitiveType: "line",
			Dimensions:    scene.Dimensions{},
			Properties: map[string]any{
				"from": r.SubjectID, "to": r.TargetID, "relation_kind": r.Kind,
			},
			Style: scene.Style{Stroke: "#333333", Width: 1.5},
			Layer: scene.LayerLines,
		})
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
