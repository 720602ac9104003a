package render

import (
	svg "github.com/ajstarks/svgo"

	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/scene"
)

// MoleculeRenderer draws chemistry scenes: atoms as labeled circles colored
// by element (reading from Properties["element"] when set) and sized by
// Dimensions.Radius (18 when unset), bonds as the
// shared connection-line drawer. Falls back to GenericRenderer for
// anything that isn't a circle-shaped atom.
type MoleculeRenderer struct{}

func (MoleculeRenderer) Render(sc *scene.Scene, primitives map[string]primitive.Entry) (string, error) {
	return render(sc, primitives, drawMoleculeSymbol)
}

func drawMoleculeSymbol(canvas *svg.SVG, sc *scene.Scene, o *scene.Object) {
	if o.PrimitiveType != "circle" {
		drawGeneric(canvas, sc, o)
		return
	}
	p := o.Pos()
	radius := int(o.Dimensions.Radius)
	if radius == 0 {
		radius = 18
	}
	fill := atomColor(o.Properties)
	canvas.Circle(int(p.X), int(p.Y), radius, "fill:"+fill+";stroke:#1a1a1a;stroke-width:1.5")

	if element, ok := o.Properties["element"].(string); ok && element != "" {
		canvas.Text(int(p.X), int(p.Y)+4, element, "text-anchor:middle;font-size:11px;font-weight:bold;fill:#1a1a1a")
	}
}

// atomColor follows the common CPK convention for the elements the
// stoichiometry validator already knows how to balance.
func atomColor(properties map[string]any) string {
	element, _ := properties["element"].(string)
	switch element {
	case "H":
		return "#ffffff"
	case "O":
		return "#ff4d4d"
	case "N":
		return "#4d79ff"
	case "C":
		return "#444444"
	default:
		return "#cccccc"
	}
}
