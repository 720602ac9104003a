package render

import (
	"fmt"

	svg "github.com/ajstarks/svgo"

	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/scene"
)

// CircuitRenderer draws the same contract as GenericRenderer but with
// schematic symbols (zigzag resistor, parallel-plate capacitor, long/short
// battery bars) for objects the Primitive Library doesn't already cover.
type CircuitRenderer struct{}

func (CircuitRenderer) Render(sc *scene.Scene, primitives map[string]primitive.Entry) (string, error) {
	return render(sc, primitives, drawCircuitSymbol)
}

func drawCircuitSymbol(canvas *svg.SVG, sc *scene.Scene, o *scene.Object) {
	hint, _ := o.Properties["primitive_hint"].(string)
	switch hint {
	case "resistor":
		drawResistor(canvas, o)
	case "capacitor":
		drawCapacitor(canvas, o)
	case "battery":
		drawBattery(canvas, o)
	default:
		drawGeneric(canvas, sc, o)
	}
}

// drawResistor draws the standard zigzag symbol centered on the object's
// solved position, sized to its Dimensions footprint.
func drawResistor(canvas *svg.SVG, o *scene.Object) {
	p := o.Pos()
	w, h := o.Dimensions.Width, o.Dimensions.Height
	left := p.X - w/2
	step := w / 6
	xs := []int{}
	ys := []int{}
	for i := 0; i <= 6; i++ {
		x := left + step*float64(i)
		y := p.Y
		if i != 0 && i != 6 {
			if i%2 == 1 {
				y -= h / 2
			} else {
				y += h / 2
			}
		}
		xs = append(xs, int(x))
		ys = append(ys, int(y))
	}
	canvas.Polyline(xs, ys, "fill:none;"+lineStroke(o.Style))
}

// drawCapacitor draws two parallel plates.
func drawCapacitor(canvas *svg.SVG, o *scene.Object) {
	p := o.Pos()
	w, h := o.Dimensions.Width, o.Dimensions.Height
	stroke := lineStroke(o.Style)
	canvas.Line(int(p.X-w/2), int(p.Y-h/2), int(p.X-w/2), int(p.Y+h/2), stroke)
	canvas.Line(int(p.X+w/2), int(p.Y-h/2), int(p.X+w/2), int(p.Y+h/2), stroke)
}

// drawBattery draws the long-bar/short-bar cell symbol.
func drawBattery(canvas *svg.SVG, o *scene.Object) {
	p := o.Pos()
	w, h := o.Dimensions.Width, o.Dimensions.Height
	stroke := lineStroke(o.Style)
	canvas.Line(int(p.X-w/2), int(p.Y-h/2), int(p.X-w/2), int(p.Y+h/2), stroke)
	shortW := w / 3
	canvas.Line(int(p.X+w/2-shortW), int(p.Y-h/4), int(p.X+w/2-shortW), int(p.Y+h/4),
		fmt.Sprintf("%s;stroke-width:3", stroke))
}

func lineStroke(s scene.Style) string {
	stroke := s.Stroke
	if stroke == "" {
		stroke = "#1a1a1a"
	}
	width := s.Width
	if width == 0 {
		width = 1.5
	}
	return fmt.Sprintf("stroke:%s;stroke-width:%g", stroke, width)
}
