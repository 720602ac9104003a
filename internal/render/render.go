// Package render implements the Renderer boundary (SPEC_FULL.md §4.14):
// Render(scene, primitives?) (string, error), drawing with
// github.com/ajstarks/svgo the way dungo's pkg/export/svg.go draws its
// dungeon graphs — sorted-id iteration for determinism, a style string
// per element, shapes before lines before labels. Domain-specific
// renderers (circuit, molecule) satisfy the same Renderer interface,
// delegating to the shared shape-drawing helpers here and only
// overriding the symbols that need a domain-specific look.
package render

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	svg "github.com/ajstarks/svgo"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/primitive"
	"github.com/diagramforge/core/internal/scene"
)

// Renderer is the contract every domain rendering strategy satisfies.
type Renderer interface {
	Render(sc *scene.Scene, primitives map[string]primitive.Entry) (string, error)
}

// New returns the Renderer for domain, falling back to GenericRenderer for
// domains with no specialized symbol set.
func New(domain canonical.Domain) Renderer {
	switch domain {
	case canonical.DomainElectronics:
		return CircuitRenderer{}
	case canonical.DomainChemistry:
		return MoleculeRenderer{}
	default:
		return GenericRenderer{}
	}
}

// GenericRenderer draws every primitive type with its built-in shape,
// splicing in a stored fragment wherever the caller supplied one.
type GenericRenderer struct{}

func (GenericRenderer) Render(sc *scene.Scene, primitives map[string]primitive.Entry) (string, error) {
	return render(sc, primitives, drawGeneric)
}

// shapeDrawer draws one object's built-in symbol (used only when no
// primitive-library fragment covers it). It receives the whole scene
// because connection lines resolve their endpoints from other objects'
// solved positions rather than carrying their own.
type shapeDrawer func(canvas *svg.SVG, sc *scene.Scene, o *scene.Object)

// render is the shared draw loop every Renderer in this package runs:
// sort objects by layer (ties by id, for determinism), then for each
// object either splice its stored fragment or fall back to draw.
func render(sc *scene.Scene, primitives map[string]primitive.Entry, draw shapeDrawer) (string, error) {
	if sc == nil {
		return "", fmt.Errorf("render: nil scene")
	}

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(int(sc.Canvas.Width), int(sc.Canvas.Height))
	canvas.Rect(0, 0, int(sc.Canvas.Width), int(sc.Canvas.Height), "fill:#ffffff")

	for _, o := range sortedByLayer(sc.Objects) {
		if o.PrimitiveType != "line" && o.PrimitiveType != "arrow" && !o.HasPosition() {
			continue // a validator finding, not a renderer concern; skip rather than guess
		}
		if o.HasPosition() {
			if frag, ok := fragmentFor(o, primitives); ok {
				spliceFragment(canvas, o, frag)
				continue
			}
		}
		draw(canvas, sc, o)
	}

	canvas.End()
	return buf.String(), nil
}

// sortedByLayer returns objects ordered background-to-foreground, with a
// stable id tie-break so output is reproducible across runs (§4.14:
// "sort objects by layer before emission").
func sortedByLayer(objects []*scene.Object) []*scene.Object {
	out := append([]*scene.Object(nil), objects...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// fragmentFor looks up a stored primitive fragment for o's primitive_hint
// (the same category key the Domain Interpreters set and the Primitive
// Library queries on).
func fragmentFor(o *scene.Object, primitives map[string]primitive.Entry) (primitive.Entry, bool) {
	if primitives == nil {
		return primitive.Entry{}, false
	}
	hint, _ := o.Properties["primitive_hint"].(string)
	if hint == "" {
		return primitive.Entry{}, false
	}
	e, ok := primitives[hint]
	return e, ok
}

// spliceFragment positions a stored SVG fragment at o's solved center by
// wrapping it in a translated <g>.
func spliceFragment(canvas *svg.SVG, o *scene.Object, e primitive.Entry) {
	p := o.Pos()
	fmt.Fprintf(canvas.Writer, "<g transform=\"translate(%g,%g) rotate(%g)\">%s</g>\n",
		p.X, p.Y, p.Rotation, e.SVGFragment)
}

// drawGeneric draws an object's built-in symbol: shapes read their
// footprint from Dimensions (§4.14: never from Position).
func drawGeneric(canvas *svg.SVG, sc *scene.Scene, o *scene.Object) {
	style := styleString(o.Style)

	switch o.PrimitiveType {
	case "rectangle":
		p := o.Pos()
		w, h := o.Dimensions.Width, o.Dimensions.Height
		canvas.Rect(int(p.X-w/2), int(p.Y-h/2), int(w), int(h), style)
	case "circle":
		p := o.Pos()
		canvas.Circle(int(p.X), int(p.Y), int(o.Dimensions.Radius), style)
	case "line", "arrow":
		drawConnectionLine(canvas, sc, o, style)
	case "text":
		p := o.Pos()
		canvas.Text(int(p.X), int(p.Y), o.Text, textStyle(o.Style))
	default:
		p := o.Pos()
		w, h := o.Dimensions.Width, o.Dimensions.Height
		canvas.Rect(int(p.X-w/2), int(p.Y-h/2), int(w), int(h), style)
	}
}

// drawConnectionLine draws a "line"/"arrow" object between the two
// endpoints named in its own Properties (set by
// internal/interpret's addConnectionLines as "from"/"to"), resolved
// against the endpoints' own solved positions — a connection object
// carries no independent position of its own.
func drawConnectionLine(canvas *svg.SVG, sc *scene.Scene, o *scene.Object, style string) {
	fromID, _ := o.Properties["from"].(string)
	toID, _ := o.Properties["to"].(string)
	from, ok1 := sc.ObjectByID(fromID)
	to, ok2 := sc.ObjectByID(toID)
	if !ok1 || !ok2 || !from.HasPosition() || !to.HasPosition() {
		return // endpoint missing or unsolved; nothing sensible to draw
	}
	fp, tp := from.Pos(), to.Pos()
	canvas.Line(int(fp.X), int(fp.Y), int(tp.X), int(tp.Y), style)
	if o.PrimitiveType == "arrow" {
		drawArrowhead(canvas, fp, tp, o.Style)
	}
}

// drawArrowhead draws a small filled triangle at the line's midpoint
// pointing from `from` toward `to`, matching dungo's drawArrow technique.
func drawArrowhead(canvas *svg.SVG, from, to scene.Position, style scene.Style) {
	midX, midY := (from.X+to.X)/2, (from.Y+to.Y)/2
	dx, dy := to.X-from.X, to.Y-from.Y
	angle := math.Atan2(dy, dx)
	const size = 8.0
	tipX, tipY := midX+size*math.Cos(angle), midY+size*math.Sin(angle)
	leftX, leftY := midX+size*math.Cos(angle+2.8), midY+size*math.Sin(angle+2.8)
	rightX, rightY := midX+size*math.Cos(angle-2.8), midY+size*math.Sin(angle-2.8)

	fill := style.Stroke
	if fill == "" {
		fill = "#333333"
	}
	canvas.Polygon(
		[]int{int(tipX), int(leftX), int(rightX)},
		[]int{int(tipY), int(leftY), int(rightY)},
		"fill:"+fill,
	)
}

func styleString(s scene.Style) string {
	out := ""
	if s.Fill != "" {
		out += "fill:" + s.Fill + ";"
	} else {
		out += "fill:none;"
	}
	if s.Stroke != "" {
		out += "stroke:" + s.Stroke + ";"
	}
	if s.Width > 0 {
		out += fmt.Sprintf("stroke-width:%g;", s.Width)
	}
	return out
}

func textStyle(s scene.Style) string {
	fill := s.Fill
	if fill == "" {
		fill = "#1a1a1a"
	}
	return fmt.Sprintf("text-anchor:middle;font-size:12px;font-family:sans-serif;fill:%s", fill)
}
