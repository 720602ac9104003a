package validate

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// checkOverlaps flags any pair of positioned, non-text objects whose
// bounding boxes intersect, unless that pair is declared containment or
// adjacent (§4.11: "allowed only under a declared containment/adjacent").
func checkOverlaps(sc *scene.Scene) []Finding {
	allowed := allowedOverlapPairs(sc.Constraints)
	var findings []Finding
	objs := positionedShapes(sc)
	for i := 0; i < len(objs); i++ {
		for j := i + 1; j < len(objs); j++ {
			a, b := objs[i], objs[j]
			if allowed[pairKey(a.ID, b.ID)] {
				continue
			}
			if !rectsOverlap(a, b) {
				continue
			}
			findings = append(findings, Finding{
				Category:    "spatial_overlap",
				Severity:    SeverityMajor,
				ObjectIDs:   []string{a.ID, b.ID},
				Message:     "objects " + a.ID + " and " + b.ID + " overlap without a declared containment/adjacent relationship",
				AutoFixHint: "nudge_apart",
			})
		}
	}
	return findings
}

// checkBounds flags any positioned object that extends outside the
// canvas.
func checkBounds(sc *scene.Scene) []Finding {
	var findings []Finding
	for _, o := range sc.Objects {
		if !o.HasPosition() {
			continue
		}
		p := o.Pos()
		w, h := dimsOf(o)
		if p.X-w/2 < 0 || p.X+w/2 > sc.Canvas.Width || p.Y-h/2 < 0 || p.Y+h/2 > sc.Canvas.Height {
			findings = append(findings, Finding{
				Category:    "out_of_bounds",
				Severity:    SeverityMajor,
				ObjectIDs:   []string{o.ID},
				Message:     "object " + o.ID + " extends outside the canvas",
				AutoFixHint: "grow_canvas",
			})
		}
	}
	return findings
}

// checkZOrder flags a containment violation where the contained object is
// not layered above its container, which would make it render behind a
// shape that should visually sit inside it.
func checkZOrder(sc *scene.Scene) []Finding {
	var findings []Finding
	for _, c := range sc.Constraints {
		if c.Kind != canonical.KindContainment || len(c.ObjectIDs) < 2 {
			continue
		}
		inner, ok1 := sc.ObjectByID(c.ObjectIDs[0])
		outer, ok2 := sc.ObjectByID(c.ObjectIDs[1])
		if !ok1 || !ok2 {
			continue
		}
		if inner.Layer < outer.Layer {
			findings = append(findings, Finding{
				Category:    "z_order",
				Severity:    SeverityMinor,
				ObjectIDs:   []string{inner.ID, outer.ID},
				Message:     "contained object " + inner.ID + " renders behind its container " + outer.ID,
				AutoFixHint: "raise_layer",
			})
		}
	}
	return findings
}

func positionedShapes(sc *scene.Scene) []*scene.Object {
	var out []*scene.Object
	for _, o := range sc.Objects {
		if o.HasPosition() && o.PrimitiveType != "text" && o.PrimitiveType != "line" {
			out = append(out, o)
		}
	}
	return out
}

func rectsOverlap(a, b *scene.Object) bool {
	ap, bp := a.Pos(), b.Pos()
	aw, ah := dimsOf(a)
	bw, bh := dimsOf(b)
	ax1, ax2 := ap.X-aw/2, ap.X+aw/2
	ay1, ay2 := ap.Y-ah/2, ap.Y+ah/2
	bx1, bx2 := bp.X-bw/2, bp.X+bw/2
	by1, by2 := bp.Y-bh/2, bp.Y+bh/2
	return ax1 < bx2 && bx1 < ax2 && ay1 < by2 && by1 < ay2
}

func dimsOf(o *scene.Object) (float64, float64) {
	if o.Dimensions.Radius > 0 {
		return o.Dimensions.Radius * 2, o.Dimensions.Radius * 2
	}
	return o.Dimensions.Width, o.Dimensions.Height
}

func allowedOverlapPairs(constraints []canonical.Constraint) map[[2]string]bool {
	allowed := make(map[[2]string]bool)
	for _, c := range constraints {
		if c.Kind != canonical.KindContainment && c.Kind != canonical.KindAdjacent {
			continue
		}
		for i := 0; i < len(c.ObjectIDs); i++ {
			for j := i + 1; j < len(c.ObjectIDs); j++ {
				allowed[pairKey(c.ObjectIDs[i], c.ObjectIDs[j])] = true
			}
		}
	}
	return allowed
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
