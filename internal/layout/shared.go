package layout

import (
	"math"
	"sort"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// point is the solver's internal, mutable working representation of a
// position; scene.Position is only constructed once a tier commits its
// result via commit().
type point struct{ x, y float64 }

// frame maps object id to its current candidate position. Every tier works
// against a frame and only writes back to the Scene on success, so a
// failed tier never leaves partial positions behind.
type frame map[string]point

// sortedIDs returns object ids in a fixed order, matching dungo's
// sorted-iteration discipline so solver output is reproducible across runs.
func sortedIDs(sc *scene.Scene) []string {
	ids := make([]string, 0, len(sc.Objects))
	for _, o := range sc.Objects {
		ids = append(ids, o.ID)
	}
	sort.Strings(ids)
	return ids
}

func dims(sc *scene.Scene, id string) (w, h float64) {
	o, ok := sc.ObjectByID(id)
	if !ok {
		return 0, 0
	}
	if o.Dimensions.Radius > 0 {
		return o.Dimensions.Radius * 2, o.Dimensions.Radius * 2
	}
	return o.Dimensions.Width, o.Dimensions.Height
}

// seedPositions places every object on an evenly spaced grid, sorted by id,
// centered on the canvas. This is the "domain-aware anchor" starting point
// tier 1 and tier 3 both refine from; it has no domain-specific knowledge
// itself since the Domain Interpreters already encode domain structure as
// constraints rather than positions.
func seedPositions(sc *scene.Scene) frame {
	ids := sortedIDs(sc)
	f := make(frame, len(ids))
	n := len(ids)
	if n == 0 {
		return f
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	if cols == 0 {
		cols = 1
	}
	rows := int(math.Ceil(float64(n) / float64(cols)))
	cellW := sc.Canvas.Width / float64(cols+1)
	cellH := sc.Canvas.Height / float64(rows+1)
	for i, id := range ids {
		col := i % cols
		row := i / cols
		f[id] = point{
			x: cellW * float64(col+1),
			y: cellH * float64(row+1),
		}
	}
	return f
}

// commit writes a frame's positions onto the scene's objects, anchored at
// center, and grows the canvas if any object would otherwise spill outside
// it.
func commit(sc *scene.Scene, f frame) {
	maxX, maxY := sc.Canvas.Width, sc.Canvas.Height
	for _, o := range sc.Objects {
		p, ok := f[o.ID]
		if !ok {
			continue
		}
		w, h := dims(sc, o.ID)
		if p.x+w/2 > maxX {
			maxX = p.x + w/2
		}
		if p.y+h/2 > maxY {
			maxY = p.y + h/2
		}
	}
	if maxX > sc.Canvas.Width {
		sc.Canvas.Width = maxX
	}
	if maxY > sc.Canvas.Height {
		sc.Canvas.Height = maxY
	}
	for _, o := range sc.Objects {
		p, ok := f[o.ID]
		if !ok {
			continue
		}
		o.SetPos(scene.Position{X: p.x, Y: p.y, Anchor: scene.AnchorCenter})
	}
}

// filterConflictingAligned drops any aligned_horizontally/aligned_vertically
// constraint whose object pair is also governed by a distance constraint,
// implementing §3's precedence rule (property 4: distance always wins).
func filterConflictingAligned(constraints []canonical.Constraint) []canonical.Constraint {
	distancePairs := make(map[[2]string]bool)
	for _, c := range constraints {
		if c.Kind == canonical.KindDistance && len(c.ObjectIDs) == 2 {
			distancePairs[pairKey(c.ObjectIDs[0], c.ObjectIDs[1])] = true
		}
	}
	out := make([]canonical.Constraint, 0, len(constraints))
	for _, c := range constraints {
		if (c.Kind == canonical.KindAlignedHorizontally || c.Kind == canonical.KindAlignedVertically) && len(c.ObjectIDs) == 2 {
			if distancePairs[pairKey(c.ObjectIDs[0], c.ObjectIDs[1])] {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// governedPairs reports every object-id pair referenced by an explicit
// (non no_overlap) constraint, so the no_overlap meta-constraint and the
// heuristic tier's repulsion pass can skip pairs a domain rule already
// positions relative to each other (§4.9 hazard: "push-apart post-passes
// MUST NOT run when explicit constraints exist").
func governedPairs(constraints []canonical.Constraint) map[[2]string]bool {
	governed := make(map[[2]string]bool)
	for _, c := range constraints {
		if c.Kind == canonical.KindNoOverlap {
			continue
		}
		for i := 0; i < len(c.ObjectIDs); i++ {
			for j := i + 1; j < len(c.ObjectIDs); j++ {
				governed[pairKey(c.ObjectIDs[i], c.ObjectIDs[j])] = true
			}
		}
	}
	return governed
}

func rectOverlap(a, b point, aw, ah, bw, bh float64) bool {
	ax1, ax2 := a.x-aw/2, a.x+aw/2
	ay1, ay2 := a.y-ah/2, a.y+ah/2
	bx1, bx2 := b.x-bw/2, b.x+bw/2
	by1, by2 := b.y-bh/2, b.y+bh/2
	return ax1 < bx2 && bx1 < ax2 && ay1 < by2 && by1 < ay2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
