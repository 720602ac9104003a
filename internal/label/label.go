// Package label implements the Label Placer: once the Layout Solver has
// positioned every shape, this pass positions every text object (scene
// objects with PrimitiveType "text" and a TargetObject) against the shape
// it describes, by scored-candidate search (SPEC_FULL.md §4.10).
package label

import (
	"math"
	"sort"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// candidateOffset is one of the eight compass directions a label may be
// placed in, expressed as a unit direction scaled by gap at placement time.
type candidateOffset struct {
	name string
	dx   float64
	dy   float64
}

// candidates lists every direction considered, in a fixed order so ties
// break deterministically regardless of map iteration.
var candidates = []candidateOffset{
	{"above", 0, -1},
	{"below", 0, 1},
	{"left", -1, 0},
	{"right", 1, 0},
	{"above_right", 1, -1},
	{"above_left", -1, -1},
	{"below_right", 1, 1},
	{"below_left", -1, 1},
}

// domainPreference names the direction(s) a domain's convention favors, for
// the small scoring bonus §4.10 calls out ("physics: above/right").
var domainPreference = map[canonical.Domain]map[string]bool{
	canonical.DomainMechanics:   {"above": true, "right": true},
	canonical.DomainElectronics: {"above": true, "right": true},
	canonical.DomainOptics:      {"above": true, "right": true},
}

const (
	labelGap       = 8.0 // px between a label's edge and its target's edge
	noOverlapScore = 100.0
	inBoundsScore  = 10.0
	preferredBonus = 1.0
	defaultLabelW  = 60.0
	defaultLabelH  = 16.0
)

// Place assigns a position to every label object in sc, in deterministic
// object-id order, greedily: once a label is placed it becomes an obstacle
// for every label placed after it (§4.10, "placement is greedy in label
// order; ties broken by deterministic object id order").
//
// Place does not fail: a label with no collision-free candidate still gets
// the best-scoring one. Overlap, if any, surfaces later as a spatial
// validator finding.
func Place(sc *scene.Scene, domain canonical.Domain) {
	labels := labelObjects(sc)
	sort.Slice(labels, func(i, j int) bool { return labels[i].ID < labels[j].ID })

	placed := make([]*scene.Object, 0, len(sc.Objects))
	for _, o := range sc.Objects {
		if o.PrimitiveType != "text" {
			placed = append(placed, o)
		}
	}

	prefs := domainPreference[domain]
	for _, lbl := range labels {
		target, ok := sc.ObjectByID(lbl.TargetObject)
		if !ok || !target.HasPosition() {
			continue // nothing to anchor against; leave unpositioned for validation to flag
		}
		pos := bestCandidate(sc, lbl, target, placed, prefs)
		lbl.SetPos(pos)
		placed = append(placed, lbl)
	}
}

func labelObjects(sc *scene.Scene) []*scene.Object {
	var labels []*scene.Object
	for _, o := range sc.Objects {
		if o.PrimitiveType == "text" && o.TargetObject != "" {
			labels = append(labels, o)
		}
	}
	return labels
}

// bestCandidate scores every compass direction and returns the highest
// scoring position, breaking ties by candidates' fixed declaration order.
func bestCandidate(sc *scene.Scene, lbl, target *scene.Object, placed []*scene.Object, prefs map[string]bool) scene.Position {
	lw, lh := labelDims(lbl)
	tw, th := targetDims(target)
	tp := target.Pos()

	bestScore := math.Inf(-1)
	var bestPos scene.Position

	for _, c := range candidates {
		cx := tp.X + c.dx*(tw/2+lw/2+labelGap)
		cy := tp.Y + c.dy*(th/2+lh/2+labelGap)
		pos := scene.Position{X: cx, Y: cy, Anchor: scene.AnchorCenter}

		score := 0.0
		if !overlapsAny(sc, lbl.ID, pos, lw, lh, placed) {
			score += noOverlapScore
		}
		if withinCanvas(sc, pos, lw, lh) {
			score += inBoundsScore
		}
		if prefs[c.name] {
			score += preferredBonus
		}

		if score > bestScore {
			bestScore = score
			bestPos = pos
		}
	}
	return bestPos
}

func overlapsAny(sc *scene.Scene, selfID string, pos scene.Position, w, h float64, placed []*scene.Object) bool {
	for _, o := range placed {
		if o.ID == selfID || !o.HasPosition() {
			continue
		}
		ow, oh := dimsOf(o)
		op := o.Pos()
		if rectsOverlap(pos.X, pos.Y, w, h, op.X, op.Y, ow, oh) {
			return true
		}
	}
	return false
}

func rectsOverlap(ax, ay, aw, ah, bx, by, bw, bh float64) bool {
	ax1, ax2 := ax-aw/2, ax+aw/2
	ay1, ay2 := ay-ah/2, ay+ah/2
	bx1, bx2 := bx-bw/2, bx+bw/2
	by1, by2 := by-bh/2, by+bh/2
	return ax1 < bx2 && bx1 < ax2 && ay1 < by2 && by1 < ay2
}

func withinCanvas(sc *scene.Scene, pos scene.Position, w, h float64) bool {
	return pos.X-w/2 >= 0 && pos.X+w/2 <= sc.Canvas.Width &&
		pos.Y-h/2 >= 0 && pos.Y+h/2 <= sc.Canvas.Height
}

func labelDims(o *scene.Object) (float64, float64) {
	w, h := o.Dimensions.Width, o.Dimensions.Height
	if w == 0 {
		w = defaultLabelW
	}
	if h == 0 {
		h = defaultLabelH
	}
	return w, h
}

func targetDims(o *scene.Object) (float64, float64) {
	if o.Dimensions.Radius > 0 {
		return o.Dimensions.Radius * 2, o.Dimensions.Radius * 2
	}
	return o.Dimensions.Width, o.Dimensions.Height
}

func dimsOf(o *scene.Object) (float64, float64) {
	if o.PrimitiveType == "text" {
		return labelDims(o)
	}
	return targetDims(o)
}
