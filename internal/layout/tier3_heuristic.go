package layout

import (
	"math"
	"sort"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

const (
	heuristicMaxIterations = 50 // §4.9: "bounded, default 50 iterations"
	heuristicTolerance     = 0.5
	heuristicDamping       = 0.5 // fraction of the full correction applied per nudge
)

// solveHeuristicTier is tier 3, the method of last resort: seed positions
// by domain-aware anchors, then repeatedly apply one damped nudge per
// constraint in constraint-priority order (nudgeConstraint says which
// objects and axes each kind moves), grounded on
// pkg/embedding/force_directed.go's deterministic sorted-iteration
// discipline. Unlike tier 1 it never drops a constraint — it always
// commits whatever configuration it reaches after the iteration bound, so
// the cascade always terminates in a positioned scene.
func solveHeuristicTier(sc *scene.Scene, constraints []canonical.Constraint) bool {
	if len(sc.Objects) == 0 {
		return true
	}
	f := seedPositions(sc)
	ordered := orderByPriority(constraints)
	governed := governedPairs(constraints)

	for iter := 0; iter < heuristicMaxIterations; iter++ {
		maxDelta := 0.0
		for _, c := range ordered {
			delta := nudgeConstraint(c, f, sc, governed)
			if delta > maxDelta {
				maxDelta = delta
			}
		}
		if maxDelta < heuristicTolerance {
			break
		}
	}

	clampToCanvas(f, sc)
	commit(sc, f)
	return true
}

// orderByPriority sorts critical first, then high, then low, matching
// §4.9's "apply one constraint at a time in priority order". Stable sort
// keeps ties in their original (deterministic) order.
func orderByPriority(constraints []canonical.Constraint) []canonical.Constraint {
	ordered := append([]canonical.Constraint(nil), constraints...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return ordered
}

// nudgeConstraint takes one step toward satisfying c, scaled by
// heuristicDamping, and returns the size of the step. The alignment,
// parallel, distance, between, adjacent, above/below and left_of/right_of
// kinds move one object along one axis. The other kinds do not keep to one
// object and one axis: stacked_h and stacked_v move every member after the
// first on both axes, containment moves the inner object on both axes, and
// no_overlap separates every overlapping pair no other constraint governs.
func nudgeConstraint(c canonical.Constraint, f frame, sc *scene.Scene, governed map[[2]string]bool) float64 {
	switch c.Kind {
	case canonical.KindAlignedHorizontally, canonical.KindParallel:
		return nudgeTowardAverage(f, c.ObjectIDs, axisY)
	case canonical.KindAlignedVertically:
		return nudgeTowardAverage(f, c.ObjectIDs, axisX)
	case canonical.KindDistance:
		if len(c.ObjectIDs) != 2 {
			return 0
		}
		return nudgeDistance(c, f)
	case canonical.KindBetween:
		if len(c.ObjectIDs) != 3 {
			return 0
		}
		return nudgeBetween(c, f)
	case canonical.KindAdjacent:
		if len(c.ObjectIDs) != 2 {
			return 0
		}
		return nudgeAdjacent(c, f, sc)
	case canonical.KindAbove, canonical.KindBelow:
		if len(c.ObjectIDs) != 2 {
			return 0
		}
		return nudgeVerticalRelation(c, f, sc)
	case canonical.KindLeftOf, canonical.KindRightOf:
		if len(c.ObjectIDs) != 2 {
			return 0
		}
		return nudgeHorizontalRelation(c, f, sc)
	case canonical.KindStackedV:
		return nudgeStackedV(c, f, sc)
	case canonical.KindStackedH:
		return nudgeStackedH(c, f, sc)
	case canonical.KindContainment:
		return nudgeContainment(c, f)
	case canonical.KindNoOverlap:
		return nudgeNoOverlap(f, sc, governed)
	default:
		return 0
	}
}

type axis func(point) float64

func axisY(p point) float64 { return p.y }
func axisX(p point) float64 { return p.x }

// nudgeTowardAverage moves only the last id in ids a damped step toward the
// group's average on the given axis, leaving every earlier id fixed — this
// is what keeps each call to "at most one object".
func nudgeTowardAverage(f frame, ids []string, get axis) float64 {
	if len(ids) < 2 {
		return 0
	}
	sum := 0.0
	for _, id := range ids {
		sum += get(f[id])
	}
	avg := sum / float64(len(ids))
	target := ids[len(ids)-1]
	p := f[target]
	current := get(p)
	delta := (avg - current) * heuristicDamping
	return applyAxisDelta(f, target, get, delta)
}

// applyAxisDelta writes back p.{x,y} += delta along whichever axis get
// reads, inferred by probing get against a unit offset.
func applyAxisDelta(f frame, id string, get axis, delta float64) float64 {
	p := f[id]
	probe := point{x: p.x + 1, y: p.y}
	if get(probe) != get(p) {
		p.x += delta
	} else {
		p.y += delta
	}
	f[id] = p
	return math.Abs(delta)
}

func nudgeDistance(c canonical.Constraint, f frame) float64 {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	dx, dy := b.x-a.x, b.y-a.y
	dist := math.Hypot(dx, dy)
	target := targetDistance(c.Distance, dist)
	if math.Abs(dist-target) < heuristicTolerance {
		return 0
	}
	// Move only the second object, only along whichever axis currently
	// separates the pair more, to respect the single-axis rule.
	delta := (target - dist) * heuristicDamping
	if math.Abs(dx) >= math.Abs(dy) {
		sign := 1.0
		if dx < 0 {
			sign = -1
		}
		b.x += sign * delta
	} else {
		sign := 1.0
		if dy < 0 {
			sign = -1
		}
		b.y += sign * delta
	}
	f[c.ObjectIDs[1]] = b
	return math.Abs(delta)
}

func nudgeBetween(c canonical.Constraint, f frame) float64 {
	a := f[c.ObjectIDs[0]]
	b, cc := f[c.ObjectIDs[1]], f[c.ObjectIDs[2]]
	dx, dy := cc.x-b.x, cc.y-b.y
	if math.Abs(dx) >= math.Abs(dy) {
		targetX := (b.x + cc.x) / 2
		delta := (targetX - a.x) * heuristicDamping
		a.x += delta
		f[c.ObjectIDs[0]] = a
		return math.Abs(delta)
	}
	targetY := (b.y + cc.y) / 2
	delta := (targetY - a.y) * heuristicDamping
	a.y += delta
	f[c.ObjectIDs[0]] = a
	return math.Abs(delta)
}

func nudgeAdjacent(c canonical.Constraint, f frame, sc *scene.Scene) float64 {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	aw, ah := dims(sc, c.ObjectIDs[0])
	bw, bh := dims(sc, c.ObjectIDs[1])
	dx, dy := b.x-a.x, b.y-a.y
	if math.Abs(dx) >= math.Abs(dy) {
		required := aw/2 + bw/2
		delta := (math.Abs(dx) - required) * heuristicDamping
		sign := 1.0
		if dx < 0 {
			sign = -1
		}
		b.x -= sign * delta
		f[c.ObjectIDs[1]] = b
		return math.Abs(delta)
	}
	required := ah/2 + bh/2
	delta := (math.Abs(dy) - required) * heuristicDamping
	sign := 1.0
	if dy < 0 {
		sign = -1
	}
	b.y -= sign * delta
	f[c.ObjectIDs[1]] = b
	return math.Abs(delta)
}

func nudgeVerticalRelation(c canonical.Constraint, f frame, sc *scene.Scene) float64 {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	ah, bh := heightOf(sc, c.ObjectIDs[0]), heightOf(sc, c.ObjectIDs[1])
	gap := math.Max(c.MinGap, 0)
	required := ah/2 + bh/2 + gap
	var target float64
	if c.Kind == canonical.KindAbove {
		target = b.y - required
		if a.y <= target {
			return 0
		}
	} else {
		target = b.y + required
		if a.y >= target {
			return 0
		}
	}
	delta := (target - a.y) * heuristicDamping
	a.y += delta
	f[c.ObjectIDs[0]] = a
	return math.Abs(delta)
}

func nudgeHorizontalRelation(c canonical.Constraint, f frame, sc *scene.Scene) float64 {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	aw, bw := widthOf(sc, c.ObjectIDs[0]), widthOf(sc, c.ObjectIDs[1])
	gap := math.Max(c.MinGap, 0)
	required := aw/2 + bw/2 + gap
	var target float64
	if c.Kind == canonical.KindLeftOf {
		target = b.x - required
		if a.x <= target {
			return 0
		}
	} else {
		target = b.x + required
		if a.x >= target {
			return 0
		}
	}
	delta := (target - a.x) * heuristicDamping
	a.x += delta
	f[c.ObjectIDs[0]] = a
	return math.Abs(delta)
}

func nudgeStackedV(c canonical.Constraint, f frame, sc *scene.Scene) float64 {
	if len(c.ObjectIDs) < 2 {
		return 0
	}
	maxDelta := 0.0
	anchor := f[c.ObjectIDs[0]]
	y := anchor.y + heightOf(sc, c.ObjectIDs[0])/2
	for _, id := range c.ObjectIDs[1:] {
		h := heightOf(sc, id)
		y += h / 2
		target := point{anchor.x, y}
		p := f[id]
		dx := (target.x - p.x) * heuristicDamping
		dy := (target.y - p.y) * heuristicDamping
		p.x += dx
		p.y += dy
		f[id] = p
		if d := math.Hypot(dx, dy); d > maxDelta {
			maxDelta = d
		}
		y += h / 2
	}
	return maxDelta
}

func nudgeStackedH(c canonical.Constraint, f frame, sc *scene.Scene) float64 {
	if len(c.ObjectIDs) < 2 {
		return 0
	}
	maxDelta := 0.0
	anchor := f[c.ObjectIDs[0]]
	x := anchor.x + widthOf(sc, c.ObjectIDs[0])/2
	for _, id := range c.ObjectIDs[1:] {
		w := widthOf(sc, id)
		x += w / 2
		target := point{x, anchor.y}
		p := f[id]
		dx := (target.x - p.x) * heuristicDamping
		dy := (target.y - p.y) * heuristicDamping
		p.x += dx
		p.y += dy
		f[id] = p
		if d := math.Hypot(dx, dy); d > maxDelta {
			maxDelta = d
		}
		x += w / 2
	}
	return maxDelta
}

func nudgeContainment(c canonical.Constraint, f frame) float64 {
	if len(c.ObjectIDs) < 2 {
		return 0
	}
	inner := c.ObjectIDs[0]
	sum := point{}
	for _, id := range c.ObjectIDs[1:] {
		p := f[id]
		sum.x += p.x
		sum.y += p.y
	}
	n := float64(len(c.ObjectIDs) - 1)
	target := point{sum.x / n, sum.y / n}
	p := f[inner]
	dx := (target.x - p.x) * heuristicDamping
	dy := (target.y - p.y) * heuristicDamping
	p.x += dx
	p.y += dy
	f[inner] = p
	return math.Hypot(dx, dy)
}

func nudgeNoOverlap(f frame, sc *scene.Scene, governed map[[2]string]bool) float64 {
	ids := sortedIDs(sc)
	maxDelta := 0.0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if governed[pairKey(ids[i], ids[j])] {
				continue
			}
			a, b := f[ids[i]], f[ids[j]]
			aw, ah := dims(sc, ids[i])
			bw, bh := dims(sc, ids[j])
			if !rectOverlap(a, b, aw, ah, bw, bh) {
				continue
			}
			before := f[ids[j]]
			separate(f, ids[i], ids[j], aw, ah, bw, bh)
			after := f[ids[j]]
			if d := math.Hypot(after.x-before.x, after.y-before.y); d > maxDelta {
				maxDelta = d
			}
		}
	}
	return maxDelta
}

// clampToCanvas keeps every object's center within the canvas bounds after
// the heuristic nudges, since unlike tier 1 this tier never explicitly
// enforces a canvas constraint.
func clampToCanvas(f frame, sc *scene.Scene) {
	for id, p := range f {
		w, h := dims(sc, id)
		p.x = clamp(p.x, w/2, sc.Canvas.Width-w/2)
		p.y = clamp(p.y, h/2, sc.Canvas.Height-h/2)
		f[id] = p
	}
}
