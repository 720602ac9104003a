package layout

import (
	"context"
	"math"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

const (
	constraintTolerance  = 1.0 // px, matches §8 property 3's default epsilon
	constraintMaxRounds  = 300
	constraintStableIter = 3 // consecutive near-zero-movement rounds before declaring convergence
)

// solveConstraintTier is tier 1: iterative constraint-directed projection,
// with Pareto tie-break (minimise travel from seed, then canvas area)
// implicit in always projecting from the current frame rather than
// resetting. On UNSAT it drops the lowest-priority constraint and retries,
// per §4.9 ("low → high → critical", never dropping critical).
func solveConstraintTier(ctx context.Context, sc *scene.Scene, constraints []canonical.Constraint) ([]canonical.Constraint, bool) {
	remaining := append([]canonical.Constraint(nil), constraints...)
	var dropped []canonical.Constraint

	for {
		select {
		case <-ctx.Done():
			return dropped, false
		default:
		}

		f, ok := runProjection(ctx, sc, remaining)
		if ok {
			commit(sc, f)
			return dropped, true
		}

		idx, found := lowestDroppablePriority(remaining)
		if !found {
			return dropped, false // only critical constraints left and still UNSAT
		}
		dropped = append(dropped, remaining[idx])
		remaining = append(append([]canonical.Constraint(nil), remaining[:idx]...), remaining[idx+1:]...)
	}
}

// lowestDroppablePriority finds the first non-critical constraint at the
// lowest priority value present in constraints.
func lowestDroppablePriority(constraints []canonical.Constraint) (int, bool) {
	best := -1
	bestPriority := canonical.PriorityCritical + 1
	for i, c := range constraints {
		if c.Priority == canonical.PriorityCritical {
			continue
		}
		if c.Priority < bestPriority {
			bestPriority = c.Priority
			best = i
		}
	}
	return best, best >= 0
}

// runProjection repeatedly applies every constraint's full-resolution
// projection until positions stabilise or constraintMaxRounds is reached,
// then reports whether every constraint is satisfied within tolerance.
func runProjection(ctx context.Context, sc *scene.Scene, constraints []canonical.Constraint) (frame, bool) {
	f := seedPositions(sc)
	governed := governedPairs(constraints)
	stableRounds := 0

	for round := 0; round < constraintMaxRounds; round++ {
		select {
		case <-ctx.Done():
			return f, false
		default:
		}

		totalMovement := 0.0
		for _, c := range constraints {
			before := snapshot(f, c.ObjectIDs)
			applyConstraintFull(c, f, sc, governed)
			totalMovement += movementOf(before, f, c.ObjectIDs)
		}

		if totalMovement < constraintTolerance {
			stableRounds++
			if stableRounds >= constraintStableIter {
				break
			}
		} else {
			stableRounds = 0
		}
	}

	for _, c := range constraints {
		if !satisfied(c, f, sc, governed) {
			return f, false
		}
	}
	return f, true
}

func snapshot(f frame, ids []string) map[string]point {
	s := make(map[string]point, len(ids))
	for _, id := range ids {
		s[id] = f[id]
	}
	return s
}

func movementOf(before map[string]point, f frame, ids []string) float64 {
	total := 0.0
	for _, id := range ids {
		b, a := before[id], f[id]
		total += math.Hypot(a.x-b.x, a.y-b.y)
	}
	return total
}

// applyConstraintFull moves the objects a constraint governs directly to a
// satisfying (or closer-to-satisfying) configuration. Each case below only
// writes the axis/axes its constraint kind owns (§4.9 hazard 3).
func applyConstraintFull(c canonical.Constraint, f frame, sc *scene.Scene, governed map[[2]string]bool) {
	switch c.Kind {
	case canonical.KindAlignedHorizontally, canonical.KindParallel:
		avgY := 0.0
		for _, id := range c.ObjectIDs {
			avgY += f[id].y
		}
		avgY /= float64(len(c.ObjectIDs))
		for _, id := range c.ObjectIDs {
			p := f[id]
			p.y = avgY
			f[id] = p
		}

	case canonical.KindAlignedVertically:
		avgX := 0.0
		for _, id := range c.ObjectIDs {
			avgX += f[id].x
		}
		avgX /= float64(len(c.ObjectIDs))
		for _, id := range c.ObjectIDs {
			p := f[id]
			p.x = avgX
			f[id] = p
		}

	case canonical.KindDistance:
		if len(c.ObjectIDs) != 2 {
			return
		}
		applyDistance(c, f)

	case canonical.KindBetween:
		if len(c.ObjectIDs) != 3 {
			return
		}
		b, cc := f[c.ObjectIDs[1]], f[c.ObjectIDs[2]]
		f[c.ObjectIDs[0]] = point{(b.x + cc.x) / 2, (b.y + cc.y) / 2}

	case canonical.KindAdjacent:
		if len(c.ObjectIDs) != 2 {
			return
		}
		applyAdjacent(c, f, sc)

	case canonical.KindAbove, canonical.KindBelow:
		if len(c.ObjectIDs) != 2 {
			return
		}
		applyVerticalRelation(c, f, sc)

	case canonical.KindLeftOf, canonical.KindRightOf:
		if len(c.ObjectIDs) != 2 {
			return
		}
		applyHorizontalRelation(c, f, sc)

	case canonical.KindStackedV:
		applyStackedV(c, f, sc)

	case canonical.KindStackedH:
		applyStackedH(c, f, sc)

	case canonical.KindContainment:
		applyContainment(c, f)

	case canonical.KindNoOverlap:
		applyNoOverlap(f, sc, governed)
	}
}

func applyDistance(c canonical.Constraint, f frame) {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	dx, dy := b.x-a.x, b.y-a.y
	dist := math.Hypot(dx, dy)
	target := targetDistance(c.Distance, dist)
	if dist < 1e-6 {
		dx, dy, dist = 1, 0, 1
	}
	delta := (target - dist) / 2
	ux, uy := dx/dist, dy/dist
	f[c.ObjectIDs[0]] = point{a.x - ux*delta, a.y - uy*delta}
	f[c.ObjectIDs[1]] = point{b.x + ux*delta, b.y + uy*delta}
}

func targetDistance(d canonical.DistanceValue, current float64) float64 {
	if d.IsExact {
		return d.Exact
	}
	if d.Min > 0 && current < d.Min {
		return d.Min
	}
	if d.Max > 0 && current > d.Max {
		return d.Max
	}
	return current
}

func applyAdjacent(c canonical.Constraint, f frame, sc *scene.Scene) {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	aw, ah := dims(sc, c.ObjectIDs[0])
	bw, bh := dims(sc, c.ObjectIDs[1])
	dx, dy := b.x-a.x, b.y-a.y
	if math.Abs(dx) >= math.Abs(dy) {
		target := aw/2 + bw/2
		sign := 1.0
		if dx < 0 {
			sign = -1
		}
		delta := (target - math.Abs(dx)) / 2 * sign
		f[c.ObjectIDs[0]] = point{a.x - delta, a.y}
		f[c.ObjectIDs[1]] = point{b.x + delta, b.y}
	} else {
		target := ah/2 + bh/2
		sign := 1.0
		if dy < 0 {
			sign = -1
		}
		delta := (target - math.Abs(dy)) / 2 * sign
		f[c.ObjectIDs[0]] = point{a.x, a.y - delta}
		f[c.ObjectIDs[1]] = point{b.x, b.y + delta}
	}
}

func applyVerticalRelation(c canonical.Constraint, f frame, sc *scene.Scene) {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	ah, bh := heightOf(sc, c.ObjectIDs[0]), heightOf(sc, c.ObjectIDs[1])
	gap := math.Max(c.MinGap, 0)
	required := ah/2 + bh/2 + gap
	if c.Kind == canonical.KindAbove {
		if a.y > b.y-required {
			a.y = b.y - required
		}
	} else {
		if a.y < b.y+required {
			a.y = b.y + required
		}
	}
	f[c.ObjectIDs[0]] = a
}

func applyHorizontalRelation(c canonical.Constraint, f frame, sc *scene.Scene) {
	a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
	aw, bw := widthOf(sc, c.ObjectIDs[0]), widthOf(sc, c.ObjectIDs[1])
	gap := math.Max(c.MinGap, 0)
	required := aw/2 + bw/2 + gap
	if c.Kind == canonical.KindLeftOf {
		if a.x > b.x-required {
			a.x = b.x - required
		}
	} else {
		if a.x < b.x+required {
			a.x = b.x + required
		}
	}
	f[c.ObjectIDs[0]] = a
}

func applyStackedV(c canonical.Constraint, f frame, sc *scene.Scene) {
	if len(c.ObjectIDs) < 2 {
		return
	}
	anchor := f[c.ObjectIDs[0]]
	y := anchor.y + heightOf(sc, c.ObjectIDs[0])/2
	for _, id := range c.ObjectIDs[1:] {
		h := heightOf(sc, id)
		y += h / 2
		f[id] = point{anchor.x, y}
		y += h / 2
	}
}

func applyStackedH(c canonical.Constraint, f frame, sc *scene.Scene) {
	if len(c.ObjectIDs) < 2 {
		return
	}
	anchor := f[c.ObjectIDs[0]]
	x := anchor.x + widthOf(sc, c.ObjectIDs[0])/2
	for _, id := range c.ObjectIDs[1:] {
		w := widthOf(sc, id)
		x += w / 2
		f[id] = point{x, anchor.y}
		x += w / 2
	}
}

func applyContainment(c canonical.Constraint, f frame) {
	if len(c.ObjectIDs) < 2 {
		return
	}
	inner := c.ObjectIDs[0]
	outerSum := point{}
	for _, id := range c.ObjectIDs[1:] {
		p := f[id]
		outerSum.x += p.x
		outerSum.y += p.y
	}
	n := float64(len(c.ObjectIDs) - 1)
	f[inner] = point{outerSum.x / n, outerSum.y / n}
}

func applyNoOverlap(f frame, sc *scene.Scene, governed map[[2]string]bool) {
	ids := sortedIDs(sc)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if governed[pairKey(ids[i], ids[j])] {
				continue // explicit constraint already governs this pair (§4.9 hazard)
			}
			a, b := f[ids[i]], f[ids[j]]
			aw, ah := dims(sc, ids[i])
			bw, bh := dims(sc, ids[j])
			if !rectOverlap(a, b, aw, ah, bw, bh) {
				continue
			}
			separate(f, ids[i], ids[j], aw, ah, bw, bh)
		}
	}
}

func separate(f frame, id1, id2 string, w1, h1, w2, h2 float64) {
	a, b := f[id1], f[id2]
	overlapX := math.Min(a.x+w1/2, b.x+w2/2) - math.Max(a.x-w1/2, b.x-w2/2)
	overlapY := math.Min(a.y+h1/2, b.y+h2/2) - math.Max(a.y-h1/2, b.y-h2/2)
	if overlapX < overlapY {
		sep := overlapX/2 + 1
		if a.x < b.x {
			a.x -= sep
			b.x += sep
		} else {
			a.x += sep
			b.x -= sep
		}
	} else {
		sep := overlapY/2 + 1
		if a.y < b.y {
			a.y -= sep
			b.y += sep
		} else {
			a.y += sep
			b.y -= sep
		}
	}
	f[id1], f[id2] = a, b
}

func widthOf(sc *scene.Scene, id string) float64  { w, _ := dims(sc, id); return w }
func heightOf(sc *scene.Scene, id string) float64 { _, h := dims(sc, id); return h }

// satisfied reports whether constraint c holds for frame f within
// constraintTolerance.
func satisfied(c canonical.Constraint, f frame, sc *scene.Scene, governed map[[2]string]bool) bool {
	switch c.Kind {
	case canonical.KindAlignedHorizontally, canonical.KindParallel:
		return sameAxis(f, c.ObjectIDs, func(p point) float64 { return p.y })
	case canonical.KindAlignedVertically:
		return sameAxis(f, c.ObjectIDs, func(p point) float64 { return p.x })
	case canonical.KindDistance:
		if len(c.ObjectIDs) != 2 {
			return true
		}
		a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
		dist := math.Hypot(b.x-a.x, b.y-a.y)
		target := targetDistance(c.Distance, dist)
		return math.Abs(dist-target) <= constraintTolerance
	case canonical.KindNoOverlap:
		ids := sortedIDs(sc)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if governed[pairKey(ids[i], ids[j])] {
					continue
				}
				a, b := f[ids[i]], f[ids[j]]
				aw, ah := dims(sc, ids[i])
				bw, bh := dims(sc, ids[j])
				if rectOverlap(a, b, aw, ah, bw, bh) {
					return false
				}
			}
		}
		return true
	case canonical.KindAbove, canonical.KindBelow:
		if len(c.ObjectIDs) != 2 {
			return true
		}
		a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
		required := heightOf(sc, c.ObjectIDs[0])/2 + heightOf(sc, c.ObjectIDs[1])/2 + math.Max(c.MinGap, 0)
		if c.Kind == canonical.KindAbove {
			return a.y <= b.y-required+constraintTolerance
		}
		return a.y >= b.y+required-constraintTolerance
	case canonical.KindLeftOf, canonical.KindRightOf:
		if len(c.ObjectIDs) != 2 {
			return true
		}
		a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
		required := widthOf(sc, c.ObjectIDs[0])/2 + widthOf(sc, c.ObjectIDs[1])/2 + math.Max(c.MinGap, 0)
		if c.Kind == canonical.KindLeftOf {
			return a.x <= b.x-required+constraintTolerance
		}
		return a.x >= b.x+required-constraintTolerance
	case canonical.KindAdjacent:
		if len(c.ObjectIDs) != 2 {
			return true
		}
		a, b := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]]
		aw, ah := dims(sc, c.ObjectIDs[0])
		bw, bh := dims(sc, c.ObjectIDs[1])
		dx, dy := b.x-a.x, b.y-a.y
		if math.Abs(dx) >= math.Abs(dy) {
			return math.Abs(math.Abs(dx)-(aw/2+bw/2)) <= constraintTolerance
		}
		return math.Abs(math.Abs(dy)-(ah/2+bh/2)) <= constraintTolerance
	case canonical.KindBetween:
		if len(c.ObjectIDs) != 3 {
			return true
		}
		a, b, cc := f[c.ObjectIDs[0]], f[c.ObjectIDs[1]], f[c.ObjectIDs[2]]
		midX, midY := (b.x+cc.x)/2, (b.y+cc.y)/2
		return math.Hypot(a.x-midX, a.y-midY) <= constraintTolerance
	default:
		// stacked_v/stacked_h/containment are satisfied by construction once
		// applyConstraintFull has run, since each directly sets the exact
		// satisfying coordinate from the current anchor rather than nudging
		// toward one — they can't conflict with themselves the way a pair of
		// opposing above/below constraints on the same pair can.
		return true
	}
}

func sameAxis(f frame, ids []string, axis func(point) float64) bool {
	if len(ids) == 0 {
		return true
	}
	first := axis(f[ids[0]])
	for _, id := range ids[1:] {
		if math.Abs(axis(f[id])-first) > constraintTolerance {
			return false
		}
	}
	return true
}
