package layout

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// trySymbolicTier is tier 2: closed-form arithmetic for the narrow shapes of
// problem §4.9 calls out — equal spacing of N objects on a line, and
// concentric placement — rather than a general CAS (none exists in the
// corpus). It only fires when the constraint set is recognisably one of
// these shapes; any other scene falls through to tier 3.
func trySymbolicTier(sc *scene.Scene, constraints []canonical.Constraint) bool {
	if f, ok := equalSpacingLine(sc, constraints); ok {
		commit(sc, f)
		return true
	}
	if f, ok := concentricPlacement(sc, constraints); ok {
		commit(sc, f)
		return true
	}
	return false
}

// equalSpacingLine recognises a single stacked_h or stacked_v constraint
// spanning every object in the scene with no other positional constraint,
// and solves it directly: evenly divide the canvas axis among the objects'
// extents.
func equalSpacingLine(sc *scene.Scene, constraints []canonical.Constraint) (frame, bool) {
	var stack *canonical.Constraint
	for i := range constraints {
		switch constraints[i].Kind {
		case canonical.KindStackedH, canonical.KindStackedV:
			if stack != nil {
				return nil, false // more than one stacking constraint, not this shape
			}
			stack = &constraints[i]
		case canonical.KindNoOverlap:
			// the default meta-constraint coexists fine with equal spacing
		default:
			return nil, false // any other explicit constraint disqualifies the closed form
		}
	}
	if stack == nil || len(stack.ObjectIDs) != len(sc.Objects) {
		return nil, false
	}

	f := make(frame, len(stack.ObjectIDs))
	if stack.Kind == canonical.KindStackedH {
		totalW := 0.0
		for _, id := range stack.ObjectIDs {
			w, _ := dims(sc, id)
			totalW += w
		}
		gap := (sc.Canvas.Width - totalW) / float64(len(stack.ObjectIDs)+1)
		if gap < 0 {
			gap = 0
		}
		x := gap
		for _, id := range stack.ObjectIDs {
			w, _ := dims(sc, id)
			x += w / 2
			f[id] = point{x, sc.Canvas.Height / 2}
			x += w/2 + gap
		}
	} else {
		totalH := 0.0
		for _, id := range stack.ObjectIDs {
			_, h := dims(sc, id)
			totalH += h
		}
		gap := (sc.Canvas.Height - totalH) / float64(len(stack.ObjectIDs)+1)
		if gap < 0 {
			gap = 0
		}
		y := gap
		for _, id := range stack.ObjectIDs {
			_, h := dims(sc, id)
			y += h / 2
			f[id] = point{sc.Canvas.Width / 2, y}
			y += h/2 + gap
		}
	}
	return f, true
}

// concentricPlacement recognises a chain of containment constraints that
// nests every object inside the next (innermost first) and places every
// object of the chain on the shared canvas center, closed form; sizes are
// left as each object's own dimensions.
func concentricPlacement(sc *scene.Scene, constraints []canonical.Constraint) (frame, bool) {
	innerToOuter := make(map[string]string)
	for _, c := range constraints {
		switch c.Kind {
		case canonical.KindContainment:
			if len(c.ObjectIDs) != 2 {
				return nil, false // only simple one-inner/one-outer links form a chain
			}
			if _, exists := innerToOuter[c.ObjectIDs[0]]; exists {
				return nil, false
			}
			innerToOuter[c.ObjectIDs[0]] = c.ObjectIDs[1]
		case canonical.KindNoOverlap:
		default:
			return nil, false
		}
	}
	if len(innerToOuter) == 0 || len(innerToOuter) != len(sc.Objects)-1 {
		return nil, false // needs a chain touching every object but one (the outermost)
	}

	// Find the outermost object: the one never listed as an inner.
	outermost := ""
	for _, o := range sc.Objects {
		if _, isInner := innerToOuter[o.ID]; !isInner {
			if outermost != "" {
				return nil, false // more than one root, not a single chain
			}
			outermost = o.ID
		}
	}
	if outermost == "" {
		return nil, false
	}

	center := point{sc.Canvas.Width / 2, sc.Canvas.Height / 2}
	f := frame{outermost: center}
	current := outermost
	visited := map[string]bool{outermost: true}
	for len(f) < len(sc.Objects) {
		found := false
		for inner, outer := range innerToOuter {
			if outer == current && !visited[inner] {
				f[inner] = center
				visited[inner] = true
				current = inner
				found = true
				break
			}
		}
		if !found {
			return nil, false // chain is broken (a fork or a gap)
		}
	}
	return f, true
}
