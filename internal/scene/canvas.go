package scene

import "github.com/diagramforge/core/internal/canonical"

// Canvas is the Scene's drawable area. The layout solver may grow it to
// accommodate constraints that don't fit the default.
type Canvas struct {
	Width, Height float64
}

// DefaultCanvas matches §3's default (1200x800); callers override from
// config when the request specifies canvas_width/canvas_height.
func DefaultCanvas() Canvas {
	return Canvas{Width: 1200, Height: 800}
}

// Scene is the unpositioned-then-positioned diagram representation that
// flows from a Domain Interpreter through the Layout Solver, Label
// Placer, Validators, and Renderer.
type Scene struct {
	Canvas      Canvas
	Objects     []*Object
	Constraints []canonical.Constraint
}

// ObjectByID returns the object with the given id, or false if absent.
func (s *Scene) ObjectByID(id string) (*Object, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// ValidateReferences checks invariant (i) from §3: every constraint
// references existing object ids.
func (s *Scene) ValidateReferences() error {
	for _, c := range s.Constraints {
		for _, id := range c.ObjectIDs {
			if _, ok := s.ObjectByID(id); !ok {
				return &UnknownObjectError{ConstraintKind: string(c.Kind), ObjectID: id}
			}
		}
	}
	return nil
}

// AllPositioned reports whether every object has a non-nil position,
// i.e. invariant (iii) from §3 post-solve.
func (s *Scene) AllPositioned() bool {
	for _, o := range s.Objects {
		if !o.HasPosition() {
			return false
		}
	}
	return true
}

// UnknownObjectError is returned when a constraint references an object id
// the scene does not contain.
type UnknownObjectError struct {
	ConstraintKind string
	ObjectID       string
}

func (e *UnknownObjectError) Error() string {
	return "scene: constraint " + e.ConstraintKind + " references unknown object " + e.ObjectID
}
