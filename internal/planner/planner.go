// Package planner implements the Diagram Planner: a 5-stage pipeline that
// converts a CanonicalSpec into a DiagramPlan, grounded on the package shape
// of the teacher's own internal/planner (a sequential stage runner) but
// generalized from issue-remediation planning to diagram planning.
package planner

import (
	"sort"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/classify"
)

// Plan runs all five stages in order against a CanonicalSpec and returns the
// resulting DiagramPlan. Each stage depends only on the output of stages
// that ran before it (§4.6); any stage may produce empty output without
// aborting the planner.
func Plan(spec canonical.CanonicalSpec) canonical.DiagramPlan {
	entities := entityExtractor(spec)
	relations := relationMapper(spec, entities)
	constraints := constraintGenerator(spec, entities, relations)
	strategy := layoutPlanner(spec, constraints)
	styles := styleAssigner(entities)

	return canonical.DiagramPlan{
		Entities:          entities,
		Relations:         relations,
		GlobalConstraints: constraints,
		StyleHints:        styles,
		Strategy:          strategy,
	}
}

// entityExtractor is stage 1: select drawable objects (the classifier
// already filtered the graph, so every spec.Object is drawable) and assign
// each a primitive-hint, inferring implicit entities domain rules require.
func entityExtractor(spec canonical.CanonicalSpec) []canonical.Object {
	entities := make([]canonical.Object, 0, len(spec.Objects)+1)
	for _, o := range spec.Objects {
		if o.Properties == nil {
			o.Properties = map[string]any{}
		}
		o.Properties["primitive_hint"] = primitiveHint(o)
		entities = append(entities, o)
	}

	if spec.Domain == canonical.DomainElectronics && hasVoltageWithoutSource(entities) {
		entities = append(entities, canonical.Object{
			ID:   "inferred-power-source",
			Type: string(canonical_NodeAgent),
			Properties: map[string]any{
				"primitive_hint": "battery",
				"inferred":       true,
			},
		})
	}
	return entities
}

// canonical_NodeAgent avoids importing pgraph here just for one constant;
// the planner only needs the string value for Object.Type.
const canonical_NodeAgent = "Agent"

func hasVoltageWithoutSource(entities []canonical.Object) bool {
	hasVoltage, hasSource := false, false
	for _, e := range entities {
		hint, _ := e.Properties["primitive_hint"].(string)
		if hint == "voltage" || e.Type == "Quantity" {
			hasVoltage = true
		}
		if hint == "battery" || hint == "power_source" {
			hasSource = true
		}
	}
	return hasVoltage && !hasSource
}

// primitiveHint derives a render-primitive suggestion from an object's
// label/type; the Domain Interpreter may override it.
func primitiveHint(o canonical.Object) string {
	label, _ := o.Properties["label"].(string)
	if label == "" {
		label = o.ID
	}
	switch {
	case contains(label, "resistor"):
		return "resistor"
	case contains(label, "capacitor"):
		return "capacitor"
	case contains(label, "battery"):
		return "battery"
	case contains(label, "block"):
		return "rectangle"
	case contains(label, "spring"):
		return "spring"
	case contains(label, "lens"):
		return "lens"
	case contains(label, "mirror"):
		return "mirror"
	default:
		if o.Type == "Quantity" {
			return "label_only"
		}
		return "generic_shape"
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// relationMapper is stage 2: convert graph-derived relationships into a
// smaller, visual-only relation vocabulary.
func relationMapper(spec canonical.CanonicalSpec, entities []canonical.Object) []canonical.Relation {
	known := map[string]bool{}
	for _, e := range entities {
		known[e.ID] = true
	}
	var relations []canonical.Relation
	for _, r := range spec.Relationships {
		if !known[r.SubjectID] || !known[r.TargetID] {
			continue
		}
		relations = append(relations, canonical.Relation{
			SubjectID: r.SubjectID,
			Kind:      visualRelationKind(r.Relation),
			TargetID:  r.TargetID,
		})
	}
	return relations
}

func visualRelationKind(rel string) string {
	switch {
	case contains(rel, "connect"), contains(rel, "touch"):
		return "connects_to"
	case contains(rel, "push"), contains(rel, "pull"), contains(rel, "exert"), contains(rel, "acts"):
		return "acts_on"
	case contains(rel, "inside"), contains(rel, "contains"):
		return "inside"
	default:
		return "adjacent_to"
	}
}

// constraintGenerator is stage 3: derive layout constraints from relations
// plus fixed per-domain rules (§4.6).
func constraintGenerator(spec canonical.CanonicalSpec, entities []canonical.Object, relations []canonical.Relation) []canonical.Constraint {
	var constraints []canonical.Constraint

	for _, r := range relations {
		if r.Kind == "connects_to" {
			constraints = append(constraints, canonical.Constraint{
				Kind: canonical.KindAdjacent, ObjectIDs: []string{r.SubjectID, r.TargetID},
				Priority: canonical.PriorityHigh, Weight: 1.0,
			})
		}
	}

	if spec.Domain == canonical.DomainElectronics && len(entities) >= 2 {
		ids := make([]string, 0, len(entities))
		for _, e := range entities {
			ids = append(ids, e.ID)
		}
		sort.Strings(ids)
		constraints = append(constraints, canonical.Constraint{
			Kind: canonical.KindNoOverlap, ObjectIDs: ids,
			Priority: canonical.PriorityCritical, Weight: 1.0,
		})
	}

	if spec.ProblemType == "parallel_capacitor" || (spec.Domain == canonical.DomainElectronics && hasCapacitorPair(entities)) {
		if a, b, ok := capacitorPlatePair(entities); ok {
			constraints = append(constraints,
				canonical.Constraint{Kind: canonical.KindParallel, ObjectIDs: []string{a, b},
					Priority: canonical.PriorityHigh, Weight: 0.9},
				canonical.Constraint{Kind: canonical.KindDistance, ObjectIDs: []string{a, b},
					Distance: canonical.DistanceValue{Min: 10, Max: 80}, Priority: canonical.PriorityHigh, Weight: 0.9},
			)
		}
	}

	return constraints
}

func hasCapacitorPair(entities []canonical.Object) bool {
	_, _, ok := capacitorPlatePair(entities)
	return ok
}

func capacitorPlatePair(entities []canonical.Object) (string, string, bool) {
	var plates []string
	for _, e := range entities {
		if hint, _ := e.Properties["primitive_hint"].(string); hint == "capacitor" {
			plates = append(plates, e.ID)
		}
	}
	if len(plates) >= 2 {
		return plates[0], plates[1], true
	}
	return "", "", false
}

// layoutPlanner is stage 4: pick a strategy per §4.4's rule, with the
// "explicit constraint present" override applied here using this plan's own
// generated constraints (which may include constraints the spec itself
// didn't carry, e.g. the inferred no_overlap rule above).
func layoutPlanner(spec canonical.CanonicalSpec, constraints []canonical.Constraint) canonical.Strategy {
	hasExplicit := len(spec.Constraints) > 0 || len(constraints) > 0
	return classify.Strategy(spec, hasExplicit)
}

// styleAssigner is stage 5: attach style hints per object.
func styleAssigner(entities []canonical.Object) map[string]canonical.StyleHint {
	hints := make(map[string]canonical.StyleHint, len(entities))
	for _, e := range entities {
		hint, _ := e.Properties["primitive_hint"].(string)
		hints[e.ID] = styleFor(hint, e.Type)
	}
	return hints
}

func styleFor(hint, objType string) canonical.StyleHint {
	switch hint {
	case "resistor", "capacitor", "battery":
		return canonical.StyleHint{Fill: "none", Stroke: "#222222", Layer: "shapes"}
	case "rectangle", "spring":
		return canonical.StyleHint{Fill: "#e0e0e0", Stroke: "#333333", Layer: "shapes"}
	case "lens", "mirror":
		return canonical.StyleHint{Fill: "#cfe8ff", Stroke: "#1a5276", Layer: "shapes"}
	case "label_only":
		return canonical.StyleHint{Fill: "#000000", Stroke: "none", Layer: "labels"}
	default:
		return canonical.StyleHint{Fill: "#f5f5f5", Stroke: "#555555", Layer: "shapes"}
	}
}
