package pipeline

import "github.com/diagramforge/core/internal/canonical"

// fallbackPlan recovers from PLAN_EMPTY (§7: "fatal unless a default
// 'single placeholder object' recovery is enabled" — enabled here) by
// falling back to an identity mapping of spec.Objects onto plan entities,
// or a single placeholder box when the canonical spec itself has no
// objects to map.
func fallbackPlan(spec canonical.CanonicalSpec) canonical.DiagramPlan {
	if len(spec.Objects) == 0 {
		return canonical.DiagramPlan{
			Entities: []canonical.Object{{
				ID:         "placeholder",
				Type:       "generic",
				Properties: map[string]any{"primitive_hint": "generic_shape", "label": "diagram"},
			}},
			StyleHints: map[string]canonical.StyleHint{
				"placeholder": {Fill: "#eeeeee", Stroke: "#333333", Layer: "shapes"},
			},
			Strategy: canonical.StrategyHeuristic,
		}
	}

	entities := append([]canonical.Object(nil), spec.Objects...)
	hints := make(map[string]canonical.StyleHint, len(entities))
	for _, e := range entities {
		hints[e.ID] = canonical.StyleHint{Fill: "#eeeeee", Stroke: "#333333", Layer: "shapes"}
	}
	return canonical.DiagramPlan{
		Entities:   entities,
		StyleHints: hints,
		Strategy:   canonical.StrategyHeuristic,
	}
}
