package extract

import (
	"context"
	"regexp"

	"github.com/diagramforge/core/internal/pgraph"
)

// equationRe matches a simple "<lhs> = <rhs>" equation, e.g. "F = m * a" or
// "V = IR". A production swap-in would parse full LaTeX/MathML; this
// documents the quantity-node + value_of-edge shape it must emit.
var equationRe = regexp.MustCompile(`\b([A-Za-z]\w{0,3})\s*=\s*([^.;,\n]{1,40})`)

// variableRe extracts single-letter-ish variable tokens from an equation's
// right-hand side.
var variableRe = regexp.MustCompile(`\b[A-Za-z]\w{0,3}\b`)

// Math parses simple algebraic/physics equations into quantity nodes linked
// by value_of edges to the variables they're defined in terms of.
type Math struct{}

func NewMath() *Math { return &Math{} }

func (Math) ToolID() string { return "math" }

func (Math) Available(ctx context.Context) bool { return true }

func (Math) Extract(ctx context.Context, text string) (Result, error) {
	var items []Item
	for _, m := range equationRe.FindAllStringSubmatch(text, -1) {
		lhs := m[1]
		lhsID := slugify("quantity-" + lhs)
		items = append(items, Item{Kind: "node", Fields: map[string]any{
			"id": lhsID, "label": lhs, "type": pgraph.NodeQuantity,
			"attributes": map[string]any{"equation": m[0]},
		}})
		for _, v := range variableRe.FindAllString(m[2], -1) {
			if v == lhs {
				continue
			}
			rhsID := slugify("quantity-" + v)
			items = append(items,
				Item{Kind: "node", Fields: map[string]any{
					"id": rhsID, "label": v, "type": pgraph.NodeQuantity,
					"attributes": map[string]any{},
				}},
				Item{Kind: "edge", Fields: map[string]any{
					"source": lhsID, "target": rhsID, "relation": "depends_on",
					"kind": pgraph.RelationValueOf, "weight": 0.8,
				}},
			)
		}
	}
	return Result{ToolID: "math", Status: StatusOK, Items: items}, nil
}
