package extract

import (
	"context"
	"regexp"
	"strconv"

	"github.com/diagramforge/core/internal/pgraph"
)

// formulaRe matches simple molecular formulas like H2O, NaCl, C6H12O6.
var formulaRe = regexp.MustCompile(`\b([A-Z][a-z]?\d*){2,}\b`)

// elementRe pulls individual element+count pairs out of a matched formula.
var elementRe = regexp.MustCompile(`([A-Z][a-z]?)(\d*)`)

// Chemistry parses molecular formulas into a molecule node plus one element
// node and a "contains" edge (kind part_of, weighted by the element's count)
// per constituent element, standing in for a real chemistry-aware parser
// (e.g. OPSIN/RDKit-backed).
type Chemistry struct{}

func NewChemistry() *Chemistry { return &Chemistry{} }

func (Chemistry) ToolID() string { return "chemistry" }

func (Chemistry) Available(ctx context.Context) bool { return true }

func (Chemistry) Extract(ctx context.Context, text string) (Result, error) {
	var items []Item
	for _, formula := range formulaRe.FindAllString(text, -1) {
		elems := elementRe.FindAllStringSubmatch(formula, -1)
		if len(elems) < 2 {
			continue // a single element+count isn't a compound
		}
		molID := slugify("molecule-" + formula)
		items = append(items, Item{Kind: "node", Fields: map[string]any{
			"id": molID, "label": formula, "type": pgraph.NodeObject,
			"attributes": map[string]any{"formula": formula},
		}})
		for _, e := range elems {
			symbol := e[1]
			if symbol == "" {
				continue
			}
			count := 1
			if e[2] != "" {
				if n, err := strconv.Atoi(e[2]); err == nil {
					count = n
				}
			}
			elemID := slugify("element-" + symbol)
			items = append(items,
				Item{Kind: "node", Fields: map[string]any{
					"id": elemID, "label": symbol, "type": pgraph.NodeMaterial,
					"attributes": map[string]any{"symbol": symbol},
				}},
				Item{Kind: "edge", Fields: map[string]any{
					"source": molID, "target": elemID, "relation": "contains",
					"kind": pgraph.RelationPartOf, "weight": float64(count) / 10.0,
				}},
			)
		}
	}
	return Result{ToolID: "chemistry", Status: StatusOK, Items: items}, nil
}
