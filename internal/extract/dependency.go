package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/diagramforge/core/internal/pgraph"
)

// depPrepRe finds "<noun phrase> <preposition> <noun phrase>" patterns,
// standing in for a real dependency parser's prep_obj/nmod edges. A
// production swap-in would load a universal-dependencies parser; this
// documents the edge shape it must emit.
var depPrepRe = regexp.MustCompile(`(?i)\b([A-Za-z][\w-]*(?:\s[A-Za-z][\w-]*){0,2})\s+(above|below|beside|between|near|inside|on top of|next to)\s+(?:the\s+|a\s+|an\s+)?([A-Za-z][\w-]*(?:\s[A-Za-z][\w-]*){0,2})`)

// Dependency ranks above RuleTriples in tool priority: it resolves
// prepositional-phrase attachment rather than flat subject-verb-object.
type Dependency struct{}

func NewDependency() *Dependency { return &Dependency{} }

func (Dependency) ToolID() string { return "dependency" }

func (Dependency) Available(ctx context.Context) bool { return true }

func (Dependency) Extract(ctx context.Context, text string) (Result, error) {
	var items []Item
	for _, m := range depPrepRe.FindAllStringSubmatch(text, -1) {
		head, prep, dep := strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		headID, depID := slugify(head), slugify(dep)
		items = append(items,
			Item{Kind: "node", Fields: map[string]any{
				"id": headID, "label": head, "type": pgraph.NodeObject, "attributes": map[string]any{},
			}},
			Item{Kind: "node", Fields: map[string]any{
				"id": depID, "label": dep, "type": pgraph.NodeObject, "attributes": map[string]any{},
			}},
			Item{Kind: "edge", Fields: map[string]any{
				"source": headID, "target": depID, "relation": prep,
				"kind": pgraph.RelationGrammatical, "weight": 0.6,
			}},
		)
	}
	return Result{ToolID: "dependency", Status: StatusOK, Items: items}, nil
}
