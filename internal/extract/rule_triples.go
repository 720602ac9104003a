package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/diagramforge/core/internal/pgraph"
)

// ruleTripleRe matches simple "<subject> <verb> <object>" sentences, the
// cheapest possible grammatical signal. A production swap-in would load an
// OpenIE-style model; this regex-driven version documents the contract the
// swap-in must honor.
var ruleTripleRe = regexp.MustCompile(`(?i)\b([A-Z][\w-]*(?:\s[A-Z][\w-]*)*)\s+(is|connects to|is connected to|sits on|rests on|acts on|touches)\s+(?:the\s+|a\s+|an\s+)?([A-Za-z][\w-]*(?:\s[A-Za-z][\w-]*){0,3})`)

// RuleTriples is the lowest-priority adapter in the tool-priority order:
// a dependency-free, regex-driven subject-verb-object triple extractor.
type RuleTriples struct{}

func NewRuleTriples() *RuleTriples { return &RuleTriples{} }

func (RuleTriples) ToolID() string { return "rule_triples" }

func (RuleTriples) Available(ctx context.Context) bool { return true }

func (RuleTriples) Extract(ctx context.Context, text string) (Result, error) {
	var items []Item
	for _, m := range ruleTripleRe.FindAllStringSubmatch(text, -1) {
		subj, verb, obj := strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		subjID, objID := slugify(subj), slugify(obj)
		items = append(items,
			Item{Kind: "node", Fields: map[string]any{
				"id": subjID, "label": subj, "type": pgraph.NodeObject,
				"attributes": map[string]any{},
			}},
			Item{Kind: "node", Fields: map[string]any{
				"id": objID, "label": obj, "type": pgraph.NodeObject,
				"attributes": map[string]any{},
			}},
			Item{Kind: "edge", Fields: map[string]any{
				"source": subjID, "target": objID, "relation": verb,
				"kind": pgraph.RelationGrammatical, "weight": 0.5,
			}},
		)
	}
	return Result{ToolID: "rule_triples", Status: StatusOK, Items: items,
		Metadata: map[string]any{"matches": len(items) / 3}}, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
