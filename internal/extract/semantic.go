package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/diagramforge/core/internal/pgraph"
)

// semanticRoleRe matches agent-verb-patient patterns with an explicit
// causal/force verb, the highest-priority adapter's signal: it resolves
// "who does what to whom" rather than just grammatical attachment.
var semanticRoleRe = regexp.MustCompile(`(?i)\b([A-Za-z][\w-]*(?:\s[A-Za-z][\w-]*){0,2})\s+(pushes|pulls|exerts (?:a\s+)?force on|accelerates|collides with|reacts with|heats|cools)\s+(?:the\s+|a\s+|an\s+)?([A-Za-z][\w-]*(?:\s[A-Za-z][\w-]*){0,2})`)

// Semantic is the highest-priority adapter in the tool-priority order: a
// semantic-role-labeling pass that resolves agent/patient relations a
// shallow dependency parse cannot.
type Semantic struct{}

func NewSemantic() *Semantic { return &Semantic{} }

func (Semantic) ToolID() string { return "semantic" }

func (Semantic) Available(ctx context.Context) bool { return true }

func (Semantic) Extract(ctx context.Context, text string) (Result, error) {
	var items []Item
	for _, m := range semanticRoleRe.FindAllStringSubmatch(text, -1) {
		agent, verb, patient := strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		agentID, patientID := slugify(agent), slugify(patient)
		items = append(items,
			Item{Kind: "node", Fields: map[string]any{
				"id": agentID, "label": agent, "type": pgraph.NodeAgent, "attributes": map[string]any{},
			}},
			Item{Kind: "node", Fields: map[string]any{
				"id": patientID, "label": patient, "type": pgraph.NodeObject, "attributes": map[string]any{},
			}},
			Item{Kind: "edge", Fields: map[string]any{
				"source": agentID, "target": patientID, "relation": verb,
				"kind": pgraph.RelationActsOn, "weight": 0.9,
			}},
		)
	}
	return Result{ToolID: "semantic", Status: StatusOK, Items: items}, nil
}
