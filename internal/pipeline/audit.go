package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/diagramforge/core/common/llm"
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/llmadapter"
	"github.com/diagramforge/core/internal/scene"
)

// auditIssue/auditResponse match §4.13's LLM Audit response shape exactly:
// `{overall_score, issues: [{category, severity, description, confidence}],
// suggestions}`.
type auditIssue struct {
	Category    string  `json:"category"`
	Severity    string  `json:"severity"` // critical | major | minor | suggestion
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

type auditResponse struct {
	OverallScore float64      `json:"overall_score"`
	Issues       []auditIssue `json:"issues"`
	Suggestions  []string     `json:"suggestions"`
}

const auditSystemPrompt = `You review a rendered diagram description for a STEM problem. ` +
	`Flag anything that looks wrong, confusing, or inconsistent with the described physical ` +
	`setup. Rate each issue's severity as critical, major, minor, or suggestion; only ` +
	`critical issues are acted on automatically.`

// auditSVG runs the optional post-render LLM audit (§4.13) against a
// compact textual description of the positioned scene — not the SVG bytes
// themselves, since every backend here is a text model, not a vision model.
func (o *Orchestrator) auditSVG(ctx context.Context, sc *scene.Scene, spec canonical.CanonicalSpec) (auditResponse, error) {
	var resp auditResponse
	req := llmadapter.Request{
		Stage:        "audit",
		PromptID:     "visual_audit_v1",
		SystemPrompt: auditSystemPrompt,
		UserPrompt:   describeScene(sc, spec),
		SchemaName:   "DiagramAudit",
		Schema:       llm.GenerateSchema[auditResponse](),
		MaxTokens:    512,
	}
	if _, err := o.llm.Call(ctx, req, &resp); err != nil {
		return auditResponse{}, err
	}
	return resp, nil
}

// describeScene renders a positioned Scene as plain text for a text-only
// LLM audit pass: one line per object, its type, and its solved position.
func describeScene(sc *scene.Scene, spec canonical.CanonicalSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "domain=%s problem_type=%s objects=%d\n", spec.Domain, spec.ProblemType, len(sc.Objects))
	for _, o := range sc.Objects {
		if o.HasPosition() {
			p := o.Pos()
			fmt.Fprintf(&b, "- %s (%s) at (%.0f, %.0f)\n", o.ID, o.PrimitiveType, p.X, p.Y)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s) unpositioned\n", o.ID, o.PrimitiveType)
	}
	return b.String()
}
