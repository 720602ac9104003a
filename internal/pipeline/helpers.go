package pipeline

import (
	"github.com/diagramforge/core/internal/trace"
	"github.com/diagramforge/core/internal/validate"
)

// spatialCategories names the finding categories validate.Validate produces
// from its spatial checks (overlap/bounds/z-order); everything else is a
// domain-rule finding for the purposes of strict-mode VALIDATION_ERROR
// handling (§7).
var spatialCategories = map[string]bool{
	"spatial_overlap": true,
	"out_of_bounds":   true,
	"z_order":         true,
}

// domainRuleFindings filters r down to the findings that came from a
// domain-specific physical-law check rather than a spatial check.
func domainRuleFindings(r validate.Report) []validate.Finding {
	var out []validate.Finding
	for _, f := range r.Findings {
		if !spatialCategories[f.Category] {
			out = append(out, f)
		}
	}
	return out
}

// statusForReport maps a validation Report onto a trace Status: any
// finding at all is worth flagging in the trace, but validation is never
// fatal on its own (§7), so the worst status recorded here is StatusWarn.
func statusForReport(r validate.Report) trace.Status {
	if len(r.Findings) == 0 {
		return trace.StatusSuccess
	}
	return trace.StatusWarn
}

// auditFinding lifts a critical LLM audit issue into the same Finding shape
// the spatial/domain validators use, so it can feed the Refinement Loop
// through the same report the other validators populate.
func auditFinding(iss auditIssue) validate.Finding {
	return validate.Finding{
		Category: "llm_audit_" + iss.Category,
		Severity: validate.SeverityCritical,
		Message:  iss.Description,
	}
}

// reportScoreWeights mirrors validate's own unexported per-severity point
// deductions; duplicated here (rather than exported from validate) because
// only the orchestrator's post-audit rescore needs it, and widening
// validate's public surface for one caller isn't worth it.
var reportScoreWeights = map[validate.Severity]float64{
	validate.SeverityCritical: 25,
	validate.SeverityMajor:    10,
	validate.SeverityMinor:    3,
}

// rescore recomputes r's score from scratch after the orchestrator has
// appended audit-derived findings to it.
func rescore(r validate.Report) float64 {
	score := 100.0
	for _, f := range r.Findings {
		score -= reportScoreWeights[f.Severity]
	}
	if score < 0 {
		score = 0
	}
	return score
}
