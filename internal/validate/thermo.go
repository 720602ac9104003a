package validate

import (
	"math"
	"sort"

	"github.com/diagramforge/core/internal/scene"
)

const energyTolerance = 0.05 // 5%, per §4.11

// checkEnergyConservation groups objects by their declared Properties["stage"]
// (the interpreters pass an entity's properties through unchanged and none
// of them computes this key) and
// flags if total KE+PE drifts more than 5% from the first stage's total.
func checkEnergyConservation(sc *scene.Scene) []Finding {
	totals := make(map[string]float64)
	var stages []string
	for _, o := range sc.Objects {
		stage, ok := o.Properties["stage"].(string)
		if !ok {
			continue
		}
		ke, _ := o.Properties["ke"].(float64)
		pe, _ := o.Properties["pe"].(float64)
		if _, seen := totals[stage]; !seen {
			stages = append(stages, stage)
		}
		totals[stage] += ke + pe
	}
	if len(stages) < 2 {
		return nil // nothing to compare across
	}
	sort.Strings(stages)

	baseline := totals[stages[0]]
	if baseline == 0 {
		return nil
	}

	var findings []Finding
	for _, stage := range stages[1:] {
		drift := math.Abs(totals[stage]-baseline) / math.Abs(baseline)
		if drift > energyTolerance {
			findings = append(findings, Finding{
				Category:  "energy_conservation",
				Severity:  SeverityMajor,
				ObjectIDs: []string{stage},
				Message:   "total energy at stage " + stage + " drifts from the initial stage by more than 5%",
			})
		}
	}
	return findings
}
