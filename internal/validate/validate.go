// Package validate implements the spatial and domain-rule validators that
// run after layout and label placement (SPEC_FULL.md §4.11): overlap,
// out-of-bounds, z-order, and pluggable domain-specific physical-law
// checks. Its output feeds the Refinement Loop (§4.12) and is surfaced to
// callers in the response metadata.
package validate

import (
	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/scene"
)

// Severity classifies how a Finding should be treated by the refinement
// loop and the final response.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Finding is a single validator violation, reported with enough context for
// the Refinement Loop to attempt an auto-fix and for the response to
// explain itself to a caller.
type Finding struct {
	Category    string // "spatial_overlap", "out_of_bounds", "z_order", or a domain rule name
	Severity    Severity
	ObjectIDs   []string
	Message     string
	AutoFixHint string // empty if no safe automatic fix is known
}

// Report is the complete validation result for one scene, with a 0-100
// score the Refinement Loop compares against its target (default 90,
// §4.12).
type Report struct {
	Findings []Finding
	Score    float64
}

// scoreWeights are the per-severity point deductions from a perfect 100;
// score floors the total at zero, so a scene with many findings scores 0.
var scoreWeights = map[Severity]float64{
	SeverityCritical: 25,
	SeverityMajor:    10,
	SeverityMinor:    3,
}

// Validate runs every spatial check and every domain-rule engine
// registered for domain, and returns the combined Report. It never
// mutates sc.
func Validate(sc *scene.Scene, domain canonical.Domain) Report {
	var findings []Finding
	findings = append(findings, checkOverlaps(sc)...)
	findings = append(findings, checkBounds(sc)...)
	findings = append(findings, checkZOrder(sc)...)
	findings = append(findings, domainRulesFor(domain)(sc)...)

	return Report{Findings: findings, Score: score(findings)}
}

func score(findings []Finding) float64 {
	total := 100.0
	for _, f := range findings {
		total -= scoreWeights[f.Severity]
	}
	if total < 0 {
		total = 0
	}
	return total
}

// domainRulesFor returns the domain-rule check function for domain, or a
// no-op for domains with no pluggable engine (§4.11 lists circuits,
// mechanics, thermo/energy, optics, chemistry; geometry/biology/other have
// no declared physical law to check).
func domainRulesFor(domain canonical.Domain) func(*scene.Scene) []Finding {
	switch domain {
	case canonical.DomainElectronics:
		return checkKirchhoffLoop
	case canonical.DomainMechanics:
		return checkForceEquilibrium
	case canonical.DomainThermo:
		return checkEnergyConservation
	case canonical.DomainOptics:
		return checkLensEquation
	case canonical.DomainChemistry:
		return checkStoichiometry
	default:
		return func(*scene.Scene) []Finding { return nil }
	}
}
