// Package classify implements the Domain Classifier & Canonicalizer: it maps
// an enriched property graph (plus the raw text) into a canonical problem
// spec, grounded on the teacher's keyword-bucket severity-deriving pattern
// generalized from "issue severity" to "problem domain".
package classify

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/diagramforge/core/internal/canonical"
	"github.com/diagramforge/core/internal/pgraph"
)

// vocabulary is the curated domain keyword histogram (§4.4). A term may
// appear under more than one domain; ties are broken by longest match, then
// by domain name.
var vocabulary = map[canonical.Domain][]string{
	canonical.DomainElectronics: {"resistor", "capacitor", "inductor", "voltage", "current",
		"circuit", "battery", "resistance", "ohm", "diode", "transistor"},
	canonical.DomainMechanics: {"force", "mass", "velocity", "acceleration", "pulley", "spring",
		"block", "friction", "momentum", "torque", "incline"},
	canonical.DomainOptics: {"lens", "mirror", "ray", "refraction", "reflection", "focal",
		"aperture", "wavelength"},
	canonical.DomainThermo: {"temperature", "heat", "entropy", "pressure", "gas", "thermal",
		"piston", "cylinder"},
	canonical.DomainChemistry: {"molecule", "atom", "reaction", "bond", "element", "compound",
		"acid", "base", "stoichiometry"},
	canonical.DomainGeometry: {"triangle", "circle", "angle", "polygon", "vertex", "axis",
		"coordinate", "parallel"},
	canonical.DomainBiology: {"cell", "organism", "membrane", "protein", "enzyme", "tissue"},
}

// physicalIndicators keeps a node in the canonical spec even if it would
// otherwise be dropped as context-free (§4.4): any node whose label contains
// one of these terms is presumed to denote a concrete, drawable object.
var physicalIndicators = []string{
	"resistor", "capacitor", "plate", "block", "spring", "lens", "molecule",
	"point", "mirror", "battery", "pulley", "atom", "cell", "vertex",
}

// stopLabels are pure conjunctions/prepositions that never denote a
// drawable object on their own.
var stopLabels = map[string]bool{
	"and": true, "or": true, "but": true, "with": true, "filled with": true,
	"the": true, "a": true, "an": true, "of": true, "to": true, "on": true,
}

// confidenceFloor is the minimum histogram score (fraction of matched
// vocabulary terms) below which a spec is classified "other".
const confidenceFloor = 0.05

// Classify builds a CanonicalSpec from a Property Graph and the original
// text (§4.4).
func Classify(g *pgraph.Graph, text string) canonical.CanonicalSpec {
	lower := strings.ToLower(text)
	domain, score := classifyDomain(lower)

	spec := canonical.CanonicalSpec{
		Domain:      domain,
		ProblemType: inferProblemType(domain, lower),
		RawText:     text,
	}

	for _, n := range g.AllNodes() {
		if shouldDrop(n) {
			continue
		}
		props := cloneProps(n.Attributes)
		props["label"] = n.Label
		spec.Objects = append(spec.Objects, canonical.Object{
			ID: n.ID, Type: string(n.Type), Properties: props,
		})
	}
	sort.Slice(spec.Objects, func(i, j int) bool { return spec.Objects[i].ID < spec.Objects[j].ID })

	kept := map[string]bool{}
	for _, o := range spec.Objects {
		kept[o.ID] = true
	}
	for _, e := range g.AllEdges() {
		if !kept[e.Source] || !kept[e.Target] {
			continue
		}
		spec.Relationships = append(spec.Relationships, canonical.Relationship{
			SubjectID: e.Source, Relation: e.Relation, TargetID: e.Target,
		})
	}

	spec.ComplexityScore = complexityScore(spec, domain, score)
	return spec
}

// classifyDomain returns the best-matching domain and its raw confidence
// (matched terms / vocabulary size), picking the longest matching term on
// ties and falling back to "other" below confidenceFloor.
func classifyDomain(lower string) (canonical.Domain, float64) {
	type hit struct {
		domain     canonical.Domain
		count      int
		maxTermLen int
	}
	var hits []hit
	for domain, terms := range vocabulary {
		count := 0
		maxLen := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				count++
				if len(term) > maxLen {
					maxLen = len(term)
				}
			}
		}
		if count > 0 {
			hits = append(hits, hit{domain, count, maxLen})
		}
	}
	if len(hits) == 0 {
		return canonical.DomainOther, 0
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		if hits[i].maxTermLen != hits[j].maxTermLen {
			return hits[i].maxTermLen > hits[j].maxTermLen
		}
		return hits[i].domain < hits[j].domain
	})
	best := hits[0]
	confidence := float64(best.count) / float64(len(vocabulary[best.domain]))
	if confidence < confidenceFloor {
		return canonical.DomainOther, confidence
	}
	return best.domain, confidence
}

func inferProblemType(domain canonical.Domain, lower string) string {
	switch domain {
	case canonical.DomainElectronics:
		if strings.Contains(lower, "series") {
			return "series_circuit"
		}
		if strings.Contains(lower, "parallel") {
			return "parallel_circuit"
		}
		return "circuit"
	case canonical.DomainMechanics:
		if strings.Contains(lower, "incline") {
			return "inclined_plane"
		}
		return "free_body"
	default:
		return string(domain)
	}
}

// shouldDrop implements §4.4's node-filtering rules: pure measurements,
// spatial descriptors, stray conjunctions, and naked symbols are dropped
// unless they carry a physical-indicator term.
func shouldDrop(n pgraph.Node) bool {
	label := strings.ToLower(strings.TrimSpace(n.Label))
	if label == "" {
		return true
	}
	for _, ind := range physicalIndicators {
		if strings.Contains(label, ind) {
			return false
		}
	}
	if stopLabels[label] {
		return true
	}
	if isPureMeasurement(label) {
		return true
	}
	if isNakedSymbol(label) {
		return true
	}
	return false
}

func cloneProps(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func isPureMeasurement(label string) bool {
	hasDigit, hasUnit := false, false
	units := []string{"mm", "cm", "m", "kg", "g", "n", "v", "a", "ohm", "w", "hz", "c", "k"}
	for _, r := range label {
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
	}
	fields := strings.Fields(label)
	if len(fields) == 2 {
		for _, u := range units {
			if fields[1] == u {
				hasUnit = true
			}
		}
	}
	return hasDigit && hasUnit
}

func isNakedSymbol(label string) bool {
	if utf8.RuneCountInString(label) > 3 {
		return false
	}
	for _, r := range label {
		if r >= 'a' && r <= 'z' {
			return false
		}
	}
	return true
}

// complexityScore is a monotone function of object/constraint/relation
// counts plus a domain-difficulty weight, normalized to [0, 1] (§4.4).
func complexityScore(spec canonical.CanonicalSpec, domain canonical.Domain, confidence float64) float64 {
	raw := float64(len(spec.Objects))*0.04 +
		float64(len(spec.Constraints))*0.03 +
		float64(len(spec.Relationships))*0.03 +
		domainDifficulty(domain)*0.2
	if raw > 1 {
		raw = 1
	}
	return raw
}

func domainDifficulty(d canonical.Domain) float64 {
	switch d {
	case canonical.DomainElectronics, canonical.DomainChemistry:
		return 0.8
	case canonical.DomainOptics, canonical.DomainThermo:
		return 0.6
	case canonical.DomainMechanics, canonical.DomainGeometry:
		return 0.4
	default:
		return 0.2
	}
}

// Strategy selects the planner/layout strategy from a spec's complexity
// score and constraint count, per §4.4's "constraint presence overrides
// score" rule.
func Strategy(spec canonical.CanonicalSpec, hasExplicitConstraints bool) canonical.Strategy {
	if hasExplicitConstraints && spec.ComplexityScore < 0.3 {
		return canonical.StrategyConstraintBased
	}
	switch {
	case spec.ComplexityScore < 0.3:
		return canonical.StrategyHeuristic
	case spec.ComplexityScore <= 0.6:
		return canonical.StrategyConstraintBased
	default:
		if domainDifficulty(spec.Domain) >= 0.8 {
			return canonical.StrategySymbolicPhysics
		}
		return canonical.StrategyHierarchical
	}
}
