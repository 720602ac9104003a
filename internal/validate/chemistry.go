package validate

import (
	"sort"

	"github.com/diagramforge/core/internal/scene"
)

// checkStoichiometry verifies that each declared element's total atom count
// balances between the reactant and product sides of a reaction. Each
// entity carries Properties["side"] ("reactant"/"product"),
// Properties["coefficient"] (float64), and
// Properties["element_counts"] (map[string]float64 mapping element symbol
// to atoms per molecule); the interpreters pass an entity's properties
// through unchanged and none of them computes these keys.
func checkStoichiometry(sc *scene.Scene) []Finding {
	reactants := make(map[string]float64)
	products := make(map[string]float64)
	seenAny := false

	for _, o := range sc.Objects {
		side, ok := o.Properties["side"].(string)
		counts, okCounts := o.Properties["element_counts"].(map[string]float64)
		if !ok || !okCounts {
			continue
		}
		coeff, _ := o.Properties["coefficient"].(float64)
		if coeff == 0 {
			coeff = 1
		}
		seenAny = true
		target := reactants
		if side == "product" {
			target = products
		}
		for element, count := range counts {
			target[element] += count * coeff
		}
	}
	if !seenAny {
		return nil
	}

	seen := make(map[string]bool, len(reactants)+len(products))
	for el := range reactants {
		seen[el] = true
	}
	for el := range products {
		seen[el] = true
	}
	elements := make([]string, 0, len(seen))
	for el := range seen {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	var findings []Finding
	for _, el := range elements {
		if reactants[el] != products[el] {
			findings = append(findings, Finding{
				Category:    "chemistry_stoichiometry",
				Severity:    SeverityCritical,
				Message:     "element " + el + " is unbalanced across the reaction",
				AutoFixHint: "",
			})
		}
	}
	return findings
}
