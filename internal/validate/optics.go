package validate

import (
	"math"

	"github.com/diagramforge/core/internal/scene"
)

const lensTolerance = 0.05 // 5%, per §4.11

// checkLensEquation verifies 1/f = 1/d_o + 1/d_i within tolerance for every
// lens/mirror object that carries the three declared distances.
func checkLensEquation(sc *scene.Scene) []Finding {
	var findings []Finding
	for _, o := range sc.Objects {
		f, okF := o.Properties["focal_length"].(float64)
		do, okDo := o.Properties["object_distance"].(float64)
		di, okDi := o.Properties["image_distance"].(float64)
		if !okF || !okDo || !okDi || f == 0 || do == 0 {
			continue
		}
		lhs := 1 / f
		rhs := 1/do + 1/di
		if math.Abs(lhs-rhs) > lensTolerance*math.Abs(lhs) {
			findings = append(findings, Finding{
				Category:  "optics_lens_equation",
				Severity:  SeverityMajor,
				ObjectIDs: []string{o.ID},
				Message:   "object " + o.ID + "'s declared focal length/object distance/image distance do not satisfy the lens equation within tolerance",
			})
		}
	}
	return findings
}
