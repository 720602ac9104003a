package validate

import (
	"math"

	"github.com/diagramforge/core/internal/scene"
)

const mechanicsTolerance = 0.05 // 5%, per §4.11

// checkForceEquilibrium sums every declared force vector (objects carrying
// Properties["force_x"]/["force_y"]; the interpreters pass an entity's
// properties through unchanged and none of them computes these keys) and flags a static-body scene
// whose net force exceeds 5% of the largest individual force magnitude.
func checkForceEquilibrium(sc *scene.Scene) []Finding {
	var sumX, sumY, maxMag float64
	var objIDs []string
	for _, o := range sc.Objects {
		fx, okX := o.Properties["force_x"].(float64)
		fy, okY := o.Properties["force_y"].(float64)
		if !okX && !okY {
			continue
		}
		objIDs = append(objIDs, o.ID)
		sumX += fx
		sumY += fy
		if mag := math.Hypot(fx, fy); mag > maxMag {
			maxMag = mag
		}
	}
	if len(objIDs) == 0 || maxMag == 0 {
		return nil // no declared forces to check
	}

	net := math.Hypot(sumX, sumY)
	if net > mechanicsTolerance*maxMag {
		return []Finding{{
			Category:    "mechanics_force_equilibrium",
			Severity:    SeverityMajor,
			ObjectIDs:   objIDs,
			Message:     "declared forces do not sum to zero within tolerance for a static body",
			AutoFixHint: "",
		}}
	}
	return nil
}
