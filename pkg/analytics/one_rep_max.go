package analytics

import (
	"math"
	"strings"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// coreLifts are bucketed by substring, first match wins.
var coreLifts = []string{"bench press", "squat", "deadlift", "shoulder press"}

// OneRepMax returns the heaviest weight lifted per exercise. Names containing
// a core lift are grouped under that lift; others under their lowercase name.
// This is the raw best set, not an estimated one-rep max.
func OneRepMax(results []*types.WorkoutResult) map[string]float64 {
	best := make(map[string]float64)
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, ex := range r.Exercises {
			key := liftKey(ex.ExerciseName)
			if key == "" {
				continue
			}
			for _, s := range ex.Sets {
				if s.Weight > 0 && s.Weight > best[key] {
					best[key] = s.Weight
				}
			}
		}
	}
	for k, w := range best {
		best[k] = round1(w)
	}
	return best
}

func liftKey(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, lift := range coreLifts {
		if strings.Contains(n, lift) {
			return lift
		}
	}
	return n
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
