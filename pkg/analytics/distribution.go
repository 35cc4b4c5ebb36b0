package analytics

import (
	"context"
	"math"
	"strings"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// PartResolver maps a free-text exercise name to a body part tag.
type PartResolver interface {
	Resolve(ctx context.Context, exerciseName string) string
}

type DistributionCalculator struct {
	resolver PartResolver
}

func NewDistributionCalculator(resolver PartResolver) *DistributionCalculator {
	return &DistributionCalculator{resolver: resolver}
}

// Compute returns the share of exercise entries per body part as integer
// percentages. A stored bodyPart wins over resolution by name.
func (c *DistributionCalculator) Compute(ctx context.Context, results []*types.WorkoutResult) map[string]int {
	counts := make(map[string]int)
	total := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, ex := range r.Exercises {
			part := strings.TrimSpace(ex.BodyPart)
			if part == "" {
				part = c.resolver.Resolve(ctx, ex.ExerciseName)
			}
			counts[part]++
			total++
		}
	}

	distribution := make(map[string]int, len(counts))
	if total == 0 {
		return distribution
	}
	for part, n := range counts {
		distribution[part] = int(math.Round(float64(n) / float64(total) * 100))
	}
	return distribution
}
