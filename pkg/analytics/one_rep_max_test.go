package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

func TestOneRepMax(t *testing.T) {
	results := []*types.WorkoutResult{
		{Exercises: []types.ExerciseResult{
			exercise("Barbell Bench Press", types.SetResult{Reps: 5, Weight: 80}, types.SetResult{Reps: 3, Weight: 85.04}),
			exercise("Incline Bench Press", types.SetResult{Reps: 8, Weight: 60}),
			exercise("Back Squat", types.SetResult{Reps: 5, Weight: 100}),
			exercise("Romanian Deadlift", types.SetResult{Reps: 8, Weight: 90}),
			exercise("Seated Shoulder Press", types.SetResult{Reps: 10, Weight: 30}),
			exercise("Pull Up", types.SetResult{Reps: 10, Weight: 0}),
			exercise("Cable Fly", types.SetResult{Reps: 12, Weight: 12.25}),
		}},
		{Exercises: []types.ExerciseResult{
			exercise("squat", types.SetResult{Reps: 1, Weight: 140}),
			exercise("CABLE FLY", types.SetResult{Reps: 12, Weight: -5}),
		}},
	}

	assert.Equal(t, map[string]float64{
		"bench press":    85,
		"squat":          140,
		"deadlift":       90,
		"shoulder press": 30,
		"cable fly":      12.3,
	}, OneRepMax(results))
}

func TestOneRepMax_Empty(t *testing.T) {
	assert.Empty(t, OneRepMax(nil))
	assert.Empty(t, OneRepMax([]*types.WorkoutResult{{Exercises: []types.ExerciseResult{exercise("Plank")}}}))
}
