package analytics

import (
	"context"
	"time"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func resultAt(ts string, exercises ...types.ExerciseResult) *types.WorkoutResult {
	return &types.WorkoutResult{ID: ts, CreatedAt: at(ts), Exercises: exercises}
}

func exercise(name string, sets ...types.SetResult) types.ExerciseResult {
	return types.ExerciseResult{ExerciseName: name, Sets: sets}
}

type resolverFunc func(name string) string

func (f resolverFunc) Resolve(ctx context.Context, name string) string { return f(name) }

type routineFunc func(ctx context.Context, uid string) ([]*types.RoutineWorkout, error)

func (f routineFunc) ListRoutineWorkouts(ctx context.Context, uid string) ([]*types.RoutineWorkout, error) {
	return f(ctx, uid)
}

func routines(days ...string) routineFunc {
	return func(ctx context.Context, uid string) ([]*types.RoutineWorkout, error) {
		return []*types.RoutineWorkout{{UserID: uid, IsRoutine: true, ScheduledDays: days}}, nil
	}
}
