package analytics

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

const dateLayout = "2006-01-02"

// RoutineSource lists a user's routine workouts.
type RoutineSource interface {
	ListRoutineWorkouts(ctx context.Context, uid string) ([]*types.RoutineWorkout, error)
}

// AdherenceCalculator compares the dates a user trained against the days
// their routines schedule, for the current week and month.
//
// A session on an unscheduled day counts as activity but never as a
// completed planned day.
type AdherenceCalculator struct {
	routines RoutineSource
	logger   *slog.Logger
}

func NewAdherenceCalculator(routines RoutineSource, logger *slog.Logger) *AdherenceCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdherenceCalculator{routines: routines, logger: logger}
}

// Compute never fails; any error yields zero adherence for both windows.
func (c *AdherenceCalculator) Compute(ctx context.Context, uid string, results []*types.WorkoutResult, now time.Time) types.Adherence {
	routines, err := c.routines.ListRoutineWorkouts(ctx, uid)
	if err != nil {
		c.logger.Warn("Adherence unavailable, routine fetch failed", "user_id", uid, "error", err)
		return types.Adherence{}
	}

	weekStart, weekEnd := weekWindow(now)
	monthStart, monthEnd := monthWindow(now)
	return types.Adherence{
		ThisWeek:  adherencePercent(workoutDates(results, weekStart, weekEnd), plannedDates(routines, weekStart, weekEnd)),
		ThisMonth: adherencePercent(workoutDates(results, monthStart, monthEnd), plannedDates(routines, monthStart, monthEnd)),
	}
}

// weekWindow is [Sunday 00:00, next Sunday 00:00) around now, in now's zone.
func weekWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -int(now.Weekday()))
	return start, start.AddDate(0, 0, 7)
}

// monthWindow is [1st 00:00, 1st of next month 00:00) around now.
func monthWindow(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// workoutDates returns the distinct calendar dates of results in [start, end).
func workoutDates(results []*types.WorkoutResult, start, end time.Time) map[string]struct{} {
	dates := make(map[string]struct{})
	for _, r := range results {
		if r == nil || r.CreatedAt.IsZero() {
			continue
		}
		t := r.CreatedAt.In(start.Location())
		if t.Before(start) || !t.Before(end) {
			continue
		}
		dates[t.Format(dateLayout)] = struct{}{}
	}
	return dates
}

// plannedDates returns every date in [start, end) whose weekday one of the
// active routines is scheduled on.
func plannedDates(routines []*types.RoutineWorkout, start, end time.Time) map[string]struct{} {
	scheduled := make(map[time.Weekday]bool)
	for _, r := range routines {
		if r == nil || !r.IsRoutine || len(r.ScheduledDays) == 0 {
			continue
		}
		for _, day := range r.ScheduledDays {
			if wd, ok := parseWeekday(day); ok {
				scheduled[wd] = true
			}
		}
	}

	planned := make(map[string]struct{})
	if len(scheduled) == 0 {
		return planned
	}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if scheduled[d.Weekday()] {
			planned[d.Format(dateLayout)] = struct{}{}
		}
	}
	return planned
}

// parseWeekday accepts English day names, full or three-letter, any case.
func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || s == name[:3] {
			return wd, true
		}
	}
	return 0, false
}

func adherencePercent(actual, planned map[string]struct{}) int {
	if len(planned) == 0 {
		if len(actual) > 0 {
			return 100
		}
		return 0
	}
	completed := 0
	for d := range planned {
		if _, ok := actual[d]; ok {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(planned)) * 100))
}
