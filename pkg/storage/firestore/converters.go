package firestore

import (
	"strconv"
	"time"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get bool from map
func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Helper to safely get a number from map. The client writes numbers as either
// integers or doubles depending on the input field, and occasionally as text.
func getFloat(m map[string]interface{}, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return 0
}

func getInt(m map[string]interface{}, key string) int {
	return int(getFloat(m, key))
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

func getStringSlice(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func getMapSlice(m map[string]interface{}, key string) []map[string]interface{} {
	switch v := m[key].(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if im, ok := item.(map[string]interface{}); ok {
				out = append(out, im)
			}
		}
		return out
	}
	return nil
}

// --- Exercise Converters ---

func FirestoreToExerciseDefinition(m map[string]interface{}) *types.ExerciseDefinition {
	return &types.ExerciseDefinition{
		Key:          getString(m, "key"),
		Name:         getString(m, "name"),
		Part:         getString(m, "part"),
		DetailedPart: getString(m, "detailedPart"),
	}
}

// --- UserProfile Converters ---

func FirestoreToUserProfile(m map[string]interface{}) *types.UserProfile {
	return &types.UserProfile{
		UID:        getString(m, "uid"),
		Following:  getStringSlice(m, "Following"),
		Followers:  getStringSlice(m, "Followers"),
		Visibility: getInt(m, "Visibility"),
		UpdatedAt:  getTime(m, "updatedAt"),
	}
}

// --- WorkoutResult Converters ---

func FirestoreToWorkoutResult(m map[string]interface{}) *types.WorkoutResult {
	r := &types.WorkoutResult{
		UserID:    getString(m, "userId"),
		CreatedAt: getTime(m, "createdAt"),
	}
	for _, em := range getMapSlice(m, "exercises") {
		ex := types.ExerciseResult{
			ExerciseName: getString(em, "exerciseName"),
			BodyPart:     getString(em, "bodyPart"),
		}
		for _, sm := range getMapSlice(em, "sets") {
			ex.Sets = append(ex.Sets, types.SetResult{
				Reps:   getFloat(sm, "reps"),
				Weight: getFloat(sm, "weight"),
			})
		}
		r.Exercises = append(r.Exercises, ex)
	}
	return r
}

// --- Workout Converters ---

func FirestoreToRoutineWorkout(m map[string]interface{}) *types.RoutineWorkout {
	return &types.RoutineWorkout{
		UserID:        getString(m, "userId"),
		IsRoutine:     getBool(m, "isRoutine"),
		ScheduledDays: getStringSlice(m, "scheduledDays"),
	}
}

func FirestoreToExerciseEntry(m map[string]interface{}) *types.ExerciseEntry {
	return &types.ExerciseEntry{
		UserID:       getString(m, "userId"),
		ExerciseType: getString(m, "exerciseType"),
		BodyPart:     getString(m, "bodyPart"),
		CreatedAt:    getTime(m, "createdAt"),
	}
}

// --- Post Converters ---

func FirestoreToPost(m map[string]interface{}) *types.Post {
	return &types.Post{
		UserID:    getString(m, "userId"),
		CreatedAt: getTime(m, "createdAt"),
	}
}

// --- Output Converters ---
// The adapter replaces "updatedAt" with the server timestamp sentinel before writing.

func UserAnalyticsToFirestore(a *types.UserAnalytics) map[string]interface{} {
	distribution := make(map[string]interface{}, len(a.Distribution))
	for part, pct := range a.Distribution {
		distribution[part] = pct
	}
	oneRepMax := make(map[string]interface{}, len(a.OneRepMax))
	for name, w := range a.OneRepMax {
		oneRepMax[name] = w
	}
	favorites := make([]map[string]interface{}, len(a.FavoriteExercises))
	for i, f := range a.FavoriteExercises {
		favorites[i] = map[string]interface{}{
			"name":      f.Name,
			"avgReps":   f.AvgReps,
			"avgWeight": f.AvgWeight,
		}
	}
	return map[string]interface{}{
		"distribution": distribution,
		"adherence": map[string]interface{}{
			"thisWeek":  a.Adherence.ThisWeek,
			"thisMonth": a.Adherence.ThisMonth,
		},
		"favoriteExercises": favorites,
		"followingComparison": map[string]interface{}{
			"user":         a.FollowingComparison.User,
			"followingAvg": a.FollowingComparison.FollowingAvg,
		},
		"oneRepMax": oneRepMax,
		"updatedAt": a.UpdatedAt,
	}
}

func RecommendationsToFirestore(l *types.RecommendationList) map[string]interface{} {
	users := make([]map[string]interface{}, len(l.RecommendedUsers))
	for i, u := range l.RecommendedUsers {
		users[i] = map[string]interface{}{
			"userId": u.UserID,
			"score":  u.Score,
		}
	}
	return map[string]interface{}{
		"recommendedUsers": users,
		"updatedAt":        l.UpdatedAt,
	}
}

func FirestoreToRecommendations(m map[string]interface{}) *types.RecommendationList {
	l := &types.RecommendationList{
		RecommendedUsers: []types.RecommendedUser{},
		UpdatedAt:        getTime(m, "updatedAt"),
	}
	for _, um := range getMapSlice(m, "recommendedUsers") {
		l.RecommendedUsers = append(l.RecommendedUsers, types.RecommendedUser{
			UserID: getString(um, "userId"),
			Score:  getInt(um, "score"),
		})
	}
	return l
}

// --- ExecutionRecord Converters ---

func ExecutionToFirestore(e *types.ExecutionRecord) map[string]interface{} {
	m := map[string]interface{}{
		"execution_id": e.ExecutionID,
		"service":      e.Service,
		"status":       int32(e.Status),
		"timestamp":    e.Timestamp,
		"user_id":      e.UserID,
		"trigger_type": e.TriggerType,
		"start_time":   e.StartTime,
	}
	if e.EndTime != nil {
		m["end_time"] = *e.EndTime
	}
	if e.ErrorMessage != "" {
		m["error_message"] = e.ErrorMessage
	}
	if e.InputsJSON != "" {
		m["inputs_json"] = e.InputsJSON
	}
	if e.OutputsJSON != "" {
		m["outputs_json"] = e.OutputsJSON
	}
	return m
}
