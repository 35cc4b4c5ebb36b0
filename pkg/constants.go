package shared

const (
	ProjectID = "fitsocial-project" // Overridden by GOOGLE_CLOUD_PROJECT

	TopicScheduledAnalytics       = "topic-scheduled-analytics"
	TopicScheduledRecommendations = "topic-scheduled-recommendations"
	TopicAnalyticsUpdated         = "topic-analytics-updated"
	TopicRecommendationsUpdated   = "topic-recommendations-updated"

	EventTypeAnalyticsUpdated       = "com.fitsocial.analytics.updated"
	EventTypeRecommendationsUpdated = "com.fitsocial.recommendations.updated"

	CollectionExercises       = "exercises"
	CollectionUsers           = "users"
	CollectionWorkoutResults  = "workoutResults"
	CollectionWorkouts        = "workouts"
	CollectionStories         = "stories"
	CollectionUserAnalytics   = "userAnalytics"
	CollectionRecommendations = "recommendations"
	CollectionExecutions      = "executions"
)
