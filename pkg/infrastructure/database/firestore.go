package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/fitsocial/fitsocial-server/pkg"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
	storage "github.com/fitsocial/fitsocial-server/pkg/storage/firestore"
	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore
type FirestoreAdapter struct {
	Client *firestore.Client
}

var _ shared.Database = (*FirestoreAdapter)(nil)

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{Client: client}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// --- Executions ---

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	_, err := a.Client.Collection(shared.CollectionExecutions).Doc(record.ExecutionID).Set(ctx, storage.ExecutionToFirestore(record))
	return err
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	_, err := a.Client.Collection(shared.CollectionExecutions).Doc(id).Set(ctx, data, firestore.MergeAll)
	return err
}

// --- Reference data ---

func (a *FirestoreAdapter) ListExercises(ctx context.Context) ([]*types.ExerciseDefinition, error) {
	docs, err := a.Client.Collection(shared.CollectionExercises).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defs := make([]*types.ExerciseDefinition, 0, len(docs))
	for _, d := range docs {
		def := storage.FirestoreToExerciseDefinition(d.Data())
		if def.Key == "" {
			def.Key = d.Ref.ID
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// --- Users ---

func (a *FirestoreAdapter) GetUserProfile(ctx context.Context, uid string) (*types.UserProfile, error) {
	doc, err := a.Client.Collection(shared.CollectionUsers).Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrUserNotFound.WithMetadata("user_id", uid)
		}
		return nil, fmt.Errorf("get user %s: %w", uid, err)
	}
	p := storage.FirestoreToUserProfile(doc.Data())
	if p.UID == "" {
		p.UID = uid
	}
	return p, nil
}

func (a *FirestoreAdapter) ListVisibleUsers(ctx context.Context) ([]*types.UserProfile, error) {
	docs, err := a.Client.Collection(shared.CollectionUsers).Where("Visibility", ">", 0).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list visible users: %w", err)
	}
	users := make([]*types.UserProfile, 0, len(docs))
	for _, d := range docs {
		p := storage.FirestoreToUserProfile(d.Data())
		if p.UID == "" {
			p.UID = d.Ref.ID
		}
		users = append(users, p)
	}
	return users, nil
}

// --- Workout results ---

// ListResultOwners returns every user id that has a workoutResults parent,
// including parents that exist only through their monthly subcollections.
func (a *FirestoreAdapter) ListResultOwners(ctx context.Context) ([]string, error) {
	iter := a.Client.Collection(shared.CollectionWorkoutResults).DocumentRefs(ctx)
	var owners []string
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list result owners: %w", err)
		}
		owners = append(owners, ref.ID)
	}
	return owners, nil
}

func (a *FirestoreAdapter) ListResultPartitions(ctx context.Context, uid string) ([]string, error) {
	iter := a.Client.Collection(shared.CollectionWorkoutResults).Doc(uid).Collections(ctx)
	var partitions []string
	for {
		col, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list result partitions for %s: %w", uid, err)
		}
		partitions = append(partitions, col.ID)
	}
	sort.Strings(partitions)
	return partitions, nil
}

func (a *FirestoreAdapter) ListPartitionResults(ctx context.Context, uid, partition string, from, to time.Time) ([]*types.WorkoutResult, error) {
	docs, err := a.Client.Collection(shared.CollectionWorkoutResults).Doc(uid).Collection(partition).
		Where("createdAt", ">=", from).
		Where("createdAt", "<=", to).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list results %s/%s: %w", uid, partition, err)
	}
	results := make([]*types.WorkoutResult, 0, len(docs))
	for _, d := range docs {
		r := storage.FirestoreToWorkoutResult(d.Data())
		r.ID = d.Ref.ID
		if r.UserID == "" {
			r.UserID = uid
		}
		results = append(results, r)
	}
	return results, nil
}

// --- Workouts ---

func (a *FirestoreAdapter) ListRoutineWorkouts(ctx context.Context, uid string) ([]*types.RoutineWorkout, error) {
	docs, err := a.Client.Collection(shared.CollectionWorkouts).
		Where("userId", "==", uid).
		Where("isRoutine", "==", true).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list routines for %s: %w", uid, err)
	}
	routines := make([]*types.RoutineWorkout, 0, len(docs))
	for _, d := range docs {
		r := storage.FirestoreToRoutineWorkout(d.Data())
		r.ID = d.Ref.ID
		routines = append(routines, r)
	}
	return routines, nil
}

func (a *FirestoreAdapter) ListExerciseEntries(ctx context.Context, uid string, since time.Time) ([]*types.ExerciseEntry, error) {
	docs, err := a.Client.Collection(shared.CollectionWorkouts).
		Where("userId", "==", uid).
		Where("createdAt", ">=", since).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list exercise entries for %s: %w", uid, err)
	}
	entries := make([]*types.ExerciseEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, storage.FirestoreToExerciseEntry(d.Data()))
	}
	return entries, nil
}

// --- Posts ---

func (a *FirestoreAdapter) CountPostsSince(ctx context.Context, uid string, since time.Time) (int, error) {
	docs, err := a.Client.Collection(shared.CollectionStories).
		Where("userId", "==", uid).
		Where("createdAt", ">=", since).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("count posts for %s: %w", uid, err)
	}
	return len(docs), nil
}

func (a *FirestoreAdapter) ListPostAuthorsSince(ctx context.Context, since time.Time) ([]string, error) {
	docs, err := a.Client.Collection(shared.CollectionStories).
		Where("createdAt", ">=", since).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list post authors: %w", err)
	}
	seen := make(map[string]struct{}, len(docs))
	var authors []string
	for _, d := range docs {
		p := storage.FirestoreToPost(d.Data())
		if p.UserID == "" {
			continue
		}
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		authors = append(authors, p.UserID)
	}
	return authors, nil
}

// --- Outputs ---

func (a *FirestoreAdapter) SetUserAnalytics(ctx context.Context, uid string, analytics *types.UserAnalytics) error {
	m := storage.UserAnalyticsToFirestore(analytics)
	m["updatedAt"] = firestore.ServerTimestamp
	if _, err := a.Client.Collection(shared.CollectionUserAnalytics).Doc(uid).Set(ctx, m); err != nil {
		return fmt.Errorf("set analytics for %s: %w", uid, err)
	}
	return nil
}

func (a *FirestoreAdapter) GetRecommendations(ctx context.Context, uid string) (*types.RecommendationList, error) {
	doc, err := a.Client.Collection(shared.CollectionRecommendations).Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recommendations for %s: %w", uid, err)
	}
	return storage.FirestoreToRecommendations(doc.Data()), nil
}

func (a *FirestoreAdapter) SetRecommendations(ctx context.Context, uid string, list *types.RecommendationList) error {
	m := storage.RecommendationsToFirestore(list)
	m["updatedAt"] = firestore.ServerTimestamp
	if _, err := a.Client.Collection(shared.CollectionRecommendations).Doc(uid).Set(ctx, m); err != nil {
		return fmt.Errorf("set recommendations for %s: %w", uid, err)
	}
	return nil
}
