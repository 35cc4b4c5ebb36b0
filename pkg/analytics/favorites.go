package analytics

import (
	"sort"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// MaxFavorites caps the favorite exercises list.
const MaxFavorites = 5

type favoriteTally struct {
	name        string
	occurrences int
	sets        int
	reps        float64
	weight      float64
}

// FavoriteExercises ranks exercise names by how many entries use them.
// Names are compared exactly. Averages run over every set of every entry.
// Ties keep first-seen order.
func FavoriteExercises(results []*types.WorkoutResult) []types.FavoriteExercise {
	var tallies []*favoriteTally
	byName := make(map[string]*favoriteTally)
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, ex := range r.Exercises {
			if ex.ExerciseName == "" {
				continue
			}
			t, ok := byName[ex.ExerciseName]
			if !ok {
				t = &favoriteTally{name: ex.ExerciseName}
				byName[ex.ExerciseName] = t
				tallies = append(tallies, t)
			}
			t.occurrences++
			for _, s := range ex.Sets {
				t.sets++
				t.reps += s.Reps
				t.weight += s.Weight
			}
		}
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].occurrences > tallies[j].occurrences
	})
	if len(tallies) > MaxFavorites {
		tallies = tallies[:MaxFavorites]
	}

	favorites := make([]types.FavoriteExercise, 0, len(tallies))
	for _, t := range tallies {
		f := types.FavoriteExercise{Name: t.name}
		if t.sets > 0 {
			f.AvgReps = round1(t.reps / float64(t.sets))
			f.AvgWeight = round1(t.weight / float64(t.sets))
		}
		favorites = append(favorites, f)
	}
	return favorites
}
