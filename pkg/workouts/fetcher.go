// Package workouts reads workout results from their per-user monthly partitions.
package workouts

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// PartitionLayout is the name format of a monthly partition.
const PartitionLayout = "2006-01"

// DefaultConcurrency bounds parallel partition and owner reads.
const DefaultConcurrency = 8

// Store is the subset of the database the fetcher needs.
type Store interface {
	ListResultOwners(ctx context.Context) ([]string, error)
	ListResultPartitions(ctx context.Context, uid string) ([]string, error)
	ListPartitionResults(ctx context.Context, uid, partition string, from, to time.Time) ([]*types.WorkoutResult, error)
}

type Fetcher struct {
	store       Store
	logger      *slog.Logger
	concurrency int
}

func NewFetcher(store Store, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		store:       store,
		logger:      logger.With("component", "workouts"),
		concurrency: DefaultConcurrency,
	}
}

// Fetch returns every result of uid created within [from, to], oldest first.
// Partitions that cannot overlap the window are skipped. All partition reads
// run to completion; the first read error is returned.
func (f *Fetcher) Fetch(ctx context.Context, uid string, from, to time.Time) ([]*types.WorkoutResult, error) {
	partitions, err := f.store.ListResultPartitions(ctx, uid)
	if err != nil {
		return nil, err
	}
	partitions = PartitionsInRange(partitions, from, to)
	if len(partitions) == 0 {
		return nil, nil
	}

	perPartition := make([][]*types.WorkoutResult, len(partitions))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, p := range partitions {
		g.Go(func() error {
			res, err := f.store.ListPartitionResults(ctx, uid, p, from, to)
			if err != nil {
				f.logger.Warn("Partition read failed", "user_id", uid, "partition", p, "error", err)
				return err
			}
			perPartition[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*types.WorkoutResult
	for _, res := range perPartition {
		for _, r := range res {
			if r != nil {
				merged = append(merged, r)
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged, nil
}

// ActiveOwners returns the users with at least one result in [from, to].
// Owners whose partitions cannot be read are logged and left out.
func (f *Fetcher) ActiveOwners(ctx context.Context, from, to time.Time) ([]string, error) {
	owners, err := f.store.ListResultOwners(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]bool, len(owners))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, uid := range owners {
		g.Go(func() error {
			res, err := f.Fetch(ctx, uid, from, to)
			if err != nil {
				f.logger.Warn("Skipping owner in active scan", "user_id", uid, "error", err)
				return nil
			}
			active[i] = len(res) > 0
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for i, uid := range owners {
		if active[i] {
			out = append(out, uid)
		}
	}
	return out, nil
}

// PartitionsInRange keeps the monthly partitions overlapping [from, to].
// Names that are not months are kept, since their contents are unknown.
func PartitionsInRange(partitions []string, from, to time.Time) []string {
	loc := from.Location()
	var out []string
	for _, p := range partitions {
		start, err := time.ParseInLocation(PartitionLayout, p, loc)
		if err != nil {
			out = append(out, p)
			continue
		}
		// Partitions are keyed by the writer's calendar month, so allow a day
		// of slack on both edges for timezone skew.
		end := start.AddDate(0, 1, 0)
		if start.After(to.AddDate(0, 0, 1)) || !end.After(from.AddDate(0, 0, -1)) {
			continue
		}
		out = append(out, p)
	}
	return out
}
