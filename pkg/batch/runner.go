// Package batch runs per-user jobs with all-settled semantics.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	shared "github.com/fitsocial/fitsocial-server/pkg"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
)

// DefaultConcurrency is the per-run ceiling on concurrent jobs.
const DefaultConcurrency = 10

// Job processes one user. A nil error counts as success.
type Job func(ctx context.Context, uid string) error

// Outcome is the settled result of a run.
type Outcome struct {
	Total       int
	Succeeded   int
	Failed      int
	FailedUsers []string
	// Err combines every job error; nil when all jobs succeeded.
	Err error
}

// Run executes job for every user with at most concurrency jobs in flight.
// Every job runs to completion regardless of sibling failures.
func Run(ctx context.Context, users []string, concurrency int, job Job) Outcome {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	errs := make([]error, len(users))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, uid := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, uid string) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[idx] = runOne(ctx, uid, job)
		}(i, uid)
	}
	wg.Wait()

	out := Outcome{Total: len(users)}
	for i, err := range errs {
		if err != nil {
			out.Failed++
			out.FailedUsers = append(out.FailedUsers, users[i])
			out.Err = multierr.Append(out.Err, fmt.Errorf("%s: %w", users[i], err))
			continue
		}
		out.Succeeded++
	}
	return out
}

// runOne converts a panicking job into a failure for that user only.
func runOne(ctx context.Context, uid string, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.ErrInternal.WithMessage(fmt.Sprintf("job panicked: %v", r))
		}
	}()
	return job(ctx, uid)
}

// Report is the JSON summary written after a run.
type Report struct {
	Job         string    `json:"job"`
	StartedAt   time.Time `json:"startedAt"`
	DurationMs  int64     `json:"durationMs"`
	TotalUsers  int       `json:"totalUsers"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	FailedUsers []string  `json:"failedUsers,omitempty"`
	Errors      []string  `json:"errors,omitempty"`
}

func NewReport(job string, startedAt time.Time, duration time.Duration, out Outcome) Report {
	r := Report{
		Job:         job,
		StartedAt:   startedAt,
		DurationMs:  duration.Milliseconds(),
		TotalUsers:  out.Total,
		Succeeded:   out.Succeeded,
		Failed:      out.Failed,
		FailedUsers: out.FailedUsers,
	}
	for _, err := range multierr.Errors(out.Err) {
		r.Errors = append(r.Errors, err.Error())
	}
	return r
}

// ObjectName is where a run's report is stored inside the artifact bucket.
func ObjectName(job string, startedAt time.Time) string {
	return fmt.Sprintf("reports/%s/%s.json", job, startedAt.UTC().Format(time.RFC3339))
}

// WriteReport stores r in bucket. A nil store or empty bucket disables reports.
// Failures are logged only.
func WriteReport(ctx context.Context, store shared.BlobStore, bucket string, r Report, logger *slog.Logger) {
	if store == nil || bucket == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		logger.Warn("Failed to encode batch report", "job", r.Job, "error", err)
		return
	}
	object := ObjectName(r.Job, r.StartedAt)
	if err := store.Write(ctx, bucket, object, data); err != nil {
		logger.Warn("Failed to write batch report", "job", r.Job, "bucket", bucket, "object", object, "error", err)
		return
	}
	logger.Info("Batch report written", "job", r.Job, "bucket", bucket, "object", object)
}
