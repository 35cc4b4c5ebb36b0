package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

func okJob(calls *[]string, name string) BatchJob {
	return func(ctx context.Context) (*types.BatchResult, error) {
		*calls = append(*calls, name)
		return &types.BatchResult{Success: true, TotalUsers: 2, Succeeded: 2}, nil
	}
}

func TestRegister(t *testing.T) {
	s := New(time.UTC, nil)
	var calls []string

	require.NoError(t, s.Register(context.Background(), "analytics", "0 3 * * *", okJob(&calls, "analytics")))
	require.NoError(t, s.Register(context.Background(), "recommendations", "0 4 * * *", okJob(&calls, "recommendations")))

	assert.Equal(t, 2, s.Len())
	assert.Empty(t, calls)
}

func TestRegister_InvalidExpression(t *testing.T) {
	s := New(time.UTC, nil)

	err := s.Register(context.Background(), "analytics", "not a cron", okJob(new([]string), "analytics"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analytics")
	assert.Zero(t, s.Len())
}

func TestRunAll_OrderAndFirstError(t *testing.T) {
	s := New(nil, nil)
	var calls []string
	boom := errors.New("owner scan failed")

	require.NoError(t, s.Register(context.Background(), "analytics", "0 3 * * *", func(ctx context.Context) (*types.BatchResult, error) {
		calls = append(calls, "analytics")
		return nil, boom
	}))
	require.NoError(t, s.Register(context.Background(), "recommendations", "0 4 * * *", okJob(&calls, "recommendations")))

	err := s.RunAll(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"analytics", "recommendations"}, calls)
}

func TestRun_NilResult(t *testing.T) {
	s := New(time.UTC, nil)
	err := s.run(context.Background(), "empty", func(ctx context.Context) (*types.BatchResult, error) {
		return nil, nil
	})
	assert.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	s := New(time.UTC, nil)
	require.NoError(t, s.Register(context.Background(), "analytics", "0 3 * * *", okJob(new([]string), "analytics")))

	s.Start()
	s.Stop()
}
