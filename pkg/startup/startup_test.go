package startup

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartHonorsDependsOnOrdering(t *testing.T) {
	var started []string
	dep := func(name string, requires ...string) Func {
		return Func{
			DependencyName: name,
			Requires:       requires,
			StartFunc: func(_ context.Context) error {
				started = append(started, name)
				return nil
			},
		}
	}

	s := New(noopLogger(), 1)
	// Registered out of order on purpose; consumer depends on both stores
	s.Add(dep("consumer", "postgres", "redis"))
	s.Add(dep("postgres"))
	s.Add(dep("redis"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"postgres", "redis", "consumer"}, started)
}

func TestStartRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	s := New(noopLogger(), 5)
	s.Add(Func{
		DependencyName: "flaky",
		StartFunc: func(_ context.Context) error {
			attempts++
			if attempts < 3 {
				return fmt.Errorf("not ready")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, attempts)
}

func TestStartGivesUpAfterMaxAttempts(t *testing.T) {
	s := New(noopLogger(), 2)
	s.Add(Func{
		DependencyName: "broken",
		StartFunc:      func(_ context.Context) error { return fmt.Errorf("refused") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "refused")
}

func TestStartDoesNotRestartStartedDependencies(t *testing.T) {
	pgStarts := 0
	s := New(noopLogger(), 3)
	s.Add(Func{
		DependencyName: "postgres",
		StartFunc: func(_ context.Context) error {
			pgStarts++
			return nil
		},
	})

	failures := 0
	s.Add(Func{
		DependencyName: "redis",
		Requires:       []string{"postgres"},
		StartFunc: func(_ context.Context) error {
			failures++
			if failures < 2 {
				return fmt.Errorf("not ready")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, pgStarts)
}

func TestStartRejectsUnknownRequirement(t *testing.T) {
	s := New(noopLogger(), 1)
	s.Add(Func{DependencyName: "api", Requires: []string{"missing"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dependency 'missing'")
}

func TestStopReversesRegistrationOrderAndSkipsUnstarted(t *testing.T) {
	var stopped []string
	stopDep := func(name string) Func {
		return Func{
			DependencyName: name,
			StopFunc: func(_ context.Context) error {
				stopped = append(stopped, name)
				return nil
			},
		}
	}

	s := New(noopLogger(), 1)
	s.Add(stopDep("postgres"))
	s.Add(stopDep("redis"))
	s.Add(stopDep("kafka"))
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"kafka", "redis", "postgres"}, stopped)

	// Nothing was started again, so a second stop is a no-op
	stopped = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Empty(t, stopped)
}
