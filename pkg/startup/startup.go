// Package startup boots the service's external dependencies in order,
// retrying the whole sequence with fibonacci backoff until it succeeds
// or the attempt budget runs out.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

type Dependency interface {
	Name() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Func adapts start/stop closures to a Dependency.
type Func struct {
	DependencyName string
	Requires       []string
	StartFunc      func(ctx context.Context) error
	StopFunc       func(ctx context.Context) error
}

func (f Func) Name() string        { return f.DependencyName }
func (f Func) DependsOn() []string { return f.Requires }

func (f Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

// Startup holds the dependency graph. Registration order is preserved so
// startup is deterministic beyond what DependsOn requires.
type Startup struct {
	order       []Dependency
	byName      map[string]Dependency
	statuses    map[string]Status
	logger      ectologger.Logger
	maxAttempts int
}

func New(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		byName:      make(map[string]Dependency),
		statuses:    make(map[string]Status),
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

func (s *Startup) Add(dep Dependency) {
	if _, ok := s.byName[dep.Name()]; ok {
		return
	}
	s.order = append(s.order, dep)
	s.byName[dep.Name()] = dep
}

// Start brings every dependency up, honoring DependsOn ordering. A failed
// attempt leaves already-started dependencies running and retries the
// remainder after a fibonacci wait.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, dep := range s.order {
			if err := s.startOne(ctx, dep); err != nil {
				lastErr = err
				break
			}
		}

		if lastErr == nil {
			return nil
		}

		if attempt >= s.maxAttempts {
			break
		}

		wait := time.Duration(a) * time.Second
		s.logger.Infof("Retrying startup in %v (attempt %d/%d)", wait, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) startOne(ctx context.Context, dep Dependency) error {
	if s.statuses[dep.Name()] == StatusStarted {
		return nil
	}

	for _, name := range dep.DependsOn() {
		required, ok := s.byName[name]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unknown dependency '%s'", dep.Name(), name)
		}
		if err := s.startOne(ctx, required); err != nil {
			return err
		}
	}

	s.logger.Infof("Starting dependency '%s'", dep.Name())
	s.statuses[dep.Name()] = StatusPending
	if err := dep.Start(ctx); err != nil {
		s.statuses[dep.Name()] = StatusFailed
		s.logger.WithError(err).Errorf("Failed to start dependency '%s'", dep.Name())
		return err
	}
	s.statuses[dep.Name()] = StatusStarted
	return nil
}

// Stop shuts started dependencies down in reverse registration order.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.order) - 1; i >= 0; i-- {
		dep := s.order[i]
		if s.statuses[dep.Name()] != StatusStarted {
			continue
		}
		s.logger.Infof("Stopping dependency '%s'", dep.Name())
		if err := dep.Stop(ctx); err != nil {
			s.logger.WithError(err).Errorf("Failed to stop dependency '%s'", dep.Name())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[dep.Name()] = StatusStopped
	}
	return firstErr
}
