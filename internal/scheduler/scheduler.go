package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/reconcile"
)

// State describes the periodic trigger.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	// StateFailed means the loop halted on an unrecovered run error and
	// stays halted until an operator starts it again.
	StateFailed State = "failed"
)

var ErrAlreadyRunning = errors.New("scheduler_already_running")

// Runner is the reconciler operation the scheduler triggers.
type Runner interface {
	RunIncremental(ctx context.Context) (*reconcile.Result, error)
}

// Scheduler drives periodic incremental syncs. It only schedules;
// exclusivity between its runs and operator-triggered runs is enforced
// by the reconciler's run slot.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	state   State
	failure error
	cancel  context.CancelFunc
}

func New(runner Runner, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		log:      log.Named("scheduler"),
		state:    StateStopped,
	}
}

// Start launches the periodic loop. The first run fires immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateRunning
	s.failure = nil
	go s.loop(ctx)

	s.log.Info("periodic sync started", zap.Duration("interval", s.interval))
	return nil
}

// Stop prevents future runs. An in-flight run is not interrupted; runs
// execute on their own context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.cancel()
	s.cancel = nil
	s.state = StateStopped
	s.log.Info("periodic sync stopped")
}

func (s *Scheduler) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastFailure returns the error that moved the scheduler to Failed, nil
// otherwise.
func (s *Scheduler) LastFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if !s.runOnce(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runOnce triggers one incremental sync and reports whether the loop
// should continue.
func (s *Scheduler) runOnce(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	_, err := s.runner.RunIncremental(context.Background())
	switch {
	case err == nil:
		return true
	case errors.Is(err, reconcile.ErrRunInProgress):
		s.log.Debug("tick skipped, another run in progress")
		return true
	default:
		s.fail(err)
		return false
	}
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateFailed
	s.failure = err
	s.log.Error("periodic sync halted", zap.Error(err))
}
