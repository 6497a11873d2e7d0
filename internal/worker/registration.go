package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/civicmatch/civic-match/internal/logger"
	"go.uber.org/zap"
)

// State is the lifecycle state of the registered worker.
type State string

const (
	StateParsed     State = "parsed"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// ErrRegistrationInProgress is returned by Register while another attempt runs.
var ErrRegistrationInProgress = errors.New("worker registration in progress")

// Registration hosts a single Worker: it installs it, activates it and then
// publishes it as the controller of every subsequent request. A failed
// install leaves requests uncontrolled until the next attempt.
type Registration struct {
	worker *Worker

	mu         sync.Mutex
	state      State
	active     bool
	attempting bool
	lastErr    error

	retries sync.WaitGroup
}

// NewRegistration creates a registration for w in the parsed state.
func NewRegistration(w *Worker) *Registration {
	return &Registration{worker: w, state: StateParsed}
}

// Register installs and activates the worker, then claims all clients.
// Registering an active worker is a no-op.
func (r *Registration) Register(ctx context.Context) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil
	}
	if r.attempting {
		r.mu.Unlock()
		return ErrRegistrationInProgress
	}
	r.attempting = true
	r.state = StateInstalling
	r.mu.Unlock()

	err := r.run(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempting = false
	r.lastErr = err
	if err != nil {
		r.state = StateRedundant
		return err
	}
	r.state = StateActivated
	r.active = true
	return nil
}

func (r *Registration) run(ctx context.Context) error {
	if err := r.worker.OnInstall(ctx); err != nil {
		return err
	}

	// skip waiting: there is never an older worker to hand over from
	r.setState(StateInstalled)
	r.setState(StateActivating)

	if err := r.worker.OnActivate(ctx); err != nil {
		// stale stores left behind are swept by the next activation
		logger.FromContext(ctx).Warn("Cache sweep incomplete", zap.Error(err))
	}
	logger.FromContext(ctx).Info("Caching worker activated", zap.String("cache", r.worker.Version()))
	return nil
}

func (r *Registration) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Controller returns the active controller, or nil while requests are
// uncontrolled.
func (r *Registration) Controller() Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil
	}
	return r.worker
}

// State returns the current lifecycle state.
func (r *Registration) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error of the last failed attempt.
func (r *Registration) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// RetryOnLoad starts a background registration attempt when no worker is
// active and none is being installed. It reports whether an attempt started.
// There is no backoff: every page load may trigger one attempt.
func (r *Registration) RetryOnLoad(ctx context.Context) bool {
	r.mu.Lock()
	if r.active || r.attempting {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	r.retries.Add(1)
	go func() {
		defer r.retries.Done()
		if err := r.Register(ctx); err != nil && !errors.Is(err, ErrRegistrationInProgress) {
			logger.FromContext(ctx).Warn("Caching worker install failed", zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until background registration attempts and revalidations finish.
func (r *Registration) Wait() {
	r.retries.Wait()
	r.worker.Wait()
}
