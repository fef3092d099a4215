package core

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handle is an opaque reference to a live automation session.
// Implementations: selenium sessions (web), Appium clients (mobile).
type Handle interface {
	Quit() error
}

// Provider creates a single session and releases it on Quit.
// A Provider is not safe for concurrent use.
type Provider[H Handle] interface {
	// Create opens a session and returns its handle
	Create() (H, error)

	// Quit releases the session. Safe to call any number of times.
	Quit() error

	// State returns the current lifecycle state
	State() State
}

// Lifecycle owns at most one driver handle and guarantees it is cleared on
// Quit, whatever the outcome of the underlying teardown. Providers embed a
// Lifecycle instead of sharing a base type.
type Lifecycle[H Handle] struct {
	id     string
	name   string
	log    *zap.Logger
	handle H
	held   bool
	state  State
}

// NewLifecycle creates a lifecycle for the named provider (web, mobile).
func NewLifecycle[H Handle](name string, log *zap.Logger) *Lifecycle[H] {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Lifecycle[H]{
		id:   id,
		name: name,
		log:  log.With(zap.String("provider", name), zap.String("lifecycle_id", id)),
	}
}

// ID returns the identifier attached to every log entry of this lifecycle.
func (l *Lifecycle[H]) ID() string {
	return l.id
}

// Logger returns the lifecycle-scoped logger.
func (l *Lifecycle[H]) Logger() *zap.Logger {
	return l.log
}

// State returns the current lifecycle state.
func (l *Lifecycle[H]) State() State {
	return l.state
}

// Select marks the provider as configured but not yet started.
func (l *Lifecycle[H]) Select() {
	if !l.held {
		l.state = StateBrowserSelected
	}
}

// Reset returns a lifecycle without a handle to the unconfigured state.
// Providers call it when Create fails.
func (l *Lifecycle[H]) Reset() {
	if !l.held {
		l.state = StateUnconfigured
	}
}

// Set stores a freshly created handle. It refuses to replace a live one.
func (l *Lifecycle[H]) Set(h H) error {
	if l.held {
		return ErrSessionActive.WithDetails(map[string]interface{}{"provider": l.name})
	}
	l.handle = h
	l.held = true
	l.state = StateActive
	return nil
}

// Handle returns the live handle, if any.
func (l *Lifecycle[H]) Handle() (H, bool) {
	return l.handle, l.held
}

// Active reports whether a handle is held.
func (l *Lifecycle[H]) Active() bool {
	return l.held
}

// Quit releases the held handle. Without a handle it does nothing.
// Teardown failures are logged and returned as ErrDriverTeardown; the handle
// is cleared in every case.
func (l *Lifecycle[H]) Quit() error {
	if !l.held {
		return nil
	}
	defer l.clear()

	return Call(l.log, "quit driver", func() error {
		if err := l.handle.Quit(); err != nil {
			return ErrDriverTeardown.WithCause(err).WithDetails(map[string]interface{}{"provider": l.name})
		}
		return nil
	})
}

func (l *Lifecycle[H]) clear() {
	var zero H
	l.handle = zero
	l.held = false
	l.state = StateClosed
}
