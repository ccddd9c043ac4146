// Package breaker stops calls to an upstream provider after it has failed
// repeatedly, and lets a few probes through once a cool-down has passed.
//
//   - Closed: calls flow; consecutive failures are counted.
//   - Open: calls are rejected with [ErrOpen] until OpenTimeout elapses.
//   - HalfOpen: probes are allowed; HalfOpenMaxSuccess successes close the
//     breaker again, one failure reopens it.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by [Do] while the breaker rejects calls.
var ErrOpen = errors.New("breaker: circuit open")

// State is the position of a breaker in its state machine.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the circuit breaker parameters.
type Config struct {
	// Name identifies the guarded upstream in state change callbacks.
	Name string

	// FailureThreshold is the number of consecutive failures that trips a
	// closed breaker.
	FailureThreshold int

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// HalfOpenMaxSuccess is the number of probe successes needed to close.
	HalfOpenMaxSuccess int

	// IsFailure classifies errors returned through [Do]. Errors it rejects
	// count as successes; a "not found" answer proves the upstream is alive.
	// Nil counts every error.
	IsFailure func(error) bool

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(name string, from, to State)
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state     State
	failures  int
	successes int
	openedAt  time.Time
	nowFunc   func() time.Time
}

// New creates a closed Breaker.
func New(cfg Config) *Breaker {
	return &Breaker{
		cfg:     cfg,
		state:   Closed,
		nowFunc: time.Now,
	}
}

// Do runs fn if b allows it and records the outcome. When b is open, fn is
// not called and ErrOpen is returned.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if !b.Allow() {
		var zero T
		return zero, ErrOpen
	}
	v, err := fn()
	if err != nil && (b.cfg.IsFailure == nil || b.cfg.IsFailure(err)) {
		b.OnFailure()
	} else {
		b.OnSuccess()
	}
	return v, err
}

// State returns the current state, moving an expired Open to HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	from, to := b.checkOpenTimeout()
	s := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return s
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	from, to := b.checkOpenTimeout()
	var ok bool
	switch b.state {
	case Closed:
		ok = true
	case HalfOpen:
		ok = b.successes < b.cfg.HalfOpenMaxSuccess
	}
	b.mu.Unlock()

	b.notify(from, to)
	return ok
}

// OnSuccess records a successful call.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxSuccess {
			b.state = Closed
			b.failures = 0
			b.successes = 0
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// OnFailure records a failed call.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.toOpen()
		}
	case HalfOpen:
		b.toOpen()
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// checkOpenTimeout must be called with b.mu held.
func (b *Breaker) checkOpenTimeout() (from, to State) {
	from = b.state
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.state = HalfOpen
		b.successes = 0
	}
	return from, b.state
}

func (b *Breaker) toOpen() {
	b.state = Open
	b.openedAt = b.now()
	b.successes = 0
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

func (b *Breaker) now() time.Time {
	if b.nowFunc != nil {
		return b.nowFunc()
	}
	return time.Now()
}
