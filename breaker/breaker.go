// Package breaker gates calls to an unreliable downstream. After a run of
// consecutive failures it opens, refuses calls for a cooldown, then admits a
// limited number of probe calls before closing again.
package breaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Category classifies a failed call.
type Category string

const (
	CategoryRateLimited Category = "rateLimited"
	CategoryNetwork     Category = "network"
	CategoryOther       Category = "other"
)

const (
	DefaultFailureThreshold    = 10
	DefaultResetTimeout        = 300 * time.Second
	DefaultHalfOpenMaxAttempts = 3
)

type Config struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenMaxAttempts <= 0 {
		c.HalfOpenMaxAttempts = DefaultHalfOpenMaxAttempts
	}
	return c
}

type Option func(*Breaker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithStateChange registers a callback invoked after every transition.
// It runs outside the breaker lock.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

type Breaker struct {
	cfg      Config
	now      func() time.Time
	onChange func(from, to State)

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	halfOpenSuccesses   int
	lastFailureAt       time.Time
	errorTally          map[Category]int
}

func New(cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		state:      StateClosed,
		errorTally: make(map[Category]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Config() Config { return b.cfg }

// Allow reports whether a call may be attempted. An OPEN breaker whose
// cooldown has elapsed moves to HALF_OPEN and admits the call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	from := b.state
	allowed := false
	switch b.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if !b.lastFailureAt.IsZero() && b.now().Sub(b.lastFailureAt) >= b.cfg.ResetTimeout {
			b.state = StateHalfOpen
			b.halfOpenSuccesses = 0
			allowed = true
		}
	case StateHalfOpen:
		allowed = b.halfOpenSuccesses < b.cfg.HalfOpenMaxAttempts
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return allowed
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.HalfOpenMaxAttempts {
			b.state = StateClosed
			b.consecutiveFailures = 0
			b.errorTally = make(map[Category]int)
		}
	case StateClosed:
		b.consecutiveFailures = 0
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *Breaker) RecordFailure(cat Category) {
	b.mu.Lock()
	from := b.state
	b.consecutiveFailures++
	b.lastFailureAt = b.now()
	b.errorTally[cat]++
	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		// a single failed probe reopens the circuit
		b.state = StateOpen
		b.halfOpenSuccesses = 0
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time copy of the breaker's counters.
type Snapshot struct {
	State               State            `json:"state"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	HalfOpenSuccesses   int              `json:"half_open_successes"`
	LastFailureAt       *time.Time       `json:"last_failure_at,omitempty"`
	ErrorTally          map[Category]int `json:"error_tally"`
	RetryAfter          time.Duration    `json:"retry_after_ns"`
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		HalfOpenSuccesses:   b.halfOpenSuccesses,
		ErrorTally:          make(map[Category]int, len(b.errorTally)),
	}
	for k, v := range b.errorTally {
		s.ErrorTally[k] = v
	}
	if !b.lastFailureAt.IsZero() {
		t := b.lastFailureAt
		s.LastFailureAt = &t
	}
	if b.state == StateOpen {
		if remaining := b.cfg.ResetTimeout - b.now().Sub(b.lastFailureAt); remaining > 0 {
			s.RetryAfter = remaining
		}
	}
	return s
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
