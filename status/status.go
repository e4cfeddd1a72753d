// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package status holds the single user visible status of the message
// workflow. It is feedback only and never gates correctness.
package status

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSuccessResetDelay = 2 * time.Second
	DefaultErrorResetDelay   = 3 * time.Second

	subscriberBuffer = 16
)

var errUnknownState = errors.New("unknown status state")

// State of the workflow status
type State uint8

const (
	Idle State = iota
	Pending
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "pending":
		*s = Pending
	case "success":
		*s = Success
	case "error":
		*s = Error
	default:
		return fmt.Errorf("%w: %q", errUnknownState, text)
	}
	return nil
}

// Record is a snapshot of the status.
type Record struct {
	State     State     `json:"state"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Config struct {
	SuccessResetDelay time.Duration
	ErrorResetDelay   time.Duration
}

// Tracker is the status state machine
// idle -> pending -> success|error -> idle.
// Success and error revert to idle after their reset delay. Every update
// bumps a generation so a timer armed for an older status is a no-op.
type Tracker struct {
	logger       *zap.Logger
	successDelay time.Duration
	errorDelay   time.Duration
	now          func() time.Time

	lock        sync.Mutex
	current     Record
	generation  uint64
	timer       *time.Timer
	subscribers map[chan Record]struct{}
}

func NewTracker(cfg Config, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SuccessResetDelay <= 0 {
		cfg.SuccessResetDelay = DefaultSuccessResetDelay
	}
	if cfg.ErrorResetDelay <= 0 {
		cfg.ErrorResetDelay = DefaultErrorResetDelay
	}
	t := &Tracker{
		logger:       logger,
		successDelay: cfg.SuccessResetDelay,
		errorDelay:   cfg.ErrorResetDelay,
		now:          time.Now,
		subscribers:  make(map[chan Record]struct{}),
	}
	t.current = Record{State: Idle, UpdatedAt: t.now()}
	return t
}

// Start marks an operation as in flight. It overwrites whatever status is
// displayed.
func (t *Tracker) Start(msg string) {
	t.set(Pending, msg, 0)
}

// Succeed resolves the status as success and schedules the reset.
func (t *Tracker) Succeed(msg string) {
	t.set(Success, msg, t.successDelay)
}

// Fail resolves the status as error and schedules the reset.
func (t *Tracker) Fail(msg string) {
	t.set(Error, msg, t.errorDelay)
}

// Current returns the displayed status.
func (t *Tracker) Current() Record {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.current
}

// Subscribe returns a channel receiving every status transition and a
// function that cancels the subscription. Updates are dropped for a
// subscriber whose buffer is full.
func (t *Tracker) Subscribe() (<-chan Record, func()) {
	ch := make(chan Record, subscriberBuffer)

	t.lock.Lock()
	t.subscribers[ch] = struct{}{}
	t.lock.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.lock.Lock()
			delete(t.subscribers, ch)
			t.lock.Unlock()
			close(ch)
		})
	}
}

func (t *Tracker) set(state State, msg string, resetAfter time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.publish(Record{State: state, Message: msg, UpdatedAt: t.now()})

	if resetAfter > 0 {
		gen := t.generation
		t.timer = time.AfterFunc(resetAfter, func() { t.reset(gen) })
	}
}

func (t *Tracker) reset(gen uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if gen != t.generation {
		t.logger.Debug("Dropping stale status reset",
			zap.Uint64("timerGeneration", gen),
			zap.Uint64("generation", t.generation),
		)
		return
	}
	t.generation++
	t.timer = nil
	t.publish(Record{State: Idle, UpdatedAt: t.now()})
}

// publish must be called with the lock held.
func (t *Tracker) publish(r Record) {
	t.current = r
	for ch := range t.subscribers {
		select {
		case ch <- r:
		default:
			t.logger.Debug("Status subscriber is full, dropping update",
				zap.Stringer("state", r.State),
			)
		}
	}
}
