package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// Policy bounds how many times a single operation is attempted and how long
// to wait between attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Attempts is the effective attempt ceiling.
func (p Policy) Attempts() int { return p.withDefaults().MaxAttempts }

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// Hinted is implemented by errors that carry a server supplied wait time,
// such as a Retry-After header on a rate limit response.
type Hinted interface {
	RetryAfter() time.Duration
}

// ExhaustedError is returned once every attempt allowed by the policy failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// State tracks one operation through its attempts.
//
//	attempting --failure--> waiting --delay elapsed--> attempting
//	attempting --failure, budget spent--> exhausted
//	attempting --success--> done
type State struct {
	policy  Policy
	attempt int
	last    error
}

// Start returns a fresh state for one operation.
func (p Policy) Start() *State {
	return &State{policy: p.withDefaults()}
}

// Attempt is the number of failed attempts recorded so far.
func (s *State) Attempt() int { return s.attempt }

// Max is the attempt ceiling.
func (s *State) Max() int { return s.policy.MaxAttempts }

// Last is the most recent failure.
func (s *State) Last() error { return s.last }

// Fail records a failed attempt. It returns how long to wait before the next
// attempt, or ok=false when the budget is spent.
func (s *State) Fail(err error) (delay time.Duration, ok bool) {
	s.attempt++
	s.last = err
	if s.attempt >= s.policy.MaxAttempts {
		return 0, false
	}
	return s.delay(err), true
}

// Err wraps the last failure into an ExhaustedError.
func (s *State) Err() error {
	return &ExhaustedError{Attempts: s.attempt, Last: s.last}
}

func (s *State) delay(err error) time.Duration {
	var h Hinted
	if errors.As(err, &h) {
		if d := h.RetryAfter(); d > 0 {
			return d
		}
	}
	d := s.policy.BaseDelay << (s.attempt - 1)
	if d <= 0 || d > s.policy.MaxDelay {
		d = s.policy.MaxDelay
	}
	return d
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds, the policy is exhausted or ctx is done.
// onRetry, if not nil, is called before every wait.
func Do(ctx context.Context, p Policy, sleep SleepFunc, fn func(attempt int) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	if sleep == nil {
		sleep = Sleep
	}
	s := p.Start()
	for {
		err := fn(s.Attempt() + 1)
		if err == nil {
			return nil
		}
		// Per-request timeouts also wrap DeadlineExceeded, so only the
		// caller's own context ends the loop early.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		delay, ok := s.Fail(err)
		if !ok {
			return s.Err()
		}
		if onRetry != nil {
			onRetry(s.Attempt(), delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}
