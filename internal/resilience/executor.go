package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"fleetdocs/internal/logger"
)

// ErrorClassification tells the executor whether an error is worth another
// attempt and whether it counts against the operation's breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Operation names a remote call as "<system>.<name>", e.g. "graphql.uploadDocument".
// One breaker exists per operation name.
func Operation(system, name string) string {
	system = strings.TrimSpace(system)
	name = strings.TrimSpace(name)
	switch {
	case system == "" && name == "":
		return "unknown"
	case system == "":
		return name
	case name == "":
		return system
	}
	return system + "." + name
}

// Transient retries network-level failures. Reads against the fleet backend
// use it; a caller cancel is neither retried nor held against the breaker.
func Transient(err error) ErrorClassification {
	if errors.Is(err, context.Canceled) {
		return ErrorClassification{}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{RecordFailure: true}
}

// NeverRetry is for mutations: an upload or delete that may have reached the
// backend must not be sent twice.
func NeverRetry(err error) ErrorClassification {
	return ErrorClassification{RecordFailure: !errors.Is(err, context.Canceled)}
}

// Executor runs remote calls with retry/backoff and one circuit breaker per operation.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute runs fn under operation's breaker. A nil classifier means NeverRetry.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify ErrorClassifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: %s: callback is nil", operation)
	}
	op := Operation("", operation)
	if classify == nil {
		classify = NeverRetry
	}
	if !e.cfg.BreakerEnabled {
		return e.attempt(ctx, op, fn, classify)
	}

	_, err := e.breaker(op, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.attempt(ctx, op, fn, classify)
	})
	return err
}

// State reports the breaker state of an operation. Operations that never
// ran, or run with breakers disabled, report closed.
func (e *Executor) State(operation string) gobreaker.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.breakers[Operation("", operation)]; ok {
		return b.State()
	}
	return gobreaker.StateClosed
}

func (e *Executor) attempt(ctx context.Context, op string, fn func(context.Context) error, classify ErrorClassifier) error {
	var err error
	for n := 1; n <= e.cfg.RetryMaxAttempts; n++ {
		if cerr := ctx.Err(); cerr != nil {
			if err != nil {
				return err
			}
			return cerr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !classify(err).Retryable || n == e.cfg.RetryMaxAttempts {
			return err
		}

		wait := e.backoff(n)
		l := logger.Get()
		l.Warn().Err(err).
			Str("operation", op).
			Int("attempt", n).
			Int("max_attempts", e.cfg.RetryMaxAttempts).
			Dur("backoff", wait).
			Msg("remote_call_retry")
		if !sleep(ctx, wait) {
			return err
		}
	}
	return err
}

// backoff is the wait after attempt n (1-based), growing by the multiplier
// and capped at RetryMaxBackoff.
func (e *Executor) backoff(n int) time.Duration {
	d := float64(e.cfg.RetryInitialBackoff)
	for i := 1; i < n; i++ {
		d *= e.cfg.RetryMultiplier
		if d >= float64(e.cfg.RetryMaxBackoff) {
			return e.cfg.RetryMaxBackoff
		}
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (e *Executor) breaker(op string, classify ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.breakers[op]; ok {
		return b
	}

	cfg := e.cfg
	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        op,
		MaxRequests: cfg.BreakerHalfOpenMaxCalls,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.BreakerMinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l := logger.Get()
			l.Warn().Str("operation", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit_breaker_state_change")
		},
	})
	e.breakers[op] = b
	return b
}

// IsCircuitOpen reports whether err came from a breaker refusing the call.
// The HTTP layer maps it to 503.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
