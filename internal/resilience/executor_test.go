package resilience

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdocs/internal/config"
)

func fastConfig(breaker bool) Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         2 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          breaker,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func dialError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "graphql.uploadDocument", Operation("graphql", "uploadDocument"))
	assert.Equal(t, "nats.publish", Operation(" nats ", "publish "))
	assert.Equal(t, "graphql.entityDocuments", Operation("", "graphql.entityDocuments"))
	assert.Equal(t, "graphql", Operation("graphql", ""))
	assert.Equal(t, "unknown", Operation("", " "))
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name     string
		classify ErrorClassifier
		err      error
		want     ErrorClassification
	}{
		{"transient network error", Transient, dialError(), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"transient rejected", Transient, errors.New("graphql: not allowed"), ErrorClassification{RecordFailure: true}},
		{"transient canceled", Transient, context.Canceled, ErrorClassification{}},
		{"mutation network error", NeverRetry, dialError(), ErrorClassification{RecordFailure: true}},
		{"mutation canceled", NeverRetry, context.Canceled, ErrorClassification{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.classify(tt.err))
		})
	}
}

func TestExecute_RetriesNetworkFailureOnReads(t *testing.T) {
	exec := NewExecutor(fastConfig(false))

	attempts := 0
	err := exec.Execute(context.Background(), Operation("graphql", "entityDocuments"), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return dialError()
		}
		return nil
	}, Transient)

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecute_GivesUpAfterMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig(false))

	attempts := 0
	err := exec.Execute(context.Background(), "graphql.documentTypeAssignments", func(context.Context) error {
		attempts++
		return dialError()
	}, Transient)

	var opErr *net.OpError
	assert.ErrorAs(t, err, &opErr)
	assert.Equal(t, 3, attempts)
}

func TestExecute_NeverRetriesMutations(t *testing.T) {
	exec := NewExecutor(fastConfig(false))

	attempts := 0
	err := exec.Execute(context.Background(), "graphql.uploadDocument", func(context.Context) error {
		attempts++
		return dialError()
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecute_NilCallback(t *testing.T) {
	exec := NewExecutor(DefaultConfig())
	assert.ErrorContains(t, exec.Execute(context.Background(), "graphql.deleteDocument", nil, nil), "graphql.deleteDocument")
}

func TestExecute_CanceledContext(t *testing.T) {
	exec := NewExecutor(fastConfig(false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "graphql.archiveDocument", func(context.Context) error {
		called = true
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestExecute_OpensCircuitPerOperation(t *testing.T) {
	cfg := fastConfig(true)
	cfg.RetryMaxAttempts = 1
	exec := NewExecutor(cfg)

	rejected := errors.New("backend down")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "graphql.archiveDocument", func(context.Context) error {
			return rejected
		}, nil)
		assert.ErrorIs(t, err, rejected)
	}
	assert.Equal(t, gobreaker.StateOpen, exec.State("graphql.archiveDocument"))

	err := exec.Execute(context.Background(), "graphql.archiveDocument", func(context.Context) error {
		t.Fatal("open circuit must not call the operation")
		return nil
	}, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsCircuitOpen(err))

	// other operations keep their own breaker
	assert.Equal(t, gobreaker.StateClosed, exec.State("graphql.deleteDocument"))
	require.NoError(t, exec.Execute(context.Background(), "graphql.deleteDocument", func(context.Context) error {
		return nil
	}, nil))
}

func TestExecute_CanceledCallsDoNotTripBreaker(t *testing.T) {
	cfg := fastConfig(true)
	cfg.RetryMaxAttempts = 1
	exec := NewExecutor(cfg)

	for i := 0; i < 4; i++ {
		_ = exec.Execute(context.Background(), "graphql.uploadDocument", func(context.Context) error {
			return context.Canceled
		}, NeverRetry)
	}
	assert.Equal(t, gobreaker.StateClosed, exec.State("graphql.uploadDocument"))
}

func TestBackoff(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     350 * time.Millisecond,
		RetryMultiplier:     2,
	})

	assert.Equal(t, 100*time.Millisecond, exec.backoff(1))
	assert.Equal(t, 200*time.Millisecond, exec.backoff(2))
	assert.Equal(t, 350*time.Millisecond, exec.backoff(3))
	assert.Equal(t, 350*time.Millisecond, exec.backoff(4))
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.ResilienceConfig{
		RetryMaxAttempts:      0,
		RetryInitialBackoffMs: 200,
		RetryMaxBackoffMs:     50,
		BreakerEnabled:        false,
	})

	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryInitialBackoff)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryMaxBackoff)
	assert.False(t, cfg.BreakerEnabled)
}
