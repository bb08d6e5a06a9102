package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(cfg Config) *run {
	o := &Orchestrator{cfg: cfg, logger: logging.NewNop(), now: time.Now}
	return &run{o: o, id: "t", logger: o.logger}
}

func quick() Config {
	cfg := DefaultConfig()
	cfg.PortTimeout = 20 * time.Millisecond
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestInvoke_Success(t *testing.T) {
	r := testRun(quick())
	res := invoke(context.Background(), r, "p", 2, func(context.Context) (int, error) { return 7, nil }, nil)
	require.True(t, res.Succeeded())
	assert.Equal(t, 7, res.Value)
}

func TestInvoke_RetriesOnce(t *testing.T) {
	var calls atomic.Int32
	r := testRun(quick())
	res := invoke(context.Background(), r, "p", 2, func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, nil)
	require.True(t, res.Succeeded())
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvoke_Failures(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(context.Context) (int, error)
		check func(int) error
		kind  domain.CapabilityKind
	}{
		{"unavailable", func(context.Context) (int, error) { return 0, errors.New("503") }, nil, domain.CapabilityUnavailable},
		{"timeout", func(ctx context.Context) (int, error) { <-ctx.Done(); return 1, nil }, nil, domain.CapabilityTimeout},
		{"panic", func(context.Context) (int, error) { panic("boom") }, nil, domain.CapabilityUnavailable},
		{"invalid output", func(context.Context) (int, error) { return -1, nil }, func(v int) error {
			return fmt.Errorf("%w: negative", domain.ErrInvalidOutput)
		}, domain.CapabilityInvalidOutput},
		{"typed", func(context.Context) (int, error) {
			return 0, &domain.CapabilityError{Port: "remote", Kind: domain.CapabilityInvalidOutput, Err: errors.New("bad json")}
		}, nil, domain.CapabilityInvalidOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRun(quick())
			res := invoke(context.Background(), r, "p", 1, tt.fn, tt.check)
			require.False(t, res.Succeeded())
			assert.Equal(t, tt.kind, res.Err.Kind)
			assert.Equal(t, "p", res.Err.Port)
			assert.Zero(t, res.Value)
		})
	}
}

func TestInvoke_LateResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	r := testRun(quick())
	res := invoke(context.Background(), r, "p", 1, func(context.Context) (int, error) {
		<-release
		return 42, nil
	}, nil)
	close(release)
	require.False(t, res.Succeeded())
	assert.Equal(t, domain.CapabilityTimeout, res.Err.Kind)
	assert.Zero(t, res.Value)
}

func TestInvoke_CanceledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	r := testRun(quick())
	res := invoke(ctx, r, "p", 2, func(context.Context) (int, error) {
		calls.Add(1)
		cancel()
		return 0, errors.New("gone")
	}, nil)
	require.False(t, res.Succeeded())
	assert.Equal(t, domain.CapabilityCanceled, res.Err.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvoke_PortCanceledKindIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	r := testRun(quick())
	res := invoke(context.Background(), r, "p", 2, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, &domain.CapabilityError{Port: "remote", Kind: domain.CapabilityCanceled, Err: context.Canceled}
	}, nil)
	require.False(t, res.Succeeded())
	assert.Equal(t, domain.CapabilityUnavailable, res.Err.Kind)
	assert.Equal(t, int32(2), calls.Load(), "a live run still retries")
}

func TestConfigAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	assert.Equal(t, 1, cfg.attempts())
	cfg.MaxRetries = 5
	assert.Equal(t, 2, cfg.attempts())
	cfg.PortTimeout = 0
	assert.Equal(t, DefaultConfig().PortTimeout, cfg.timeout())
}
