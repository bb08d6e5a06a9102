package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/triage/pkg/domain"
)

// Port names used in logs, metrics and capability errors.
const (
	PortReasoner   = "reasoner"
	PortReviewer   = "safety_reviewer"
	PortSummarizer = "summarizer"
	PortVerifier   = "verifier"
	PortEvidence   = "evidence"
	PortValidator  = "validator"
)

// invoke calls fn with a per-attempt timeout, retrying once after a fixed
// backoff. A call that outlives its timeout is abandoned; its late result is
// discarded and never reaches the run.
func invoke[T any](ctx context.Context, r *run, port string, attempts int, fn func(context.Context) (T, error), check func(T) error) domain.Result[T] {
	start := r.o.now()
	var failure *domain.CapabilityError
	n := 0
	for n < attempts {
		if n > 0 {
			if !sleep(ctx, r.o.cfg.RetryBackoff) {
				failure = &domain.CapabilityError{Port: port, Kind: domain.CapabilityCanceled, Err: ctx.Err()}
				break
			}
		}
		n++

		v, err := attempt(ctx, r.o.cfg.timeout(), fn)
		if err == nil && check != nil {
			err = check(v)
		}
		if err == nil {
			r.portEvent(ctx, port, n, start, "")
			return domain.OK(v)
		}

		failure = classify(ctx, port, err)
		r.logger.Warn("advisory call failed", "port", port, "attempt", n, "kind", failure.Kind, "error", failure.Err)
		if failure.Kind == domain.CapabilityCanceled {
			break
		}
	}
	r.portEvent(ctx, port, n, start, failure.Kind)
	return domain.Fail[T](failure)
}

func attempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		v, err := fn(actx)
		ch <- result{v: v, err: err}
	}()

	var zero T
	select {
	case out := <-ch:
		if err := actx.Err(); err != nil {
			return zero, err
		}
		return out.v, out.err
	case <-actx.Done():
		return zero, actx.Err()
	}
}

func classify(ctx context.Context, port string, err error) *domain.CapabilityError {
	var ce *domain.CapabilityError
	switch {
	case ctx.Err() != nil:
		return &domain.CapabilityError{Port: port, Kind: domain.CapabilityCanceled, Err: ctx.Err()}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.CapabilityError{Port: port, Kind: domain.CapabilityTimeout, Err: err}
	case errors.As(err, &ce):
		kind := ce.Kind
		if kind == domain.CapabilityCanceled {
			// only the run's own context cancels a run
			kind = domain.CapabilityUnavailable
		}
		return &domain.CapabilityError{Port: port, Kind: kind, Err: ce.Err}
	case errors.Is(err, domain.ErrInvalidOutput):
		return &domain.CapabilityError{Port: port, Kind: domain.CapabilityInvalidOutput, Err: err}
	}
	return &domain.CapabilityError{Port: port, Kind: domain.CapabilityUnavailable, Err: err}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
