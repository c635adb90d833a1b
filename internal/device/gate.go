package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trio-driver/internal/metrics"
)

// Locker guards the phone across processes. Lock blocks until the lock is
// held or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// Gate serializes every request to one phone. The device cannot handle
// overlapping requests, so at most one is in flight at a time, including the
// wait for its response.
type Gate struct {
	sem     chan struct{}
	doer    Doer
	locker  Locker
	metrics *metrics.Collector
}

type GateOption func(*Gate)

func WithLocker(l Locker) GateOption { return func(g *Gate) { g.locker = l } }

func WithMetrics(m *metrics.Collector) GateOption { return func(g *Gate) { g.metrics = m } }

func NewGate(doer Doer, opts ...GateOption) *Gate {
	g := &Gate{sem: make(chan struct{}, 1), doer: doer}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Execute waits for exclusive access to the phone and performs req.
// Callers are served in arrival order as far as the runtime allows; no
// fairness beyond that is promised.
func (g *Gate) Execute(ctx context.Context, req Request) (Envelope, error) {
	waitStart := time.Now()
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
	defer func() { <-g.sem }()

	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx)
		if err != nil {
			return Envelope{}, fmt.Errorf("device: acquire lock for %s: %w", req.Path, err)
		}
		defer unlock()
	}
	g.metrics.ObserveGateWait(time.Since(waitStart))

	start := time.Now()
	env, err := g.doer.Do(ctx, req)
	g.metrics.ObserveRequest(req.Path, outcome(env, err), time.Since(start))
	return env, err
}

func outcome(env Envelope, err error) string {
	switch {
	case err == nil:
		return string(env.Status)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport_error"
	}
}
