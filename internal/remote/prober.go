package remote

import (
	"context"

	"github.com/felixgeelhaar/adscope/internal/log"
)

// DefaultProbeAttempts is the fixed small probe count used when the caller
// does not configure one.
const DefaultProbeAttempts = 2

// Prober performs the cheap liveness check that precedes any session setup.
// A host that fails the probe must never reach Transport.Open.
type Prober struct {
	transport Transport
	attempts  int
	logger    *log.Logger
}

// NewProber builds a prober over the transport. attempts <= 0 falls back to
// DefaultProbeAttempts.
func NewProber(t Transport, attempts int, logger *log.Logger) *Prober {
	if attempts <= 0 {
		attempts = DefaultProbeAttempts
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Prober{transport: t, attempts: attempts, logger: logger}
}

// Alive reports whether the host answered within the configured attempts.
func (p *Prober) Alive(ctx context.Context, host string) bool {
	alive := p.transport.Probe(ctx, host, p.attempts)
	if !alive {
		p.logger.WithHost(host).Debug("probe failed", "attempts", p.attempts)
	}
	return alive
}
