// Package correlate reconstructs the causal chain behind account lockouts:
// each primary lockout event is enriched with the nearest-preceding logon
// failure for the same account on the host the lockout originated from.
package correlate

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/event"
	"github.com/felixgeelhaar/adscope/internal/log"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// Phase is the correlator's position in its pipeline. Transitions run
// strictly forward; per-event failures degrade that event's result instead
// of moving the machine backwards.
type Phase string

const (
	PhaseIdle               Phase = "Idle"
	PhaseFetchingPrimary    Phase = "FetchingPrimary"
	PhaseFilteringBySubject Phase = "FilteringBySubject"
	PhasePerEventProbe      Phase = "PerEventProbe"
	PhaseFetchingSecondary  Phase = "FetchingSecondary"
	PhaseMerging            Phase = "Merging"
	PhaseDone               Phase = "Done"
)

// Result is one correlated lockout. Secondary is nil when no matching logon
// failure was found or the origin host was unreachable; that is recorded as
// a CorrelationMiss, never as a batch error.
type Result struct {
	Primary   event.Event
	Secondary *event.Event

	// Reason carries the decoded failure reason when a secondary event
	// was attached.
	Reason string

	// Classification is ClassCorrelationMiss with MissDetail set when
	// enrichment is absent, and empty on a full match.
	Classification errors.Classification
	MissDetail     string
}

// Enriched reports whether a secondary event was attached.
func (r Result) Enriched() bool {
	return r.Secondary != nil
}

// Options select what to correlate.
type Options struct {
	// PrimaryHost is the event source for lockout events, typically the
	// domain controller holding the PDC emulator role.
	PrimaryHost string

	Credential remote.Credential

	// Subject optionally narrows the investigation to one account name.
	// It is resolved to a stable identifier before any matching happens.
	Subject string

	// Window optionally bounds the primary query.
	Window event.Window
}

// Correlator runs the two-hop pipeline.
type Correlator struct {
	source   event.Source
	resolver event.IdentityResolver
	prober   *remote.Prober
	logger   *log.Logger
	phase    Phase
}

// New builds a correlator.
func New(source event.Source, resolver event.IdentityResolver, prober *remote.Prober, logger *log.Logger) *Correlator {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Correlator{
		source:   source,
		resolver: resolver,
		prober:   prober,
		logger:   logger,
		phase:    PhaseIdle,
	}
}

// Phase returns where the correlator currently is in its pipeline.
func (c *Correlator) Phase() Phase {
	return c.phase
}

func (c *Correlator) enter(p Phase) {
	c.phase = p
	c.logger.Debug("correlator phase", "phase", string(p))
}

// Run executes one correlation. The only fatal failures are the primary
// query itself erroring (insufficient privilege, unreachable source) and a
// subject name that cannot be resolved; everything downstream degrades
// per event.
func (c *Correlator) Run(ctx context.Context, opts Options) ([]Result, error) {
	c.enter(PhaseFetchingPrimary)
	primaries, err := c.source.Query(ctx, opts.PrimaryHost, opts.Credential, event.KindAccountLockout, opts.Window)
	if err != nil {
		return nil, err
	}
	if len(primaries) == 0 {
		c.enter(PhaseDone)
		return []Result{}, nil
	}

	if opts.Subject != "" {
		c.enter(PhaseFilteringBySubject)
		sid, err := c.resolver.Resolve(ctx, opts.Subject)
		if err != nil {
			return nil, err
		}

		kept := primaries[:0]
		for _, p := range primaries {
			if p.SubjectID == sid {
				kept = append(kept, p)
			}
		}
		primaries = kept
	}

	results := make([]Result, 0, len(primaries))
	for _, primary := range primaries {
		results = append(results, c.enrich(ctx, opts, primary))
	}

	c.enter(PhaseDone)
	return results, nil
}

// enrich runs the probe → secondary fetch → merge hops for one primary
// event. Any failure along the way yields a primary-only result.
func (c *Correlator) enrich(ctx context.Context, opts Options, primary event.Event) Result {
	result := Result{Primary: primary}

	origin := primary.Field(event.FieldCallerComputer)
	if origin == "" {
		return miss(result, "lockout event carries no origin host")
	}

	c.enter(PhasePerEventProbe)
	if !c.prober.Alive(ctx, origin) {
		c.logger.WithHost(origin).Warn("lockout origin host unreachable, returning primary-only result")
		return miss(result, fmt.Sprintf("origin host %s is unreachable", origin))
	}

	c.enter(PhaseFetchingSecondary)
	window := event.Window{Since: opts.Window.Since, Until: primary.Time}
	secondaries, err := c.source.Query(ctx, origin, opts.Credential, event.KindLogonFailure, window)
	if err != nil {
		c.logger.WithHost(origin).WithError(err).Warn("secondary event query failed")
		return miss(result, fmt.Sprintf("logon-failure query on %s failed: %v", origin, err))
	}

	c.enter(PhaseMerging)
	secondary := nearestBefore(secondaries, primary)
	if secondary == nil {
		return miss(result, fmt.Sprintf("no logon failure for the same account precedes the lockout on %s", origin))
	}

	result.Secondary = secondary
	result.Reason = secondary.Field(event.FieldFailureReason)
	return result
}

func miss(r Result, detail string) Result {
	r.Classification = errors.ClassCorrelationMiss
	r.MissDetail = detail
	return r
}

// nearestBefore selects the candidate whose timestamp is nearest before the
// primary's, restricted to the same stable identifier. A candidate recorded
// at the exact lockout instant is not "preceding" and is skipped. Display
// names are never consulted; they collide and get reused.
func nearestBefore(candidates []event.Event, primary event.Event) *event.Event {
	var best *event.Event
	for i := range candidates {
		cand := &candidates[i]
		if cand.SubjectID != primary.SubjectID {
			continue
		}
		if !cand.Time.Before(primary.Time) {
			continue
		}
		if best == nil || cand.Time.After(best.Time) {
			best = cand
		}
	}
	return best
}
