package remote

import (
	"context"
	"sync"
)

// LeaseState tracks where a session lease is in its lifecycle.
type LeaseState int

const (
	// LeaseCreated means the lease exists but no session was opened yet.
	LeaseCreated LeaseState = iota
	// LeaseActive means the session is open and usable.
	LeaseActive
	// LeaseClosed means the session was released.
	LeaseClosed
	// LeaseFailed means session establishment failed; there is nothing
	// to release.
	LeaseFailed
)

// String returns the lifecycle state name.
func (s LeaseState) String() string {
	switch s {
	case LeaseCreated:
		return "Created"
	case LeaseActive:
		return "Active"
	case LeaseClosed:
		return "Closed"
	case LeaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Lease pairs an open session with an exactly-once release. Release is safe
// to call any number of times, from any exit path, on any state.
type Lease struct {
	mu      sync.Mutex
	once    sync.Once
	session Session
	state   LeaseState
}

// newLease wraps an open session. A nil session produces a failed lease
// whose Release is a no-op.
func newLease(s Session) *Lease {
	l := &Lease{session: s}
	if s == nil {
		l.state = LeaseFailed
	} else {
		l.state = LeaseActive
	}
	return l
}

// Session returns the leased session, or nil when the lease failed.
func (l *Lease) Session() Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LeaseActive {
		return nil
	}
	return l.session
}

// State returns the current lifecycle state.
func (l *Lease) State() LeaseState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Release closes the underlying session exactly once. Calls after the first,
// and calls on a failed lease, are no-ops returning nil.
func (l *Lease) Release() error {
	var err error
	l.once.Do(func() {
		l.mu.Lock()
		active := l.state == LeaseActive
		if active {
			l.state = LeaseClosed
		}
		l.mu.Unlock()

		if active {
			err = l.session.Close()
		}
	})
	return err
}

// WithSession opens a session on host, runs fn against it, and guarantees
// the session is released on every exit path — an error return and a panic
// in fn alike. The open error is returned untouched so it classifies by its
// own category.
func WithSession(ctx context.Context, t Transport, host string, cred Credential, fn func(Session) error) error {
	s, err := t.Open(ctx, host, cred)
	if err != nil {
		return err
	}

	lease := newLease(s)
	defer lease.Release()

	return fn(lease.Session())
}
