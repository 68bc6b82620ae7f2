package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// scriptedSession answers Run from a canned output and counts closes.
type scriptedSession struct {
	host       string
	out        remote.Output
	runErr     error
	closeCalls int32
}

func (s *scriptedSession) Host() string { return s.host }

func (s *scriptedSession) Run(ctx context.Context, op remote.Operation) (remote.Output, error) {
	return s.out, s.runErr
}

func (s *scriptedSession) Copy(ctx context.Context, remotePath, localPath string) error {
	return nil
}

func (s *scriptedSession) Remove(ctx context.Context, remotePath string) error { return nil }

func (s *scriptedSession) Close() error {
	atomic.AddInt32(&s.closeCalls, 1)
	return nil
}

type scriptedTransport struct {
	session *scriptedSession
	openErr error
}

func (t *scriptedTransport) Probe(ctx context.Context, host string, attempts int) bool {
	return true
}

func (t *scriptedTransport) Open(ctx context.Context, host string, cred remote.Credential) (remote.Session, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	return t.session, nil
}

func wirePayload(t *testing.T, events ...wireEvent) string {
	t.Helper()
	b, err := json.Marshal(events)
	require.NoError(t, err)
	return string(b)
}

func TestAgentSourceQuery(t *testing.T) {
	at := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	payload := wirePayload(t,
		wireEvent{
			Code:      4740,
			Time:      at,
			SubjectID: "S-1-5-21-1104",
			Fields:    map[string]string{FieldCallerComputer: "WKS-17", FieldSubjectName: "jdoe"},
		},
	)

	sess := &scriptedSession{host: "dc01", out: remote.Output{ExitCode: 0, Stdout: payload}}
	source := NewAgentSource(&scriptedTransport{session: sess}, nil)

	events, err := source.Query(context.Background(), "dc01", remote.Credential{}, KindAccountLockout, Window{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	// The record carried no origin; it defaults to the queried host.
	assert.Equal(t, "dc01", events[0].Origin)
	assert.Equal(t, "S-1-5-21-1104", events[0].SubjectID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sess.closeCalls), "query session must be released")
}

func TestAgentSourceEmptyResult(t *testing.T) {
	sess := &scriptedSession{host: "dc01", out: remote.Output{ExitCode: 0, Stdout: "[]"}}
	source := NewAgentSource(&scriptedTransport{session: sess}, nil)

	events, err := source.Query(context.Background(), "dc01", remote.Credential{}, KindAccountLockout, Window{})
	require.NoError(t, err, "no events in the window is not an error")
	assert.Empty(t, events)
}

func TestAgentSourcePrivilegeFailure(t *testing.T) {
	sess := &scriptedSession{host: "dc01", out: remote.Output{ExitCode: 5, Stderr: "Access is denied."}}
	source := NewAgentSource(&scriptedTransport{session: sess}, nil)

	_, err := source.Query(context.Background(), "dc01", remote.Credential{}, KindAccountLockout, Window{})
	require.Error(t, err)

	var opErr *errors.AdscopeError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, errors.ErrCodeEventPrivilege, opErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sess.closeCalls))
}

func TestAgentSourceBadPayload(t *testing.T) {
	sess := &scriptedSession{host: "dc01", out: remote.Output{ExitCode: 0, Stdout: "not json"}}
	source := NewAgentSource(&scriptedTransport{session: sess}, nil)

	_, err := source.Query(context.Background(), "dc01", remote.Credential{}, KindAccountLockout, Window{})
	require.Error(t, err)
}

func TestAgentResolver(t *testing.T) {
	sess := &scriptedSession{host: "dc01", out: remote.Output{ExitCode: 0, Stdout: `{"sid":"S-1-5-21-1104"}`}}
	resolver := NewAgentResolver(&scriptedTransport{session: sess}, "dc01", remote.Credential{})

	sid, err := resolver.Resolve(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "S-1-5-21-1104", sid)
}

func TestAgentResolverUnknownAccount(t *testing.T) {
	sess := &scriptedSession{host: "dc01", out: remote.Output{ExitCode: 1, Stderr: "no such account"}}
	resolver := NewAgentResolver(&scriptedTransport{session: sess}, "dc01", remote.Credential{})

	_, err := resolver.Resolve(context.Background(), "ghost")
	require.Error(t, err)

	var opErr *errors.AdscopeError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, errors.ErrCodeIdentityResolve, opErr.Code)
}

func TestAgentSourceOpenFailurePropagates(t *testing.T) {
	openErr := &remote.TransportError{Host: "dc01", Err: fmt.Errorf("connection refused")}
	source := NewAgentSource(&scriptedTransport{openErr: openErr}, nil)

	_, err := source.Query(context.Background(), "dc01", remote.Credential{}, KindAccountLockout, Window{})
	require.Error(t, err)
	assert.Equal(t, errors.ClassUnreachableHost, errors.Classify(err))
}
