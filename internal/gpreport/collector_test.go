package gpreport

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// hostSession fakes the agent side for one host: the report operation
// succeeds and Copy materializes a small local file.
type hostSession struct {
	host       string
	exitCode   int
	stderr     string
	noArtifact bool
	closeCalls int32
}

func (s *hostSession) Host() string { return s.host }

func (s *hostSession) Run(ctx context.Context, op remote.Operation) (remote.Output, error) {
	out := remote.Output{
		ExitCode:   s.exitCode,
		Stderr:     s.stderr,
		RemotePath: `C:\Windows\Temp\gpreport.html`,
	}
	if s.noArtifact {
		out.RemotePath = ""
	}
	return out, nil
}

func (s *hostSession) Copy(ctx context.Context, remotePath, localPath string) error {
	return os.WriteFile(localPath, []byte("<html>report</html>"), 0o644)
}

func (s *hostSession) Remove(ctx context.Context, remotePath string) error { return nil }

func (s *hostSession) Close() error {
	atomic.AddInt32(&s.closeCalls, 1)
	return nil
}

// fleetTransport hands out one fake session per host and counts opens so
// tests can assert unreachable hosts never get one.
type fleetTransport struct {
	unreachable map[string]bool
	failExec    map[string]bool
	noArtifact  map[string]bool

	mu       sync.Mutex
	opens    map[string]int
	sessions []*hostSession
}

func newFleetTransport() *fleetTransport {
	return &fleetTransport{
		unreachable: map[string]bool{},
		failExec:    map[string]bool{},
		noArtifact:  map[string]bool{},
		opens:       map[string]int{},
	}
}

func (t *fleetTransport) Probe(ctx context.Context, host string, attempts int) bool {
	return !t.unreachable[host]
}

func (t *fleetTransport) Open(ctx context.Context, host string, cred remote.Credential) (remote.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.opens[host]++
	sess := &hostSession{host: host, noArtifact: t.noArtifact[host]}
	if t.failExec[host] {
		sess.exitCode = 1
		sess.stderr = "the report generation failed"
	}
	t.sessions = append(t.sessions, sess)
	return sess, nil
}

func (t *fleetTransport) openCount(host string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens[host]
}

func newCollector(t *fleetTransport) *Collector {
	prober := remote.NewProber(t, 2, nil)
	return New(t, prober, nil, nil)
}

func TestCollectPartialFleet(t *testing.T) {
	transport := newFleetTransport()
	transport.unreachable["srv-b"] = true

	c := newCollector(transport)
	reports, err := c.Collect(context.Background(), Options{
		Hosts:  []string{"srv-a", "srv-b", "srv-c"},
		Scope:  remote.ScopeComputer,
		Output: t.TempDir(),
	})
	require.NoError(t, err, "one dead host must not fail the batch")
	require.Len(t, reports, 3)

	assert.Equal(t, []string{"srv-a", "srv-b", "srv-c"},
		[]string{reports[0].Host, reports[1].Host, reports[2].Host})

	assert.True(t, reports[1].Failed())
	assert.Equal(t, errors.ClassUnreachableHost, reports[1].Classification)
	assert.Zero(t, transport.openCount("srv-b"), "no session may be opened after a failed probe")

	for _, i := range []int{0, 2} {
		report := reports[i]
		require.False(t, report.Failed(), "host %s", report.Host)
		require.NotNil(t, report.Artifact)

		info, statErr := os.Stat(report.Artifact.Path)
		require.NoError(t, statErr)
		assert.Equal(t, info.Size(), report.Artifact.Size)
	}
	assert.NotEqual(t, reports[0].Artifact.Path, reports[2].Artifact.Path)

	for _, sess := range transport.sessions {
		assert.Equal(t, int32(1), atomic.LoadInt32(&sess.closeCalls),
			"session on %s must be released exactly once", sess.host)
	}
}

func TestCollectExecFailureIsIsolated(t *testing.T) {
	transport := newFleetTransport()
	transport.failExec["srv-a"] = true

	c := newCollector(transport)
	reports, err := c.Collect(context.Background(), Options{
		Hosts:  []string{"srv-a", "srv-b"},
		Scope:  remote.ScopeComputer,
		Output: t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, errors.ClassRemoteExecutionFailure, reports[0].Classification)
	assert.Contains(t, reports[0].Message, "report generation failed")
	assert.False(t, reports[1].Failed())
}

func TestCollectSuccessWithoutArtifactIsClassified(t *testing.T) {
	transport := newFleetTransport()
	transport.noArtifact["srv-a"] = true

	c := newCollector(transport)

	// Exercise both the sequential and the fanned-out path: neither may
	// crash on an exit-0 response that left no file behind.
	for _, concurrency := range []int{1, 5} {
		reports, err := c.Collect(context.Background(), Options{
			Hosts:       []string{"srv-a", "srv-b"},
			Scope:       remote.ScopeComputer,
			Output:      t.TempDir(),
			Concurrency: concurrency,
		})
		require.NoError(t, err)
		require.Len(t, reports, 2)

		assert.True(t, reports[0].Failed())
		assert.Equal(t, errors.ClassRemoteExecutionFailure, reports[0].Classification)
		assert.Contains(t, reports[0].Message, "produced no artifact")
		assert.Nil(t, reports[0].Artifact)

		assert.False(t, reports[1].Failed(), "the other host's report must still succeed")
		require.NotNil(t, reports[1].Artifact)
	}
}

func TestCollectEmptyHostListIsFatal(t *testing.T) {
	c := newCollector(newFleetTransport())

	_, err := c.Collect(context.Background(), Options{Scope: remote.ScopeComputer})
	require.Error(t, err)

	var opErr *errors.AdscopeError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, errors.ErrCodeNoHosts, opErr.Code)
}

func TestCollectUserScopeRequiresSubject(t *testing.T) {
	c := newCollector(newFleetTransport())

	for _, scope := range []remote.Scope{remote.ScopeUser, remote.ScopeBoth} {
		_, err := c.Collect(context.Background(), Options{
			Hosts: []string{"srv-a"},
			Scope: scope,
		})
		require.Error(t, err, "scope %s", scope)

		var opErr *errors.AdscopeError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, errors.ErrCodeConfigInvalid, opErr.Code)
	}

	_, err := c.Collect(context.Background(), Options{
		Hosts:   []string{"srv-a"},
		Scope:   remote.ScopeUser,
		Subject: `CORP\jdoe`,
		Output:  t.TempDir(),
	})
	require.NoError(t, err)
}
