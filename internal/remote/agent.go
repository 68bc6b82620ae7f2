package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Agent protocol wire types (v1). The adscope agent service running on each
// managed host mirrors these.
type sessionRequest struct {
	ClientID string `json:"client_id"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type runRequest struct {
	Command        string            `json:"command"`
	Args           map[string]string `json:"args,omitempty"`
	Scope          string            `json:"scope,omitempty"`
	Subject        string            `json:"subject,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
}

type runResponse struct {
	ExitCode     int    `json:"exit_code"`
	Stdout       string `json:"stdout"`
	Stderr       string `json:"stderr"`
	ArtifactPath string `json:"artifact_path,omitempty"`
}

type removeRequest struct {
	Path string `json:"path"`
}

// AgentTransport talks to the adscope agent service over HTTP/JSON.
type AgentTransport struct {
	// Scheme is http or https.
	Scheme string

	// Port the agent listens on.
	Port int

	// Client is the HTTP client used for everything but probes.
	Client *http.Client

	// ProbeTimeout bounds each individual probe attempt.
	ProbeTimeout time.Duration
}

// DefaultAgentPort is where the agent service listens unless configured.
const DefaultAgentPort = 5985

// NewAgentTransport builds a transport with sane timeouts.
func NewAgentTransport(scheme string, port int) *AgentTransport {
	if scheme == "" {
		scheme = "http"
	}
	if port <= 0 {
		port = DefaultAgentPort
	}
	return &AgentTransport{
		Scheme:       scheme,
		Port:         port,
		Client:       &http.Client{Timeout: 60 * time.Second},
		ProbeTimeout: 2 * time.Second,
	}
}

func (t *AgentTransport) baseURL(host string) string {
	return fmt.Sprintf("%s://%s:%d", t.Scheme, strings.TrimRight(host, "/"), t.Port)
}

// Probe pings the agent up to attempts times. It acquires no resources and
// never returns an error; a dead host is simply not alive.
func (t *AgentTransport) Probe(ctx context.Context, host string, attempts int) bool {
	if attempts <= 0 {
		attempts = DefaultProbeAttempts
	}

	probeClient := &http.Client{Timeout: t.ProbeTimeout}
	pingURL := t.baseURL(host) + "/v1/ping"

	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
		if err != nil {
			return false
		}
		resp, err := probeClient.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true
		}
	}
	return false
}

// Open establishes an agent session on the host.
func (t *AgentTransport) Open(ctx context.Context, host string, cred Credential) (Session, error) {
	body, _ := json.Marshal(sessionRequest{ClientID: uuid.New().String()})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL(host)+"/v1/session", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Host: host, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	applyCredential(req, cred)

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Host: host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Host: host, Err: fmt.Errorf("agent returned %s", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{Host: host, Err: fmt.Errorf("session open returned %s: %s", resp.Status, strings.TrimSpace(string(b)))}
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &TransportError{Host: host, Err: fmt.Errorf("bad session response: %w", err)}
	}

	return &agentSession{transport: t, host: host, id: sr.SessionID, cred: cred}, nil
}

func applyCredential(req *http.Request, cred Credential) {
	if !cred.IsZero() {
		req.SetBasicAuth(cred.Username, cred.Secret)
	}
}

// agentSession is one open execution context on one host.
type agentSession struct {
	transport *AgentTransport
	host      string
	id        string
	cred      Credential

	mu     sync.Mutex
	closed bool
}

func (s *agentSession) Host() string { return s.host }

func (s *agentSession) sessionURL(suffix string) string {
	return s.transport.baseURL(s.host) + "/v1/session/" + s.id + suffix
}

func (s *agentSession) do(req *http.Request) (*http.Response, error) {
	applyCredential(req, s.cred)
	resp, err := s.transport.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Host: s.host, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, &AuthError{Host: s.host, Err: fmt.Errorf("agent returned %s", resp.Status)}
	}
	return resp, nil
}

// Run executes a registered operation through the agent. A non-2xx run
// response means the agent could not execute the command at all; a command
// that ran and failed comes back 200 with its exit code.
func (s *agentSession) Run(ctx context.Context, op Operation) (Output, error) {
	body, _ := json.Marshal(runRequest{
		Command:        op.Command,
		Args:           op.Args,
		Scope:          string(op.Scope),
		Subject:        op.Subject,
		TimeoutSeconds: int(op.Timeout / time.Second),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sessionURL("/run"), bytes.NewReader(body))
	if err != nil {
		return Output{}, &TransportError{Host: s.host, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return Output{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Output{}, &ExecError{
			Host:     s.host,
			Command:  op.Command,
			ExitCode: -1,
			Detail:   fmt.Sprintf("agent returned %s: %s", resp.Status, strings.TrimSpace(string(b))),
		}
	}

	var rr runResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return Output{}, &TransportError{Host: s.host, Err: fmt.Errorf("bad run response: %w", err)}
	}

	return Output{
		ExitCode:   rr.ExitCode,
		Stdout:     rr.Stdout,
		Stderr:     rr.Stderr,
		RemotePath: rr.ArtifactPath,
	}, nil
}

// Copy streams a remote file to localPath.
func (s *agentSession) Copy(ctx context.Context, remotePath, localPath string) error {
	fetchURL := s.sessionURL("/fetch") + "?path=" + url.QueryEscape(remotePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return &TransferError{Host: s.host, RemotePath: remotePath, Err: err}
	}

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &TransferError{Host: s.host, RemotePath: remotePath,
			Err: fmt.Errorf("agent returned %s: %s", resp.Status, strings.TrimSpace(string(b)))}
	}

	f, err := os.Create(localPath)
	if err != nil {
		return &TransferError{Host: s.host, RemotePath: remotePath, Err: err}
	}

	// A copy that dies mid-stream must not leave a truncated file that
	// looks like a report.
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(localPath)
		return &TransferError{Host: s.host, RemotePath: remotePath, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(localPath)
		return &TransferError{Host: s.host, RemotePath: remotePath, Err: err}
	}
	return nil
}

// Remove deletes a remote temporary file. Callers treat failure as
// best-effort and only log it.
func (s *agentSession) Remove(ctx context.Context, remotePath string) error {
	body, _ := json.Marshal(removeRequest{Path: remotePath})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sessionURL("/remove"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remove %s on %s: agent returned %s", remotePath, s.host, resp.Status)
	}
	return nil
}

// Close tears the session down. Closing twice is a no-op.
func (s *agentSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	req, err := http.NewRequest(http.MethodDelete, s.sessionURL(""), nil)
	if err != nil {
		return err
	}

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
