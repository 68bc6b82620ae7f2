// Package remote defines the collaborator contracts for talking to managed
// Windows hosts — reachability probing, session establishment, remote command
// execution, and artifact transfer — together with the typed errors those
// collaborators surface.
package remote

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/adscope/internal/errors"
)

// Credential identifies an alternate account for remote operations.
// The zero value means "connect as the calling user".
type Credential struct {
	Username string
	Secret   string
}

// IsZero reports whether no alternate credential was supplied.
func (c Credential) IsZero() bool {
	return c.Username == "" && c.Secret == ""
}

// Output is the result of one remote command.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// RemotePath is set when the command produced a file on the remote
	// host that the caller is expected to fetch and clean up.
	RemotePath string
}

// Session is a stateful remote execution context bound to one host.
// A Session never outlives the task that opened it and is never shared
// across hosts.
type Session interface {
	// Host returns the host this session is bound to.
	Host() string

	// Run executes a registered operation. A non-nil error means the
	// command could not be executed at all; command-level failure is
	// reported through Output.ExitCode.
	Run(ctx context.Context, op Operation) (Output, error)

	// Copy transfers a remote file to a local path.
	Copy(ctx context.Context, remotePath, localPath string) error

	// Remove deletes a remote temporary file.
	Remove(ctx context.Context, remotePath string) error

	// Close releases the remote execution context. Close is idempotent.
	Close() error
}

// Transport establishes sessions and answers reachability probes.
type Transport interface {
	// Probe reports whether the host answers within the given number of
	// attempts. It has no side effects and acquires no resources.
	Probe(ctx context.Context, host string, attempts int) bool

	// Open establishes a session on the host. Opening successfully does
	// not imply the host will accept a subsequent command.
	Open(ctx context.Context, host string, cred Credential) (Session, error)
}

// TransportError is a connection-level failure: the host could not be
// reached or the session could not be established.
type TransportError struct {
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure on %s: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Category declares the structured failure category for classification.
func (e *TransportError) Category() errors.Category { return errors.CategoryTransport }

// AuthError means the transport rejected the supplied credential.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization failure on %s: %v", e.Host, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Category() errors.Category { return errors.CategoryAuth }

// ExecError means the session was healthy but the remote command failed.
type ExecError struct {
	Host     string
	Command  string
	ExitCode int
	Detail   string
}

func (e *ExecError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("remote command %s failed on %s with exit status %d: %s",
			e.Command, e.Host, e.ExitCode, e.Detail)
	}
	return fmt.Sprintf("remote command %s failed on %s with exit status %d",
		e.Command, e.Host, e.ExitCode)
}

func (e *ExecError) Category() errors.Category { return errors.CategoryRemoteExec }

// TransferError means the remote-to-local artifact copy failed.
type TransferError struct {
	Host       string
	RemotePath string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("artifact transfer from %s failed for %s: %v", e.Host, e.RemotePath, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func (e *TransferError) Category() errors.Category { return errors.CategoryTransfer }
