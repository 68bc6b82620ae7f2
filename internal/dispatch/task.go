// Package dispatch fans host tasks out across a bounded worker pool and
// aggregates one report per host. One host's failure never cancels or delays
// another's.
package dispatch

import (
	"time"

	"github.com/felixgeelhaar/adscope/internal/artifact"
	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// Task is the unit of work dispatched to one remote machine. It is immutable
// once handed to the dispatcher.
type Task struct {
	Host       string
	Credential remote.Credential
	Operation  remote.Operation

	// Timeout bounds the whole task (probe through cleanup). Zero means
	// no per-task deadline beyond what the transport enforces.
	Timeout time.Duration
}

// Report is the per-host outcome: either an artifact/value payload or a
// classified failure, never both.
type Report struct {
	Host    string
	Elapsed time.Duration

	// Artifact is set when the task produced and verified a local file.
	Artifact *artifact.Artifact

	// Value is set for operations returning data instead of a file.
	Value string

	// Classification and Message are set when the task failed.
	Classification errors.Classification
	Message        string
}

// Failed reports whether the task ended in a classified failure.
func (r Report) Failed() bool {
	return r.Classification.IsFailure()
}
