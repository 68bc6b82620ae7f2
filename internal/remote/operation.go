package remote

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/adscope/internal/errors"
)

// Scope narrows which facet of a remote report is requested.
type Scope string

const (
	// ScopeComputer requests computer-side settings only.
	ScopeComputer Scope = "computer"
	// ScopeUser requests user-side settings only.
	ScopeUser Scope = "user"
	// ScopeBoth requests both facets.
	ScopeBoth Scope = "both"
)

// ParseScope validates a scope selector from the CLI.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeComputer, ScopeUser, ScopeBoth:
		return Scope(s), nil
	default:
		return "", errors.New(errors.ErrCodeRemoteScope,
			fmt.Sprintf("unknown scope %q", s)).
			WithSuggestion("Use one of: computer, user, both")
	}
}

// Registered remote commands, protocol v1. The remote side executes a fixed
// implementation per name; it never receives executable text. New operations
// are added by registering a name here and implementing it agent-side.
const (
	// CmdGPReport generates a Group Policy result report on the host and
	// leaves it as a remote temporary file.
	CmdGPReport = "gp-report"

	// CmdEventQuery reads a structured event source on the host.
	CmdEventQuery = "event-query"

	// CmdResolveSID resolves an account name to its security identifier
	// through the directory.
	CmdResolveSID = "resolve-sid"
)

// commandRegistry maps each registered command to whether it leaves a remote
// file behind for the caller to fetch.
var commandRegistry = map[string]bool{
	CmdGPReport:   true,
	CmdEventQuery: false,
	CmdResolveSID: false,
}

// Operation describes one unit of remote work: a registered command name
// plus structured arguments. Scope and subject travel as data so the remote
// operation stays a pure function of its inputs. Immutable once dispatched.
type Operation struct {
	Command string
	Args    map[string]string
	Scope   Scope
	Subject string
	Timeout time.Duration
}

// NewOperation builds a validated Operation. Unknown command names are
// rejected here, once, rather than on the remote side.
func NewOperation(command string, args map[string]string) (Operation, error) {
	if _, ok := commandRegistry[command]; !ok {
		return Operation{}, errors.New(errors.ErrCodeUnknownCommand,
			fmt.Sprintf("unknown remote command %q", command))
	}
	return Operation{Command: command, Args: args}, nil
}

// WithScope returns a copy of the operation carrying a scope selector.
func (op Operation) WithScope(scope Scope) Operation {
	op.Scope = scope
	return op
}

// WithSubject returns a copy of the operation targeting one account.
func (op Operation) WithSubject(subject string) Operation {
	op.Subject = subject
	return op
}

// WithTimeout returns a copy of the operation carrying a remote-side timeout.
func (op Operation) WithTimeout(d time.Duration) Operation {
	op.Timeout = d
	return op
}

// ProducesFile reports whether the command leaves a remote file to fetch.
func (op Operation) ProducesFile() bool {
	return commandRegistry[op.Command]
}
