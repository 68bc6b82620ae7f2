package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Host errors (HOST-001 to HOST-099)
	ErrCodeHostUnreachable ErrorCode = "HOST-001"
	ErrCodeNoHosts         ErrorCode = "HOST-002"

	// Transport errors (TRANSPORT-001 to TRANSPORT-099)
	ErrCodeTransportAuth    ErrorCode = "TRANSPORT-001"
	ErrCodeTransportSession ErrorCode = "TRANSPORT-002"

	// Remote execution errors (EXEC-001 to EXEC-099)
	ErrCodeRemoteExec      ErrorCode = "EXEC-001"
	ErrCodeRemoteTimeout   ErrorCode = "EXEC-002"
	ErrCodeUnknownCommand  ErrorCode = "EXEC-003"
	ErrCodeRemoteScope     ErrorCode = "EXEC-004"

	// Artifact transfer errors (XFER-001 to XFER-099)
	ErrCodeArtifactTransfer ErrorCode = "XFER-001"
	ErrCodeArtifactEmpty    ErrorCode = "XFER-002"
	ErrCodeArtifactPath     ErrorCode = "XFER-003"

	// Event source errors (EVENT-001 to EVENT-099)
	ErrCodeEventQuery       ErrorCode = "EVENT-001"
	ErrCodeEventPrivilege   ErrorCode = "EVENT-002"
	ErrCodeEventKindUnknown ErrorCode = "EVENT-003"
	ErrCodeIdentityResolve  ErrorCode = "EVENT-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigNotFound ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-002"
)

// AdscopeError represents an enhanced error with code, suggestions, and documentation
type AdscopeError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *AdscopeError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AdscopeError) Unwrap() error {
	return e.Cause
}

// New creates a new AdscopeError
func New(code ErrorCode, message string) *AdscopeError {
	return &AdscopeError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AdscopeError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AdscopeError {
	return &AdscopeError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AdscopeError) WithSuggestion(suggestion string) *AdscopeError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AdscopeError) WithSuggestions(suggestions ...string) *AdscopeError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *AdscopeError) WithDocs(url string) *AdscopeError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewNoHostsError creates an error for an empty host list.
// This is the one batch input condition the dispatcher treats as fatal.
func NewNoHostsError() *AdscopeError {
	return New(ErrCodeNoHosts, "no target hosts supplied").
		WithSuggestion("Pass one or more host names as arguments").
		WithSuggestion("Pipe host names on stdin, one per line")
}

// NewHostUnreachableError creates an error for a host that failed the probe
func NewHostUnreachableError(host string) *AdscopeError {
	return New(ErrCodeHostUnreachable, fmt.Sprintf("host is not reachable: %s", host)).
		WithSuggestion("Check the host name and DNS resolution").
		WithSuggestion("Verify the adscope agent is running on the target")
}

// NewEventPrivilegeError creates an error for an event query denied by the source.
// Unlike an empty result set, this aborts the correlation as a whole.
func NewEventPrivilegeError(host string, cause error) *AdscopeError {
	return Wrap(ErrCodeEventPrivilege, fmt.Sprintf("insufficient privilege to read the event source on %s", host), cause).
		WithSuggestion("Run with an account that can read the Security event source").
		WithSuggestion("Pass --credential to supply an alternate account")
}

// NewArtifactEmptyError creates an error for a transferred file that verified empty
func NewArtifactEmptyError(path string) *AdscopeError {
	return New(ErrCodeArtifactEmpty, fmt.Sprintf("transferred artifact is empty: %s", path)).
		WithSuggestion("The remote command may have produced no output; check its scope and subject")
}

// NewConfigInvalidError creates a configuration parse error
func NewConfigInvalidError(path string, cause error) *AdscopeError {
	return Wrap(ErrCodeConfigInvalid, fmt.Sprintf("failed to parse config file: %s", path), cause).
		WithSuggestion("Check the YAML syntax").
		WithSuggestion("Remove the file to fall back to built-in defaults")
}
