package errors

import (
	"context"
	stderrors "errors"
	"strings"
)

// Classification is the closed taxonomy a raw failure maps into.
// Every per-host and per-event failure is classified exactly once at the
// task boundary; classification itself never fails.
type Classification string

const (
	// ClassUnreachableHost means the reachability probe failed before any
	// session was opened.
	ClassUnreachableHost Classification = "UnreachableHost"
	// ClassTransportAuthFailure means the transport rejected the credential
	// or session establishment was denied.
	ClassTransportAuthFailure Classification = "TransportAuthFailure"
	// ClassRemoteExecutionFailure means the session was healthy but the
	// remote command itself failed.
	ClassRemoteExecutionFailure Classification = "RemoteExecutionFailure"
	// ClassArtifactTransferFailure means the remote command succeeded but
	// the produced file could not be copied or verified.
	ClassArtifactTransferFailure Classification = "ArtifactTransferFailure"
	// ClassTimedOut means the per-task deadline expired.
	ClassTimedOut Classification = "TimedOut"
	// ClassCorrelationMiss marks absent secondary enrichment. It is not a
	// failure; results carrying it are still valid primary-only results.
	ClassCorrelationMiss Classification = "CorrelationMiss"
	// ClassUnclassified is the fallback for anything the classifier could
	// not match. The original message is always preserved alongside it.
	ClassUnclassified Classification = "Unclassified"
)

// IsFailure reports whether the classification represents an actual failure
// as opposed to absent enrichment.
func (c Classification) IsFailure() bool {
	return c != ClassCorrelationMiss && c != ""
}

// Category is the structured failure category a collaborator error may
// declare about itself. The classifier consults it before falling back to
// message matching.
type Category int

const (
	// CategoryUnknown means the error declares nothing useful.
	CategoryUnknown Category = iota
	// CategoryTransport covers connection-level failures.
	CategoryTransport
	// CategoryAuth covers credential and authorization failures.
	CategoryAuth
	// CategoryRemoteExec covers failures of the remote command itself.
	CategoryRemoteExec
	// CategoryTransfer covers remote-to-local copy failures.
	CategoryTransfer
)

// Categorized is implemented by collaborator error types that can declare
// their own failure category.
type Categorized interface {
	error
	Category() Category
}

// categoryByCode maps coded errors into structured categories so the
// classifier never falls back to message matching for this module's own
// errors. Codes not listed here carry CategoryUnknown.
var categoryByCode = map[ErrorCode]Category{
	ErrCodeHostUnreachable:  CategoryTransport,
	ErrCodeTransportSession: CategoryTransport,
	ErrCodeTransportAuth:    CategoryAuth,
	ErrCodeEventPrivilege:   CategoryAuth,
	ErrCodeRemoteExec:       CategoryRemoteExec,
	ErrCodeUnknownCommand:   CategoryRemoteExec,
	ErrCodeRemoteScope:      CategoryRemoteExec,
	ErrCodeArtifactTransfer: CategoryTransfer,
	ErrCodeArtifactEmpty:    CategoryTransfer,
	ErrCodeArtifactPath:     CategoryTransfer,
}

// Category implements Categorized for coded errors.
func (e *AdscopeError) Category() Category {
	return categoryByCode[e.Code]
}

// Rule maps a message substring to a classification. Rules exist only as a
// last-resort fallback for collaborators that surface plain-text errors;
// matching is case-insensitive.
type Rule struct {
	Contains string
	Class    Classification
}

// canonicalRules is the built-in en-US fallback table. Error-text matching
// is locale-sensitive; deployments whose collaborators emit diagnostics in
// another locale supply additional rules via configuration rather than by
// editing this table.
var canonicalRules = []Rule{
	{Contains: "access is denied", Class: ClassTransportAuthFailure},
	{Contains: "access denied", Class: ClassTransportAuthFailure},
	{Contains: "logon failure", Class: ClassTransportAuthFailure},
	{Contains: "unauthorized", Class: ClassTransportAuthFailure},
	{Contains: "winrm cannot process the request", Class: ClassTransportAuthFailure},
	{Contains: "server is unavailable", Class: ClassUnreachableHost},
	{Contains: "cannot connect", Class: ClassUnreachableHost},
	{Contains: "no such host", Class: ClassUnreachableHost},
	{Contains: "connection refused", Class: ClassUnreachableHost},
	{Contains: "network path was not found", Class: ClassUnreachableHost},
	{Contains: "copy failed", Class: ClassArtifactTransferFailure},
	{Contains: "transfer", Class: ClassArtifactTransferFailure},
	{Contains: "non-zero exit", Class: ClassRemoteExecutionFailure},
	{Contains: "command failed", Class: ClassRemoteExecutionFailure},
}

// Classifier maps raw failures into the closed taxonomy.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier using the canonical rule table plus
// any extra locale rules from configuration. Extra rules are consulted
// before the canonical ones so a deployment can override a match.
func NewClassifier(extra ...Rule) *Classifier {
	rules := make([]Rule, 0, len(extra)+len(canonicalRules))
	rules = append(rules, extra...)
	rules = append(rules, canonicalRules...)
	return &Classifier{rules: rules}
}

// Classify maps err into the taxonomy. It never panics and never returns
// an error: anything unmatched becomes ClassUnclassified.
//
// Precedence:
//  1. context deadline and cancellation → ClassTimedOut
//  2. a structured Category declared by the error itself
//  3. the substring rule tables (documented fallback)
//  4. ClassUnclassified
func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return ""
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return ClassTimedOut
	}

	var cat Categorized
	if stderrors.As(err, &cat) {
		switch cat.Category() {
		case CategoryTransport:
			return ClassUnreachableHost
		case CategoryAuth:
			return ClassTransportAuthFailure
		case CategoryRemoteExec:
			return ClassRemoteExecutionFailure
		case CategoryTransfer:
			return ClassArtifactTransferFailure
		}
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range c.rules {
		if rule.Contains != "" && strings.Contains(msg, strings.ToLower(rule.Contains)) {
			return rule.Class
		}
	}

	return ClassUnclassified
}

// Classify applies the canonical classifier. Callers that carry configured
// locale rules should hold their own Classifier instead.
func Classify(err error) Classification {
	return NewClassifier().Classify(err)
}
