package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/adscope/internal/errors"
)

// Promoted field keys. Everything else an event carries stays in Raw.
const (
	// FieldSubjectName is the display name of the affected account. It is
	// informational only; matching always uses the stable identifier.
	FieldSubjectName = "subject_name"

	// FieldCallerComputer is the host a lockout originated from (4740).
	FieldCallerComputer = "caller_computer"

	// FieldFailureReason is the decoded logon failure reason (4625).
	FieldFailureReason = "failure_reason"

	// FieldLogonType is the numeric logon type (4625).
	FieldLogonType = "logon_type"

	// FieldProcessName is the process that attempted the logon (4625).
	FieldProcessName = "process_name"
)

// Event is one immutable diagnostic event as decoded from a provider record.
type Event struct {
	Kind Kind

	// Time is when the provider recorded the event.
	Time time.Time

	// Origin is the host the event was recorded on.
	Origin string

	// SubjectID is the affected account's stable identifier (a SID).
	// Matching never uses display names; those collide and get reused.
	SubjectID string

	// Fields holds the kind-specific promoted attributes.
	Fields map[string]string

	// Raw is the full provider record for fields not promoted above.
	Raw json.RawMessage
}

// Field returns a promoted attribute, or "" when absent.
func (e Event) Field(key string) string {
	return e.Fields[key]
}

// requiredFields lists what each kind must carry to decode at all.
var requiredFields = map[Kind][]string{
	KindAccountLockout: {FieldCallerComputer},
	KindLogonFailure:   {FieldFailureReason},
}

// Decode validates one provider record into an Event. It is the single
// ingestion point: whatever passes here is trusted downstream.
func Decode(code uint16, recordedAt time.Time, origin, subjectID string, fields map[string]string, raw json.RawMessage) (Event, error) {
	kind, err := DecodeKind(code)
	if err != nil {
		return Event{}, err
	}

	if subjectID == "" {
		return Event{}, errors.New(errors.ErrCodeEventQuery,
			fmt.Sprintf("%s event from %s carries no subject identifier", kind, origin))
	}

	for _, key := range requiredFields[kind] {
		if fields[key] == "" {
			return Event{}, errors.New(errors.ErrCodeEventQuery,
				fmt.Sprintf("%s event from %s is missing field %q", kind, origin, key))
		}
	}

	return Event{
		Kind:      kind,
		Time:      recordedAt,
		Origin:    origin,
		SubjectID: subjectID,
		Fields:    fields,
		Raw:       raw,
	}, nil
}

// Window is an optional time window for event queries. The zero value means
// unbounded.
type Window struct {
	Since time.Time
	Until time.Time
}

// IsZero reports whether the window is unbounded.
func (w Window) IsZero() bool {
	return w.Since.IsZero() && w.Until.IsZero()
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}
