// Package event models the structured diagnostic events the correlator
// consumes: a closed set of kinds, each decoded and validated exactly once
// at ingestion.
package event

import (
	"fmt"

	"github.com/felixgeelhaar/adscope/internal/errors"
)

// Kind is the closed enumeration of event kinds this tool understands.
// Raw numeric provider codes are decoded here, once, instead of being
// branched on at call sites.
type Kind int

const (
	// KindUnknown is never produced by a successful decode.
	KindUnknown Kind = iota
	// KindAccountLockout is a lockout notification (Security event 4740).
	KindAccountLockout
	// KindLogonFailure is a failed logon (Security event 4625).
	KindLogonFailure
)

// Provider-level numeric codes.
const (
	codeAccountLockout uint16 = 4740
	codeLogonFailure   uint16 = 4625
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAccountLockout:
		return "AccountLockout"
	case KindLogonFailure:
		return "LogonFailure"
	default:
		return "Unknown"
	}
}

// Code returns the provider-level numeric code for the kind.
func (k Kind) Code() uint16 {
	switch k {
	case KindAccountLockout:
		return codeAccountLockout
	case KindLogonFailure:
		return codeLogonFailure
	default:
		return 0
	}
}

// DecodeKind maps a provider code into the closed enumeration. Codes outside
// the set are rejected, not passed through.
func DecodeKind(code uint16) (Kind, error) {
	switch code {
	case codeAccountLockout:
		return KindAccountLockout, nil
	case codeLogonFailure:
		return KindLogonFailure, nil
	default:
		return KindUnknown, errors.New(errors.ErrCodeEventKindUnknown,
			fmt.Sprintf("unknown event kind code %d", code))
	}
}
