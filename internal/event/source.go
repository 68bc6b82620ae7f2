package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/log"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// Source queries a structured event source on one host. A query that finds
// nothing returns an empty slice and nil error; insufficient privilege is an
// error (code EVENT-002) so callers can tell the two apart.
type Source interface {
	Query(ctx context.Context, host string, cred remote.Credential, kind Kind, window Window) ([]Event, error)
}

// IdentityResolver maps an account name to its stable identifier.
type IdentityResolver interface {
	Resolve(ctx context.Context, subjectName string) (string, error)
}

// Windows ERROR_ACCESS_DENIED; the agent passes the provider's exit status
// through untouched.
const exitAccessDenied = 5

// wireEvent is the agent's event-query record format (protocol v1).
type wireEvent struct {
	Code      uint16            `json:"code"`
	Time      time.Time         `json:"time"`
	Origin    string            `json:"origin"`
	SubjectID string            `json:"subject_id"`
	Fields    map[string]string `json:"fields"`
}

// AgentSource reads events through the adscope agent's event-query command.
type AgentSource struct {
	transport remote.Transport
	logger    *log.Logger
}

// NewAgentSource builds a Source over the transport.
func NewAgentSource(t remote.Transport, logger *log.Logger) *AgentSource {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &AgentSource{transport: t, logger: logger}
}

// Query runs the event-query operation in a short-lived session on host and
// decodes every record once at ingestion.
func (s *AgentSource) Query(ctx context.Context, host string, cred remote.Credential, kind Kind, window Window) ([]Event, error) {
	args := map[string]string{
		"kind": strconv.Itoa(int(kind.Code())),
	}
	if !window.Since.IsZero() {
		args["since"] = window.Since.Format(time.RFC3339)
	}
	if !window.Until.IsZero() {
		args["until"] = window.Until.Format(time.RFC3339)
	}

	op, err := remote.NewOperation(remote.CmdEventQuery, args)
	if err != nil {
		return nil, err
	}

	var events []Event
	err = remote.WithSession(ctx, s.transport, host, cred, func(sess remote.Session) error {
		out, err := sess.Run(ctx, op)
		if err != nil {
			return err
		}

		switch out.ExitCode {
		case 0:
		case exitAccessDenied:
			return errors.NewEventPrivilegeError(host, fmt.Errorf("%s", out.Stderr))
		default:
			return &remote.ExecError{
				Host:     host,
				Command:  op.Command,
				ExitCode: out.ExitCode,
				Detail:   out.Stderr,
			}
		}

		var records []json.RawMessage
		if err := json.Unmarshal([]byte(out.Stdout), &records); err != nil {
			return errors.Wrap(errors.ErrCodeEventQuery,
				fmt.Sprintf("bad event-query payload from %s", host), err)
		}

		events = make([]Event, 0, len(records))
		for _, raw := range records {
			var we wireEvent
			if err := json.Unmarshal(raw, &we); err != nil {
				return errors.Wrap(errors.ErrCodeEventQuery,
					fmt.Sprintf("bad event record from %s", host), err)
			}

			origin := we.Origin
			if origin == "" {
				origin = host
			}

			ev, err := Decode(we.Code, we.Time, origin, we.SubjectID, we.Fields, raw)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithHost(host).Debug("event query complete", "kind", kind.String(), "events", len(events))
	return events, nil
}

// AgentResolver resolves account names to SIDs through the directory on a
// designated host (typically a domain controller).
type AgentResolver struct {
	transport remote.Transport
	host      string
	cred      remote.Credential
}

// NewAgentResolver builds a resolver that asks host for identity lookups.
func NewAgentResolver(t remote.Transport, host string, cred remote.Credential) *AgentResolver {
	return &AgentResolver{transport: t, host: host, cred: cred}
}

// Resolve maps subjectName to its SID.
func (r *AgentResolver) Resolve(ctx context.Context, subjectName string) (string, error) {
	op, err := remote.NewOperation(remote.CmdResolveSID, map[string]string{"name": subjectName})
	if err != nil {
		return "", err
	}

	var sid string
	err = remote.WithSession(ctx, r.transport, r.host, r.cred, func(sess remote.Session) error {
		out, err := sess.Run(ctx, op)
		if err != nil {
			return err
		}
		if out.ExitCode != 0 {
			return errors.New(errors.ErrCodeIdentityResolve,
				fmt.Sprintf("cannot resolve %q to a stable identifier: %s", subjectName, out.Stderr))
		}

		var resp struct {
			SID string `json:"sid"`
		}
		if err := json.Unmarshal([]byte(out.Stdout), &resp); err != nil || resp.SID == "" {
			return errors.New(errors.ErrCodeIdentityResolve,
				fmt.Sprintf("bad identity response for %q", subjectName))
		}
		sid = resp.SID
		return nil
	})
	return sid, err
}
