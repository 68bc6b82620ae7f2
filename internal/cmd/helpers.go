package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/exitcode"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// batchError carries a completed batch's failure tally to the process exit
// code without discarding the partial results already printed.
type batchError struct {
	failed int
	total  int
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d of %d hosts failed", e.failed, e.total)
}

func (e *batchError) ExitCode() int {
	return exitcode.ForBatch(e.failed, e.total)
}

// parseCredential splits a USER:SECRET flag value. An empty value means
// "connect as the calling user".
func parseCredential(s string) (remote.Credential, error) {
	if s == "" {
		return remote.Credential{}, nil
	}
	user, secret, ok := strings.Cut(s, ":")
	if !ok || user == "" {
		return remote.Credential{}, errors.New(errors.ErrCodeConfigInvalid,
			"credential must be USER:SECRET").
			WithSuggestion(`Example: --credential 'CORP\admin:hunter2'`)
	}
	return remote.Credential{Username: user, Secret: secret}, nil
}

// readHosts scans host names from r, one per line, ignoring blanks and
// #-comments.
func readHosts(r io.Reader) ([]string, error) {
	var hosts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}

// parseTimeFlag accepts either an absolute timestamp or a duration meaning
// "that long ago".
func parseTimeFlag(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeConfigInvalid,
		fmt.Sprintf("cannot parse time %q", s)).
		WithSuggestion(`Use a duration ("24h") or a timestamp ("2026-05-02T09:30:00")`)
}
