package remote

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/adscope/internal/artifact"
	"github.com/felixgeelhaar/adscope/internal/log"
)

// Executor runs one unit of remote work inside an open session: execute the
// operation, fetch the artifact it produced (if any), verify the local copy,
// and clean up the remote temporary file.
type Executor struct {
	logger *log.Logger
}

// NewExecutor builds an executor.
func NewExecutor(logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Executor{logger: logger}
}

// Run executes op in sess. When the operation produces a file it is copied
// to localPath and verified; the remote temporary is then deleted
// best-effort (deletion failure is logged, never propagated). The returned
// error is always classifiable.
func (e *Executor) Run(ctx context.Context, sess Session, op Operation, localPath string) (*artifact.Artifact, Output, error) {
	out, err := sess.Run(ctx, op)
	if err != nil {
		return nil, out, err
	}

	if out.ExitCode != 0 {
		return nil, out, &ExecError{
			Host:     sess.Host(),
			Command:  op.Command,
			ExitCode: out.ExitCode,
			Detail:   strings.TrimSpace(out.Stderr),
		}
	}

	if !op.ProducesFile() || out.RemotePath == "" {
		return nil, out, nil
	}

	if err := sess.Copy(ctx, out.RemotePath, localPath); err != nil {
		return nil, out, err
	}

	art, err := artifact.New(localPath, string(op.Scope))
	if err != nil {
		return nil, out, err
	}

	if err := sess.Remove(ctx, out.RemotePath); err != nil {
		e.logger.WithHost(sess.Host()).WithError(err).
			Warn("failed to delete remote temporary artifact", "remote_path", out.RemotePath)
	}

	return art, out, nil
}
