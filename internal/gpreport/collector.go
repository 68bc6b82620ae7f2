// Package gpreport collects Group Policy result reports from many hosts at
// once: one task per host, fanned out under a concurrency bound, each task
// probing the host, opening a session, running the report operation, and
// fetching the produced file.
package gpreport

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/adscope/internal/artifact"
	"github.com/felixgeelhaar/adscope/internal/dispatch"
	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/log"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

// artifactPrefix and artifactExt shape generated report file names.
const (
	artifactPrefix = "gpreport"
	artifactExt    = "html"
)

// Options configure one collection run.
type Options struct {
	Hosts      []string
	Credential remote.Credential

	// Scope selects the report facet. ScopeUser and ScopeBoth require
	// Subject.
	Scope   remote.Scope
	Subject string

	// Output is the caller-supplied location, resolved per host through
	// artifact.ResolvePath.
	Output string

	// Concurrency bounds the fan-out; zero uses the dispatcher default.
	Concurrency int

	// Timeout bounds each host's task end to end; zero disables it.
	Timeout time.Duration
}

func (o Options) validate() error {
	if o.Scope != remote.ScopeComputer && o.Subject == "" {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("scope %q requires a target user", o.Scope)).
			WithSuggestion("Pass --user DOMAIN\\account, or use --scope computer")
	}
	return nil
}

// Collector wires the per-host pipeline into the dispatcher.
type Collector struct {
	transport  remote.Transport
	prober     *remote.Prober
	executor   *remote.Executor
	classifier *errors.Classifier
	logger     *log.Logger
}

// New builds a collector. A nil classifier or logger falls back to the
// package defaults.
func New(transport remote.Transport, prober *remote.Prober, classifier *errors.Classifier, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Collector{
		transport:  transport,
		prober:     prober,
		executor:   remote.NewExecutor(logger),
		classifier: classifier,
		logger:     logger,
	}
}

// Collect runs the report operation against every host and returns one
// report per host, in input order. Individual host failures are classified
// in their reports; the only fatal errors are invalid options and an empty
// host list.
func (c *Collector) Collect(ctx context.Context, opts Options) ([]dispatch.Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	op, err := remote.NewOperation(remote.CmdGPReport, map[string]string{"format": artifactExt})
	if err != nil {
		return nil, err
	}
	op = op.WithScope(opts.Scope)
	if opts.Subject != "" {
		op = op.WithSubject(opts.Subject)
	}

	tasks := make([]dispatch.Task, 0, len(opts.Hosts))
	for _, host := range opts.Hosts {
		tasks = append(tasks, dispatch.Task{
			Host:       host,
			Credential: opts.Credential,
			Operation:  op,
			Timeout:    opts.Timeout,
		})
	}

	// One stamp for the whole run: host names alone keep the generated
	// paths pairwise distinct.
	runStamp := time.Now()

	d := dispatch.New(opts.Concurrency, c.classifier, c.logger)
	return d.Run(ctx, tasks, c.runner(opts.Output, runStamp))
}

// runner returns the per-task pipeline: probe, resolve the local path, open
// a session, execute, fetch. A failed probe short-circuits before any
// session is opened.
func (c *Collector) runner(output string, runStamp time.Time) dispatch.Runner {
	return func(ctx context.Context, task dispatch.Task) (*artifact.Artifact, string, error) {
		if !c.prober.Alive(ctx, task.Host) {
			return nil, "", errors.NewHostUnreachableError(task.Host)
		}

		localPath, err := artifact.ResolvePath(output, artifactPrefix, task.Host, artifactExt, runStamp)
		if err != nil {
			return nil, "", err
		}

		var art *artifact.Artifact
		err = remote.WithSession(ctx, c.transport, task.Host, task.Credential, func(sess remote.Session) error {
			a, _, runErr := c.executor.Run(ctx, sess, task.Operation, localPath)
			art = a
			return runErr
		})
		if err != nil {
			return nil, "", err
		}

		// An agent may answer exit 0 without leaving a file behind; that is
		// a broken report, not a success.
		if art == nil {
			return nil, "", errors.New(errors.ErrCodeRemoteExec,
				fmt.Sprintf("remote command reported success on %s but produced no artifact", task.Host))
		}

		c.logger.WithHost(task.Host).Info("report collected",
			"path", art.Path, "bytes", art.Size)
		return art, "", nil
	}
}
