package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/adscope/internal/artifact"
	"github.com/felixgeelhaar/adscope/internal/errors"
	"github.com/felixgeelhaar/adscope/internal/log"
)

// DefaultConcurrency is the worker-pool bound used when the caller does not
// configure one.
const DefaultConcurrency = 5

// Runner executes one task and returns its payload. The dispatcher owns
// classification; runners just return raw errors.
type Runner func(ctx context.Context, task Task) (*artifact.Artifact, string, error)

// Dispatcher runs tasks under a concurrency bound.
type Dispatcher struct {
	bound      int
	classifier *errors.Classifier
	logger     *log.Logger
}

// New builds a dispatcher. bound <= 0 falls back to DefaultConcurrency;
// bound == 1 runs strictly sequentially with identical observable semantics.
func New(bound int, classifier *errors.Classifier, logger *log.Logger) *Dispatcher {
	if bound <= 0 {
		bound = DefaultConcurrency
	}
	if classifier == nil {
		classifier = errors.NewClassifier()
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Dispatcher{bound: bound, classifier: classifier, logger: logger}
}

// Run executes every task and returns exactly one report per task, in input
// order. All failures are classified and surfaced per host; the only fatal
// condition is an empty task list.
func (d *Dispatcher) Run(ctx context.Context, tasks []Task, run Runner) ([]Report, error) {
	if len(tasks) == 0 {
		return nil, errors.NewNoHostsError()
	}

	reports := make([]Report, len(tasks))

	if d.bound == 1 {
		for i, task := range tasks {
			reports[i] = d.runOne(ctx, task, run)
		}
		return reports, nil
	}

	// Each goroutine writes only its own slot, so the aggregate needs no
	// lock and sequential and parallel modes order reports identically.
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.bound)

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t Task) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			reports[index] = d.runOne(ctx, t, run)
		}(i, task)
	}

	wg.Wait()
	return reports, nil
}

func (d *Dispatcher) runOne(ctx context.Context, task Task, run Runner) Report {
	start := time.Now()

	taskCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	art, value, err := runGuarded(taskCtx, task, run)
	report := Report{
		Host:    task.Host,
		Elapsed: time.Since(start),
	}

	if err != nil {
		report.Classification = d.classifier.Classify(err)
		report.Message = err.Error()
		d.logger.WithHost(task.Host).WithError(err).
			Warn("host task failed", "classification", string(report.Classification))
		return report
	}

	report.Artifact = art
	report.Value = value
	return report
}

// runGuarded converts a panicking runner into a per-task error. A single
// host's failure, however violent, must never unwind past the dispatcher
// or take the other hosts' tasks down with it.
func runGuarded(ctx context.Context, task Task, run Runner) (art *artifact.Artifact, value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			art, value = nil, ""
			err = fmt.Errorf("task on %s panicked: %v", task.Host, r)
		}
	}()
	return run(ctx, task)
}
