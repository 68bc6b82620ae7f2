package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/adscope/internal/artifact"
	"github.com/felixgeelhaar/adscope/internal/errors"
)

func hostTasks(hosts ...string) []Task {
	tasks := make([]Task, len(hosts))
	for i, h := range hosts {
		tasks[i] = Task{Host: h}
	}
	return tasks
}

func TestRunEmptyTaskListIsFatal(t *testing.T) {
	_, err := New(0, nil, nil).Run(context.Background(), nil, nil)
	require.Error(t, err)

	var opErr *errors.AdscopeError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, errors.ErrCodeNoHosts, opErr.Code)
}

func TestRunOneReportPerTask(t *testing.T) {
	for _, bound := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("bound=%d", bound), func(t *testing.T) {
			tasks := hostTasks("a", "b", "c", "d", "e")

			reports, err := New(bound, nil, nil).Run(context.Background(), tasks,
				func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
					return nil, "ok:" + task.Host, nil
				})
			require.NoError(t, err)
			require.Len(t, reports, len(tasks), "none dropped, none duplicated")

			// Reports keep input order in both modes.
			for i, task := range tasks {
				assert.Equal(t, task.Host, reports[i].Host)
				assert.Equal(t, "ok:"+task.Host, reports[i].Value)
			}
		})
	}
}

func TestRunFailureIsolation(t *testing.T) {
	tasks := hostTasks("a", "b", "c")

	reports, err := New(2, nil, nil).Run(context.Background(), tasks,
		func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
			if task.Host == "b" {
				return nil, "", errors.NewHostUnreachableError("b")
			}
			return nil, "value", nil
		})
	require.NoError(t, err, "one host's failure must not abort the batch")
	require.Len(t, reports, 3)

	assert.False(t, reports[0].Failed())
	assert.True(t, reports[1].Failed())
	assert.Equal(t, errors.ClassUnreachableHost, reports[1].Classification)
	assert.Contains(t, reports[1].Message, "b")
	assert.False(t, reports[2].Failed())
}

func TestRunConcurrencyBound(t *testing.T) {
	const bound = 2
	var active, peak int32

	tasks := hostTasks("h1", "h2", "h3", "h4", "h5")

	_, err := New(bound, nil, nil).Run(context.Background(), tasks,
		func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil, "", nil
		})
	require.NoError(t, err)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(bound),
		"no more than %d tasks may be active at once", bound)
}

func TestRunSequentialMode(t *testing.T) {
	var active, peak int32

	_, err := New(1, nil, nil).Run(context.Background(), hostTasks("h1", "h2", "h3"),
		func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&peak) {
				atomic.StoreInt32(&peak, n)
			}
			atomic.AddInt32(&active, -1)
			return nil, "", nil
		})
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak, "bound 1 must run strictly sequentially")
}

func TestRunPerTaskTimeout(t *testing.T) {
	tasks := []Task{
		{Host: "fast"},
		{Host: "hung", Timeout: 10 * time.Millisecond},
	}

	reports, err := New(2, nil, nil).Run(context.Background(), tasks,
		func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
			if task.Host == "hung" {
				<-ctx.Done()
				return nil, "", fmt.Errorf("run gp-report: %w", ctx.Err())
			}
			return nil, "done", nil
		})
	require.NoError(t, err)

	assert.False(t, reports[0].Failed())
	assert.Equal(t, errors.ClassTimedOut, reports[1].Classification)
}

func TestRunPanicIsIsolated(t *testing.T) {
	for _, bound := range []int{1, 3} {
		t.Run(fmt.Sprintf("bound=%d", bound), func(t *testing.T) {
			tasks := hostTasks("a", "b", "c")

			reports, err := New(bound, nil, nil).Run(context.Background(), tasks,
				func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
					if task.Host == "b" {
						var art *artifact.Artifact
						_ = art.Path // deliberate nil dereference
					}
					return nil, "ok", nil
				})
			require.NoError(t, err, "a panicking task must not unwind past the dispatcher")
			require.Len(t, reports, 3)

			assert.False(t, reports[0].Failed())
			assert.True(t, reports[1].Failed())
			assert.Equal(t, errors.ClassUnclassified, reports[1].Classification)
			assert.Contains(t, reports[1].Message, "panicked")
			assert.False(t, reports[2].Failed())
		})
	}
}

func TestRunUnclassifiedPreservesMessage(t *testing.T) {
	reports, err := New(1, nil, nil).Run(context.Background(), hostTasks("h1"),
		func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
			return nil, "", fmt.Errorf("entirely novel failure mode")
		})
	require.NoError(t, err)

	assert.Equal(t, errors.ClassUnclassified, reports[0].Classification)
	assert.Equal(t, "entirely novel failure mode", reports[0].Message)
}

func TestReportElapsed(t *testing.T) {
	reports, err := New(1, nil, nil).Run(context.Background(), hostTasks("h1"),
		func(ctx context.Context, task Task) (*artifact.Artifact, string, error) {
			time.Sleep(5 * time.Millisecond)
			return nil, "", nil
		})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, reports[0].Elapsed, 5*time.Millisecond)
}
