package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait when a second stop signal arrives.
var ErrForcedExit = errors.New("forced exit")

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches a name to a task for logging.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner starts board and host tasks on goroutines and collects how they end.
// Tasks share the runner context; cancelling it is the only way to stop them.
type Runner struct {
	Context context.Context

	wg     sync.WaitGroup
	lock   sync.Mutex
	errs   AggregatedError
	count  int
	forced chan struct{}
}

// NewRunner creates a runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner whose tasks stop when ctx is done.
func NewRunnerWith(ctx context.Context) *Runner {
	return &Runner{Context: ctx, forced: make(chan struct{})}
}

// HandleSignals makes SIGINT/SIGTERM cancel the runner context.
// A second signal makes Wait return ErrForcedExit without waiting for tasks.
func (r *Runner) HandleSignals() *Runner {
	ctx, cancel := context.WithCancel(r.Context)
	r.Context = ctx
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		cancel()
		sig = <-sigCh
		glog.Errorf("%v: forced exit", sig)
		close(r.forced)
	}()
	return r
}

// Go starts tasks with the runner context.
func (r *Runner) Go(tasks ...Runnable) *Runner {
	return r.GoWith(r.Context, tasks...)
}

// GoWith starts tasks with a specific context.
func (r *Runner) GoWith(ctx context.Context, tasks ...Runnable) *Runner {
	for _, task := range tasks {
		r.lock.Lock()
		name := taskName(task, r.count)
		r.count++
		r.lock.Unlock()
		r.wg.Add(1)
		go r.run(ctx, name, task)
	}
	return r
}

func taskName(task Runnable, index int) string {
	if named, ok := task.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("#%d", index)
}

func (r *Runner) run(ctx context.Context, name string, task Runnable) {
	defer r.wg.Done()
	glog.V(4).Infof("task %s: started", name)
	err := task.Run(ctx)
	glog.V(4).Infof("task %s: stopped: %v", name, err)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	r.lock.Lock()
	r.errs.Add(fmt.Errorf("%s: %w", name, err))
	r.lock.Unlock()
}

// Wait blocks until every started task returns.
// Cancellation is not an error; other failures are aggregated.
func (r *Runner) Wait() error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-r.forced:
		return ErrForcedExit
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

// RunWithContextCancel runs fn which doesn't accept a context.
// onCancel is called only when ctx is done and must make fn return.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-errCh
	return ctx.Err()
}

// RunWithContextCloser closes closer once, either when ctx is done
// or when fn returns. Blocking reads on ports are interrupted this way.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() { once.Do(func() { closer.Close() }) }
	defer closeOnce()
	return RunWithContextCancel(ctx, closeOnce, fn)
}
