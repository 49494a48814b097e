// Package dag wraps an arbitrary worker-pool executor with dependency
// deferral: submitted calls whose arguments contain unresolved futures are
// held back until every such future completes, turning a plain pool into a
// DAG scheduler.
package dag

import (
	"context"
	"sync"

	"github.com/ignatij/gostage/pkg/future"
	"github.com/ignatij/gostage/pkg/pool"
	"github.com/ignatij/gostage/pkg/task"
)

// Executor defers submissions to an inner pool until their argument
// dependencies have resolved. It satisfies pool.Executor itself, so it can
// be stacked in front of any backend.
type Executor struct {
	inner  pool.Executor
	logger pool.Logger
}

func New(inner pool.Executor, logger pool.Logger) *Executor {
	return &Executor{inner: inner, logger: logger}
}

// Submit scans args for future-typed values. With no pending dependencies
// the call goes straight to the inner pool. Otherwise a client-facing
// future is returned immediately and the real submission happens from the
// last dependency's completion callback, with each resolved dependency
// value substituted into the argument list.
func (e *Executor) Submit(fn task.Func, args ...any) future.Future {
	var depIdx []int
	for i, arg := range args {
		if _, ok := arg.(future.Future); ok {
			depIdx = append(depIdx, i)
		}
	}
	if len(depIdx) == 0 {
		return e.inner.Submit(fn, args...)
	}

	d := &deferred{
		ex:      e,
		fn:      fn,
		args:    append([]any(nil), args...),
		client:  &clientFuture{Promise: future.NewPromise()},
		pending: len(depIdx),
	}
	for _, i := range depIdx {
		idx := i
		dep := d.args[idx].(future.Future)
		dep.OnDone(func(f future.Future) {
			d.depDone(idx, f)
		})
	}
	return d.client
}

func (e *Executor) Map(fn task.Func, args [][]any, chunksize int) (*pool.Results, error) {
	return pool.MapOver(e.Submit, fn, args, chunksize)
}

func (e *Executor) Shutdown(wait, cancelFutures bool) {
	e.inner.Shutdown(wait, cancelFutures)
}

// deferred tracks one held-back submission. Dependency completion
// callbacks may race on separate goroutines; the mutex guarantees the
// transition to submitted happens exactly once.
type deferred struct {
	ex     *Executor
	fn     task.Func
	args   []any
	client *clientFuture

	mu      sync.Mutex
	pending int
	halted  bool
}

func (d *deferred) depDone(idx int, f future.Future) {
	d.mu.Lock()
	if d.halted {
		d.mu.Unlock()
		return
	}
	if f.Cancelled() {
		// A cancelled dependency cancels every task waiting on it,
		// deliberately distinct from the exception path.
		d.halted = true
		d.mu.Unlock()
		d.client.Promise.Cancel()
		return
	}
	if err := f.Err(context.Background()); err != nil {
		// Failure short-circuits: the dependent's function never runs.
		d.halted = true
		d.mu.Unlock()
		if d.ex.logger != nil {
			d.ex.logger.Infof("dependency failed, short-circuiting dependent task: %v", err)
		}
		d.client.Promise.SetErr(err)
		return
	}
	v, _ := f.Result(context.Background())
	d.args[idx] = v
	d.pending--
	ready := d.pending == 0
	d.mu.Unlock()

	if !ready {
		return
	}
	if d.client.Cancelled() {
		// Cancelled by the caller before the dependencies resolved.
		return
	}
	inner := d.ex.inner.Submit(d.fn, d.args...)
	d.client.setInner(inner)
	inner.OnDone(d.copyOutcome)
}

func (d *deferred) copyOutcome(in future.Future) {
	if in.Cancelled() {
		d.client.Promise.Cancel()
		return
	}
	v, err := in.Result(context.Background())
	if err != nil {
		d.client.Promise.SetErr(err)
	} else {
		d.client.Promise.SetResult(v)
	}
}

// clientFuture is the handle returned while a submission is deferred.
// Before the inner submission exists, Cancel resolves the promise locally;
// afterwards it delegates to the inner future's own cancel semantics.
type clientFuture struct {
	*future.Promise
	mu    sync.Mutex
	inner future.Future
}

func (c *clientFuture) setInner(f future.Future) {
	c.mu.Lock()
	c.inner = f
	c.mu.Unlock()
}

func (c *clientFuture) Cancel() bool {
	c.mu.Lock()
	inner := c.inner
	c.mu.Unlock()
	if inner != nil {
		return inner.Cancel()
	}
	return c.Promise.Cancel()
}
