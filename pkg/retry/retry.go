// Package retry is an executor decorator that resubmits failed tasks with
// exponential backoff. The engine core never retries; callers who want
// retry semantics stack this collaborator between the engine and a pool.
package retry

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/ignatij/gostage/pkg/future"
	"github.com/ignatij/gostage/pkg/pool"
	"github.com/ignatij/gostage/pkg/task"
)

// Option configures an Executor.
type Option func(*Executor)

// WithMaxRetries caps the number of resubmissions per task.
func WithMaxRetries(n uint64) Option {
	return func(e *Executor) { e.maxRetries = n }
}

// WithBackOff replaces the backoff policy constructor.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(e *Executor) { e.newBackOff = newBackOff }
}

// Executor wraps an inner executor and retries failed submissions.
// Cancellations are never retried.
type Executor struct {
	inner      pool.Executor
	logger     pool.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

func New(inner pool.Executor, logger pool.Logger, opts ...Option) *Executor {
	e := &Executor{
		inner:      inner,
		logger:     logger,
		maxRetries: 3,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Submit(fn task.Func, args ...any) future.Future {
	client := future.NewPromise()
	go func() {
		var value any
		operation := func() error {
			// Cancelling the client promise stops the loop before the
			// next resubmission.
			if client.Cancelled() {
				return backoff.Permanent(future.ErrCancelled)
			}
			f := e.inner.Submit(fn, args...)
			v, err := f.Result(context.Background())
			if err != nil {
				if errors.Is(err, future.ErrCancelled) {
					return backoff.Permanent(err)
				}
				if e.logger != nil {
					e.logger.Infof("Retrying failed task: %v", err)
				}
				return err
			}
			value = v
			return nil
		}
		b := backoff.WithMaxRetries(e.newBackOff(), e.maxRetries)
		if err := backoff.Retry(operation, b); err != nil {
			if errors.Is(err, future.ErrCancelled) {
				client.Cancel()
				return
			}
			client.SetErr(err)
			return
		}
		client.SetResult(value)
	}()
	return client
}

func (e *Executor) Map(fn task.Func, args [][]any, chunksize int) (*pool.Results, error) {
	return pool.MapOver(e.Submit, fn, args, chunksize)
}

func (e *Executor) Shutdown(wait, cancelFutures bool) {
	e.inner.Shutdown(wait, cancelFutures)
}
