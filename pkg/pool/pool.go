// Package pool defines the worker-pool executor contract every backend
// must satisfy, a local goroutine-backed implementation, and the lazy
// result sequence returned by chunked map calls.
package pool

import (
	"context"

	"github.com/ignatij/gostage/pkg/future"
	"github.com/ignatij/gostage/pkg/task"
)

// Logger is the minimal logging surface injected into executors.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Executor is the contract consumed by the engine and the deferred
// submission layer. Futures returned by Submit satisfy the future.Future
// contract. Submit never blocks beyond bookkeeping and never fails
// synchronously: errors surface through the returned future.
type Executor interface {
	Submit(fn task.Func, args ...any) future.Future

	// Map runs fn over every tuple in args, chunksize tuples per
	// underlying submission, and returns a lazy sequence yielding
	// results in tuple order.
	Map(fn task.Func, args [][]any, chunksize int) (*Results, error)

	// Shutdown stops the executor. With wait it blocks until running
	// work finishes; with cancelFutures it cancels work not yet started.
	Shutdown(wait, cancelFutures bool)
}

// SubmitFunc adapts a Submit method for MapOver.
type SubmitFunc func(fn task.Func, args ...any) future.Future

// MapOver implements the chunked map contract on top of any submit
// primitive: it submits one call per chunk, each running fn over every
// tuple in the chunk, and wires the chunk futures into a Results sequence.
func MapOver(submit SubmitFunc, fn task.Func, args [][]any, chunksize int) (*Results, error) {
	if chunksize <= 0 {
		chunksize = 1
	}
	var chunks []future.Future
	for start := 0; start < len(args); start += chunksize {
		end := start + chunksize
		if end > len(args) {
			end = len(args)
		}
		tuples := args[start:end]
		width := 0
		if len(tuples) > 0 {
			width = len(tuples[0])
		}
		flat := make([]any, 0, len(tuples)*width)
		for _, tuple := range tuples {
			flat = append(flat, tuple...)
		}
		runner := chunkRunner(fn, width, len(tuples))
		chunks = append(chunks, submit(runner, flat...))
	}
	return newResults(chunks), nil
}

// chunkRunner returns a Func running fn once per width-sized group of its
// arguments and collecting the count results in order.
func chunkRunner(fn task.Func, width, count int) task.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		results := make([]any, 0, count)
		for i := 0; i < count; i++ {
			out, err := fn(ctx, args[i*width:(i+1)*width]...)
			if err != nil {
				return nil, err
			}
			results = append(results, out)
		}
		return results, nil
	}
}
