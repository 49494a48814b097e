// Package task wraps plain functions so the engine can instrument their
// execution without changing what a direct call returns.
package task

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ignatij/gostage/pkg/models"
	"github.com/ignatij/gostage/pkg/transform"
)

// Func is the plain callable shape the engine schedules. Dependencies
// arrive as ordinary argument values once they have resolved.
type Func func(ctx context.Context, args ...any) (any, error)

// Task wraps a Func together with the transformer used to resolve staged
// inputs and stage the result. Calling the task directly through Call
// behaves exactly like the unwrapped function; Execute is the managed
// entry point the engine submits to a pool.
type Task struct {
	fn          Func
	name        string
	transformer *transform.TaskTransformer
}

func Wrap(fn Func, transformer *transform.TaskTransformer) *Task {
	return &Task{
		fn:          fn,
		name:        functionName(fn),
		transformer: transformer,
	}
}

// Name is the short name of the wrapped function.
func (t *Task) Name() string {
	return t.name
}

// Call invokes the wrapped function as-is. No staging, no timing: this is
// the direct mode used by code that wants the plain function semantics.
func (t *Task) Call(ctx context.Context, args ...any) (any, error) {
	return t.fn(ctx, args...)
}

// Execute is the managed mode invoked on a worker: it unwraps envelope
// arguments produced by upstream tasks, resolves staged inputs, runs the
// function, stages the result and returns it inside a ResultEnvelope
// carrying the phase timestamps. A function error aborts the invocation
// before result staging and propagates to the backend future.
func (t *Task) Execute(ctx context.Context, args ...any) (any, error) {
	var info models.ExecutionInfo
	info.ExecutionStart = time.Now()

	unwrapped := make([]any, len(args))
	for i, arg := range args {
		if env, ok := arg.(models.ResultEnvelope); ok {
			unwrapped[i] = env.Value
		} else {
			unwrapped[i] = arg
		}
	}

	info.InputResolveStart = time.Now()
	resolved, err := t.transformer.ResolveSlice(unwrapped)
	info.InputResolveEnd = time.Now()
	if err != nil {
		return nil, errors.Wrapf(err, "resolve inputs of %s", t.name)
	}

	info.TaskStart = time.Now()
	value, err := t.fn(ctx, resolved...)
	info.TaskEnd = time.Now()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	info.ResultTransformStart = time.Now()
	staged, err := t.transformer.Transform(value)
	info.ResultTransformEnd = time.Now()
	if err != nil {
		return nil, errors.Wrapf(err, "stage result of %s", t.name)
	}

	info.ExecutionEnd = time.Now()
	return models.ResultEnvelope{Value: staged, Execution: info}, nil
}

func functionName(fn Func) string {
	pc := reflect.ValueOf(fn).Pointer()
	full := runtime.FuncForPC(pc).Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	return strings.TrimSuffix(full, "-fm")
}
