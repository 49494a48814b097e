// Package engine is the user-facing façade: it assigns task identities,
// derives dependency metadata from future-valued arguments, stages large
// arguments through the transform pipeline, and submits wrapped tasks
// through the dependency-deferred layer while tracking one TaskInfo per
// submission.
package engine

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatij/gostage/pkg/dag"
	"github.com/ignatij/gostage/pkg/future"
	"github.com/ignatij/gostage/pkg/models"
	"github.com/ignatij/gostage/pkg/pool"
	"github.com/ignatij/gostage/pkg/records"
	"github.com/ignatij/gostage/pkg/task"
	"github.com/ignatij/gostage/pkg/transform"
)

// Option configures an Engine.
type Option func(*Engine)

// WithTransformer sets the data transform pipeline applied to arguments
// and results.
func WithTransformer(tt *transform.TaskTransformer) Option {
	return func(e *Engine) { e.transformer = tt }
}

// WithRecorder sets the record logger receiving one record per completed
// task.
func WithRecorder(r records.Logger) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l pool.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithoutDependencyDeferral submits directly to the given executor instead
// of wrapping it in the dependency-deferred layer. Only useful when the
// backend already understands future-valued arguments.
func WithoutDependencyDeferral() Option {
	return func(e *Engine) { e.deferDeps = false }
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Engine drives task execution over a worker-pool executor.
type Engine struct {
	exec        pool.Executor
	transformer *transform.TaskTransformer
	recorder    records.Logger
	logger      pool.Logger
	deferDeps   bool

	mu      sync.Mutex
	running map[future.Future]*TaskFuture
	wrapped map[uintptr]*task.Task
}

func New(exec pool.Executor, opts ...Option) *Engine {
	e := &Engine{
		recorder:  records.Nop{},
		logger:    noopLogger{},
		deferDeps: true,
		running:   make(map[future.Future]*TaskFuture),
		wrapped:   make(map[uintptr]*task.Task),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transformer == nil {
		e.transformer = transform.NewTaskTransformer(nil, nil)
	}
	if e.deferDeps {
		e.exec = dag.New(exec, e.logger)
	} else {
		e.exec = exec
	}
	return e
}

// Submit schedules fn with the given arguments and returns immediately.
// Arguments that are TaskFutures become dependency edges: the call is held
// back until they resolve and their results are substituted in. Submit
// itself never fails; any error surfaces through the returned future.
func (e *Engine) Submit(fn task.Func, args ...any) *TaskFuture {
	t := e.wrap(fn)
	info := &models.TaskInfo{
		TaskID:       uuid.New(),
		FunctionName: t.Name(),
		SubmitTime:   time.Now(),
	}

	submitArgs := make([]any, len(args))
	for i, arg := range args {
		if tf, ok := arg.(*TaskFuture); ok {
			info.ParentTaskIDs = append(info.ParentTaskIDs, tf.info.TaskID)
			submitArgs[i] = tf.fut
			continue
		}
		submitArgs[i] = arg
	}

	staged, err := e.transformer.TransformSlice(submitArgs)
	if err != nil {
		// Argument staging failed: surface through the future, not a panic.
		failed := future.NewPromise()
		tf := e.track(failed, info)
		failed.SetErr(err)
		return tf
	}

	fut := e.exec.Submit(t.Execute, staged...)
	e.logger.Infof("Submitted task %s (%s) with %d parent(s)",
		info.TaskID, info.FunctionName, len(info.ParentTaskIDs))
	return e.track(fut, info)
}

// track registers the bookkeeping entry and completion callback for a
// backend future and returns its TaskFuture wrapper.
func (e *Engine) track(fut future.Future, info *models.TaskInfo) *TaskFuture {
	tf := &TaskFuture{fut: fut, info: info, transformer: e.transformer}
	e.mu.Lock()
	e.running[fut] = tf
	e.mu.Unlock()
	// Callbacks fire with the completing promise, which may not be the
	// map key when the future wraps one; close over the key instead.
	fut.OnDone(func(future.Future) {
		e.taskDone(fut)
	})
	return tf
}

// taskDone runs on whatever goroutine the backend fires callbacks on. It
// pops the bookkeeping entry, finalizes the TaskInfo and emits the record.
func (e *Engine) taskDone(f future.Future) {
	e.mu.Lock()
	tf, ok := e.running[f]
	delete(e.running, f)
	e.mu.Unlock()
	if !ok {
		return
	}

	tf.mu.Lock()
	info := tf.info
	now := time.Now()
	info.ReceivedTime = &now
	success := false
	if err := f.Err(context.Background()); err != nil {
		info.Success = &success
		info.Exception = models.NewExceptionInfo(err)
	} else {
		success = true
		info.Success = &success
		if v, rerr := f.Result(context.Background()); rerr == nil {
			if env, ok := v.(models.ResultEnvelope); ok {
				execution := env.Execution
				info.Execution = &execution
			}
		}
	}
	record := info.Record()
	tf.mu.Unlock()

	if err := e.recorder.Log(record); err != nil {
		e.logger.Errorf("Failed to log record for task %s: %v", record.TaskID, err)
	}
}

// wrap memoizes the managed task wrapper per distinct function.
func (e *Engine) wrap(fn task.Func) *task.Task {
	key := reflect.ValueOf(fn).Pointer()
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.wrapped[key]; ok {
		return t
	}
	t := task.Wrap(fn, e.transformer)
	e.wrapped[key] = t
	return t
}

// Map submits one task per tuple of args and returns a lazy sequence
// yielding resolved results in submission order. Each pull blocks with
// whatever remains of ctx's deadline. Chunked submission is the deferred
// layer's concern; the engine always submits one task per element.
func (e *Engine) Map(fn task.Func, args [][]any) *MapResults {
	futs := make([]*TaskFuture, len(args))
	for i, tuple := range args {
		futs[i] = e.Submit(fn, tuple...)
	}
	return &MapResults{futs: futs}
}

// Shutdown stops the executor, then closes the transform pipeline and the
// record logger. Both are safe to close twice.
func (e *Engine) Shutdown(wait, cancelFutures bool) {
	e.exec.Shutdown(wait, cancelFutures)
	if err := e.transformer.Close(); err != nil {
		e.logger.Errorf("Failed to close transformer: %v", err)
	}
	if err := e.recorder.Close(); err != nil {
		e.logger.Errorf("Failed to close record logger: %v", err)
	}
}

// MapResults yields Map results in submission order.
type MapResults struct {
	futs []*TaskFuture
	idx  int
}

// Next returns the next result, blocking until it is available or ctx
// expires. The second return is false once the sequence is exhausted.
func (m *MapResults) Next(ctx context.Context) (any, bool, error) {
	if m.idx >= len(m.futs) {
		return nil, false, nil
	}
	tf := m.futs[m.idx]
	m.idx++
	v, err := tf.Result(ctx)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Collect drains the remaining results into a slice.
func (m *MapResults) Collect(ctx context.Context) ([]any, error) {
	var out []any
	for {
		v, ok, err := m.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
