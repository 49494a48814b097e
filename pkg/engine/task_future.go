package engine

import (
	"context"
	"sync"

	"github.com/ignatij/gostage/pkg/future"
	"github.com/ignatij/gostage/pkg/models"
	"github.com/ignatij/gostage/pkg/transform"
)

// TaskFuture is the engine-level handle for a submitted task: the backend
// future, the task's metadata, and the transformer needed to resolve the
// eventual value. It satisfies future.Future, so passing one as an
// argument to Submit declares a dependency edge.
type TaskFuture struct {
	fut         future.Future
	transformer *transform.TaskTransformer

	mu   sync.Mutex
	info *models.TaskInfo
}

// Result blocks until the task finishes or ctx expires, then returns the
// resolved value: the envelope is unwrapped and any staged identifier is
// loaded, so callers never see one.
func (tf *TaskFuture) Result(ctx context.Context) (any, error) {
	v, err := tf.fut.Result(ctx)
	if err != nil {
		return nil, err
	}
	if env, ok := v.(models.ResultEnvelope); ok {
		v = env.Value
	}
	return tf.transformer.Resolve(v)
}

// Err blocks until the task finishes or ctx expires and returns nil on
// success, the task's error on failure, future.ErrCancelled on
// cancellation.
func (tf *TaskFuture) Err(ctx context.Context) error {
	return tf.fut.Err(ctx)
}

func (tf *TaskFuture) Done() bool {
	return tf.fut.Done()
}

func (tf *TaskFuture) Cancel() bool {
	return tf.fut.Cancel()
}

func (tf *TaskFuture) Cancelled() bool {
	return tf.fut.Cancelled()
}

// OnDone registers fn to run once the task completes; fn receives this
// TaskFuture.
func (tf *TaskFuture) OnDone(fn func(future.Future)) {
	tf.fut.OnDone(func(future.Future) {
		fn(tf)
	})
}

// Info returns a snapshot of the task's metadata. Before completion the
// snapshot holds only the submit-time fields.
func (tf *TaskFuture) Info() models.TaskInfo {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	info := *tf.info
	return info
}

// Wait blocks until the requested condition holds or ctx expires and
// returns the (done, notDone) partition of task futures. See future.Wait
// for the exact FirstCompleted semantics.
func Wait(ctx context.Context, tfs []*TaskFuture, returnWhen future.ReturnWhen) (done, notDone []*TaskFuture) {
	futs := make([]future.Future, len(tfs))
	for i, tf := range tfs {
		futs[i] = tf
	}
	d, nd := future.Wait(ctx, futs, returnWhen)
	return asTaskFutures(d), asTaskFutures(nd)
}

// AsCompleted yields task futures in completion order; the channel closes
// once all have been yielded or ctx expires.
func AsCompleted(ctx context.Context, tfs []*TaskFuture) <-chan *TaskFuture {
	futs := make([]future.Future, len(tfs))
	for i, tf := range tfs {
		futs[i] = tf
	}
	out := make(chan *TaskFuture)
	go func() {
		defer close(out)
		for f := range future.AsCompleted(ctx, futs) {
			out <- f.(*TaskFuture)
		}
	}()
	return out
}

func asTaskFutures(futs []future.Future) []*TaskFuture {
	out := make([]*TaskFuture, len(futs))
	for i, f := range futs {
		out[i] = f.(*TaskFuture)
	}
	return out
}
