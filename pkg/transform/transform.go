// Package transform implements the data staging pipeline: filters decide
// which objects are worth staging, transformers turn objects into opaque
// identifiers backed by a store, and TaskTransformer composes the two so
// only lightweight references cross the scheduler boundary.
package transform

import (
	"sync"

	"github.com/ignatij/gostage/pkg/future"
)

// Filter is a pure predicate deciding whether an object is eligible for
// staging.
type Filter func(obj any) bool

// All returns a filter accepting every object.
func All() Filter {
	return func(any) bool { return true }
}

// Never returns a filter rejecting every object.
func Never() Filter {
	return func(any) bool { return false }
}

// MinSize returns a filter accepting objects whose serialized size is at
// least minBytes.
func MinSize(minBytes int) Filter {
	return func(obj any) bool {
		return ObjectSize(obj) >= minBytes
	}
}

// Transformer is a pluggable object/identifier codec with its own backing
// store. Implementations must be safe for concurrent use.
type Transformer interface {
	// Transform stages obj and returns an identifier standing in for it.
	// Staging an identifier returns it unchanged.
	Transform(obj any) (any, error)

	// Resolve loads the object an identifier stands in for.
	Resolve(identifier any) (any, error)

	// IsIdentifier reports whether obj is one of this transformer's
	// identifiers.
	IsIdentifier(obj any) bool

	// Close releases the backing store. Safe to call more than once.
	Close() error
}

// TaskTransformer composes one Filter and one Transformer, both optional,
// into the transform/resolve surface the engine and the task wrapper use.
// A nil transformer means passthrough; a nil filter admits everything.
type TaskTransformer struct {
	filter      Filter
	transformer Transformer
	closeOnce   sync.Once
	closeErr    error
}

func NewTaskTransformer(filter Filter, transformer Transformer) *TaskTransformer {
	return &TaskTransformer{filter: filter, transformer: transformer}
}

// Transform stages obj when the filter admits it. Futures pass through
// untouched since dependencies are the submission layer's concern, and
// identifiers pass through untouched so staging is idempotent.
func (tt *TaskTransformer) Transform(obj any) (any, error) {
	if tt == nil || tt.transformer == nil {
		return obj, nil
	}
	if _, ok := obj.(future.Future); ok {
		return obj, nil
	}
	if tt.transformer.IsIdentifier(obj) {
		return obj, nil
	}
	if tt.filter != nil && !tt.filter(obj) {
		return obj, nil
	}
	return tt.transformer.Transform(obj)
}

// Resolve loads obj when it is an identifier, passing anything else through.
func (tt *TaskTransformer) Resolve(obj any) (any, error) {
	if tt == nil || tt.transformer == nil {
		return obj, nil
	}
	if !tt.transformer.IsIdentifier(obj) {
		return obj, nil
	}
	return tt.transformer.Resolve(obj)
}

// TransformSlice applies Transform element-wise, preserving order.
func (tt *TaskTransformer) TransformSlice(objs []any) ([]any, error) {
	out := make([]any, len(objs))
	for i, obj := range objs {
		v, err := tt.Transform(obj)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ResolveSlice applies Resolve element-wise, preserving order.
func (tt *TaskTransformer) ResolveSlice(objs []any) ([]any, error) {
	out := make([]any, len(objs))
	for i, obj := range objs {
		v, err := tt.Resolve(obj)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// TransformMap applies Transform value-wise, preserving the key set.
func (tt *TaskTransformer) TransformMap(objs map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(objs))
	for k, obj := range objs {
		v, err := tt.Transform(obj)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// ResolveMap applies Resolve value-wise, preserving the key set.
func (tt *TaskTransformer) ResolveMap(objs map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(objs))
	for k, obj := range objs {
		v, err := tt.Resolve(obj)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Close releases the underlying transformer's store. Subsequent calls
// return the first result.
func (tt *TaskTransformer) Close() error {
	if tt == nil || tt.transformer == nil {
		return nil
	}
	tt.closeOnce.Do(func() {
		tt.closeErr = tt.transformer.Close()
	})
	return tt.closeErr
}
