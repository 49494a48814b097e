package pool

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ignatij/gostage/pkg/future"
)

// Results is the lazy, single-use sequence returned by Map. It yields
// individual results in original submission order as each chunk's future
// resolves. Chunk futures are held on a reversed stack and dropped as soon
// as their results are consumed, so memory for a finished chunk is
// released without waiting for the whole sequence.
type Results struct {
	mu      sync.Mutex
	stack   []future.Future // reversed: the next chunk is the last element
	current []any
}

func newResults(chunks []future.Future) *Results {
	stack := make([]future.Future, len(chunks))
	for i, f := range chunks {
		stack[len(chunks)-1-i] = f
	}
	return &Results{stack: stack}
}

// Next returns the next result in submission order, blocking until its
// chunk resolves or ctx expires. The second return is false once the
// sequence is exhausted.
func (r *Results) Next(ctx context.Context) (any, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.current) == 0 {
		if len(r.stack) == 0 {
			return nil, false, nil
		}
		f := r.stack[len(r.stack)-1]
		r.stack[len(r.stack)-1] = nil
		r.stack = r.stack[:len(r.stack)-1]

		v, err := f.Result(ctx)
		if err != nil {
			return nil, false, err
		}
		chunk, ok := v.([]any)
		if !ok {
			return nil, false, errors.Errorf("chunk future yielded %T, want []any", v)
		}
		r.current = chunk
	}

	v := r.current[0]
	r.current = r.current[1:]
	return v, true, nil
}

// Collect drains the remaining results into a slice.
func (r *Results) Collect(ctx context.Context) ([]any, error) {
	var out []any
	for {
		v, ok, err := r.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
