package future

import (
	"context"
	"sync"
)

type promiseState int

const (
	statePending promiseState = iota
	stateRunning
	stateDone
	stateCancelled
)

// Promise is the completable Future used by in-process executors. A pool
// hands the Promise to the caller, claims it with TryStart when a worker
// picks the job up, and finishes it with SetResult or SetErr.
type Promise struct {
	mu        sync.Mutex
	state     promiseState
	value     any
	err       error
	done      chan struct{}
	callbacks []func(Future)
}

func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// TryStart transitions the promise from pending to running. It returns
// false if the promise was already claimed, completed or cancelled; a pool
// must skip jobs whose promise it cannot claim.
func (p *Promise) TryStart() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != statePending {
		return false
	}
	p.state = stateRunning
	return true
}

// SetResult completes the promise successfully. It returns false if the
// promise already reached a terminal state.
func (p *Promise) SetResult(v any) bool {
	return p.finish(stateDone, v, nil)
}

// SetErr completes the promise with an error. It returns false if the
// promise already reached a terminal state.
func (p *Promise) SetErr(err error) bool {
	return p.finish(stateDone, nil, err)
}

// Cancel moves a still-pending promise to the cancelled state. Once a
// worker claimed the job with TryStart, Cancel is a no-op and returns false.
func (p *Promise) Cancel() bool {
	return p.finish(stateCancelled, nil, ErrCancelled)
}

func (p *Promise) finish(target promiseState, v any, err error) bool {
	p.mu.Lock()
	if p.state == stateDone || p.state == stateCancelled {
		p.mu.Unlock()
		return false
	}
	if target == stateCancelled && p.state != statePending {
		p.mu.Unlock()
		return false
	}
	p.state = target
	p.value = v
	p.err = err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(p)
	}
	return true
}

func (p *Promise) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateDone || p.state == stateCancelled
}

func (p *Promise) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateCancelled
}

func (p *Promise) Result(ctx context.Context) (any, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

func (p *Promise) Err(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// OnDone registers fn to run once the promise completes. If the promise is
// already done, fn runs synchronously on the calling goroutine.
func (p *Promise) OnDone(fn func(Future)) {
	p.mu.Lock()
	if p.state == stateDone || p.state == stateCancelled {
		p.mu.Unlock()
		fn(p)
		return
	}
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}
