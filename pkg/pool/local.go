package pool

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/ignatij/gostage/pkg/future"
	"github.com/ignatij/gostage/pkg/task"
)

// ErrPoolClosed is set on futures submitted after Shutdown.
var ErrPoolClosed = errors.New("pool shut down")

type job struct {
	fn      task.Func
	args    []any
	promise *future.Promise
}

// Local runs submitted functions on a fixed set of worker goroutines.
// The submission queue is unbounded so Submit never blocks.
type Local struct {
	ctx    context.Context
	logger Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool

	wg sync.WaitGroup
}

// NewLocal starts a local pool with the given number of workers; zero or
// negative means one per CPU.
func NewLocal(ctx context.Context, workers int, logger Logger) *Local {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Local{ctx: ctx, logger: logger}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Local) Submit(fn task.Func, args ...any) future.Future {
	promise := future.NewPromise()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		promise.SetErr(ErrPoolClosed)
		return promise
	}
	p.queue = append(p.queue, job{fn: fn, args: args, promise: promise})
	p.cond.Signal()
	p.mu.Unlock()
	return promise
}

func (p *Local) Map(fn task.Func, args [][]any, chunksize int) (*Results, error) {
	return MapOver(p.Submit, fn, args, chunksize)
}

// Shutdown stops accepting work. With cancelFutures, queued jobs that no
// worker has claimed yet are cancelled; with wait, Shutdown blocks until
// the workers drain.
func (p *Local) Shutdown(wait, cancelFutures bool) {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		if cancelFutures {
			for _, j := range p.queue {
				j.promise.Cancel()
			}
			p.queue = nil
		}
		p.cond.Broadcast()
	}
	p.mu.Unlock()
	if wait {
		p.wg.Wait()
	}
}

func (p *Local) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		j := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if p.ctx.Err() != nil {
			j.promise.Cancel()
			continue
		}
		// Claim the job; a promise cancelled while queued never runs.
		if !j.promise.TryStart() {
			continue
		}
		v, err := j.fn(p.ctx, j.args...)
		if err != nil {
			if p.logger != nil {
				p.logger.Errorf("task failed: %v", err)
			}
			j.promise.SetErr(err)
		} else {
			j.promise.SetResult(v)
		}
	}
}
