package retry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ignatij/gostage/pkg/future"
	"github.com/ignatij/gostage/pkg/pool"
	"github.com/ignatij/gostage/pkg/retry"
)

type testLogger struct{}

func (testLogger) Infof(format string, args ...interface{})  {}
func (testLogger) Errorf(format string, args ...interface{}) {}

func constantBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func newRetry(t *testing.T, opts ...retry.Option) *retry.Executor {
	p := pool.NewLocal(context.Background(), 2, testLogger{})
	ex := retry.New(p, testLogger{}, opts...)
	t.Cleanup(func() { ex.Shutdown(true, false) })
	return ex
}

func TestExecutor_RetriesUntilSuccess(t *testing.T) {
	ex := newRetry(t, retry.WithBackOff(constantBackOff))

	var attempts int32
	flaky := func(ctx context.Context, args ...any) (any, error) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}

	f := ex.Submit(flaky)
	v, err := f.Result(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestExecutor_ExhaustsRetries(t *testing.T) {
	ex := newRetry(t, retry.WithBackOff(constantBackOff), retry.WithMaxRetries(2))

	var attempts int32
	boom := errors.New("persistent")
	failing := func(ctx context.Context, args ...any) (any, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, boom
	}

	f := ex.Submit(failing)
	_, err := f.Result(context.Background())
	assert.ErrorIs(t, err, boom)
	// Initial attempt plus two retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestExecutor_CancelStopsRetrying(t *testing.T) {
	ex := newRetry(t,
		retry.WithBackOff(func() backoff.BackOff {
			return backoff.NewConstantBackOff(10 * time.Millisecond)
		}),
		retry.WithMaxRetries(1000))

	var attempts int32
	failing := func(ctx context.Context, args ...any) (any, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("transient")
	}

	f := ex.Submit(failing)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) >= 1
	}, time.Second, time.Millisecond)

	assert.True(t, f.Cancel())
	assert.True(t, f.Cancelled())
	assert.ErrorIs(t, f.Err(context.Background()), future.ErrCancelled)

	// Any attempt in flight when Cancel lands may still finish; after
	// that the loop must stop resubmitting.
	time.Sleep(50 * time.Millisecond)
	settled := atomic.LoadInt32(&attempts)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt32(&attempts))
}

func TestExecutor_MapRetriesPerChunk(t *testing.T) {
	ex := newRetry(t, retry.WithBackOff(constantBackOff))

	var firstCall int32
	double := func(ctx context.Context, args ...any) (any, error) {
		n := args[0].(int)
		if n == 1 && atomic.AddInt32(&firstCall, 1) == 1 {
			return nil, errors.New("transient")
		}
		return n * 2, nil
	}
	results, err := ex.Map(double, [][]any{{1}, {2}, {3}}, 1)
	assert.NoError(t, err)

	out, err := results.Collect(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []any{2, 4, 6}, out)
}
