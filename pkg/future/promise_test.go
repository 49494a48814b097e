package future_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ignatij/gostage/pkg/future"
)

func TestPromise_ResultAndErr(t *testing.T) {
	t.Run("SetResult", func(t *testing.T) {
		p := future.NewPromise()
		assert.False(t, p.Done())
		assert.True(t, p.SetResult(42))
		assert.True(t, p.Done())
		assert.False(t, p.Cancelled())

		v, err := p.Result(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.NoError(t, p.Err(context.Background()))
	})

	t.Run("SetErr", func(t *testing.T) {
		p := future.NewPromise()
		boom := errors.New("boom")
		assert.True(t, p.SetErr(boom))

		_, err := p.Result(context.Background())
		assert.Equal(t, boom, err)
		assert.Equal(t, boom, p.Err(context.Background()))
	})

	t.Run("SecondCompletionIgnored", func(t *testing.T) {
		p := future.NewPromise()
		assert.True(t, p.SetResult(1))
		assert.False(t, p.SetResult(2))
		assert.False(t, p.SetErr(errors.New("late")))
		assert.False(t, p.Cancel())

		v, err := p.Result(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("ResultTimeout", func(t *testing.T) {
		p := future.NewPromise()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := p.Result(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestPromise_Cancel(t *testing.T) {
	t.Run("CancelPending", func(t *testing.T) {
		p := future.NewPromise()
		assert.True(t, p.Cancel())
		assert.True(t, p.Done())
		assert.True(t, p.Cancelled())

		_, err := p.Result(context.Background())
		assert.ErrorIs(t, err, future.ErrCancelled)
	})

	t.Run("CancelAfterStartFails", func(t *testing.T) {
		p := future.NewPromise()
		assert.True(t, p.TryStart())
		assert.False(t, p.Cancel())
		assert.False(t, p.Cancelled())
		assert.True(t, p.SetResult("done"))
	})

	t.Run("TryStartOnlyOnce", func(t *testing.T) {
		p := future.NewPromise()
		assert.True(t, p.TryStart())
		assert.False(t, p.TryStart())
	})

	t.Run("TryStartAfterCancelFails", func(t *testing.T) {
		p := future.NewPromise()
		assert.True(t, p.Cancel())
		assert.False(t, p.TryStart())
	})
}

func TestPromise_OnDone(t *testing.T) {
	t.Run("FiresOnCompletion", func(t *testing.T) {
		p := future.NewPromise()
		fired := make(chan future.Future, 1)
		p.OnDone(func(f future.Future) {
			fired <- f
		})
		p.SetResult("x")

		select {
		case f := <-fired:
			assert.True(t, f.Done())
		case <-time.After(time.Second):
			t.Fatal("callback never fired")
		}
	})

	t.Run("FiresImmediatelyWhenAlreadyDone", func(t *testing.T) {
		p := future.NewPromise()
		p.SetResult("x")
		fired := false
		p.OnDone(func(future.Future) {
			fired = true
		})
		assert.True(t, fired)
	})

	t.Run("FiresOnCancellation", func(t *testing.T) {
		p := future.NewPromise()
		fired := false
		p.OnDone(func(future.Future) {
			fired = true
		})
		p.Cancel()
		assert.True(t, fired)
	})
}
