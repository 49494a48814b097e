package future_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignatij/gostage/pkg/future"
)

func TestWait_AllCompleted(t *testing.T) {
	p1 := future.NewPromise()
	p2 := future.NewPromise()
	futs := []future.Future{p1, p2}

	go func() {
		time.Sleep(10 * time.Millisecond)
		p1.SetResult(1)
		p2.SetResult(2)
	}()

	done, notDone := future.Wait(context.Background(), futs, future.AllCompleted)
	assert.Len(t, done, 2)
	assert.Empty(t, notDone)
}

func TestWait_AllCompletedTimeout(t *testing.T) {
	p1 := future.NewPromise()
	p2 := future.NewPromise()
	p1.SetResult(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done, notDone := future.Wait(ctx, []future.Future{p1, p2}, future.AllCompleted)
	assert.Equal(t, []future.Future{p1}, done)
	assert.Equal(t, []future.Future{p2}, notDone)
}

func TestWait_FirstCompletedEvent(t *testing.T) {
	p1 := future.NewPromise()
	p2 := future.NewPromise()

	go func() {
		time.Sleep(10 * time.Millisecond)
		p1.SetResult("first")
	}()

	done, notDone := future.Wait(context.Background(), []future.Future{p1, p2}, future.FirstCompleted)
	assert.Equal(t, []future.Future{p1}, done)
	assert.Equal(t, []future.Future{p2}, notDone)
}

// A future that was already resolved when Wait begins does not cut the
// wait short: the call returns at or after the deadline with the partition
// observed then.
func TestWait_PreResolvedDoesNotReturnEarly(t *testing.T) {
	fast := future.NewPromise()
	fast.SetResult("fast")
	slow := future.NewPromise()

	timeout := 50 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	done, notDone := future.Wait(ctx, []future.Future{fast, slow}, future.FirstCompleted)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Equal(t, []future.Future{fast}, done)
	assert.Equal(t, []future.Future{slow}, notDone)
}

func TestWait_AllAlreadyDoneReturnsImmediately(t *testing.T) {
	p1 := future.NewPromise()
	p2 := future.NewPromise()
	p1.SetResult(1)
	p2.Cancel()

	done, notDone := future.Wait(context.Background(), []future.Future{p1, p2}, future.FirstCompleted)
	assert.Len(t, done, 2)
	assert.Empty(t, notDone)
}

func TestAsCompleted_YieldsInCompletionOrder(t *testing.T) {
	p1 := future.NewPromise()
	p2 := future.NewPromise()
	p3 := future.NewPromise()

	go func() {
		time.Sleep(5 * time.Millisecond)
		p2.SetResult("b")
		time.Sleep(5 * time.Millisecond)
		p3.SetResult("c")
		time.Sleep(5 * time.Millisecond)
		p1.SetResult("a")
	}()

	var order []future.Future
	for f := range future.AsCompleted(context.Background(), []future.Future{p1, p2, p3}) {
		order = append(order, f)
	}
	assert.Equal(t, []future.Future{p2, p3, p1}, order)
}

func TestAsCompleted_ClosesOnTimeout(t *testing.T) {
	pending := future.NewPromise()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var got []future.Future
	for f := range future.AsCompleted(ctx, []future.Future{pending}) {
		got = append(got, f)
	}
	assert.Empty(t, got)
}
