package future

import "context"

// ReturnWhen selects the completion condition for Wait.
type ReturnWhen string

const (
	AllCompleted   ReturnWhen = "ALL_COMPLETED"
	FirstCompleted ReturnWhen = "FIRST_COMPLETED"
)

// Wait blocks until the requested completion condition holds or ctx expires,
// then returns the (done, notDone) partition of futs. The two slices are
// disjoint and together cover the input.
//
// With FirstCompleted, Wait returns on the first completion event observed
// after the call begins; futures that were already done on entry appear in
// the partition but do not cut the wait short, so a bounded ctx makes Wait
// return no earlier than its deadline when nothing new completes.
func Wait(ctx context.Context, futs []Future, returnWhen ReturnWhen) (done, notDone []Future) {
	events := make(chan struct{}, len(futs))
	pending := 0
	for _, f := range futs {
		if f.Done() {
			continue
		}
		pending++
		f.OnDone(func(Future) {
			events <- struct{}{}
		})
	}

	if pending == 0 {
		return partition(futs)
	}

	for {
		select {
		case <-events:
			pending--
			if returnWhen == FirstCompleted || pending == 0 {
				return partition(futs)
			}
		case <-ctx.Done():
			return partition(futs)
		}
	}
}

// AsCompleted returns a channel yielding each future as it completes,
// in completion order. The channel is closed once every future has been
// yielded or ctx expires, whichever comes first.
func AsCompleted(ctx context.Context, futs []Future) <-chan Future {
	completed := make(chan Future, len(futs))
	for _, f := range futs {
		f.OnDone(func(f Future) {
			completed <- f
		})
	}

	out := make(chan Future)
	go func() {
		defer close(out)
		for range futs {
			select {
			case f := <-completed:
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func partition(futs []Future) (done, notDone []Future) {
	for _, f := range futs {
		if f.Done() {
			done = append(done, f)
		} else {
			notDone = append(notDone, f)
		}
	}
	return done, notDone
}
