package resilience

import (
	"context"
	"time"
)

// Hedge runs primary, and if it hasn't returned within delay, starts
// secondary as well, racing the two. If primary fails before delay elapses,
// secondary is started immediately. Whichever call succeeds first wins; if
// both fail, the primary's error is returned once it is known.
func Hedge[T any](ctx context.Context, primary, secondary func(context.Context) (T, error), delay time.Duration) (T, error) {
	type result struct {
		val T
		err error
	}

	pctx, pcancel := context.WithCancel(ctx)
	sctx, scancel := context.WithCancel(ctx)
	defer pcancel()
	defer scancel()

	primaryCh := make(chan result, 1)
	go func() {
		v, err := primary(pctx)
		primaryCh <- result{v, err}
	}()

	secondaryCh := make(chan result, 1)
	secondaryStarted := false
	startSecondary := func() {
		if secondaryStarted {
			return
		}
		secondaryStarted = true
		go func() {
			v, err := secondary(sctx)
			secondaryCh <- result{v, err}
		}()
	}

	var timerCh <-chan time.Time
	if delay <= 0 {
		startSecondary()
	} else {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		timerCh = timer.C
	}

	var primaryErr error
	primaryDone := false

	for {
		select {
		case r := <-primaryCh:
			primaryDone = true
			if r.err == nil {
				scancel()
				return r.val, nil
			}
			primaryErr = r.err
			startSecondary()

		case <-timerCh:
			timerCh = nil
			startSecondary()

		case r := <-secondaryCh:
			if r.err == nil {
				pcancel()
				return r.val, nil
			}
			if primaryDone {
				return r.val, primaryErr
			}
			pr := <-primaryCh
			return pr.val, pr.err

		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
