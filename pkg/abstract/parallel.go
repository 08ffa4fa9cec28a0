package abstract

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// ParallelOp evaluates every item of data and streams the results in index
// order.
//
// With Workers(n) and n > 0 at most n items are evaluated at once and at
// most BufferLen items are evaluated ahead of the consumer. Without workers
// items are evaluated one after the other. The stream stops after the first
// failed item. The channel is closed when all items were delivered or ctx is
// done; callers that stop reading early must cancel ctx.
func ParallelOp(ctx context.Context, data Sequence, opts ...Option) <-chan Result {
	o := newOptions(opts)
	out := make(chan Result)

	n, err := requireLen(data, "parallel")
	if err != nil {
		go func() {
			defer close(out)
			send(ctx, out, Result{Err: err})
		}()
		return out
	}

	if o.workers <= 0 {
		go func() {
			defer close(out)
			for k := 0; k < n; k++ {
				v, info, err := data.Get(ctx, k, o.args)
				if err != nil {
					err = fmt.Errorf("item %d: %w", k, err)
				}
				if !send(ctx, out, Result{Index: k, Value: v, Info: info, Err: err}) || err != nil {
					return
				}
			}
		}()
		return out
	}

	ctx, cancel := context.WithCancel(ctx)
	pending := make(chan chan Result, o.bufferLen)
	sem := semaphore.NewWeighted(int64(o.workers))

	go func() {
		defer close(pending)
		for k := 0; k < n; k++ {
			fut := make(chan Result, 1)
			select {
			case pending <- fut:
			case <-ctx.Done():
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				fut <- Result{Index: k, Err: err}
				return
			}
			go func(k int) {
				defer sem.Release(1)
				v, info, err := data.Get(ctx, k, o.args)
				if err != nil {
					err = fmt.Errorf("item %d: %w", k, err)
				}
				fut <- Result{Index: k, Value: v, Info: info, Err: err}
			}(k)
		}
	}()

	go func() {
		defer close(out)
		defer cancel()
		for fut := range pending {
			var r Result
			select {
			case r = <-fut:
			case <-ctx.Done():
				return
			}
			if !send(ctx, out, r) || r.Err != nil {
				return
			}
		}
	}()
	return out
}

func send(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
