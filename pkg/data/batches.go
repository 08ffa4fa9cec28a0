package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// ErrBatchSize is returned for a batch size below one.
var ErrBatchSize = errors.New("data: batch size must be positive")

// MiniBatch is a group of consecutive evaluated items. Index is the
// position of the batch, not of its first item.
type MiniBatch struct {
	Index int
	Items []any
	Infos []abstract.Info
	Err   error
}

// Batches groups the items of seq into batches of size items, evaluated
// through ParallelOp with opts. The last batch holds the remainder. A
// failed item ends the stream with a batch carrying the error. Cancel ctx
// to stop early.
func Batches(ctx context.Context, seq abstract.Sequence, size int, opts ...abstract.Option) <-chan MiniBatch {
	out := make(chan MiniBatch)
	go func() {
		defer close(out)
		if size < 1 {
			sendBatch(ctx, out, MiniBatch{Err: fmt.Errorf("%d: %w", size, ErrBatchSize)})
			return
		}
		// the inner stream must stop when this one does
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		b := MiniBatch{}
		for r := range abstract.ParallelOp(ctx, seq, opts...) {
			if r.Err != nil {
				sendBatch(ctx, out, MiniBatch{Index: b.Index, Err: r.Err})
				return
			}
			b.Items = append(b.Items, r.Value)
			b.Infos = append(b.Infos, r.Info)
			if len(b.Items) == size {
				if !sendBatch(ctx, out, b) {
					return
				}
				b = MiniBatch{Index: b.Index + 1}
			}
		}
		if len(b.Items) > 0 && ctx.Err() == nil {
			sendBatch(ctx, out, b)
		}
	}()
	return out
}

func sendBatch(ctx context.Context, out chan<- MiniBatch, b MiniBatch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
