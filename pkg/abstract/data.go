package abstract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	xlog "github.com/yonas-y/dabstract/internal/log"
)

// Data materializes a sequence, evaluating selections in parallel.
//
// Options: Output, Workers, BufferLen, Verbose and LoadMemory.
type Data struct {
	data   Sequence
	o      options
	logger zerolog.Logger
}

// NewData wraps data. With LoadMemory evaluated items are kept in an LRU
// cache.
func NewData(data Sequence, opts ...Option) (*Data, error) {
	if _, err := requireLen(data, "data"); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	if o.cacheSize > 0 {
		c, err := NewCache(data, o.cacheSize)
		if err != nil {
			return nil, err
		}
		data = c
	}
	return &Data{data: data, o: o, logger: xlog.WithComponent("data")}, nil
}

// Len returns the number of items.
func (d *Data) Len() int { return d.data.Len() }

// Get evaluates a single item.
func (d *Data) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	return d.data.Get(ctx, index, args)
}

// Iter streams every item using the configured workers.
func (d *Data) Iter(ctx context.Context) <-chan Result {
	return ParallelOp(ctx, d.data, Workers(d.o.workers), BufferLen(d.o.bufferLen))
}

// All materializes every item.
func (d *Data) All(ctx context.Context) (*Batch, error) {
	return d.Materialize(ctx, nil)
}

// Materialize evaluates the items picked by sel, or every item when sel is
// nil, and collects them into a Batch.
func (d *Data) Materialize(ctx context.Context, sel Selector, opts ...Option) (*Batch, error) {
	var src Sequence = d.data
	if sel != nil {
		s, err := NewSelect(d.data, sel)
		if err != nil {
			return nil, err
		}
		src = s
	}
	o := d.o
	for _, fn := range opts {
		fn(&o)
	}

	n := src.Len()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bb := newBatchBuilder(o.outputType, n)
	logger := xlog.WithContext(ctx, d.logger)
	step := max(n/10, 1)
	for r := range ParallelOp(ctx, src, Workers(o.workers), BufferLen(o.bufferLen), WithArgs(o.args)) {
		if r.Err != nil {
			return nil, fmt.Errorf("materialize: %w", r.Err)
		}
		if err := bb.add(r.Value, r.Info); err != nil {
			return nil, fmt.Errorf("materialize: %w", err)
		}
		if o.verbose && (r.Index+1)%step == 0 {
			logger.Info().Int(xlog.FieldIndex, r.Index+1).Int(xlog.FieldTotal, n).Msg("materializing")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bb.infos) != n {
		return nil, fmt.Errorf("materialize: got %d of %d items", len(bb.infos), n)
	}
	return bb.build(), nil
}

// Key returns Data over the projection of key.
func (d *Data) Key(key string) (Sequence, error) {
	k, err := NewKey(d, key)
	if err != nil {
		return nil, err
	}
	return NewData(k, Output(d.o.outputType), Workers(d.o.workers), BufferLen(d.o.bufferLen))
}

func (d *Data) String() string {
	return fmt.Sprintf("%s\n data abstract: multi_processing %t", describe(d.data), d.o.workers > 0)
}

// materialize evaluates data eagerly according to opts.
func materialize(ctx context.Context, data Sequence, opts []Option) (*Batch, error) {
	d, err := NewData(data, opts...)
	if err != nil {
		return nil, err
	}
	return d.All(ctx)
}
