package abstract

import (
	"context"
	"fmt"
	"slices"
)

// The functions below build the lazy wrapper by default. With Lazy(false)
// the wrapper is evaluated right away into a Batch, using the Data
// options (Workers, BufferLen, Output, Verbose) that were given.

// Map maps data with mapper.
func Map(ctx context.Context, data Sequence, mapper Mapper, opts ...Option) (Sequence, error) {
	m, err := NewMap(data, mapper, opts...)
	if err != nil {
		return nil, err
	}
	return finish(ctx, m, opts)
}

// Select keeps the items of data picked by sel.
func Select(ctx context.Context, data Sequence, sel Selector, opts ...Option) (Sequence, error) {
	s, err := NewSelectContext(ctx, data, sel, opts...)
	if err != nil {
		return nil, err
	}
	return finish(ctx, s, opts)
}

// Filter keeps the items accepted by keep. Evaluated eagerly without
// returnNone, the result only holds the accepted items.
func Filter(ctx context.Context, data Sequence, keep FilterFunc, returnNone bool, opts ...Option) (Sequence, error) {
	f, err := NewFilter(data, keep, returnNone)
	if err != nil {
		return nil, err
	}
	if newOptions(opts).lazy {
		return f, nil
	}
	if returnNone {
		return materialize(ctx, f, opts)
	}
	marked, err := NewFilter(data, keep, true)
	if err != nil {
		return nil, err
	}
	all, err := materialize(ctx, marked, append(slices.Clone(opts), Output(OutputList)))
	if err != nil {
		return nil, err
	}
	var kept []int
	for i, v := range all.items {
		if v != nil {
			kept = append(kept, i)
		}
	}
	return all.subset(kept), nil
}

// Split cuts every item of data into frames.
func Split(ctx context.Context, data Sequence, cfg SplitConfig, opts ...Option) (Sequence, error) {
	s, err := NewSplit(data, cfg)
	if err != nil {
		return nil, err
	}
	return finish(ctx, s, opts)
}

// SampleReplicate repeats every item of data by its factor.
func SampleReplicate(ctx context.Context, data Sequence, factors []int, opts ...Option) (Sequence, error) {
	s, err := NewSampleReplicate(data, factors)
	if err != nil {
		return nil, err
	}
	return finish(ctx, s, opts)
}

func finish(ctx context.Context, data Sequence, opts []Option) (Sequence, error) {
	if newOptions(opts).lazy {
		return data, nil
	}
	b, err := materialize(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("%T: %w", data, err)
	}
	return b, nil
}
