package abstract

import (
	"context"
	"fmt"
)

// FilterFunc reports whether an item is kept.
type FilterFunc func(value any) (bool, error)

// FilterSeq hides the items rejected by a FilterFunc.
//
// With returnNone the length is preserved and rejected items evaluate to
// nil. Without it the length is UnknownLen: Get on a rejected item returns
// ErrFiltered and Iter only yields the accepted items.
type FilterSeq struct {
	data       Sequence
	keep       FilterFunc
	returnNone bool
}

// NewFilter wraps data with keep.
func NewFilter(data Sequence, keep FilterFunc, returnNone bool) (*FilterSeq, error) {
	if _, err := requireLen(data, "filter"); err != nil {
		return nil, err
	}
	if keep == nil {
		return nil, fmt.Errorf("filter: %w: nil func", ErrInvalidConfig)
	}
	return &FilterSeq{data: data, keep: keep, returnNone: returnNone}, nil
}

// Len returns the length of the wrapped data with returnNone, UnknownLen
// otherwise.
func (f *FilterSeq) Len() int {
	if f.returnNone {
		return f.data.Len()
	}
	return UnknownLen
}

// Get evaluates item index of the wrapped data.
func (f *FilterSeq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	v, info, kept, err := f.get(ctx, index, args)
	switch {
	case err != nil:
		return nil, nil, err
	case kept:
		return v, info, nil
	case f.returnNone:
		return nil, info, nil
	}
	return nil, nil, fmt.Errorf("filter item %d: %w", index, ErrFiltered)
}

// get evaluates item index and reports whether keep accepted it.
func (f *FilterSeq) get(ctx context.Context, index int, args Args) (any, Info, bool, error) {
	i, err := Normalize(index, f.data.Len())
	if err != nil {
		return nil, nil, false, err
	}
	v, info, err := f.data.Get(ctx, i, args)
	if err != nil {
		return nil, nil, false, err
	}
	ok, err := f.keep(v)
	if err != nil {
		return nil, nil, false, fmt.Errorf("filter item %d: %w", i, err)
	}
	return v, info, ok, nil
}

// Iter streams the accepted items with their index in the wrapped data,
// whether or not rejected items are kept as nil by Get.
func (f *FilterSeq) Iter(ctx context.Context) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		for k := 0; k < f.data.Len(); k++ {
			v, info, kept, err := f.get(ctx, k, Args{})
			if err == nil && !kept {
				continue
			}
			if !send(ctx, out, Result{Index: k, Value: v, Info: info, Err: err}) || err != nil {
				return
			}
		}
	}()
	return out
}

// Key filters the projection of key with the same func.
func (f *FilterSeq) Key(key string) (Sequence, error) {
	k, err := Key(f.data, key)
	if err != nil {
		return nil, err
	}
	return &FilterSeq{data: k, keep: f.keep, returnNone: f.returnNone}, nil
}

func (f *FilterSeq) String() string {
	return fmt.Sprintf("%s\n filter: return none %t", describe(f.data), f.returnNone)
}
