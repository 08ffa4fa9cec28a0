package abstract

import (
	"context"
	"fmt"
	"slices"
)

// Selector picks indices out of the data it is evaluated on.
type Selector interface {
	Indices(ctx context.Context, eval Sequence) ([]int, error)
}

// Indices selects a fixed list of indices.
type Indices []int

// Indices returns s.
func (s Indices) Indices(context.Context, Sequence) ([]int, error) { return slices.Clone(s), nil }

// Index selects a single index.
type Index int

// Indices returns the single index.
func (s Index) Indices(context.Context, Sequence) ([]int, error) { return []int{int(s)}, nil }

// Span selects Start, Start+Step, ... up to Stop. A zero Stop means the
// length of the data and a zero Step means 1.
type Span struct {
	Start, Stop, Step int
}

// Indices expands the span against eval.
func (s Span) Indices(_ context.Context, eval Sequence) ([]int, error) {
	stop, step := s.Stop, s.Step
	if stop == 0 {
		n, err := requireLen(eval, "span")
		if err != nil {
			return nil, err
		}
		stop = n
	}
	if step == 0 {
		step = 1
	}
	if step < 0 {
		return nil, fmt.Errorf("%w: negative step %d", ErrInvalidSelector, step)
	}
	var out []int
	for i := s.Start; i < stop; i += step {
		out = append(out, i)
	}
	return out, nil
}

// IndexFunc computes indices from the whole data.
type IndexFunc func(ctx context.Context, eval Sequence) ([]int, error)

// Indices calls f.
func (f IndexFunc) Indices(ctx context.Context, eval Sequence) ([]int, error) { return f(ctx, eval) }

// Predicate keeps the indices for which it returns true.
type Predicate func(ctx context.Context, eval Sequence, index int) (bool, error)

// Indices evaluates p on every index of eval.
func (p Predicate) Indices(ctx context.Context, eval Sequence) ([]int, error) {
	n, err := requireLen(eval, "predicate")
	if err != nil {
		return nil, err
	}
	var out []int
	for k := 0; k < n; k++ {
		ok, err := p(ctx, eval, k)
		if err != nil {
			return nil, fmt.Errorf("predicate %d: %w", k, err)
		}
		if ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// SelectSeq exposes a subset of the wrapped data.
type SelectSeq struct {
	data    Sequence
	indices []int
}

// NewSelect evaluates sel once and wraps data with the result.
//
// Options: EvalData evaluates sel on other data of the same length.
func NewSelect(data Sequence, sel Selector, opts ...Option) (*SelectSeq, error) {
	return NewSelectContext(context.Background(), data, sel, opts...)
}

// NewSelectContext is NewSelect with a context for selectors that
// evaluate items.
func NewSelectContext(ctx context.Context, data Sequence, sel Selector, opts ...Option) (*SelectSeq, error) {
	n, err := requireLen(data, "select")
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, fmt.Errorf("select: %w: nil selector", ErrInvalidSelector)
	}
	o := newOptions(opts)
	eval := data
	if o.evalData != nil {
		eval = o.evalData
	}
	idx, err := sel.Indices(ctx, eval)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return newSelectIndices(data, idx, n)
}

func newSelectIndices(data Sequence, idx []int, n int) (*SelectSeq, error) {
	out := make([]int, len(idx))
	for k, i := range idx {
		j, err := Normalize(i, n)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		out[k] = j
	}
	return &SelectSeq{data: data, indices: out}, nil
}

// Len returns the number of selected items.
func (s *SelectSeq) Len() int { return len(s.indices) }

// Get returns the index-th selected item.
func (s *SelectSeq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	i, err := Normalize(index, len(s.indices))
	if err != nil {
		return nil, nil, err
	}
	return s.data.Get(ctx, s.indices[i], args)
}

// Set assigns through to the wrapped data.
func (s *SelectSeq) Set(index int, value any) error {
	i, err := Normalize(index, len(s.indices))
	if err != nil {
		return err
	}
	st, ok := s.data.(Setter)
	if !ok {
		return fmt.Errorf("select: %w on %T", ErrNotAssignable, s.data)
	}
	return st.Set(s.indices[i], value)
}

// Indices returns the selected indices of the wrapped data.
func (s *SelectSeq) Indices() []int { return slices.Clone(s.indices) }

// Key selects the same indices out of the projection of key.
func (s *SelectSeq) Key(key string) (Sequence, error) {
	k, err := Key(s.data, key)
	if err != nil {
		return nil, err
	}
	return &SelectSeq{data: k, indices: s.indices}, nil
}

func (s *SelectSeq) String() string {
	return fmt.Sprintf("%s\n select: %d of %d", describe(s.data), len(s.indices), s.data.Len())
}
