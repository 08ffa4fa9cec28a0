package abstract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s Sequence) []any {
	t.Helper()
	out := make([]any, s.Len())
	for i := range out {
		v, err := Get(context.Background(), s, i)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func TestMap(t *testing.T) {
	ctx := context.Background()
	data := FromSlice([]int{1, 2, 3})

	seen := Info{}
	m, err := NewMap(data, MapInfoFunc(func(_ context.Context, v any, info Info) (any, Info, error) {
		seen = info
		return v.(int) + info["add"].(int), info.Merge(Info{"mapped": true}), nil
	}), WithParams(Info{"add": 10}), WithInfo([]Info{{"k": 0}, {"k": 1}, {"k": 2}}))
	require.NoError(t, err)

	assert.Equal(t, []any{11, 12, 13}, collect(t, m))

	v, info, err := m.Get(ctx, -1, Args{Params: Info{"fs": 8}})
	require.NoError(t, err)
	assert.Equal(t, 13, v)
	assert.Equal(t, 8, seen["fs"])
	assert.Equal(t, Info{"add": 10, "fs": 8, "mapped": true, "k": 2}, info)

	_, err = NewMap(data, MapFunc(nil), WithInfo([]Info{{}}))
	assert.ErrorIs(t, err, ErrLenMismatch)
}

func TestMap_Eager(t *testing.T) {
	ctx := context.Background()
	out, err := Map(ctx, FromSlice([]float64{1, 2}), MapFunc(func(v any) (any, error) {
		return v.(float64) * 2, nil
	}), Lazy(false), Workers(2))
	require.NoError(t, err)
	b, ok := out.(*Batch)
	require.True(t, ok)
	assert.Equal(t, []any{2.0, 4.0}, b.Items())

	_, err = Map(ctx, FromSlice([]int{1}), MapFunc(func(any) (any, error) {
		return nil, errors.New("bad")
	}), Lazy(false))
	assert.ErrorContains(t, err, "bad")
}

func TestSampleReplicate(t *testing.T) {
	s, err := NewSampleReplicate(FromSlice([]string{"a", "b", "c"}), []int{1, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "c", "c"}, collect(t, s))

	s, err = NewSampleReplicate(FromSlice([]int{1, 2}), []int{3})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 1, 1, 2, 2, 2}, collect(t, s))

	_, _, err = s.Get(context.Background(), 6, Args{})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = NewSampleReplicate(FromSlice([]int{1, 2}), []int{1, 2, 3})
	assert.ErrorIs(t, err, ErrLenMismatch)
}

func TestSplitConfig_Window(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SplitConfig
		want    int
		wantErr bool
	}{
		{name: "samples", cfg: SplitConfig{Size: 4, Unit: UnitSamples}, want: 4},
		{name: "seconds", cfg: SplitConfig{Size: 0.5, Unit: UnitSeconds, SamplePeriod: 1.0 / 16000}, want: 8000},
		{name: "power2", cfg: SplitConfig{Size: 5, Unit: UnitSamples, Constraint: ConstraintPower2}, want: 8},
		{name: "power2 exact", cfg: SplitConfig{Size: 8, Unit: UnitSamples, Constraint: ConstraintPower2}, want: 8},
		{name: "zero", cfg: SplitConfig{Size: 0.1, Unit: UnitSamples}, wantErr: true},
		{name: "no period", cfg: SplitConfig{Size: 1, Unit: UnitSeconds}, wantErr: true},
		{name: "bad unit", cfg: SplitConfig{Size: 1, Unit: "minutes"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Window()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrames(t *testing.T) {
	assert.Equal(t, 1, Frames(3, 4))
	assert.Equal(t, 1, Frames(4, 4))
	assert.Equal(t, 2, Frames(9, 4))
	assert.Equal(t, 3, Frames(12, 4))
}

// rangeReader records the read window it was asked for.
type rangeReader struct {
	Values
	ranges []Range
}

func (r *rangeReader) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	v, info, err := r.Values.Get(ctx, index, args)
	if err != nil || args.ReadRange == nil {
		return v, info, err
	}
	r.ranges = append(r.ranges, *args.ReadRange)
	out, err := sliceValue(v, args.ReadRange.Start, args.ReadRange.End)
	return out, info, err
}

func TestSplit(t *testing.T) {
	ctx := context.Background()
	data := FromSlice([][]int{{0, 1, 2, 3, 4, 5, 6, 7}, {8, 9, 10}})

	s, err := NewSplit(data, SplitConfig{Size: 4, Unit: UnitSamples, SampleLen: []int{8, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, s.FramesPerItem())
	assert.Equal(t, []any{[]int{0, 1, 2, 3}, []int{4, 5, 6, 7}, []int{8, 9, 10}}, collect(t, s))

	_, info, err := s.Get(ctx, 1, Args{})
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 4, End: 8}, info[InfoReadRange])

	rr := &rangeReader{Values: *FromSlice([]string{"abcdefgh"})}
	s, err = NewSplit(rr, SplitConfig{Size: 2, Unit: UnitSamples, SampleLen: []int{8}})
	require.NoError(t, err)
	assert.Equal(t, []any{"ab", "cd", "ef", "gh"}, collect(t, s))
	assert.Equal(t, Range{Start: 6, End: 8}, rr.ranges[3])

	_, err = NewSplit(data, SplitConfig{Size: 4, SampleLen: []int{1, 2, 3}})
	assert.ErrorIs(t, err, ErrLenMismatch)
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	data := FromSlice([]int{10, 11, 12, 13, 14})

	tests := []struct {
		name string
		sel  Selector
		want []any
	}{
		{name: "indices", sel: Indices{4, 0, -2}, want: []any{14, 10, 13}},
		{name: "index", sel: Index(1), want: []any{11}},
		{name: "span", sel: Span{Start: 1, Step: 2}, want: []any{11, 13}},
		{name: "func", sel: IndexFunc(func(context.Context, Sequence) ([]int, error) { return []int{3}, nil }), want: []any{13}},
		{name: "predicate", sel: Predicate(func(ctx context.Context, d Sequence, i int) (bool, error) {
			v, err := Get(ctx, d, i)
			return v.(int)%2 == 0, err
		}), want: []any{10, 12, 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSelectContext(ctx, data, tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, collect(t, s))
		})
	}

	_, err := NewSelect(data, Indices{5})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	eval := FromSlice([]string{"a", "b", "a", "b", "a"})
	s, err := NewSelect(data, Predicate(func(ctx context.Context, d Sequence, i int) (bool, error) {
		v, err := Get(ctx, d, i)
		return v == "b", err
	}), EvalData(eval))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, s.Indices())

	require.NoError(t, s.Set(0, 99))
	v, err := Get(ctx, data, 1)
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	even := func(v any) (bool, error) { return v.(int)%2 == 0, nil }
	data := FromSlice([]int{1, 2, 3, 4})

	f, err := NewFilter(data, even, true)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, 2, nil, 4}, collect(t, f))
	var kept []any
	for r := range f.Iter(ctx) {
		require.NoError(t, r.Err)
		kept = append(kept, r.Value)
	}
	assert.Equal(t, []any{2, 4}, kept, "iter skips rejected items")

	f, err = NewFilter(data, even, false)
	require.NoError(t, err)
	assert.Equal(t, UnknownLen, f.Len())
	_, _, err = f.Get(ctx, 0, Args{})
	assert.ErrorIs(t, err, ErrFiltered)

	var idx []int
	var vals []any
	for r := range f.Iter(ctx) {
		require.NoError(t, r.Err)
		idx = append(idx, r.Index)
		vals = append(vals, r.Value)
	}
	assert.Equal(t, []int{1, 3}, idx)
	assert.Equal(t, []any{2, 4}, vals)

	out, err := Filter(ctx, data, even, false, Lazy(false))
	require.NoError(t, err)
	assert.Equal(t, []any{2, 4}, collect(t, out))
}
