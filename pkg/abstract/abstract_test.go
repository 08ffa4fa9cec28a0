package abstract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		index, n, want int
		wantErr        error
	}{
		{index: 0, n: 3, want: 0},
		{index: 2, n: 3, want: 2},
		{index: -1, n: 3, want: 2},
		{index: -4, n: 3, want: 2},
		{index: 3, n: 3, wantErr: ErrIndexOutOfRange},
		{index: 0, n: 0, wantErr: ErrIndexOutOfRange},
		{index: 0, n: UnknownLen, wantErr: ErrLenUndefined},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.index, tt.n)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestValues(t *testing.T) {
	ctx := context.Background()
	v := FromSlice([]string{"a", "b", "c"})
	assert.Equal(t, 3, v.Len())

	got, info, err := v.Get(ctx, -1, Args{Params: Info{"fs": 16000}, ReadRange: &Range{Start: 1, End: 4}})
	require.NoError(t, err)
	assert.Equal(t, "c", got)
	assert.Equal(t, 16000, info["fs"])
	assert.Equal(t, Range{Start: 1, End: 4}, info[InfoReadRange])

	require.NoError(t, v.Set(0, "z"))
	got, err = Get(ctx, v, 0)
	require.NoError(t, err)
	assert.Equal(t, "z", got)

	_, _, err = v.Get(ctx, 0, Args{Key: "x"})
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestInfoMerge(t *testing.T) {
	a := Info{"a": 1, "b": 1}
	m := a.Merge(Info{"b": 2}, nil, Info{"c": 3})
	assert.Equal(t, Info{"a": 1, "b": 2, "c": 3}, m)
	assert.Equal(t, 1, a["b"])
}

func TestKey_MissingKeyIsNil(t *testing.T) {
	ctx := context.Background()
	d := NewDictSeq("d")
	require.NoError(t, d.Add(ctx, "x", FromSlice([]int{1, 2})))
	s, err := NewSeq("s", d, FromSlice([]int{3}))
	require.NoError(t, err)

	k, err := Key(s, "x")
	require.NoError(t, err)
	require.Equal(t, 3, k.Len())

	v, err := Get(ctx, k, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, info, err := k.Get(ctx, 2, Args{})
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Empty(t, info)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	calls := 0
	m, err := NewMap(FromSlice([]int{1, 2, 3}), MapFunc(func(v any) (any, error) {
		calls++
		return v.(int) * 10, nil
	}))
	require.NoError(t, err)

	c, err := NewCache(m, 2)
	require.NoError(t, err)
	for range 3 {
		v, err := Get(ctx, c, 0)
		require.NoError(t, err)
		assert.Equal(t, 10, v)
	}
	assert.Equal(t, 1, calls)

	_, _, err = c.Get(ctx, 0, Args{Params: Info{"p": 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	for i := range 3 {
		_, err := Get(ctx, c, i)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Cached())
}
