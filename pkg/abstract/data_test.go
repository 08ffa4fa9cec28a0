package abstract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestData_MaterializeMatrix(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	rows := FromSlice([][]float64{{1, 2}, {3, 4}, {5, 6}})
	d, err := NewData(rows, Workers(2))
	require.NoError(t, err)

	b, err := d.All(ctx)
	require.NoError(t, err)
	m, ok := b.Matrix()
	require.True(t, ok)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 6.0, m.At(2, 1))

	row, err := Get(ctx, b, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, row)
}

func TestData_MaterializeScalars(t *testing.T) {
	ctx := context.Background()
	d, err := NewData(FromSlice([]int{1, 2, 3}))
	require.NoError(t, err)

	b, err := d.Materialize(ctx, Indices{2, 0})
	require.NoError(t, err)
	m, ok := b.Matrix()
	require.True(t, ok)
	_, c := m.Dims()
	assert.Equal(t, 1, c)

	v, err := Get(ctx, b, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestData_OutputTypes(t *testing.T) {
	ctx := context.Background()
	mixed := FromSlice([]any{[]float64{1}, []float64{1, 2}, "x"})

	auto, err := NewData(mixed)
	require.NoError(t, err)
	b, err := auto.All(ctx)
	require.NoError(t, err)
	_, ok := b.Matrix()
	assert.False(t, ok)
	assert.Equal(t, []any{[]float64{1}, []float64{1, 2}, "x"}, b.Items())

	strict, err := NewData(mixed, Output(OutputMatrix))
	require.NoError(t, err)
	_, err = strict.All(ctx)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	list, err := NewData(FromSlice([]float64{1, 2}), Output(OutputList))
	require.NoError(t, err)
	b, err = list.All(ctx)
	require.NoError(t, err)
	_, ok = b.Matrix()
	assert.False(t, ok)
	assert.Equal(t, []any{1.0, 2.0}, b.Items())
}

func TestData_LoadMemory(t *testing.T) {
	ctx := context.Background()
	calls := 0
	m, err := NewMap(FromSlice([]int{1, 2}), MapFunc(func(v any) (any, error) {
		calls++
		return v, nil
	}))
	require.NoError(t, err)

	d, err := NewData(m, LoadMemory(10))
	require.NoError(t, err)
	for range 2 {
		_, err := d.All(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestData_Key(t *testing.T) {
	ctx := context.Background()
	ds := NewDictSeq("d")
	require.NoError(t, ds.Add(ctx, "a", FromSlice([]float64{1, 2})))
	require.NoError(t, ds.Add(ctx, "b", FromSlice([]string{"x", "y"})))

	d, err := NewData(ds)
	require.NoError(t, err)
	k, err := d.Key("b")
	require.NoError(t, err)
	b, err := k.(*Data).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, b.Items())
}

func TestBatch_Concat(t *testing.T) {
	ctx := context.Background()
	mk := func(v ...[]float64) *Batch {
		d, err := NewData(FromSlice(v))
		require.NoError(t, err)
		b, err := d.All(ctx)
		require.NoError(t, err)
		return b
	}
	b, err := mk([]float64{1, 2}).Concat(mk([]float64{3, 4}, []float64{5, 6}))
	require.NoError(t, err)
	m, ok := b.Matrix()
	require.True(t, ok)
	r, _ := m.Dims()
	assert.Equal(t, 3, r)

	b, err = mk([]float64{1}).Concat(mk([]float64{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())
	_, ok = b.Matrix()
	assert.False(t, ok)

	require.NoError(t, b.Set(0, 1))
	require.NoError(t, mk([]float64{1, 2}).Set(0, []float64{9, 9}))
	assert.ErrorIs(t, mk([]float64{1, 2}).Set(0, []float64{9}), ErrShapeMismatch)
}
