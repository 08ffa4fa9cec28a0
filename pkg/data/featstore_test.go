package data

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// countingSeq counts evaluations.
type countingSeq struct {
	values []any
	calls  atomic.Int32
	fail   int
}

func (s *countingSeq) Len() int { return len(s.values) }

func (s *countingSeq) Get(_ context.Context, index int, _ abstract.Args) (any, abstract.Info, error) {
	s.calls.Add(1)
	if s.fail > 0 && index == s.fail {
		return nil, nil, errors.New("broken item")
	}
	return s.values[index], abstract.Info{"fs": 16000, "skip": struct{}{}}, nil
}

func TestFeatureStore_SaveLoad(t *testing.T) {
	s := FeatureStore{Dir: t.TempDir()}
	require.False(t, s.Exists("a/b"))
	require.NoError(t, s.Save("a/b", []float64{1, 2}, abstract.Info{"fs": 8000, "fn": func() {}}))
	require.True(t, s.Exists("a/b"))

	v, info, err := s.Load("a/b")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v)
	assert.Equal(t, abstract.Info{"fs": 8000}, info)

	_, _, err = s.Load("missing")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFeatureStore_Prepare(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	s := FeatureStore{Dir: t.TempDir()}
	names := []string{"x/0", "x/1", "y/2"}
	src := &countingSeq{values: []any{[]float64{0}, []float64{1}, [][]float64{{2, 2}}}}

	require.NoError(t, s.Prepare(ctx, names, src, PrepareOptions{Workers: 2}))
	assert.EqualValues(t, 3, src.calls.Load())

	require.NoError(t, s.Prepare(ctx, names, src, PrepareOptions{Workers: 2}))
	assert.EqualValues(t, 3, src.calls.Load(), "stored items are skipped")

	require.NoError(t, s.Prepare(ctx, names, src, PrepareOptions{Overwrite: true}))
	assert.EqualValues(t, 6, src.calls.Load())

	seq := s.Sequence(names)
	require.Equal(t, 3, seq.Len())
	v, info, err := seq.Get(ctx, -1, abstract.Args{Params: abstract.Info{"key": "y"}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 2}}, v)
	assert.Equal(t, abstract.Info{"fs": 16000, "key": "y"}, info)
}

func TestFeatureStore_PrepareErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	s := FeatureStore{Dir: t.TempDir()}

	err := s.Prepare(ctx, []string{"a"}, &countingSeq{values: []any{1, 2}}, PrepareOptions{})
	require.ErrorIs(t, err, abstract.ErrLenMismatch)

	err = s.Prepare(ctx, []string{"a", "b"}, &countingSeq{values: []any{1, 2}, fail: 1}, PrepareOptions{Workers: 2})
	require.ErrorContains(t, err, "example b")
	assert.True(t, s.Exists("a"))
	assert.False(t, s.Exists("b"))
}
