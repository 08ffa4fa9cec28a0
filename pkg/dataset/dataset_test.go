package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonas-y/dabstract/pkg/abstract"
	"github.com/yonas-y/dabstract/pkg/config"
	"github.com/yonas-y/dabstract/pkg/data"
	"github.com/yonas-y/dabstract/pkg/processor"
)

// toy has four examples of 4, 2, 8 and 4 samples at 4 Hz.
type toy struct {
	prepareErr error
}

func (t toy) Prepare(context.Context, config.Paths) error { return t.prepareErr }

func (toy) SetData(ctx context.Context, ds *Dataset, _ config.Paths) error {
	signals := [][]float64{
		{1, 2, 3, 4},
		{5, 6},
		{7, 8, 9, 10, 11, 12, 13, 14},
		{15, 16, 17, 18},
	}
	withFs := abstract.MapInfoFunc(func(_ context.Context, v any, info abstract.Info) (any, abstract.Info, error) {
		return v, info.Merge(abstract.Info{processor.InfoFs: 4}), nil
	})
	audio, err := abstract.NewMap(abstract.FromSlice(signals), withFs)
	if err != nil {
		return err
	}
	return errors.Join(
		ds.Add(ctx, "audio", audio),
		ds.Add(ctx, "example", abstract.FromSlice([]string{"a", "b", "c", "d"})),
		ds.Add(ctx, "scene", abstract.FromSlice([]string{"park", "street", "park", "bus"}), abstract.Lazy(false)),
		ds.Add(ctx, "group", abstract.FromSlice([]int{0, 0, 1, 2})),
	)
}

func init() {
	Register("toy", toy{})
	Register("broken", toy{prepareErr: errors.New("no files")})
}

func getKey(t *testing.T, ds *Dataset, key string) []any {
	t.Helper()
	seq, err := ds.Key(key)
	require.NoError(t, err)
	out := make([]any, seq.Len())
	for i := range out {
		out[i], err = abstract.Get(context.Background(), seq, i)
		require.NoError(t, err)
	}
	return out
}

func TestNew(t *testing.T) {
	ds, err := New(context.Background(), "toy", config.Dataset{Paths: config.Paths{Feat: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, "toy", ds.Name())
	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, []string{"audio", "example", "scene", "group"}, ds.Keys())
	assert.Contains(t, Registered(), "toy")
	assert.Contains(t, ds.String(), "4 examples")
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, "missing", config.Dataset{})
	require.ErrorIs(t, err, ErrUnknownDataset)

	_, err = New(ctx, "broken", config.Dataset{})
	require.ErrorContains(t, err, "no files")

	_, err = New(ctx, "toy", config.Dataset{Select: &config.Selector{Name: "nope"}})
	require.Error(t, err)
}

func TestNew_SelectAndSplit(t *testing.T) {
	cfg := config.Dataset{
		Name: "toy",
		Select: &config.Selector{
			Name:   "subsample_by_str",
			Params: map[string]any{"key": "scene", "keep": []any{"park", "bus"}},
		},
		Split: &config.Split{Key: "audio", Size: 1, Unit: "seconds"},
	}
	ds, err := FromConfig(context.Background(), cfg)
	require.NoError(t, err)

	// a (4 samples), c (8) and d (4) at 4 samples per frame
	assert.Equal(t, []any{"a", "c", "c", "d"}, getKey(t, ds, "example"))
	assert.Equal(t, []any{
		[]float64{1, 2, 3, 4},
		[]float64{7, 8, 9, 10},
		[]float64{11, 12, 13, 14},
		[]float64{15, 16, 17, 18},
	}, getKey(t, ds, "audio"))
	assert.Equal(t, []any{"park", "park", "park", "bus"}, getKey(t, ds, "scene"))
	assert.False(t, ds.IsLazy("scene"))
}

func TestAddSplit_Samples(t *testing.T) {
	ctx := context.Background()
	ds, err := New(ctx, "toy", config.Dataset{})
	require.NoError(t, err)

	require.NoError(t, ds.AddSplit(ctx, "audio", abstract.SplitConfig{Size: 2, Unit: abstract.UnitSamples}))
	assert.Equal(t, 9, ds.Len())
	assert.Equal(t, []any{"a", "a", "b", "c", "c", "c", "c", "d", "d"}, getKey(t, ds, "example"))

	err = ds.AddSplit(ctx, "missing", abstract.SplitConfig{Size: 2})
	require.ErrorIs(t, err, abstract.ErrKeyNotFound)
}

func TestXVal(t *testing.T) {
	ctx := context.Background()
	ds, err := New(ctx, "toy", config.Dataset{XVal: &config.XVal{Folds: 2, Method: "group", GroupKey: "group"}})
	require.NoError(t, err)
	require.Equal(t, 2, ds.Folds())

	train, test, err := ds.XValSets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, train.Len()+test.Len())

	seen := map[any]bool{}
	for _, set := range []*abstract.DictSeq{train, test} {
		ex, err := set.Key("example")
		require.NoError(t, err)
		for i := range ex.Len() {
			v, err := abstract.Get(ctx, ex, i)
			require.NoError(t, err)
			seen[v] = true
		}
	}
	assert.Len(t, seen, 4)

	_, _, err = ds.XValSets(ctx, 5)
	require.Error(t, err)
	require.Error(t, ds.SetXVal([][]int{{0, 9}}))
}

func TestXVal_KFoldAndTestOnly(t *testing.T) {
	ctx := context.Background()
	ds, err := New(ctx, "toy", config.Dataset{XVal: &config.XVal{Folds: 4, Seed: 1}})
	require.NoError(t, err)
	for f := range ds.Folds() {
		train, test, err := ds.XValSets(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, 3, train.Len())
		assert.Equal(t, 1, test.Len())
	}

	ds, err = New(ctx, "toy", config.Dataset{TestOnly: true, XVal: &config.XVal{Folds: 2}})
	require.NoError(t, err)
	assert.True(t, ds.TestOnly())
	train, test, err := ds.XValSets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, train.Len())
	assert.Equal(t, 4, test.Len())

	ds, err = New(ctx, "toy", config.Dataset{})
	require.NoError(t, err)
	_, _, err = ds.XValSets(ctx, 0)
	require.ErrorIs(t, err, ErrNoXVal)

	err = ds.SetXValConfig(ctx, config.XVal{Folds: 2, Method: "leave_one_out"})
	require.Error(t, err)
}

func TestPrepareFeat(t *testing.T) {
	ctx := context.Background()
	feat := t.TempDir()
	ds, err := New(ctx, "toy", config.Dataset{Paths: config.Paths{Feat: feat}})
	require.NoError(t, err)

	calls := 0
	chain := processor.NewChain(processor.Func(func(v any) (any, error) {
		calls++
		s := v.([]float64)
		return []float64{s[0], float64(len(s))}, nil
	}))
	require.NoError(t, ds.PrepareFeat(ctx, "audio", "first", chain, FeatOptions{NewKey: "feat", Workers: 1}))
	assert.Equal(t, 4, calls)
	assert.True(t, data.FeatureStore{Dir: ds.FeatDir("audio", "first")}.Exists("c"))
	assert.Equal(t, []any{
		[]float64{1, 4},
		[]float64{5, 2},
		[]float64{7, 8},
		[]float64{15, 4},
	}, getKey(t, ds, "feat"))

	v, info, err := ds.Get(ctx, 0, abstract.Args{Key: "feat"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, v)
	assert.Equal(t, 4, info[processor.InfoFs])

	require.NoError(t, ds.PrepareFeat(ctx, "audio", "first", chain, FeatOptions{Workers: 1}))
	assert.Equal(t, 4, calls, "stored features are reused")
	assert.Equal(t, getKey(t, ds, "feat"), getKey(t, ds, "audio"))
}

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"a_0", "b", "a_1"}, uniqueNames([]string{"a", "b", "a"}))
	assert.Equal(t, []string{"a_1", "a_0", "a_2"}, uniqueNames([]string{"a", "a_0", "a"}))

	got := uniqueNames([]string{"a_0", "a", "a", "a_0"})
	assert.Len(t, got, 4)
	seen := map[string]bool{}
	for _, n := range got {
		assert.False(t, seen[n], "name %q repeated", n)
		seen[n] = true
	}
}
