// Package dataset builds named datasets from their configuration and
// prepares features for them.
//
// A dataset is a DictSeq filled by a registered Builder. After loading,
// the configured selection, split and cross-validation are applied in that
// order.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/abstract"
	"github.com/yonas-y/dabstract/pkg/config"
	"github.com/yonas-y/dabstract/pkg/processor"
	"github.com/yonas-y/dabstract/pkg/selector"
)

var (
	ErrUnknownDataset = errors.New("dataset: unknown dataset")
	ErrMissingData    = errors.New("dataset: data not found")
	ErrNoXVal         = errors.New("dataset: no cross-validation folds")
)

// Builder fills a dataset from the files under paths.
type Builder interface {
	// Prepare makes sure the files exist.
	Prepare(ctx context.Context, paths config.Paths) error
	// SetData adds the keys of the dataset.
	SetData(ctx context.Context, ds *Dataset, paths config.Paths) error
}

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{}
)

// Register makes a builder available under name, replacing any earlier
// registration.
func Register(name string, b Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[name] = b
}

// Registered returns the registered dataset names, sorted.
func Registered() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Dataset is a DictSeq with the paths it was loaded from and its
// cross-validation folds.
type Dataset struct {
	*abstract.DictSeq
	paths    config.Paths
	testOnly bool
	folds    [][]int
}

// NewEmpty returns a dataset without keys.
func NewEmpty(name string, paths config.Paths) *Dataset {
	return &Dataset{DictSeq: abstract.NewDictSeq(name), paths: paths}
}

// New loads the dataset registered under name.
func New(ctx context.Context, name string, cfg config.Dataset) (*Dataset, error) {
	buildersMu.RLock()
	b, ok := builders[name]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	ctx = xlog.ContextWithDataset(ctx, name)
	logger := xlog.WithComponentFromContext(ctx, "dataset")

	if err := b.Prepare(ctx, cfg.Paths); err != nil {
		return nil, fmt.Errorf("prepare %s: %w", name, err)
	}
	ds := NewEmpty(name, cfg.Paths)
	ds.testOnly = cfg.TestOnly
	if err := b.SetData(ctx, ds, cfg.Paths); err != nil {
		return nil, fmt.Errorf("set data %s: %w", name, err)
	}
	logger.Info().Int(xlog.FieldTotal, ds.Len()).Strs("keys", ds.Keys()).Msg("dataset loaded")

	if cfg.Select != nil {
		sel, err := selector.New(cfg.Select.Name, cfg.Select.Params)
		if err != nil {
			return nil, err
		}
		if err := ds.AddSelect(ctx, sel); err != nil {
			return nil, fmt.Errorf("select %s: %w", name, err)
		}
		logger.Info().Str("selector", cfg.Select.Name).Int(xlog.FieldTotal, ds.Len()).Msg("dataset subsampled")
	}
	if cfg.Split != nil {
		split := abstract.SplitConfig{
			Size:       cfg.Split.Size,
			Unit:       abstract.SplitUnit(cfg.Split.Unit),
			Constraint: cfg.Split.Constraint,
		}
		if err := ds.AddSplit(ctx, cfg.Split.Key, split); err != nil {
			return nil, fmt.Errorf("split %s: %w", name, err)
		}
		logger.Info().Str(xlog.FieldKey, cfg.Split.Key).Int(xlog.FieldTotal, ds.Len()).Msg("dataset split")
	}
	if cfg.XVal != nil && !cfg.TestOnly {
		if err := ds.SetXValConfig(ctx, *cfg.XVal); err != nil {
			return nil, fmt.Errorf("xval %s: %w", name, err)
		}
	}
	return ds, nil
}

// FromConfig loads the dataset named by cfg.
func FromConfig(ctx context.Context, cfg config.Dataset) (*Dataset, error) {
	return New(ctx, cfg.Name, cfg)
}

// Paths returns the paths the dataset was loaded from.
func (ds *Dataset) Paths() config.Paths { return ds.paths }

// TestOnly reports whether the whole dataset is used for testing.
func (ds *Dataset) TestOnly() bool { return ds.testOnly }

// AddSplit cuts every example of key into frames as described by cfg and
// repeats the items of every other key once per frame, so all keys stay
// aligned.
//
// The sample length of an example is read from its info (n_samples) when
// the data reports it, from the value otherwise. For a size in seconds the
// sample rate comes from the fs info of the first example.
func (ds *Dataset) AddSplit(ctx context.Context, key string, cfg abstract.SplitConfig) error {
	seq, err := ds.Key(key)
	if err != nil {
		return err
	}
	lens, fs, err := sampleLengths(ctx, seq)
	if err != nil {
		return fmt.Errorf("split %q: %w", key, err)
	}
	cfg.SampleLen = lens
	if cfg.Unit == abstract.UnitSeconds && cfg.SamplePeriod == 0 && fs > 0 {
		cfg.SamplePeriod = 1 / float64(fs)
	}
	split, err := abstract.NewSplit(seq, cfg)
	if err != nil {
		return fmt.Errorf("split %q: %w", key, err)
	}
	factors := split.FramesPerItem()

	out := abstract.NewDictSeq(ds.Name())
	for _, k := range ds.Keys() {
		var next abstract.Sequence = split
		if k != key {
			data, err := ds.Key(k)
			if err != nil {
				return err
			}
			if next, err = abstract.NewSampleReplicate(data, factors); err != nil {
				return fmt.Errorf("split: replicate %q: %w", k, err)
			}
		}
		if err := out.Add(ctx, k, next, abstract.Lazy(ds.IsLazy(k))); err != nil {
			return err
		}
	}
	if err := out.SetActiveKeys(ds.ActiveKeys()...); err != nil {
		return err
	}
	ds.DictSeq = out
	ds.folds = nil
	return nil
}

// sampleLengths probes every item of seq with an empty read window.
func sampleLengths(ctx context.Context, seq abstract.Sequence) ([]int, int, error) {
	n := seq.Len()
	if n < 0 {
		return nil, 0, abstract.ErrLenUndefined
	}
	lens := make([]int, n)
	fs := 0
	probe := abstract.Args{ReadRange: &abstract.Range{}}
	for i := range lens {
		v, info, err := seq.Get(ctx, i, probe)
		if err != nil {
			return nil, 0, fmt.Errorf("item %d: %w", i, err)
		}
		if s, ok := info[processor.InfoSamples].(int); ok {
			lens[i] = s
		} else if shape := processor.Shape(v); len(shape) > 0 {
			lens[i] = shape[0]
		} else {
			return nil, 0, fmt.Errorf("item %d: %w: no sample length for %T", i, abstract.ErrShapeMismatch, v)
		}
		if f, ok := info[processor.InfoFs].(int); ok && fs == 0 {
			fs = f
		}
	}
	return lens, fs, nil
}

// SetXVal sets the cross-validation folds. Each fold lists the examples
// tested in it.
func (ds *Dataset) SetXVal(folds [][]int) error {
	n := ds.Len()
	for f, idx := range folds {
		for _, i := range idx {
			if i < 0 || i >= n {
				return fmt.Errorf("fold %d: %w: %d of %d", f, abstract.ErrIndexOutOfRange, i, n)
			}
		}
	}
	ds.folds = folds
	return nil
}

// SetXValConfig computes the folds described by cfg.
func (ds *Dataset) SetXValConfig(ctx context.Context, cfg config.XVal) error {
	var (
		folds [][]int
		err   error
	)
	switch cfg.Method {
	case "", "kfold":
		folds, err = selector.KFold(ds.Len(), cfg.Folds, rand.New(rand.NewSource(cfg.Seed)))
	case "group":
		var groups []int
		if groups, err = ds.groups(ctx, cfg.GroupKey); err == nil {
			folds, err = selector.GroupKFold(groups, cfg.Folds)
		}
	default:
		err = fmt.Errorf("%w: xval method %q", selector.ErrInvalidParams, cfg.Method)
	}
	if err != nil {
		return err
	}
	return ds.SetXVal(folds)
}

func (ds *Dataset) groups(ctx context.Context, key string) ([]int, error) {
	seq, err := ds.Key(key)
	if err != nil {
		return nil, err
	}
	groups := make([]int, seq.Len())
	for i := range groups {
		v, err := abstract.Get(ctx, seq, i)
		if err != nil {
			return nil, err
		}
		g, ok := v.(int)
		if !ok {
			return nil, fmt.Errorf("group key %q: %w: %T", key, abstract.ErrTypeMismatch, v)
		}
		groups[i] = g
	}
	return groups, nil
}

// Folds returns the number of cross-validation folds.
func (ds *Dataset) Folds() int { return len(ds.folds) }

// XValSets returns the train and test sets of fold. A test-only dataset
// is tested entirely and has an empty train set.
func (ds *Dataset) XValSets(ctx context.Context, fold int) (train, test *abstract.DictSeq, err error) {
	if ds.testOnly {
		return abstract.NewDictSeq(ds.Name()), ds.Clone(), nil
	}
	if ds.folds == nil {
		return nil, nil, ErrNoXVal
	}
	trainIdx, testIdx, err := selector.Folds(ds.folds, fold)
	if err != nil {
		return nil, nil, err
	}
	train = ds.Clone()
	if err := train.AddSelect(ctx, trainIdx); err != nil {
		return nil, nil, fmt.Errorf("fold %d train: %w", fold, err)
	}
	test = ds.Clone()
	if err := test.AddSelect(ctx, testIdx); err != nil {
		return nil, nil, fmt.Errorf("fold %d test: %w", fold, err)
	}
	return train, test, nil
}

func (ds *Dataset) String() string {
	return fmt.Sprintf("%s: %d examples, keys %q", ds.Name(), ds.Len(), ds.Keys())
}
