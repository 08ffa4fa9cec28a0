package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/abstract"
	"github.com/yonas-y/dabstract/pkg/data"
	"github.com/yonas-y/dabstract/pkg/processor"
)

// FeatOptions controls PrepareFeat.
type FeatOptions struct {
	Overwrite bool
	// NewKey receives the features. It defaults to the source key, which
	// is then replaced.
	NewKey  string
	Workers int
	Verbose bool
}

// FeatDir returns the directory PrepareFeat stores featName of key in.
func (ds *Dataset) FeatDir(key, featName string) string {
	return filepath.Join(ds.paths.Feat, ds.Name(), key, featName)
}

// PrepareFeat runs chain over every example of key and stores the result
// under FeatDir, one file per example. Examples already stored are skipped
// unless Overwrite is set. The stored features are then added lazily as
// NewKey.
func (ds *Dataset) PrepareFeat(ctx context.Context, key, featName string, chain *processor.Chain, opts FeatOptions) error {
	ctx = xlog.ContextWithDataset(ctx, ds.Name())
	logger := xlog.WithComponentFromContext(ctx, "features")

	seq, err := ds.Key(key)
	if err != nil {
		return err
	}
	mapped, err := abstract.NewMap(seq, chain)
	if err != nil {
		return err
	}
	names, err := ds.exampleNames(ctx, seq)
	if err != nil {
		return err
	}

	store := data.FeatureStore{Dir: ds.FeatDir(key, featName)}
	logger.Info().
		Str(xlog.FieldKey, key).
		Str(xlog.FieldFeature, featName).
		Str(xlog.FieldPath, store.Dir).
		Int(xlog.FieldWorkers, opts.Workers).
		Msg("preparing features")
	err = store.Prepare(ctx, names, mapped, data.PrepareOptions{
		Overwrite: opts.Overwrite,
		Workers:   opts.Workers,
		Verbose:   opts.Verbose,
	})
	if err != nil {
		return fmt.Errorf("features %s of %q: %w", featName, key, err)
	}

	newKey := opts.NewKey
	if newKey == "" {
		newKey = key
	}
	if err := ds.Add(ctx, newKey, store.Sequence(names)); err != nil {
		return err
	}
	logger.Info().Str(xlog.FieldKey, newKey).Int(xlog.FieldTotal, len(names)).Msg("features ready")
	return nil
}

// exampleNames names the stored file of every item of seq. The example
// key of seq, or else of the dataset, is used when it holds strings;
// repeated names get a frame suffix. Items are numbered otherwise.
func (ds *Dataset) exampleNames(ctx context.Context, seq abstract.Sequence) ([]string, error) {
	n := seq.Len()
	for _, src := range []abstract.Sequence{seq, ds.DictSeq} {
		examples, err := abstract.Key(src, data.KeyExample)
		if err != nil || examples.Len() != n {
			continue
		}
		names, ok, err := stringItems(ctx, examples)
		if err != nil {
			return nil, err
		}
		if ok {
			return uniqueNames(names), nil
		}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%06d", i)
	}
	return names, nil
}

func stringItems(ctx context.Context, seq abstract.Sequence) ([]string, bool, error) {
	out := make([]string, seq.Len())
	for i := range out {
		v, err := abstract.Get(ctx, seq, i)
		if err != nil {
			return nil, false, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, false, nil
		}
		out[i] = s
	}
	return out, true, nil
}

// uniqueNames suffixes every occurrence of a repeated name with the next
// free number, skipping suffixed names the input already holds.
func uniqueNames(names []string) []string {
	count := map[string]int{}
	for _, n := range names {
		count[n]++
	}
	used := map[string]bool{}
	for _, n := range names {
		if count[n] == 1 {
			used[n] = true
		}
	}
	next := map[string]int{}
	out := make([]string, len(names))
	for i, n := range names {
		if count[n] == 1 {
			out[i] = n
			continue
		}
		name := fmt.Sprintf("%s_%d", n, next[n])
		for used[name] {
			next[n]++
			name = fmt.Sprintf("%s_%d", n, next[n])
		}
		next[n]++
		used[name] = true
		out[i] = name
	}
	return out
}
