package data

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/abstract"
)

// FeatureExt is the extension of stored features.
const FeatureExt = ".gob"

func init() {
	gob.Register([]float64{})
	gob.Register([][]float64{})
	gob.Register(&mat.Dense{})
	gob.Register([]int{})
	gob.Register([]string{})
}

// record is the on-disk form of one stored example.
type record struct {
	Value any
	Info  map[string]any
}

// FeatureStore keeps one file per example under Dir. Files are written
// atomically, so an interrupted run never leaves a partial feature behind.
type FeatureStore struct {
	Dir string
}

// Path returns the file of example name.
func (s FeatureStore) Path(name string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(name)+FeatureExt)
}

// Exists reports whether example name is stored.
func (s FeatureStore) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Save stores value and the gob-encodable entries of info as name.
func (s FeatureStore) Save(name string, value any, info abstract.Info) error {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record{Value: value, Info: storableInfo(info)}); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o640); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads example name.
func (s FeatureStore) Load(name string) (any, abstract.Info, error) {
	// #nosec G304 -- stored features live under the configured directory
	raw, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, nil, err
	}
	var rec record
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return rec.Value, abstract.Info(rec.Info), nil
}

// storableInfo keeps the info entries gob can encode without registration.
func storableInfo(info abstract.Info) map[string]any {
	out := map[string]any{}
	for k, v := range info {
		switch v.(type) {
		case int, int64, float64, string, bool, []int, []float64, []string:
			out[k] = v
		}
	}
	return out
}

// PrepareOptions controls FeatureStore.Prepare.
type PrepareOptions struct {
	Overwrite bool
	Workers   int
	Verbose   bool
}

// Prepare evaluates item i of src and stores it as names[i], skipping
// names that are already stored unless Overwrite is set. Up to Workers
// items are evaluated at once.
func (s FeatureStore) Prepare(ctx context.Context, names []string, src abstract.Sequence, opts PrepareOptions) error {
	if src.Len() != len(names) {
		return fmt.Errorf("prepare: %d names for %d items: %w", len(names), src.Len(), abstract.ErrLenMismatch)
	}
	logger := xlog.WithComponentFromContext(ctx, "featstore")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	step := max(len(names)/10, 1)
	for i, name := range names {
		if !opts.Overwrite && s.Exists(name) {
			continue
		}
		g.Go(func() error {
			v, info, err := src.Get(gctx, i, abstract.Args{})
			if err != nil {
				return fmt.Errorf("example %s: %w", name, err)
			}
			if err := s.Save(name, v, info); err != nil {
				return err
			}
			if opts.Verbose && (i+1)%step == 0 {
				logger.Info().Int(xlog.FieldIndex, i+1).Int(xlog.FieldTotal, len(names)).Str(xlog.FieldPath, s.Dir).Msg("features stored")
			}
			return nil
		})
	}
	return g.Wait()
}

// Sequence returns the stored examples names as a lazy sequence.
func (s FeatureStore) Sequence(names []string) *StoreSeq {
	return &StoreSeq{store: s, names: names}
}

// StoreSeq loads stored examples on access.
type StoreSeq struct {
	store FeatureStore
	names []string
}

// Len returns the number of examples.
func (s *StoreSeq) Len() int { return len(s.names) }

// Get loads example index. The stored info is returned merged with
// args.Params.
func (s *StoreSeq) Get(_ context.Context, index int, args abstract.Args) (any, abstract.Info, error) {
	if args.Key != "" {
		return nil, nil, fmt.Errorf("feature store[%q]: %w", args.Key, abstract.ErrNoKey)
	}
	i, err := abstract.Normalize(index, len(s.names))
	if err != nil {
		return nil, nil, err
	}
	v, info, err := s.store.Load(s.names[i])
	if err != nil {
		return nil, nil, err
	}
	return v, info.Merge(args.Params), nil
}

func (s *StoreSeq) String() string {
	return fmt.Sprintf("feature_store(%s, %d)", s.store.Dir, len(s.names))
}
