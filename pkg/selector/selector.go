// Package selector provides the selectors used to subsample datasets and to
// build train/test folds.
package selector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

var (
	ErrUnknownSelector = errors.New("selector: unknown selector")
	ErrInvalidParams   = errors.New("selector: invalid parameters")
)

// RandomSubsample keeps a random fraction of the items. A ratio of 0 keeps
// nothing, a ratio of 1 or more keeps everything.
type RandomSubsample struct {
	Ratio float64
	// Rand is used when set, the global source otherwise.
	Rand *rand.Rand
}

// Indices draws ceil(n*Ratio) distinct indices and returns them sorted.
func (s RandomSubsample) Indices(_ context.Context, eval abstract.Sequence) ([]int, error) {
	n := eval.Len()
	if n < 0 {
		return nil, abstract.ErrLenUndefined
	}
	if s.Ratio < 0 {
		return nil, fmt.Errorf("%w: ratio %v", ErrInvalidParams, s.Ratio)
	}
	perm := s.perm(n)
	if s.Ratio < 1 {
		perm = perm[:int(math.Ceil(float64(n)*s.Ratio))]
	}
	slices.Sort(perm)
	return perm, nil
}

func (s RandomSubsample) perm(n int) []int {
	if s.Rand != nil {
		return s.Rand.Perm(n)
	}
	return rand.Perm(n)
}

// SubsampleByStr keeps the items whose Key equals one of Keep.
type SubsampleByStr struct {
	Key  string
	Keep []string
}

// Indices evaluates Key on every item.
func (s SubsampleByStr) Indices(ctx context.Context, eval abstract.Sequence) ([]int, error) {
	if len(s.Keep) == 0 {
		return nil, fmt.Errorf("%w: nothing to keep", ErrInvalidParams)
	}
	col, err := abstract.Key(eval, s.Key)
	if err != nil {
		return nil, err
	}
	n := col.Len()
	if n < 0 {
		return nil, abstract.ErrLenUndefined
	}
	var out []int
	for k := 0; k < n; k++ {
		v, err := abstract.Get(ctx, col, k)
		if err != nil {
			return nil, fmt.Errorf("subsample by %q: %w", s.Key, err)
		}
		if str, ok := v.(string); ok && slices.Contains(s.Keep, str) {
			out = append(out, k)
		}
	}
	return out, nil
}

// New builds a selector by name from config parameters. Known names are
// random_subsample (ratio) and subsample_by_str (key, keep).
func New(name string, params map[string]any) (abstract.Selector, error) {
	switch name {
	case "random_subsample":
		ratio, err := floatParam(params, "ratio", 1)
		if err != nil {
			return nil, err
		}
		return RandomSubsample{Ratio: ratio}, nil
	case "subsample_by_str":
		key, _ := params["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("%w: subsample_by_str needs a key", ErrInvalidParams)
		}
		keep, err := stringsParam(params, "keep")
		if err != nil {
			return nil, err
		}
		return SubsampleByStr{Key: key, Keep: keep}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, name)
}

func floatParam(params map[string]any, name string, def float64) (float64, error) {
	v, ok := params[name]
	if !ok {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	}
	return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParams, name, v)
}

func stringsParam(params map[string]any, name string) ([]string, error) {
	switch t := params[name].(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, len(t))
		for i, v := range t {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string", ErrInvalidParams, name, i)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s must be a string or a list of strings", ErrInvalidParams, name)
}
