package dataprep

import (
	"context"
	"fmt"
	"math"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// IsMissing reports whether v is a missing cell: nil, NaN or one of the
// usual placeholders.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case string:
		return t == "" || t == "NA" || t == "NaN"
	}
	return false
}

// MissingRatio returns the fraction of missing items of seq.
func MissingRatio(ctx context.Context, seq abstract.Sequence) (float64, error) {
	n := seq.Len()
	if n <= 0 {
		return 0, nil
	}
	missing := 0
	for i := range n {
		v, err := abstract.Get(ctx, seq, i)
		if err != nil {
			return 0, err
		}
		if IsMissing(v) {
			missing++
		}
	}
	return float64(missing) / float64(n), nil
}

// DropSparse removes the keys of d with more than threshold of their
// items missing and returns them.
func DropSparse(ctx context.Context, d *abstract.DictSeq, threshold float64) ([]string, error) {
	var dropped []string
	for _, key := range d.Keys() {
		seq, err := d.Key(key)
		if err != nil {
			return nil, err
		}
		ratio, err := MissingRatio(ctx, seq)
		if err != nil {
			return nil, fmt.Errorf("missing ratio of %q: %w", key, err)
		}
		if ratio > threshold {
			if err := d.Remove(key); err != nil {
				return nil, err
			}
			dropped = append(dropped, key)
		}
	}
	return dropped, nil
}

// UniqueRows selects the first occurrence of every distinct item. Items
// are compared by their printed form.
func UniqueRows() abstract.Selector {
	return abstract.IndexFunc(func(ctx context.Context, eval abstract.Sequence) ([]int, error) {
		seen := make(map[string]struct{})
		var keep []int
		for i := range eval.Len() {
			v, err := abstract.Get(ctx, eval, i)
			if err != nil {
				return nil, err
			}
			key := fmt.Sprint(v)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				keep = append(keep, i)
			}
		}
		return keep, nil
	})
}
