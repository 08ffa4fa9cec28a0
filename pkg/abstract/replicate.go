package abstract

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

// SampleReplicateSeq repeats every item of the wrapped data a number of
// times, item by item: factors [3 3 3] over [1 2 3] yields
// [1 1 1 2 2 2 3 3 3].
type SampleReplicateSeq struct {
	data    Sequence
	factors []int
	ends    []int
}

// NewSampleReplicate repeats item k factors[k] times. A single factor
// applies to every item.
func NewSampleReplicate(data Sequence, factors []int) (*SampleReplicateSeq, error) {
	n, err := requireLen(data, "sample replicate")
	if err != nil {
		return nil, err
	}
	if len(factors) == 1 && n != 1 {
		factors = slices.Repeat([]int{factors[0]}, n)
	}
	if len(factors) != n {
		return nil, fmt.Errorf("sample replicate: %d factors for %d items: %w", len(factors), n, ErrLenMismatch)
	}
	ends := make([]int, n)
	total := 0
	for k, f := range factors {
		if f < 0 {
			return nil, fmt.Errorf("sample replicate: %w: negative factor %d", ErrInvalidConfig, f)
		}
		total += f
		ends[k] = total
	}
	return &SampleReplicateSeq{data: data, factors: slices.Clone(factors), ends: ends}, nil
}

// Len returns the sum of the factors.
func (s *SampleReplicateSeq) Len() int {
	if len(s.ends) == 0 {
		return 0
	}
	return s.ends[len(s.ends)-1]
}

// Get returns the item that replica index belongs to.
func (s *SampleReplicateSeq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	i, err := Normalize(index, s.Len())
	if err != nil {
		return nil, nil, err
	}
	k := sort.SearchInts(s.ends, i+1)
	return s.data.Get(ctx, k, args)
}

// Factors returns the replication factor of every item.
func (s *SampleReplicateSeq) Factors() []int { return slices.Clone(s.factors) }

// Key replicates the projection of key.
func (s *SampleReplicateSeq) Key(key string) (Sequence, error) { return NewKey(s, key) }

func (s *SampleReplicateSeq) String() string {
	lo, hi := 0, 0
	if len(s.factors) > 0 {
		lo, hi = slices.Min(s.factors), slices.Max(s.factors)
	}
	return fmt.Sprintf("%s\n replicate: %d - %d", describe(s.data), lo, hi)
}
