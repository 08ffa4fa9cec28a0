package abstract

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
)

// SplitUnit is the unit of SplitConfig.Size.
type SplitUnit string

const (
	UnitSeconds SplitUnit = "seconds"
	UnitSamples SplitUnit = "samples"
)

// ConstraintPower2 rounds the window up to the next power of two.
const ConstraintPower2 = "power2"

// SplitConfig describes how every item is cut into frames.
type SplitConfig struct {
	// Size of one frame in Unit.
	Size float64
	Unit SplitUnit
	// Constraint is empty or ConstraintPower2.
	Constraint string
	// SampleLen is the number of samples of every item. A single entry
	// applies to all items.
	SampleLen []int
	// SamplePeriod converts seconds to samples.
	SamplePeriod float64
}

// Window returns the frame size in samples.
func (c SplitConfig) Window() (int, error) {
	var w int
	switch c.Unit {
	case UnitSeconds:
		if c.SamplePeriod <= 0 {
			return 0, fmt.Errorf("split: %w: sample period must be positive", ErrInvalidConfig)
		}
		w = int(c.Size / c.SamplePeriod)
	case UnitSamples, "":
		w = int(c.Size)
	default:
		return 0, fmt.Errorf("split: %w: unknown unit %q", ErrInvalidConfig, c.Unit)
	}
	switch c.Constraint {
	case "":
	case ConstraintPower2:
		if w > 0 {
			w = 1 << int(math.Ceil(math.Log2(float64(w))))
		}
	default:
		return 0, fmt.Errorf("split: %w: unknown constraint %q", ErrInvalidConfig, c.Constraint)
	}
	if w <= 0 {
		return 0, fmt.Errorf("split: %w: window of %d samples", ErrInvalidConfig, w)
	}
	return w, nil
}

// Frames returns the number of frames an item of length samples is cut
// into. Items shorter than one window still yield one frame.
func Frames(length, window int) int {
	return max(1, (length-(window-1)-1)/window+1)
}

// SplitSeq cuts every item of the wrapped data into frames of equal size.
type SplitSeq struct {
	data   Sequence
	window int
	frames []int
	ends   []int
}

// NewSplit wraps data according to cfg.
func NewSplit(data Sequence, cfg SplitConfig) (*SplitSeq, error) {
	n, err := requireLen(data, "split")
	if err != nil {
		return nil, err
	}
	w, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	lens := cfg.SampleLen
	if len(lens) == 1 && n != 1 {
		lens = slices.Repeat([]int{lens[0]}, n)
	}
	if len(lens) != n {
		return nil, fmt.Errorf("split: %d sample lengths for %d items: %w", len(lens), n, ErrLenMismatch)
	}
	s := &SplitSeq{data: data, window: w, frames: make([]int, n), ends: make([]int, n)}
	total := 0
	for j, l := range lens {
		s.frames[j] = Frames(l, w)
		total += s.frames[j]
		s.ends[j] = total
	}
	return s, nil
}

// Len returns the total number of frames.
func (s *SplitSeq) Len() int {
	if len(s.ends) == 0 {
		return 0
	}
	return s.ends[len(s.ends)-1]
}

// Window returns the frame size in samples.
func (s *SplitSeq) Window() int { return s.window }

// FramesPerItem returns the number of frames of every wrapped item.
func (s *SplitSeq) FramesPerItem() []int { return slices.Clone(s.frames) }

// Get returns frame index. The read window is passed down as
// Args.ReadRange and the value is cut again when the data below returned more than
// one window.
func (s *SplitSeq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	i, err := Normalize(index, s.Len())
	if err != nil {
		return nil, nil, err
	}
	j := sort.SearchInts(s.ends, i+1)
	frame := i
	if j > 0 {
		frame -= s.ends[j-1]
	}
	r := Range{Start: frame * s.window, End: (frame + 1) * s.window}
	args.ReadRange = &r
	v, info, err := s.data.Get(ctx, j, args)
	if err != nil {
		return nil, nil, err
	}
	if n, ok := valueLen(v); ok && n > s.window {
		if v, err = sliceValue(v, r.Start, r.End); err != nil {
			return nil, nil, fmt.Errorf("split item %d frame %d: %w", j, frame, err)
		}
	}
	return v, info, nil
}

// Key splits the projection of key with the same frames.
func (s *SplitSeq) Key(key string) (Sequence, error) { return NewKey(s, key) }

func (s *SplitSeq) String() string {
	return fmt.Sprintf("%s\n split: %d samples", describe(s.data), s.window)
}
