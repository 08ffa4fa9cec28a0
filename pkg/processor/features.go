package processor

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// Log1p applies log(x+1) to every value.
type Log1p struct{}

// Process transforms value.
func (Log1p) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	m, k, err := toDense(value)
	if err != nil {
		return nil, nil, err
	}
	m.Apply(func(_, _ int, x float64) float64 { return math.Log1p(x) }, m)
	return fromDense(m, k), nil, nil
}

func (Log1p) String() string { return "log1p" }

// Polynomial appends the pairwise products of the columns of every frame.
// Only degree 2 is supported.
type Polynomial struct {
	Degree int `yaml:"degree"`
}

// Process expands value.
func (p Polynomial) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	if p.Degree != 0 && p.Degree != 2 {
		return nil, nil, fmt.Errorf("%w: polynomial degree %d", ErrInvalidParams, p.Degree)
	}
	m, k, err := toDense(value)
	if err != nil {
		return nil, nil, err
	}
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols+cols*(cols+1)/2, nil)
	for i := range rows {
		idx := cols
		for j := range cols {
			out.Set(i, j, m.At(i, j))
			for l := j; l < cols; l++ {
				out.Set(i, idx, m.At(i, j)*m.At(i, l))
				idx++
			}
		}
	}
	return fromDense(out, k), nil, nil
}

func (Polynomial) String() string { return "polynomial" }

// ColumnSelect keeps the given columns of every frame.
type ColumnSelect struct {
	Columns []int `yaml:"columns"`
}

func (s ColumnSelect) validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: column_select needs columns", ErrInvalidParams)
	}
	return nil
}

// Process selects the columns of value.
func (s ColumnSelect) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	if err := s.validate(); err != nil {
		return nil, nil, err
	}
	m, k, err := toDense(value)
	if err != nil {
		return nil, nil, err
	}
	rows, cols := m.Dims()
	out := mat.NewDense(rows, len(s.Columns), nil)
	for j, c := range s.Columns {
		if c < 0 || c >= cols {
			return nil, nil, fmt.Errorf("%w: column %d of %d", ErrDimensionsMismatch, c, cols)
		}
		out.SetCol(j, mat.Col(nil, c, m))
	}
	return fromDense(out, k), nil, nil
}

func (ColumnSelect) String() string { return "column_select" }

// Framer cuts a signal into frames of Size samples, Hop samples apart. A
// signal shorter than one frame is zero padded.
type Framer struct {
	Size int `yaml:"size"`
	Hop  int `yaml:"hop"`
}

// Process frames a []float64 signal into [][]float64.
func (f Framer) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	sig, ok := value.([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("%w: framer needs []float64, got %T", ErrUnsupportedType, value)
	}
	hop := f.Hop
	if hop == 0 {
		hop = f.Size
	}
	if f.Size <= 0 || hop <= 0 {
		return nil, nil, fmt.Errorf("%w: frame size %d hop %d", ErrInvalidParams, f.Size, hop)
	}
	n := 1
	if len(sig) > f.Size {
		n = 1 + (len(sig)-f.Size)/hop
	}
	frames := make([][]float64, n)
	for i := range frames {
		frame := make([]float64, f.Size)
		start := i * hop
		copy(frame, sig[start:min(start+f.Size, len(sig))])
		frames[i] = frame
	}
	return frames, abstract.Info{"hop": hop}, nil
}

func (f Framer) String() string { return fmt.Sprintf("framer(%d,%d)", f.Size, f.Hop) }

// Aggregation operations.
const (
	AggregateMean = "mean"
	AggregateStd  = "std"
)

// Aggregate reduces the frames of a value to one row of column statistics.
type Aggregate struct {
	Op string `yaml:"op"`
}

// Process aggregates value into a []float64.
func (a Aggregate) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	m, _, err := toDense(value)
	if err != nil {
		return nil, nil, err
	}
	_, cols := m.Dims()
	out := make([]float64, cols)
	for j := range cols {
		mean, std := meanStd(mat.Col(nil, j, m))
		switch a.Op {
		case AggregateMean, "":
			out[j] = mean
		case AggregateStd:
			out[j] = std
		default:
			return nil, nil, fmt.Errorf("%w: aggregate %q", ErrInvalidParams, a.Op)
		}
	}
	return out, nil, nil
}

func (a Aggregate) String() string { return "aggregate(" + a.Op + ")" }
