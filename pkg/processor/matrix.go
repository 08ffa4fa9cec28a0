package processor

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// kind records the type a value came in, so results are returned as the
// same type.
type kind int

const (
	kindRow kind = iota
	kindRows
	kindDense
)

// toDense views v as a matrix with one row per frame.
func toDense(v any) (*mat.Dense, kind, error) {
	switch t := v.(type) {
	case []float64:
		if len(t) == 0 {
			return nil, kindRow, fmt.Errorf("%w: empty row", ErrUnsupportedType)
		}
		return mat.NewDense(1, len(t), append([]float64(nil), t...)), kindRow, nil
	case [][]float64:
		if len(t) == 0 || len(t[0]) == 0 {
			return nil, kindRows, fmt.Errorf("%w: empty matrix", ErrUnsupportedType)
		}
		m := mat.NewDense(len(t), len(t[0]), nil)
		for i, row := range t {
			if len(row) != len(t[0]) {
				return nil, kindRows, fmt.Errorf("%w: ragged row %d", ErrDimensionsMismatch, i)
			}
			m.SetRow(i, row)
		}
		return m, kindRows, nil
	case *mat.Dense:
		return mat.DenseCopyOf(t), kindDense, nil
	}
	return nil, 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// fromDense converts m back to kind k.
func fromDense(m *mat.Dense, k kind) any {
	r, _ := m.Dims()
	switch k {
	case kindRow:
		return mat.Row(nil, 0, m)
	case kindRows:
		out := make([][]float64, r)
		for i := range out {
			out[i] = mat.Row(nil, i, m)
		}
		return out
	}
	return m
}

// columns evaluates every item of data and returns the values of each
// column over all frames.
func columns(ctx context.Context, data abstract.Sequence) ([][]float64, error) {
	var cols [][]float64
	for r := range abstract.ParallelOp(ctx, data) {
		if r.Err != nil {
			return nil, r.Err
		}
		m, _, err := toDense(r.Value)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", r.Index, err)
		}
		rows, c := m.Dims()
		if cols == nil {
			cols = make([][]float64, c)
		}
		if c != len(cols) {
			return nil, fmt.Errorf("item %d: %w: %d columns, want %d", r.Index, ErrDimensionsMismatch, c, len(cols))
		}
		for j := range c {
			for i := range rows {
				cols[j] = append(cols[j], m.At(i, j))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cols == nil {
		return nil, fmt.Errorf("%w: no data to fit on", ErrInvalidParams)
	}
	return cols, nil
}

// applyColumns runs fn on every element with its column index.
func applyColumns(v any, width int, fn func(j int, x float64) float64) (any, error) {
	m, k, err := toDense(v)
	if err != nil {
		return nil, err
	}
	if _, c := m.Dims(); c != width {
		return nil, fmt.Errorf("%w: %d columns, fitted on %d", ErrDimensionsMismatch, c, width)
	}
	m.Apply(func(_, j int, x float64) float64 { return fn(j, x) }, m)
	return fromDense(m, k), nil
}
