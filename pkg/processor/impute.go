package processor

import (
	"context"
	"fmt"
	"math"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// Imputation strategies.
const (
	ImputeMean     = "mean"
	ImputeMedian   = "median"
	ImputeConstant = "constant"
)

// Imputer replaces NaN values per column, by the column mean or median
// seen during Fit or by a constant.
type Imputer struct {
	Strategy string  `yaml:"strategy"`
	Value    float64 `yaml:"value"`

	Fill []float64 `yaml:"-"`
}

// Fit computes the fill value of every column, ignoring NaN.
func (m *Imputer) Fit(ctx context.Context, data abstract.Sequence) error {
	if m.Strategy == ImputeConstant {
		return nil
	}
	cols, err := columns(ctx, data)
	if err != nil {
		return err
	}
	m.Fill = make([]float64, len(cols))
	for j, col := range cols {
		vals := finite(col)
		switch m.Strategy {
		case ImputeMean, "":
			if len(vals) == 0 {
				m.Fill[j] = m.Value
				continue
			}
			m.Fill[j], _ = meanStd(vals)
		case ImputeMedian:
			if len(vals) == 0 {
				m.Fill[j] = m.Value
				continue
			}
			m.Fill[j] = percentile(vals, 50)
		default:
			return fmt.Errorf("%w: strategy %q", ErrInvalidParams, m.Strategy)
		}
	}
	return nil
}

// Process fills the NaN values of value.
func (m *Imputer) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	if m.Strategy == ImputeConstant {
		shape := Shape(value)
		if len(shape) == 0 {
			return nil, nil, fmt.Errorf("%w: %T", ErrUnsupportedType, value)
		}
		out, err := applyColumns(value, shape[len(shape)-1], func(_ int, x float64) float64 {
			if math.IsNaN(x) {
				return m.Value
			}
			return x
		})
		return out, nil, err
	}
	if m.Fill == nil {
		return nil, nil, ErrNotFitted
	}
	out, err := applyColumns(value, len(m.Fill), func(j int, x float64) float64 {
		if math.IsNaN(x) {
			return m.Fill[j]
		}
		return x
	})
	return out, nil, err
}

func (m *Imputer) String() string { return "imputer(" + m.Strategy + ")" }
