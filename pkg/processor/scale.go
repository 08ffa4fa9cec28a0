package processor

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// StandardScaler scales every column to zero mean and unit variance.
// Columns without variance are only centred.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// Fit computes the column statistics over every frame of data.
func (s *StandardScaler) Fit(ctx context.Context, data abstract.Sequence) error {
	cols, err := columns(ctx, data)
	if err != nil {
		return err
	}
	s.Mean = make([]float64, len(cols))
	s.Std = make([]float64, len(cols))
	for j, col := range cols {
		s.Mean[j], s.Std[j] = meanStd(col)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return nil
}

// Process scales value.
func (s *StandardScaler) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	if s.Mean == nil {
		return nil, nil, ErrNotFitted
	}
	out, err := applyColumns(value, len(s.Mean), func(j int, x float64) float64 {
		return (x - s.Mean[j]) / s.Std[j]
	})
	return out, nil, err
}

func (s *StandardScaler) String() string { return "standard_scaler" }

// MinMaxScaler scales every column to [0, 1]. Constant columns map to 0.
type MinMaxScaler struct {
	Min []float64
	Max []float64
}

// Fit records the column ranges of data.
func (s *MinMaxScaler) Fit(ctx context.Context, data abstract.Sequence) error {
	cols, err := columns(ctx, data)
	if err != nil {
		return err
	}
	s.Min = make([]float64, len(cols))
	s.Max = make([]float64, len(cols))
	for j, col := range cols {
		s.Min[j], s.Max[j] = floats.Min(col), floats.Max(col)
	}
	return nil
}

// Process scales value.
func (s *MinMaxScaler) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	if s.Min == nil {
		return nil, nil, ErrNotFitted
	}
	out, err := applyColumns(value, len(s.Min), func(j int, x float64) float64 {
		if s.Max[j] == s.Min[j] {
			return 0
		}
		return (x - s.Min[j]) / (s.Max[j] - s.Min[j])
	})
	return out, nil, err
}

func (s *MinMaxScaler) String() string { return "minmax_scaler" }

// RobustScaler centres every column on its median and scales it by the
// interquartile range.
type RobustScaler struct {
	Median []float64
	IQR    []float64
}

// Fit computes the column medians and interquartile ranges of data.
func (s *RobustScaler) Fit(ctx context.Context, data abstract.Sequence) error {
	cols, err := columns(ctx, data)
	if err != nil {
		return err
	}
	s.Median = make([]float64, len(cols))
	s.IQR = make([]float64, len(cols))
	for j, col := range cols {
		s.Median[j] = percentile(col, 50)
		s.IQR[j] = percentile(col, 75) - percentile(col, 25)
	}
	return nil
}

// Process scales value.
func (s *RobustScaler) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	if s.Median == nil {
		return nil, nil, ErrNotFitted
	}
	out, err := applyColumns(value, len(s.Median), func(j int, x float64) float64 {
		if s.IQR[j] == 0 {
			return 0
		}
		return (x - s.Median[j]) / s.IQR[j]
	})
	return out, nil, err
}

func (s *RobustScaler) String() string { return "robust_scaler" }

// Clipper clips every column to its Lower and Upper percentiles.
type Clipper struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`

	Low  []float64 `yaml:"-"`
	High []float64 `yaml:"-"`
}

// Fit computes the clip bounds of every column of data.
func (c *Clipper) Fit(ctx context.Context, data abstract.Sequence) error {
	if c.Upper == 0 {
		c.Upper = 100
	}
	if c.Lower < 0 || c.Upper > 100 || c.Lower >= c.Upper {
		return fmt.Errorf("%w: clip percentiles %v and %v", ErrInvalidParams, c.Lower, c.Upper)
	}
	cols, err := columns(ctx, data)
	if err != nil {
		return err
	}
	c.Low = make([]float64, len(cols))
	c.High = make([]float64, len(cols))
	for j, col := range cols {
		c.Low[j] = percentile(col, c.Lower)
		c.High[j] = percentile(col, c.Upper)
	}
	return nil
}

// Process clips value.
func (c *Clipper) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	if c.Low == nil {
		return nil, nil, ErrNotFitted
	}
	out, err := applyColumns(value, len(c.Low), func(j int, x float64) float64 {
		return min(max(x, c.Low[j]), c.High[j])
	})
	return out, nil, err
}

func (c *Clipper) String() string { return "clipper" }
