// Package processor implements processing chains: ordered steps that turn
// one example into features, some of which are fitted on a dataset first.
//
// A Chain is an abstract.Mapper, so it can be attached to any sequence with
// abstract.NewMap or DictSeq.AddMap.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

var (
	ErrNotFitted          = errors.New("processor: not fitted")
	ErrUnsupportedType    = errors.New("processor: unsupported value type")
	ErrUnknownProcessor   = errors.New("processor: unknown processor")
	ErrInvalidParams      = errors.New("processor: invalid parameters")
	ErrDimensionsMismatch = errors.New("processor: dimensions mismatch")
)

// InfoOutputShape is set by a Chain to the shape of its output.
const InfoOutputShape = "output_shape"

// Processor transforms one example. The returned info is merged into the
// info of the chain.
type Processor interface {
	Process(ctx context.Context, value any, info abstract.Info) (any, abstract.Info, error)
}

// Fitter is implemented by processors that learn parameters from data.
type Fitter interface {
	Fit(ctx context.Context, data abstract.Sequence) error
}

// Func adapts a plain function to a Processor.
type Func func(value any) (any, error)

// Process calls f.
func (f Func) Process(_ context.Context, value any, _ abstract.Info) (any, abstract.Info, error) {
	v, err := f(value)
	return v, nil, err
}

// Chain runs processors in order.
type Chain struct {
	steps []Processor
}

// NewChain returns a chain of steps.
func NewChain(steps ...Processor) *Chain {
	return &Chain{steps: steps}
}

// Add appends a step and returns the chain.
func (c *Chain) Add(step Processor) *Chain {
	c.steps = append(c.steps, step)
	return c
}

// Len returns the number of steps.
func (c *Chain) Len() int { return len(c.steps) }

// Steps returns the processors of the chain.
func (c *Chain) Steps() []Processor { return c.steps }

// Map runs every step on value and records the output shape.
func (c *Chain) Map(ctx context.Context, value any, info abstract.Info) (any, abstract.Info, error) {
	info = info.Merge()
	for i, step := range c.steps {
		out, stepInfo, err := step.Process(ctx, value, info)
		if err != nil {
			return nil, nil, fmt.Errorf("step %d (%s): %w", i, stepName(step), err)
		}
		value = out
		info = info.Merge(stepInfo)
	}
	if shape := Shape(value); shape != nil {
		info[InfoOutputShape] = shape
	}
	return value, info, nil
}

// Process makes a chain usable as a step of another chain.
func (c *Chain) Process(ctx context.Context, value any, info abstract.Info) (any, abstract.Info, error) {
	return c.Map(ctx, value, info)
}

// Fit fits every Fitter step on data mapped through the steps before it.
func (c *Chain) Fit(ctx context.Context, data abstract.Sequence) error {
	for i, step := range c.steps {
		f, ok := step.(Fitter)
		if !ok {
			continue
		}
		in := data
		if i > 0 {
			m, err := abstract.NewMap(data, NewChain(c.steps[:i]...))
			if err != nil {
				return err
			}
			in = m
		}
		if err := f.Fit(ctx, in); err != nil {
			return fmt.Errorf("fit step %d (%s): %w", i, stepName(step), err)
		}
	}
	return nil
}

func (c *Chain) String() string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = stepName(s)
	}
	return "chain: [" + strings.Join(names, " -> ") + "]"
}

func stepName(p Processor) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return strings.TrimPrefix(strings.TrimPrefix(fmt.Sprintf("%T", p), "*"), "processor.")
}

// Shape returns the dimensions of a numeric value, or nil.
func Shape(v any) []int {
	switch t := v.(type) {
	case []float64:
		return []int{len(t)}
	case [][]float64:
		if len(t) == 0 {
			return []int{0, 0}
		}
		return []int{len(t), len(t[0])}
	case *mat.Dense:
		r, c := t.Dims()
		return []int{r, c}
	case float64:
		return []int{}
	}
	return nil
}
