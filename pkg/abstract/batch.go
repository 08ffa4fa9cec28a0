package abstract

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Batch holds materialized items. Numeric items are stacked into a matrix
// with one row per item; anything else is kept as a list. A Batch is itself
// a Sequence.
type Batch struct {
	items  []any
	matrix *mat.Dense
	scalar bool
	infos  []Info
}

// NewBatch returns a list batch holding items.
func NewBatch(items []any, infos []Info) *Batch {
	return &Batch{items: items, infos: infos}
}

// Len returns the number of items.
func (b *Batch) Len() int {
	if b.matrix != nil {
		r, _ := b.matrix.Dims()
		return r
	}
	return len(b.items)
}

// Get returns item index. Matrix rows are returned as a copied []float64,
// or as a float64 when the batch was built from scalars.
func (b *Batch) Get(_ context.Context, index int, args Args) (any, Info, error) {
	if args.Key != "" {
		return nil, nil, fmt.Errorf("batch[%q]: %w", args.Key, ErrNoKey)
	}
	i, err := Normalize(index, b.Len())
	if err != nil {
		return nil, nil, err
	}
	info := Info{}
	if i < len(b.infos) && b.infos[i] != nil {
		info = b.infos[i].Merge()
	}
	info = info.Merge(args.Params)
	return b.item(i), info, nil
}

func (b *Batch) item(i int) any {
	if b.matrix == nil {
		return b.items[i]
	}
	if b.scalar {
		return b.matrix.At(i, 0)
	}
	return mat.Row(nil, i, b.matrix)
}

// Set replaces item index. Matrix batches only accept values of the row
// shape.
func (b *Batch) Set(index int, value any) error {
	i, err := Normalize(index, b.Len())
	if err != nil {
		return err
	}
	if b.matrix == nil {
		b.items[i] = value
		return nil
	}
	_, c := b.matrix.Dims()
	row, ok := numericRow(value)
	if !ok || len(row) != c {
		return fmt.Errorf("batch set %d: %w", index, ErrShapeMismatch)
	}
	b.matrix.SetRow(i, row)
	return nil
}

// Matrix returns the stacked items, if the batch is numeric.
func (b *Batch) Matrix() (*mat.Dense, bool) {
	return b.matrix, b.matrix != nil
}

// Items returns the items as a list.
func (b *Batch) Items() []any {
	if b.matrix == nil {
		return b.items
	}
	out := make([]any, b.Len())
	for i := range out {
		out[i] = b.item(i)
	}
	return out
}

// Infos returns the info of every item, if it was collected.
func (b *Batch) Infos() []Info { return b.infos }

// Concat returns a new batch holding b followed by o. Matrix batches stay
// matrices when the column counts match.
func (b *Batch) Concat(o *Batch) (*Batch, error) {
	var infos []Info
	if b.infos != nil || o.infos != nil {
		infos = make([]Info, 0, b.Len()+o.Len())
		infos = append(infos, padInfos(b.infos, b.Len())...)
		infos = append(infos, padInfos(o.infos, o.Len())...)
	}
	if b.matrix != nil && o.matrix != nil && b.scalar == o.scalar {
		_, bc := b.matrix.Dims()
		_, oc := o.matrix.Dims()
		if bc == oc {
			var m mat.Dense
			m.Stack(b.matrix, o.matrix)
			return &Batch{matrix: &m, scalar: b.scalar, infos: infos}, nil
		}
	}
	if b.Len() == 0 {
		return &Batch{items: o.Items(), matrix: o.matrix, scalar: o.scalar, infos: infos}, nil
	}
	items := append(append([]any{}, b.Items()...), o.Items()...)
	return &Batch{items: items, infos: infos}, nil
}

func (b *Batch) subset(indices []int) *Batch {
	items := make([]any, len(indices))
	var infos []Info
	if b.infos != nil {
		infos = make([]Info, len(indices))
	}
	for k, i := range indices {
		items[k] = b.item(i)
		if infos != nil && i < len(b.infos) {
			infos[k] = b.infos[i]
		}
	}
	return &Batch{items: items, infos: infos}
}

func (b *Batch) String() string {
	if b.matrix != nil {
		r, c := b.matrix.Dims()
		return fmt.Sprintf("batch(matrix %dx%d)", r, c)
	}
	return fmt.Sprintf("batch(list %d)", len(b.items))
}

func padInfos(infos []Info, n int) []Info {
	out := make([]Info, n)
	copy(out, infos)
	return out
}

// numericRow converts a scalar or a numeric vector into a row.
func numericRow(v any) ([]float64, bool) {
	if f, ok := numericScalar(v); ok {
		return []float64{f}, true
	}
	switch t := v.(type) {
	case []float64:
		return t, true
	case []float32:
		out := make([]float64, len(t))
		for i, x := range t {
			out[i] = float64(x)
		}
		return out, true
	case []int:
		out := make([]float64, len(t))
		for i, x := range t {
			out[i] = float64(x)
		}
		return out, true
	case *mat.VecDense:
		return mat.Col(nil, 0, t), true
	}
	return nil, false
}

func numericScalar(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint8:
		return float64(t), true
	}
	return 0, false
}

// batchBuilder collects evaluated items in index order.
type batchBuilder struct {
	kind   OutputType
	n      int
	rows   [][]float64
	items  []any
	infos  []Info
	scalar bool
	list   bool
	width  int
}

func newBatchBuilder(kind OutputType, n int) *batchBuilder {
	return &batchBuilder{kind: kind, n: n, infos: make([]Info, 0, n), list: kind == OutputList}
}

func (bb *batchBuilder) add(v any, info Info) error {
	bb.infos = append(bb.infos, info)
	if bb.list {
		bb.items = append(bb.items, v)
		return nil
	}
	_, isScalar := numericScalar(v)
	row, ok := numericRow(v)
	first := len(bb.rows) == 0
	if ok && first {
		bb.scalar = isScalar
		bb.width = len(row)
	}
	if ok && isScalar == bb.scalar && len(row) == bb.width {
		bb.rows = append(bb.rows, append([]float64(nil), row...))
		return nil
	}
	if bb.kind == OutputMatrix {
		return fmt.Errorf("item %d (%T): %w", len(bb.rows), v, ErrShapeMismatch)
	}
	// auto: demote what was stacked so far to a list
	bb.list = true
	bb.items = make([]any, 0, bb.n)
	for _, r := range bb.rows {
		if bb.scalar {
			bb.items = append(bb.items, r[0])
		} else {
			bb.items = append(bb.items, r)
		}
	}
	bb.rows = nil
	bb.items = append(bb.items, v)
	return nil
}

func (bb *batchBuilder) build() *Batch {
	if bb.list || len(bb.rows) == 0 || bb.width == 0 {
		items := bb.items
		if !bb.list {
			items = make([]any, len(bb.rows))
			for i, r := range bb.rows {
				items[i] = r
			}
		}
		return &Batch{items: items, infos: bb.infos}
	}
	m := mat.NewDense(len(bb.rows), bb.width, nil)
	for i, r := range bb.rows {
		m.SetRow(i, r)
	}
	return &Batch{matrix: m, scalar: bb.scalar, infos: bb.infos}
}
