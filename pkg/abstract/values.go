package abstract

import (
	"context"
	"fmt"
)

// Values is in-memory data backed by a slice.
type Values struct {
	items []any
}

// FromSlice wraps values. The slice is copied.
func FromSlice[T any](values []T) *Values {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return &Values{items: items}
}

// Len returns the number of items.
func (v *Values) Len() int { return len(v.items) }

// Get returns item index. The info holds args.Params and, when a read
// window was requested, InfoReadRange.
func (v *Values) Get(_ context.Context, index int, args Args) (any, Info, error) {
	if args.Key != "" {
		return nil, nil, fmt.Errorf("values[%q]: %w", args.Key, ErrNoKey)
	}
	i, err := Normalize(index, len(v.items))
	if err != nil {
		return nil, nil, err
	}
	info := Info{}.Merge(args.Params)
	if args.ReadRange != nil {
		info[InfoReadRange] = *args.ReadRange
	}
	return v.items[i], info, nil
}

// Set replaces item index.
func (v *Values) Set(index int, value any) error {
	i, err := Normalize(index, len(v.items))
	if err != nil {
		return err
	}
	v.items[i] = value
	return nil
}

// Items returns the underlying items.
func (v *Values) Items() []any { return v.items }

func (v *Values) concat(o *Values) *Values {
	items := make([]any, 0, len(v.items)+len(o.items))
	items = append(items, v.items...)
	items = append(items, o.items...)
	return &Values{items: items}
}

func (v *Values) String() string {
	return fmt.Sprintf("values(%d)", len(v.items))
}
