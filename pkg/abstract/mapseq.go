package abstract

import (
	"context"
	"fmt"

	xlog "github.com/yonas-y/dabstract/internal/log"
)

// Mapper transforms one item. The info holds everything propagated so far
// and the returned info replaces it.
type Mapper interface {
	Map(ctx context.Context, value any, info Info) (any, Info, error)
}

// MapFunc adapts a plain function to a Mapper. The info passes through.
type MapFunc func(value any) (any, error)

// Map calls f.
func (f MapFunc) Map(_ context.Context, value any, info Info) (any, Info, error) {
	out, err := f(value)
	return out, info, err
}

// MapInfoFunc adapts a function that reads and updates info.
type MapInfoFunc func(ctx context.Context, value any, info Info) (any, Info, error)

// Map calls f.
func (f MapInfoFunc) Map(ctx context.Context, value any, info Info) (any, Info, error) {
	return f(ctx, value, info)
}

// MapSeq applies a Mapper lazily.
//
// Options: WithParams adds static parameters to the mapper info, WithInfo
// merges one Info per item into the result.
type MapSeq struct {
	data   Sequence
	mapper Mapper
	params Info
	info   []Info
}

// NewMap wraps data with mapper.
func NewMap(data Sequence, mapper Mapper, opts ...Option) (*MapSeq, error) {
	n, err := requireLen(data, "map")
	if err != nil {
		return nil, err
	}
	if mapper == nil {
		return nil, fmt.Errorf("map: %w: nil mapper", ErrInvalidConfig)
	}
	o := newOptions(opts)
	if o.info != nil && len(o.info) != n {
		return nil, fmt.Errorf("map: info has %d entries for %d items: %w", len(o.info), n, ErrLenMismatch)
	}
	return &MapSeq{data: data, mapper: mapper, params: o.params, info: o.info}, nil
}

// Len returns the number of items.
func (m *MapSeq) Len() int { return m.data.Len() }

// Get evaluates item index of the wrapped data and maps it.
func (m *MapSeq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	i, err := Normalize(index, m.Len())
	if err != nil {
		return nil, nil, err
	}
	v, info, err := m.data.Get(ctx, i, args)
	if err != nil {
		return nil, nil, err
	}
	v, info, err = m.mapper.Map(ctx, v, m.params.Merge(info))
	if err != nil {
		return nil, nil, fmt.Errorf("map item %d: %w", i, err)
	}
	if m.info != nil {
		info = info.Merge(m.info[i])
	}
	return v, info, nil
}

// Key bypasses the mapping and projects key of the wrapped data.
func (m *MapSeq) Key(key string) (Sequence, error) {
	l := xlog.WithComponent("map")
	l.Warn().Str(xlog.FieldKey, key).Msg("key access ignores the mapping")
	return Key(m.data, key)
}

func (m *MapSeq) String() string {
	return fmt.Sprintf("%s\n map: %v", describe(m.data), m.mapper)
}
