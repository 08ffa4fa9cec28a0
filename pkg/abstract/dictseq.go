package abstract

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Record is an item of a DictSeq evaluated over several keys.
type Record map[string]any

// DictSeq holds aligned sequences under named keys. Every key has the same
// length; item i of the DictSeq is item i of each active key.
//
// Keys added lazily are kept as given. Keys added with Lazy(false) are
// materialized into a Batch.
type DictSeq struct {
	name   string
	keys   []string
	data   map[string]Sequence
	lazy   map[string]bool
	active []string
}

// NewDictSeq returns an empty DictSeq.
func NewDictSeq(name string) *DictSeq {
	return &DictSeq{
		name: name,
		data: map[string]Sequence{},
		lazy: map[string]bool{},
	}
}

// Name returns the name given at construction.
func (d *DictSeq) Name() string { return d.name }

// Add stores data under key, replacing what was there.
//
// Options: Lazy(false) materializes data, WithInfo attaches per-item info
// and the Data options tune the materialization.
func (d *DictSeq) Add(ctx context.Context, key string, data Sequence, opts ...Option) error {
	if key == reservedKey {
		return fmt.Errorf("add %q: %w", key, ErrKeyReserved)
	}
	n, err := requireLen(data, "add")
	if err != nil {
		return err
	}
	if len(d.keys) > 0 && !(len(d.keys) == 1 && d.has(key)) && n != d.Len() {
		return fmt.Errorf("add %q: %d items, dict_seq has %d: %w", key, n, d.Len(), ErrLenMismatch)
	}
	o := newOptions(opts)
	switch {
	case !o.lazy && !isMemory(data):
		b, err := materialize(ctx, data, opts)
		if err != nil {
			return fmt.Errorf("add %q: %w", key, err)
		}
		data = b
	case o.info != nil:
		s := &Seq{}
		if err := s.Concat(data, o.info); err != nil {
			return fmt.Errorf("add %q: %w", key, err)
		}
		data = s
	}
	d.put(key, data, o.lazy)
	return nil
}

// AddDict adds every entry of m in sorted key order.
func (d *DictSeq) AddDict(ctx context.Context, m map[string]Sequence, opts ...Option) error {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if err := d.Add(ctx, k, m[k], opts...); err != nil {
			return err
		}
	}
	return nil
}

// SetKey replaces the data of key, keeping its lazy flag.
func (d *DictSeq) SetKey(ctx context.Context, key string, data Sequence) error {
	lazy, ok := d.lazy[key]
	if !ok {
		lazy = true
	}
	return d.Add(ctx, key, data, Lazy(lazy))
}

// put stores data without checks. A new key resets the active keys.
func (d *DictSeq) put(key string, data Sequence, lazy bool) {
	if !d.has(key) {
		d.keys = append(d.keys, key)
		d.active = slices.Clone(d.keys)
	}
	d.data[key] = data
	d.lazy[key] = lazy
}

func (d *DictSeq) has(key string) bool {
	_, ok := d.data[key]
	return ok
}

// Remove drops key.
func (d *DictSeq) Remove(key string) error {
	if !d.has(key) {
		return fmt.Errorf("remove %q: %w", key, ErrKeyNotFound)
	}
	delete(d.data, key)
	delete(d.lazy, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
	d.ResetActiveKeys()
	return nil
}

// ConcatOptions controls DictSeq.Concat.
type ConcatOptions struct {
	// Intersect keeps the keys both sides have instead of requiring equal
	// keys.
	Intersect bool
	// Copy concatenates into a copy and leaves the receiver untouched.
	Copy bool
}

// Concat appends the items of other to d. Lazy keys are concatenated
// through a Seq, materialized keys are joined in memory.
func (d *DictSeq) Concat(other *DictSeq, opts ConcatOptions) (*DictSeq, error) {
	if other == nil {
		return nil, fmt.Errorf("concat: %w: nil data", ErrInvalidConfig)
	}
	base := d
	if opts.Copy {
		base = d.Clone()
	}
	other = other.Clone()
	if len(base.keys) == 0 {
		*base = *other
		return base, nil
	}

	keys := base.keys
	if opts.Intersect {
		keys = slices.DeleteFunc(slices.Clone(base.keys), func(k string) bool { return !other.has(k) })
		for _, k := range slices.Clone(base.keys) {
			if !other.has(k) {
				if err := base.Remove(k); err != nil {
					return nil, err
				}
			}
		}
	} else if !sameKeys(base.keys, other.keys) {
		return nil, fmt.Errorf("concat %q and %q: %w: %q vs %q", base.name, other.name, ErrKeysMismatch, base.keys, other.keys)
	}

	for _, k := range keys {
		joined, err := concatKey(base.data[k], other.data[k], base.lazy[k], opts.Intersect)
		if err != nil {
			return nil, fmt.Errorf("concat %q: %w", k, err)
		}
		base.data[k] = joined
	}
	return base, nil
}

func concatKey(a, b Sequence, lazy, intersect bool) (Sequence, error) {
	if !lazy {
		switch at := a.(type) {
		case *Batch:
			if bt, ok := b.(*Batch); ok {
				return at.Concat(bt)
			}
		case *Values:
			if bt, ok := b.(*Values); ok {
				return at.concat(bt), nil
			}
		}
		ai, aok := memoryItems(a)
		bi, bok := memoryItems(b)
		if aok && bok {
			return NewBatch(append(slices.Clone(ai), bi...), nil), nil
		}
		return nil, fmt.Errorf("%w: cannot join %T and %T in memory", ErrTypeMismatch, a, b)
	}
	switch at := a.(type) {
	case *DictSeq:
		bt, ok := b.(*DictSeq)
		if !ok {
			return nil, fmt.Errorf("%w: cannot join dict_seq and %T", ErrTypeMismatch, b)
		}
		return at.Concat(bt, ConcatOptions{Intersect: intersect, Copy: true})
	case *Seq:
		s := at.Clone()
		if err := s.Concat(b, nil); err != nil {
			return nil, err
		}
		return s, nil
	}
	s := &Seq{}
	if err := s.Concat(a, nil); err != nil {
		return nil, err
	}
	if err := s.Concat(b, nil); err != nil {
		return nil, err
	}
	return s, nil
}

func sameKeys(a, b []string) bool {
	return slices.Equal(slices.Sorted(slices.Values(a)), slices.Sorted(slices.Values(b)))
}

// Plus returns the concatenation of d and other without modifying d.
func (d *DictSeq) Plus(other *DictSeq) (*DictSeq, error) {
	return d.Concat(other, ConcatOptions{Copy: true})
}

// AddMap maps key, keeping its lazy flag.
func (d *DictSeq) AddMap(ctx context.Context, key string, mapper Mapper, opts ...Option) error {
	data, ok := d.data[key]
	if !ok {
		return fmt.Errorf("add map %q: %w", key, ErrKeyNotFound)
	}
	opts = append(slices.Clone(opts), Lazy(d.lazy[key]))
	m, err := Map(ctx, data, mapper, opts...)
	if err != nil {
		return fmt.Errorf("add map %q: %w", key, err)
	}
	d.data[key] = m
	return nil
}

// AddSelect evaluates sel once and applies the resulting indices to every
// key, descending into nested DictSeqs so all keys stay aligned.
//
// Options: EvalData evaluates sel on other data than d.
func (d *DictSeq) AddSelect(ctx context.Context, sel Selector, opts ...Option) error {
	s, err := NewSelectContext(ctx, d, sel, opts...)
	if err != nil {
		return err
	}
	return d.selectIndices(ctx, s.indices)
}

func (d *DictSeq) selectIndices(ctx context.Context, idx []int) error {
	for _, k := range d.keys {
		switch t := d.data[k].(type) {
		case *DictSeq:
			if err := t.selectIndices(ctx, idx); err != nil {
				return fmt.Errorf("select %q: %w", k, err)
			}
		default:
			s, err := newSelectIndices(t, idx, t.Len())
			if err != nil {
				return fmt.Errorf("select %q: %w", k, err)
			}
			var out Sequence = s
			if !d.lazy[k] {
				if out, err = materialize(ctx, s, nil); err != nil {
					return fmt.Errorf("select %q: %w", k, err)
				}
			}
			d.data[k] = out
		}
	}
	return nil
}

// AddAlias makes the data of key also available as newKey.
func (d *DictSeq) AddAlias(ctx context.Context, key, newKey string) error {
	data, ok := d.data[key]
	if !ok {
		return fmt.Errorf("alias %q: %w", key, ErrKeyNotFound)
	}
	if d.has(newKey) {
		return fmt.Errorf("alias %q: %w", newKey, ErrKeyExists)
	}
	return d.Add(ctx, newKey, data, Lazy(d.lazy[key]))
}

// SetActiveKeys restricts Get to keys.
func (d *DictSeq) SetActiveKeys(keys ...string) error {
	for _, k := range keys {
		if !d.has(k) {
			return fmt.Errorf("active key %q: %w", k, ErrKeyNotFound)
		}
	}
	d.active = slices.Clone(keys)
	return nil
}

// ResetActiveKeys makes every key active again.
func (d *DictSeq) ResetActiveKeys() { d.active = slices.Clone(d.keys) }

// ActiveKeys returns the keys Get evaluates.
func (d *DictSeq) ActiveKeys() []string { return slices.Clone(d.active) }

// Keys returns every key in insertion order.
func (d *DictSeq) Keys() []string { return slices.Clone(d.keys) }

// IsLazy reports whether key was added lazily.
func (d *DictSeq) IsLazy(key string) bool { return d.lazy[key] }

// Len returns the number of items.
func (d *DictSeq) Len() int {
	if len(d.keys) == 0 {
		return 0
	}
	return d.data[d.keys[0]].Len()
}

// Get evaluates item index. With Args.Key only that key is evaluated.
// Otherwise the active keys are: a single active key yields its bare item,
// several yield a Record with an Info per key.
func (d *DictSeq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	if args.Key != "" {
		data, ok := d.data[args.Key]
		if !ok {
			return nil, nil, fmt.Errorf("get %q: %w", args.Key, ErrKeyNotFound)
		}
		return data.Get(ctx, index, args.withoutKey())
	}
	if len(d.active) == 1 {
		return d.data[d.active[0]].Get(ctx, index, args)
	}
	rec := make(Record, len(d.active))
	info := make(Info, len(d.active))
	for _, k := range d.active {
		v, vi, err := d.data[k].Get(ctx, index, args)
		if err != nil {
			return nil, nil, fmt.Errorf("get %q: %w", k, err)
		}
		rec[k] = v
		info[k] = vi
	}
	return rec, info, nil
}

// Set assigns item index of the single active key.
func (d *DictSeq) Set(index int, value any) error {
	if len(d.active) != 1 {
		return fmt.Errorf("dict_seq set: %w with %d active keys", ErrNotAssignable, len(d.active))
	}
	st, ok := d.data[d.active[0]].(Setter)
	if !ok {
		return fmt.Errorf("dict_seq set %q: %w", d.active[0], ErrNotAssignable)
	}
	return st.Set(index, value)
}

// Key returns the data stored under key.
func (d *DictSeq) Key(key string) (Sequence, error) {
	data, ok := d.data[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, ErrKeyNotFound)
	}
	return data, nil
}

// Unpack returns the values of keys as a list per item.
func (d *DictSeq) Unpack(keys ...string) (*Unpack, error) { return NewUnpack(d, keys...) }

// Summary describes every key.
func (d *DictSeq) Summary() map[string]any {
	out := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		if s, ok := d.data[k].(Summarizer); ok {
			out[k] = s.Summary()
			continue
		}
		out[k] = map[string]any{"nr_examples": d.data[k].Len()}
	}
	return out
}

// Clone copies d. Nested DictSeq and Seq containers are copied, other data
// is shared.
func (d *DictSeq) Clone() *DictSeq {
	c := &DictSeq{
		name:   d.name,
		keys:   slices.Clone(d.keys),
		data:   make(map[string]Sequence, len(d.data)),
		lazy:   maps.Clone(d.lazy),
		active: slices.Clone(d.active),
	}
	if c.lazy == nil {
		c.lazy = map[string]bool{}
	}
	for k, v := range d.data {
		switch t := v.(type) {
		case *DictSeq:
			v = t.Clone()
		case *Seq:
			v = t.Clone()
		}
		c.data[k] = v
	}
	return c
}

func (d *DictSeq) String() string {
	return fmt.Sprintf("dict_seq containing: %q", d.keys)
}

func memoryItems(data Sequence) ([]any, bool) {
	switch t := data.(type) {
	case *Values:
		return t.Items(), true
	case *Batch:
		return t.Items(), true
	}
	return nil, false
}

func isMemory(data Sequence) bool {
	switch data.(type) {
	case *Values, *Batch:
		return true
	}
	return false
}
