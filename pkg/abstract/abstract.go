// Package abstract implements lazy, composable operations over indexable
// datasets.
//
// Every operation wraps a Sequence and is itself a Sequence, so mapping,
// selecting, splitting, replicating, filtering and concatenating can be
// stacked without evaluating anything. Items are only computed when Get is
// called, or when a chain is materialized through Data.
//
// Metadata travels with each item as an Info map. Wrappers forward the Args
// of a call to the data they wrap, which lets a Split pass its read window
// down to the reader at the bottom of a chain, or a Key select a single
// field out of a nested DictSeq.
package abstract

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// UnknownLen is reported by sequences whose length depends on evaluation.
const UnknownLen = -1

// reservedKey refers to every key of a DictSeq and cannot be added.
const reservedKey = "all"

var (
	ErrIndexOutOfRange = errors.New("abstract: index out of range")
	ErrLenUndefined    = errors.New("abstract: length undefined")
	ErrNotAssignable   = errors.New("abstract: item assignment not supported")
	ErrKeyNotFound     = errors.New("abstract: key not found")
	ErrKeyReserved     = errors.New("abstract: key is reserved")
	ErrKeyExists       = errors.New("abstract: key already exists")
	ErrLenMismatch     = errors.New("abstract: length mismatch")
	ErrKeysMismatch    = errors.New("abstract: keys do not match")
	ErrFiltered        = errors.New("abstract: item not available")
	ErrInvalidSelector = errors.New("abstract: invalid selector")
	ErrNoKey           = errors.New("abstract: data has no keys")
	ErrShapeMismatch   = errors.New("abstract: shape mismatch")
	ErrTypeMismatch    = errors.New("abstract: type mismatch")
	ErrInvalidConfig   = errors.New("abstract: invalid configuration")
)

// Info carries metadata that is propagated alongside an item.
type Info map[string]any

// Merge returns a new Info holding i overlaid with each of others in turn.
func (i Info) Merge(others ...Info) Info {
	out := make(Info, len(i))
	maps.Copy(out, i)
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// Range is a half-open [Start, End) window over the samples of one item.
type Range struct {
	Start, End int
}

// Len returns the window size.
func (r Range) Len() int { return r.End - r.Start }

// InfoReadRange is the info key under which a read window reaches mappers
// that sit directly on top of in-memory data.
const InfoReadRange = "read_range"

// Args are the per-call parameters forwarded down a chain of operations.
type Args struct {
	// Key selects a single field of a nested DictSeq.
	Key string
	// ReadRange asks the data source to read only part of an item.
	ReadRange *Range
	// Params are free-form parameters merged into the item info.
	Params Info
}

func (a Args) isZero() bool {
	return a.Key == "" && a.ReadRange == nil && len(a.Params) == 0
}

func (a Args) withoutKey() Args {
	a.Key = ""
	return a
}

// Sequence is a finite, indexable collection of items.
type Sequence interface {
	// Len returns the number of items, or UnknownLen.
	Len() int
	// Get evaluates item index.
	Get(ctx context.Context, index int, args Args) (any, Info, error)
}

// Setter is implemented by sequences that support item assignment.
type Setter interface {
	Set(index int, value any) error
}

// Keyer is implemented by sequences that can project a single key.
type Keyer interface {
	Key(key string) (Sequence, error)
}

// Iterator is implemented by sequences with their own iteration order.
type Iterator interface {
	Iter(ctx context.Context) <-chan Result
}

// Summarizer is implemented by sequences that can describe themselves.
type Summarizer interface {
	Summary() map[string]any
}

// Result is one evaluated item.
type Result struct {
	Index int
	Value any
	Info  Info
	Err   error
}

// Normalize maps a possibly negative index onto [0, n).
func Normalize(index, n int) (int, error) {
	if n < 0 {
		return 0, ErrLenUndefined
	}
	if index < 0 && n > 0 {
		index = ((index % n) + n) % n
	}
	if index < 0 || index >= n {
		return 0, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, n)
	}
	return index, nil
}

// Key projects key out of data. Sequences that know their keys resolve it
// directly; anything else is wrapped in a KeySeq.
func Key(data Sequence, key string) (Sequence, error) {
	if k, ok := data.(Keyer); ok {
		return k.Key(key)
	}
	return NewKey(data, key)
}

// Get is a convenience for data.Get with empty Args.
func Get(ctx context.Context, data Sequence, index int) (any, error) {
	v, _, err := data.Get(ctx, index, Args{})
	return v, err
}

func requireLen(data Sequence, op string) (int, error) {
	if data == nil {
		return 0, fmt.Errorf("%s: %w: nil data", op, ErrInvalidConfig)
	}
	n := data.Len()
	if n < 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrLenUndefined)
	}
	return n, nil
}

func describe(data Sequence) string {
	if s, ok := data.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", data)
}
