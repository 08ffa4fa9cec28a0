package abstract

import (
	"context"
	"fmt"
)

// Unpack returns the values of a fixed list of keys of a DictSeq as a
// []any, or the bare value when a single key is unpacked.
type Unpack struct {
	data *DictSeq
	keys []string
}

// NewUnpack unpacks keys of d.
func NewUnpack(d *DictSeq, keys ...string) (*Unpack, error) {
	if d == nil {
		return nil, fmt.Errorf("unpack: %w: nil data", ErrInvalidConfig)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("unpack: %w: no keys", ErrInvalidConfig)
	}
	for _, k := range keys {
		if _, ok := d.data[k]; !ok {
			return nil, fmt.Errorf("unpack %q: %w", k, ErrKeyNotFound)
		}
	}
	return &Unpack{data: d, keys: keys}, nil
}

// Len returns the length of the unpacked data.
func (u *Unpack) Len() int { return u.data.Len() }

// Get returns the values of item index. The info maps every key to the
// info of its value.
func (u *Unpack) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	vals := make([]any, len(u.keys))
	info := Info{}
	for k, key := range u.keys {
		a := args
		a.Key = key
		v, vi, err := u.data.Get(ctx, index, a)
		if err != nil {
			return nil, nil, fmt.Errorf("unpack %q: %w", key, err)
		}
		vals[k] = v
		info[key] = vi
	}
	if len(vals) == 1 {
		return vals[0], info[u.keys[0]].(Info), nil
	}
	return vals, info, nil
}

func (u *Unpack) String() string {
	return fmt.Sprintf("%s\n unpack: %q", u.data, u.keys)
}
