package abstract

import (
	"context"
	"errors"
	"fmt"
)

// KeySeq projects one key out of data whose items are keyed.
//
// An item that does not have the key evaluates to nil rather than failing,
// so a key can be read across concatenated data that only partly holds it.
type KeySeq struct {
	data Sequence
	key  string
}

// NewKey wraps data.
func NewKey(data Sequence, key string) (*KeySeq, error) {
	if _, err := requireLen(data, "key"); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("key: %w: empty key", ErrInvalidConfig)
	}
	return &KeySeq{data: data, key: key}, nil
}

// Len returns the length of the wrapped data.
func (k *KeySeq) Len() int { return k.data.Len() }

// Get returns key of item index.
func (k *KeySeq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	i, err := Normalize(index, k.data.Len())
	if err != nil {
		return nil, nil, err
	}
	args.Key = k.key
	v, info, err := k.data.Get(ctx, i, args)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		return nil, Info{}, nil
	}
	return v, info, nil
}

func (k *KeySeq) String() string {
	return fmt.Sprintf("%s\n key: %s", describe(k.data), k.key)
}
