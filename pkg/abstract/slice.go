package abstract

import (
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/mat"
)

// Slicer is implemented by item types that Split can cut into windows.
type Slicer interface {
	SliceLen() int
	SliceRange(start, end int) any
}

// valueLen reports the number of samples in v.
func valueLen(v any) (int, bool) {
	switch t := v.(type) {
	case Slicer:
		return t.SliceLen(), true
	case *mat.Dense:
		r, _ := t.Dims()
		return r, true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.String:
		return rv.Len(), true
	}
	return 0, false
}

// sliceValue returns the samples [start, end) of v, clamped to its length.
func sliceValue(v any, start, end int) (any, error) {
	n, ok := valueLen(v)
	if !ok {
		return nil, fmt.Errorf("%w: cannot slice %T", ErrTypeMismatch, v)
	}
	start = min(max(start, 0), n)
	end = min(max(end, start), n)
	switch t := v.(type) {
	case Slicer:
		return t.SliceRange(start, end), nil
	case *mat.Dense:
		if start == end {
			return &mat.Dense{}, nil
		}
		_, c := t.Dims()
		return mat.DenseCopyOf(t.Slice(start, end, 0, c)), nil
	}
	return reflect.ValueOf(v).Slice(start, end).Interface(), nil
}
