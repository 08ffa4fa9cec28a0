// Package dataprep encodes categorical values as numbers.
package dataprep

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownMethod is returned for an unknown encoding method.
var ErrUnknownMethod = errors.New("dataprep: unknown encoding method")

// Encoding methods understood by Encode.
const (
	MethodLabel  = "label"
	MethodOneHot = "onehot"
	MethodFreq   = "freq"
)

// categories numbers the distinct values of a column in order of first
// appearance and counts them.
type categories struct {
	index  map[string]int
	counts []int
}

func newCategories(data []string) categories {
	c := categories{index: map[string]int{}}
	for _, v := range data {
		k, ok := c.index[v]
		if !ok {
			k = len(c.counts)
			c.index[v] = k
			c.counts = append(c.counts, 0)
		}
		c.counts[k]++
	}
	return c
}

// encodeWith maps every value of data through the number of its category.
func encodeWith[T any](data []string, number func(string) int, enc func(k int) T) []T {
	out := make([]T, len(data))
	for i, v := range data {
		out[i] = enc(number(v))
	}
	return out
}

func (c categories) number(v string) int { return c.index[v] }

// LabelEncode numbers categories in order of first appearance.
func LabelEncode(data []string) ([]int, map[string]int) {
	c := newCategories(data)
	return encodeWith(data, c.number, func(k int) int { return k }), c.index
}

// SortedLabelEncode numbers categories by their position in the sorted
// list of distinct values, so the numbers do not depend on the data order.
func SortedLabelEncode(data []string) ([]int, []string) {
	labels := slices.Sorted(maps.Keys(newCategories(data).index))
	number := func(v string) int {
		k, _ := slices.BinarySearch(labels, v)
		return k
	}
	return encodeWith(data, number, func(k int) int { return k }), labels
}

// OneHot one-hot encodes categories, numbered in order of first appearance.
func OneHot(data []string) ([][]float64, map[string]int) {
	c := newCategories(data)
	return encodeWith(data, c.number, func(k int) []float64 {
		vec := make([]float64, len(c.counts))
		vec[k] = 1
		return vec
	}), c.index
}

// FrequencyEncode replaces every value by the share of the column holding
// it. The returned map holds the count of every category.
func FrequencyEncode(data []string) ([]float64, map[string]float64) {
	c := newCategories(data)
	counts := make(map[string]float64, len(c.index))
	for v, k := range c.index {
		counts[v] = float64(c.counts[k])
	}
	n := float64(len(data))
	return encodeWith(data, c.number, func(k int) float64 { return float64(c.counts[k]) / n }), counts
}

// Encode encodes a column with method and returns one row per value.
func Encode(method string, data []string) ([][]float64, error) {
	switch method {
	case MethodOneHot:
		out, _ := OneHot(data)
		return out, nil
	case MethodFreq:
		c := newCategories(data)
		n := float64(len(data))
		return encodeWith(data, c.number, func(k int) []float64 { return []float64{float64(c.counts[k]) / n} }), nil
	case MethodLabel, "":
		c := newCategories(data)
		return encodeWith(data, c.number, func(k int) []float64 { return []float64{float64(k)} }), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}
