package selector

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

func perm(n int, rng *rand.Rand) []int {
	if rng != nil {
		return rng.Perm(n)
	}
	return rand.Perm(n)
}

// TrainTestSplit shuffles n indices and splits them by ratio. Both halves
// are returned sorted.
func TrainTestSplit(n int, testRatio float64, rng *rand.Rand) (train, test []int, err error) {
	if testRatio < 0 || testRatio > 1 {
		return nil, nil, fmt.Errorf("%w: test ratio %v", ErrInvalidParams, testRatio)
	}
	indices := perm(n, rng)
	nTest := int(float64(n) * testRatio)
	test = slices.Clone(indices[:nTest])
	train = slices.Clone(indices[nTest:])
	slices.Sort(test)
	slices.Sort(train)
	return train, test, nil
}

// KFold deals n shuffled indices over k folds.
func KFold(n, k int, rng *rand.Rand) ([][]int, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("%w: %d folds for %d items", ErrInvalidParams, k, n)
	}
	indices := perm(n, rng)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	for _, f := range folds {
		slices.Sort(f)
	}
	return folds, nil
}

// GroupKFold assigns whole groups to k folds, largest group first onto the
// smallest fold, so that no group is split over two folds.
func GroupKFold(groups []int, k int) ([][]int, error) {
	members := map[int][]int{}
	for i, g := range groups {
		members[g] = append(members[g], i)
	}
	if k < 2 || k > len(members) {
		return nil, fmt.Errorf("%w: %d folds for %d groups", ErrInvalidParams, k, len(members))
	}
	ids := make([]int, 0, len(members))
	for g := range members {
		ids = append(ids, g)
	}
	slices.SortFunc(ids, func(a, b int) int {
		if c := cmp.Compare(len(members[b]), len(members[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	folds := make([][]int, k)
	for _, g := range ids {
		smallest := 0
		for f := range folds {
			if len(folds[f]) < len(folds[smallest]) {
				smallest = f
			}
		}
		folds[smallest] = append(folds[smallest], members[g]...)
	}
	for _, f := range folds {
		slices.Sort(f)
	}
	return folds, nil
}

// Folds returns the train and test selection of fold i: fold i is tested,
// the others are trained on.
func Folds(folds [][]int, i int) (train, test abstract.Indices, err error) {
	if i < 0 || i >= len(folds) {
		return nil, nil, fmt.Errorf("%w: fold %d of %d", ErrInvalidParams, i, len(folds))
	}
	for f, idx := range folds {
		if f == i {
			test = append(test, idx...)
		} else {
			train = append(train, idx...)
		}
	}
	slices.Sort(train)
	slices.Sort(test)
	return train, test, nil
}
