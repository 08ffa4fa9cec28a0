package abstract

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// slowSeq returns its index after a delay and tracks concurrency.
type slowSeq struct {
	n       int
	delay   time.Duration
	failAt  int
	running atomic.Int32
	peak    atomic.Int32
}

func (s *slowSeq) Len() int { return s.n }

func (s *slowSeq) Get(ctx context.Context, index int, _ Args) (any, Info, error) {
	cur := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	if s.failAt > 0 && index == s.failAt {
		return nil, nil, errors.New("boom")
	}
	return index, Info{"i": index}, nil
}

func TestParallelOp_Order(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	for _, workers := range []int{0, 1, 4} {
		data := &slowSeq{n: 20, delay: time.Millisecond}
		var got []int
		for r := range ParallelOp(context.Background(), data, Workers(workers), BufferLen(5)) {
			require.NoError(t, r.Err)
			assert.Equal(t, r.Index, r.Value)
			got = append(got, r.Index)
		}
		require.Len(t, got, 20)
		for i, v := range got {
			assert.Equal(t, i, v, "workers=%d", workers)
		}
	}
}

func TestParallelOp_BoundsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := &slowSeq{n: 30, delay: 2 * time.Millisecond}
	for r := range ParallelOp(context.Background(), data, Workers(3), BufferLen(10)) {
		require.NoError(t, r.Err)
	}
	assert.LessOrEqual(t, data.peak.Load(), int32(3))
}

func TestParallelOp_StopsOnError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := &slowSeq{n: 50, delay: time.Millisecond, failAt: 5}
	var last Result
	count := 0
	for r := range ParallelOp(context.Background(), data, Workers(2)) {
		last = r
		count++
	}
	require.Error(t, last.Err)
	assert.Contains(t, last.Err.Error(), "item 5")
	assert.Equal(t, 6, count)
}

func TestParallelOp_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	data := &slowSeq{n: 1000, delay: 5 * time.Millisecond}
	ch := ParallelOp(ctx, data, Workers(4))
	<-ch
	cancel()
	for range ch {
	}
}

func TestParallelOp_UndefinedLen(t *testing.T) {
	f, err := NewFilter(FromSlice([]int{1, 2}), func(any) (bool, error) { return true, nil }, false)
	require.NoError(t, err)

	r := <-ParallelOp(context.Background(), f)
	assert.ErrorIs(t, r.Err, ErrLenUndefined)
}
