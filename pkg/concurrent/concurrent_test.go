package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/objgraph/pkg/sequence"
)

func TestConcurrentVisitsEveryElement(t *testing.T) {
	var sum atomic.Int64
	err := Concurrent(context.Background(), sequence.From([]int{1, 2, 3, 4}), 2, func(_ context.Context, v int) error {
		sum.Add(int64(v))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}

func TestConcurrentReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := Concurrent(context.Background(), sequence.From([]int{1, 2, 3}), 0, func(_ context.Context, v int) error {
		if v == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	err := Concurrent(context.Background(), sequence.From(make([]int, 32)), 3, func(_ context.Context, _ int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParallelMuteCollectsErrors(t *testing.T) {
	var mu sync.Mutex
	var failed []int
	ParallelMute(context.Background(), sequence.From([]int{1, 2, 3, 4}), 0, func(_ context.Context, v int) error {
		if v%2 == 0 {
			return errors.New("even")
		}
		return nil
	}, func(v int, _ error) {
		mu.Lock()
		failed = append(failed, v)
		mu.Unlock()
	})
	assert.ElementsMatch(t, []int{2, 4}, failed)
}
