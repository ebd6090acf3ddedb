package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{5, 3, 8, 1, 9, 2}

	results, err := Map(context.Background(), items, 3, func(ctx context.Context, n int) (int, error) {
		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 30, 80, 10, 90, 20}, results)
}

func TestMapPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3, 4}

	_, err := Map(context.Background(), items, 2, func(ctx context.Context, n int) (int, error) {
		if n == 3 {
			return 0, boom
		}
		return n, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestForEachRespectsLimit(t *testing.T) {
	var current, peak int64
	var mu sync.Mutex

	items := make([]int, 50)
	err := ForEach(context.Background(), items, 4, func(ctx context.Context, _ int) error {
		n := atomic.AddInt64(&current, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		defer atomic.AddInt64(&current, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int64(4))
}

func TestForEachSerialWhenLimitZero(t *testing.T) {
	var order []int
	items := []int{1, 2, 3, 4, 5}

	err := ForEach(context.Background(), items, 0, func(ctx context.Context, n int) error {
		order = append(order, n)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, items, order, "limit<=0 时退化为串行执行")
}
