package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewControllerRejectsInvalidLimit(t *testing.T) {
	_, err := NewController(0)
	require.ErrorIs(t, err, ErrInvalidConcurrency)

	_, err = NewController(-3)
	require.ErrorIs(t, err, ErrInvalidConcurrency)
}

func TestControllerBoundsConcurrency(t *testing.T) {
	const limit = 2
	const tasks = 8

	controller, err := NewController(limit)
	require.NoError(t, err)
	defer controller.Close()

	var current, peak int64
	var wg sync.WaitGroup

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := controller.Run(func() {
				n := atomic.AddInt64(&current, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt64(&current, -1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(limit))
	assert.Equal(t, 0, controller.Running())
}

func TestControllerReconfigure(t *testing.T) {
	controller, err := NewController(2)
	require.NoError(t, err)
	defer controller.Close()

	assert.Equal(t, 2, controller.Limit())

	require.NoError(t, controller.Reconfigure(5))
	assert.Equal(t, 5, controller.Limit())

	require.ErrorIs(t, controller.Reconfigure(0), ErrInvalidConcurrency)
	assert.Equal(t, 5, controller.Limit())
}

func TestControllerRunAfterClose(t *testing.T) {
	controller, err := NewController(1)
	require.NoError(t, err)
	controller.Close()

	err = controller.Run(func() {})
	assert.Error(t, err)
}
