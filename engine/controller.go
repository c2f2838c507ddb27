package engine

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
)

// Controller bounds the number of concurrently executing pipeline runs.
// It wraps a goroutine pool in blocking mode: Run blocks the caller until a
// worker slot frees up, so submission pressure never spawns more than the
// configured number of simultaneous runs.
type Controller struct {
	pool *ants.Pool
}

// NewController creates a controller with the given concurrency limit.
func NewController(limit int) (*Controller, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, limit)
	}
	pool, err := ants.NewPool(limit)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	return &Controller{pool: pool}, nil
}

// Run executes task on a pool worker, blocking until a slot is available.
func (c *Controller) Run(task func()) error {
	if err := c.pool.Submit(task); err != nil {
		return fmt.Errorf("submitting to worker pool: %w", err)
	}
	return nil
}

// Running returns the number of tasks currently executing.
func (c *Controller) Running() int {
	return c.pool.Running()
}

// Waiting returns the number of submitters blocked for a slot.
func (c *Controller) Waiting() int {
	return c.pool.Waiting()
}

// Limit returns the current concurrency limit.
func (c *Controller) Limit() int {
	return c.pool.Cap()
}

// Reconfigure changes the concurrency limit at runtime. In-flight tasks are
// unaffected; a reduced limit takes effect as running tasks finish.
func (c *Controller) Reconfigure(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, limit)
	}
	c.pool.Tune(limit)
	return nil
}

// Close releases the pool. Pending submissions fail after this.
func (c *Controller) Close() {
	c.pool.Release()
}
