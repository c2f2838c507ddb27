package mock

import (
	"context"
	"sync"
)

// MockEvaluator is a test double for ai.Evaluator.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockEvaluator struct {
	// EvaluateFunc is called by Evaluate if set.
	// If nil, returns a fixed score of 0.9.
	EvaluateFunc func(ctx context.Context, instanceJSON string, schemaName string) (float64, error)

	mu        sync.Mutex
	callCount int
}

// NewMockEvaluator creates a mock evaluator with default behavior.
// Returns the concrete type to allow test assertions.
func NewMockEvaluator() *MockEvaluator {
	return &MockEvaluator{}
}

// Evaluate returns a fixed passing score.
func (m *MockEvaluator) Evaluate(ctx context.Context, instanceJSON string, schemaName string) (float64, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, instanceJSON, schemaName)
	}
	return 0.9, nil
}

// CallCount returns the number of times Evaluate was called.
func (m *MockEvaluator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockEvaluator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EvaluateFunc = nil
}
