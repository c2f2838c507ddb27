package workflowsync

import (
	"context"
	"fmt"
	"log/slog"
)

// Synchronizer mirrors the engine's concurrency bound into one action node
// of an external workflow definition. It owns nothing in the workflow
// engine: reads report divergence, writes are version-guarded, and a
// detected concurrent edit surfaces as ErrConfigurationConflict for the
// caller to retry.
type Synchronizer struct {
	client     ManagementClient
	workflowID string
	actionName string
	logger     *slog.Logger
}

// SynchronizerOption configures a Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSynchronizer creates a synchronizer bound to one workflow action.
func NewSynchronizer(client ManagementClient, workflowID, actionName string, opts ...SynchronizerOption) (*Synchronizer, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	if workflowID == "" {
		return nil, ErrWorkflowRequired
	}
	if actionName == "" {
		return nil, ErrActionRequired
	}
	s := &Synchronizer{
		client:     client,
		workflowID: workflowID,
		actionName: actionName,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetExternalConcurrency reads the action's current concurrency bound from
// the workflow engine. A definition whose action exists but carries no
// concurrency configuration returns ErrNotConfigured. The external value is
// reported as-is; divergence from the engine's bound is the caller's call.
func (s *Synchronizer) GetExternalConcurrency(ctx context.Context) (int, error) {
	def, err := s.client.GetDefinition(ctx, s.workflowID)
	if err != nil {
		return 0, fmt.Errorf("fetching workflow definition: %w", err)
	}

	action, err := s.locateAction(def)
	if err != nil {
		return 0, err
	}

	runs, ok := action.concurrencyRuns()
	if !ok {
		return 0, fmt.Errorf("%w: action %q in workflow %s", ErrNotConfigured, s.actionName, s.workflowID)
	}
	return runs, nil
}

// SetExternalConcurrency mirrors the bound into the action node. The full
// definition is fetched first so the action can be validated and the update
// carries the version read; no update is issued when validation fails.
func (s *Synchronizer) SetExternalConcurrency(ctx context.Context, runs int) error {
	if runs <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, runs)
	}

	def, err := s.client.GetDefinition(ctx, s.workflowID)
	if err != nil {
		return fmt.Errorf("fetching workflow definition: %w", err)
	}

	action, err := s.locateAction(def)
	if err != nil {
		return err
	}
	if !action.supportsConcurrency() {
		return fmt.Errorf("%w: action %q does not support concurrency configuration",
			ErrActionValidation, s.actionName)
	}

	if current, ok := action.concurrencyRuns(); ok && current == runs {
		s.logger.Debug("external concurrency already in sync",
			"workflowID", s.workflowID, "action", s.actionName, "runs", runs)
		return nil
	}

	if err := s.client.UpdateActionConcurrency(ctx, s.workflowID, s.actionName, runs, def.Version); err != nil {
		return fmt.Errorf("updating action concurrency: %w", err)
	}

	s.logger.Info("external concurrency synchronized",
		"workflowID", s.workflowID, "action", s.actionName, "runs", runs)
	return nil
}

func (s *Synchronizer) locateAction(def *Definition) (Action, error) {
	action, ok := def.Actions[s.actionName]
	if !ok {
		return Action{}, fmt.Errorf("%w: workflow %s has no action %q",
			ErrActionValidation, s.workflowID, s.actionName)
	}
	return action, nil
}
