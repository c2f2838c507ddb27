package workflowsync

// Definition is the external workflow engine's view of one workflow: its
// identity, a version token for optimistic concurrency, and the action
// nodes keyed by name. Only the parts the synchronizer reads are modeled.
type Definition struct {
	ID      string            `json:"id"`
	Version string            `json:"version"`
	Actions map[string]Action `json:"actions"`
}

// Action is one node of a workflow definition.
type Action struct {
	Type                 string                `json:"type"`
	RuntimeConfiguration *RuntimeConfiguration `json:"runtimeConfiguration,omitempty"`
}

// RuntimeConfiguration carries the per-action execution settings the
// management API exposes.
type RuntimeConfiguration struct {
	Concurrency *ConcurrencySetting `json:"concurrency,omitempty"`
}

// ConcurrencySetting is the action-level concurrency bound.
type ConcurrencySetting struct {
	Runs int `json:"runs"`
}

// concurrencyRuns returns the configured bound for the action, or false
// when the action carries no concurrency configuration.
func (a Action) concurrencyRuns() (int, bool) {
	if a.RuntimeConfiguration == nil || a.RuntimeConfiguration.Concurrency == nil {
		return 0, false
	}
	return a.RuntimeConfiguration.Concurrency.Runs, true
}

// supportsConcurrency reports whether the action can hold a concurrency
// setting at all.
func (a Action) supportsConcurrency() bool {
	return a.RuntimeConfiguration != nil
}
