package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/harborline/docflow/core"
)

// AdmitResult reports the outcome of a dedup admission attempt.
type AdmitResult struct {
	Admitted bool
	// Existing is the correlation ID of the already-active run when the
	// attempt is rejected.
	Existing uuid.UUID
}

// DedupGate ensures at most one active pipeline run per object identity.
// Entries live only while a run is in flight.
type DedupGate struct {
	mu      sync.Mutex
	entries map[string]uuid.UUID
}

// NewDedupGate creates an empty gate.
func NewDedupGate() *DedupGate {
	return &DedupGate{entries: make(map[string]uuid.UUID)}
}

// Admit performs an atomic check-and-set for the identity. If no live entry
// exists, one is created for correlationID and the attempt is admitted;
// otherwise the attempt is rejected carrying the existing run's correlation
// ID.
func (g *DedupGate) Admit(identity core.ObjectIdentity, correlationID uuid.UUID) AdmitResult {
	key := identity.String()
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.entries[key]; ok {
		return AdmitResult{Existing: existing}
	}
	g.entries[key] = correlationID
	return AdmitResult{Admitted: true}
}

// Release removes the identity's entry. Must be called exactly once per
// admitted run, on every terminal outcome. Releasing an absent entry is a
// no-op so crash-recovery cleanup can release unconditionally.
func (g *DedupGate) Release(identity core.ObjectIdentity) {
	g.mu.Lock()
	delete(g.entries, identity.String())
	g.mu.Unlock()
}

// Active returns the correlation ID of the in-flight run for the identity,
// if any.
func (g *DedupGate) Active(identity core.ObjectIdentity) (uuid.UUID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.entries[identity.String()]
	return id, ok
}

// Len returns the number of live entries.
func (g *DedupGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
