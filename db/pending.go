package db

import "sync"

// refKey identifies one stored association slot that points at a target
// not yet known to exist: the type and rod_id of the record holding the
// reference, and the association name.
type refKey struct {
	holderType string
	holderID   uint64
	assoc      string
}

// pendingTracker tracks references whose target has not been resolved yet,
// generalizing the teacher's record-level LockManager (concurrency/lock.go)
// from "who holds a write lock on record X" to "which association slots
// still point at an unverified target" — this engine has no concurrent
// writers to lock against (§5), but the same map-keyed-by-compound-key
// shape fits resolving dangling references on close (§7).
type pendingTracker struct {
	mu      sync.Mutex
	pending map[refKey]Ref
}

func newPendingTracker() *pendingTracker {
	return &pendingTracker{pending: make(map[refKey]Ref)}
}

// Mark records that holderType[holderID].assoc points at target, pending
// verification that target actually exists.
func (t *pendingTracker) Mark(holderType string, holderID uint64, assoc string, target Ref) {
	if target.isNull() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[refKey{holderType, holderID, assoc}] = target
}

// Resolve clears a previously marked reference once its target is
// confirmed to exist (or the record holding it is otherwise accounted for).
func (t *pendingTracker) Resolve(holderType string, holderID uint64, assoc string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, refKey{holderType, holderID, assoc})
}

// Count returns the number of still-unresolved references.
func (t *pendingTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Snapshot returns every unresolved reference, for error reporting.
func (t *pendingTracker) Snapshot() map[refKey]Ref {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[refKey]Ref, len(t.pending))
	for k, v := range t.pending {
		out[k] = v
	}
	return out
}
