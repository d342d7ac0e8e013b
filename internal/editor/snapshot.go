package editor

import "sync"

// SnapshotKeeper retains the single pre-action snapshot backing one-level
// undo. Beginning a new action overwrites the previous snapshot, silently
// discarding the earlier undo opportunity.
type SnapshotKeeper struct {
	mu       sync.Mutex
	snapshot string
	held     bool
}

// Begin stores the buffer as the retained snapshot and returns it frozen.
func (k *SnapshotKeeper) Begin(buffer string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.snapshot = buffer
	k.held = true
	return buffer
}

// Undo returns the retained snapshot and consumes it. The second return is
// false once the snapshot has been taken or none was held.
func (k *SnapshotKeeper) Undo() (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.held {
		return "", false
	}
	k.held = false
	snapshot := k.snapshot
	k.snapshot = ""
	return snapshot, true
}

// Discard drops the retained snapshot without restoring it.
func (k *SnapshotKeeper) Discard() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.held = false
	k.snapshot = ""
}
