// Package store provides snapshot sources for the engine.
package store

import (
	"sort"
	"sync"

	"github.com/brightpath/outreach-engine/engine"
)

// =============================================================================
// DIRECTORY - In-memory snapshot directory (engine.CandidateSource)
// =============================================================================

// Directory is a thread-safe in-memory set of student snapshots. The
// scheduler driver loads one per run so every target date in the rolling
// window scores against the same consistent population; it also serves as
// the candidate source in tests and demo scenarios.
type Directory struct {
	mu    sync.RWMutex
	snaps map[engine.StudentID]engine.StudentSnapshot
}

func NewDirectory() *Directory {
	return &Directory{snaps: make(map[engine.StudentID]engine.StudentSnapshot)}
}

// NewDirectoryFrom builds a directory from pre-loaded snapshots.
func NewDirectoryFrom(snaps []engine.StudentSnapshot) *Directory {
	d := NewDirectory()
	for _, s := range snaps {
		d.Put(s)
	}
	return d
}

// Put inserts or replaces a snapshot.
func (d *Directory) Put(snap engine.StudentSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snaps[snap.ID] = snap
}

// Remove drops a snapshot. Missing IDs are a no-op.
func (d *Directory) Remove(id engine.StudentID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.snaps, id)
}

// Len returns the number of snapshots held.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snaps)
}

// StudentIDs returns all IDs in stable sorted order so allocation runs are
// reproducible for a given population.
func (d *Directory) StudentIDs() []engine.StudentID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]engine.StudentID, 0, len(d.snaps))
	for id := range d.snaps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns the snapshot for one student.
func (d *Directory) Snapshot(id engine.StudentID) (engine.StudentSnapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap, ok := d.snaps[id]
	if !ok {
		return engine.StudentSnapshot{}, engine.ErrStudentNotFound
	}
	return snap, nil
}

// Compile-time check that Directory implements engine.CandidateSource.
var _ engine.CandidateSource = (*Directory)(nil)
