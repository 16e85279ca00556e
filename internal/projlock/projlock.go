// Package projlock serializes mutating operations per project. The
// storage backend has no two-phase commit with the database, so the
// window between bucket mutation and metadata commit must not be
// entered concurrently for the same project.
package projlock

import "sync"

type Table struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Table {
	return &Table{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a project id, creating it on first use.
// Entries are kept for the process lifetime; the key space is bounded
// by the number of projects.
func (t *Table) Lock(projectID string) {
	t.mu.Lock()
	l, ok := t.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[projectID] = l
	}
	t.mu.Unlock()
	l.Lock()
}

func (t *Table) Unlock(projectID string) {
	t.mu.Lock()
	l := t.locks[projectID]
	t.mu.Unlock()
	if l != nil {
		l.Unlock()
	}
}
