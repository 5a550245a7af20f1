// Package pending holds the process-wide set of AI-proposed changes that
// have not been resolved yet. Readers are any open tab; writers are the
// reconciliation controller and the backend event handlers, nobody else.
package pending

import (
	"sync"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
)

// Store keeps unresolved proposals keyed by change id, with ingestion
// order preserved so Get can return the most recent proposal per path.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*change.Change
	order []string
	bus   *events.Bus
}

// NewStore creates an empty store publishing on bus.
func NewStore(bus *events.Bus) *Store {
	return &Store{
		byID: make(map[string]*change.Change),
		bus:  bus,
	}
}

// Ingest adds the changes not already known, deduplicating by id.
// Ingesting a duplicate id is a no-op, not an error. For each new
// file-creation proposal the store signals the host to open an ephemeral
// preview tab; the side effect is an emitted event, never performed here.
func (s *Store) Ingest(changes []change.Change) {
	s.mu.Lock()
	var added bool
	var previews []string
	for i := range changes {
		c := changes[i]
		if _, known := s.byID[c.ID]; known {
			continue
		}
		s.byID[c.ID] = &c
		s.order = append(s.order, c.ID)
		added = true
		if c.Kind == change.KindNewFile {
			previews = append(previews, c.Path)
		}
	}
	s.mu.Unlock()

	for _, path := range previews {
		s.bus.Emit(events.PreviewOpenRequest, path)
	}
	if added {
		s.notify()
	}
}

// Get returns the single active change for display purposes: the most
// recently ingested unresolved change for that path, or nil.
func (s *Store) Get(path string) *change.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		c, ok := s.byID[s.order[i]]
		if ok && c.Path == path {
			cp := *c
			return &cp
		}
	}
	return nil
}

// Lookup returns the change with the given id, or nil.
func (s *Store) Lookup(id string) *change.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// Resolve removes the change and every other queued change for the same
// path: once one proposal lands, the rest were computed against a buffer
// that no longer exists. Resolving an unknown id is a no-op.
func (s *Store) Resolve(id string) {
	s.mu.Lock()
	c, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.removeForPathLocked(c.Path)
	s.mu.Unlock()
	s.notify()
}

// ResolveAllForPath removes every queued change for path.
func (s *Store) ResolveAllForPath(path string) {
	s.mu.Lock()
	if !s.hasPathLocked(path) {
		s.mu.Unlock()
		return
	}
	s.removeForPathLocked(path)
	s.mu.Unlock()
	s.notify()
}

// Clear drops every pending change.
func (s *Store) Clear() {
	s.mu.Lock()
	s.byID = make(map[string]*change.Change)
	s.order = nil
	s.mu.Unlock()
	s.notify()
}

// All returns the unresolved changes in ingestion order.
func (s *Store) All() []change.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]change.Change, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.byID[id]; ok {
			out = append(out, *c)
		}
	}
	return out
}

// Len returns the number of unresolved changes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) hasPathLocked(path string) bool {
	for _, c := range s.byID {
		if c.Path == path {
			return true
		}
	}
	return false
}

func (s *Store) removeForPathLocked(path string) {
	kept := s.order[:0]
	for _, id := range s.order {
		c, ok := s.byID[id]
		if ok && c.Path == path {
			delete(s.byID, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *Store) notify() {
	s.bus.Emit(events.PendingUpdated, s.All())
}
