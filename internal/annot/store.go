package annot

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Store is the in-memory annotation collection for one open document.
// Mutations are synchronous with user input; the store is owned by a
// single document view and never shared across task graphs.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*Annotation
	order []string // insertion order, for stable iteration
	dirty bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Annotation)}
}

// Add inserts an annotation and marks the store dirty.
func (s *Store) Add(a *Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[a.ID]; !exists {
		s.order = append(s.order, a.ID)
	}
	s.byID[a.ID] = a
	s.dirty = true
}

// Reset drops every annotation and clears the dirty marker, e.g. when a
// new document replaces the current one.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Annotation)
	s.order = nil
	s.dirty = false
}

// Get returns the annotation with the given id, or nil.
func (s *Store) Get(id string) *Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// Update applies fn to the annotation with the given id and marks the
// store dirty. It reports whether the annotation existed.
func (s *Store) Update(id string, fn func(*Annotation)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return false
	}
	fn(a)
	s.dirty = true
	return true
}

// Remove deletes an annotation and marks the store dirty. It reports
// whether the annotation existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.dirty = true
	return true
}

// BindOverlay records the live overlay handle for an annotation. Overlay
// mounting is not a user edit, so the dirty marker is left alone. A zero
// ref unbinds.
func (s *Store) BindOverlay(id string, ref uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		a.OverlayRef = ref
	}
}

// All returns every annotation in insertion order.
func (s *Store) All() []*Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Annotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// ByPage returns the annotations belonging to a 1-based page index, in
// insertion order.
func (s *Store) ByPage(pageIndex int) []*Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Annotation
	for _, id := range s.order {
		if a := s.byID[id]; a.PageIndex == pageIndex {
			out = append(out, a)
		}
	}
	return out
}

// Pages returns the sorted list of page indices that carry annotations.
func (s *Store) Pages() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[int]bool)
	var pages []int
	for _, a := range s.byID {
		if !seen[a.PageIndex] {
			seen[a.PageIndex] = true
			pages = append(pages, a.PageIndex)
		}
	}
	sort.Ints(pages)
	return pages
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Dirty reports whether the store changed since the last MarkClean.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkClean clears the dirty marker. Called after a successful export.
func (s *Store) MarkClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// sidecar is the JSON document for saving and restoring annotation sets.
type sidecar struct {
	Version     int           `json:"version"`
	Annotations []*Annotation `json:"annotations"`
}

// EncodeSidecar serializes the store's annotations (canonical geometry
// only, no overlay handles) to JSON.
func (s *Store) EncodeSidecar() ([]byte, error) {
	doc := sidecar{Version: 1, Annotations: s.All()}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeSidecar replaces the store's contents with annotations from a
// sidecar document. The store is left dirty: restored annotations have
// not been flattened into any output yet.
func (s *Store) DecodeSidecar(data []byte) error {
	var doc sidecar
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing annotation sidecar: %w", err)
	}
	for _, a := range doc.Annotations {
		if !a.Type.Valid() {
			return fmt.Errorf("annotation %s: unknown type %q", a.ID, a.Type)
		}
		if a.PageIndex < 1 {
			return fmt.Errorf("annotation %s: invalid page index %d", a.ID, a.PageIndex)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Annotation, len(doc.Annotations))
	s.order = s.order[:0]
	for _, a := range doc.Annotations {
		s.byID[a.ID] = a
		s.order = append(s.order, a.ID)
	}
	s.dirty = len(doc.Annotations) > 0
	return nil
}
