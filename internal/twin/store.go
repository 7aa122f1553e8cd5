package twin

import (
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one stored resource. Field values keep whatever JSON type the
// client sent; "id" and "createdAt" are owned by the store.
type Record map[string]any

// AuditEntry is one line of the audit log.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Collection string    `json:"collection"`
	ResourceID string    `json:"resourceId,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Decision   string    `json:"decision,omitempty"`
	At         time.Time `json:"at"`
}

type collection struct {
	items map[string]Record
	order []string
}

// Store holds all twin state in memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	audit       []AuditEntry
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
		now:         time.Now,
	}
}

func (s *Store) collectionLocked(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{items: make(map[string]Record)}
		s.collections[name] = c
	}
	return c
}

// Create stores fields under a fresh id and returns the stored copy.
func (s *Store) Create(name string, fields Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := maps.Clone(fields)
	if rec == nil {
		rec = Record{}
	}
	id := uuid.NewString()
	rec["id"] = id
	rec["createdAt"] = s.now().UTC().Format(time.RFC3339)

	c := s.collectionLocked(name)
	c.items[id] = rec
	c.order = append(c.order, id)
	return maps.Clone(rec)
}

func (s *Store) Get(name, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, false
	}
	rec, ok := c.items[id]
	return maps.Clone(rec), ok
}

// List returns records in insertion order.
func (s *Store) List(name string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Record{}
	c, ok := s.collections[name]
	if !ok {
		return out
	}
	for _, id := range c.order {
		out = append(out, maps.Clone(c.items[id]))
	}
	return out
}

// Update merges fields into an existing record. The id and creation time
// cannot be changed.
func (s *Store) Update(name, id string, fields Record) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, false
	}
	rec, ok := c.items[id]
	if !ok {
		return nil, false
	}
	for k, v := range fields {
		if k == "id" || k == "createdAt" {
			continue
		}
		rec[k] = v
	}
	return maps.Clone(rec), true
}

func (s *Store) Delete(name, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return false
	}
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// LogAudit appends to the audit log and returns the stored entry.
func (s *Store) LogAudit(e AuditEntry) AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	e.At = s.now().UTC()
	s.audit = append(s.audit, e)
	return e
}

// Audit returns a copy of the audit log, oldest first.
func (s *Store) Audit() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

// Reset clears all state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*collection)
	s.audit = nil
}
