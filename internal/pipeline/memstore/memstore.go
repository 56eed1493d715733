// Package memstore provides in-memory implementations of the pipeline
// stores. Suitable for dev/testing.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/beacon/internal/incident"
	"github.com/linnemanlabs/beacon/internal/pipeline"
)

// Store holds incidents and audit entries in memory. The indicator
// index preserves insertion order, matching the ordered secondary index
// the pipeline expects.
type Store struct {
	mu          sync.RWMutex
	incidents   map[string]*incident.Incident
	byIndicator map[string][]string // indicator value -> incident IDs, insertion order
	audit       []*pipeline.AuditEntry
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		incidents:   make(map[string]*incident.Incident),
		byIndicator: make(map[string][]string),
	}
}

// Get retrieves an incident by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*incident.Incident, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, false, nil
	}
	cp := *inc
	return &cp, true, nil
}

// Put stores a copy of the incident and indexes it by indicator value
// on first insert.
func (s *Store) Put(_ context.Context, inc *incident.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[inc.ID]; !ok {
		s.byIndicator[inc.IndicatorValue] = append(s.byIndicator[inc.IndicatorValue], inc.ID)
	}
	cp := *inc
	s.incidents[inc.ID] = &cp
	return nil
}

// QueryByIndicator returns all incidents recorded with the indicator
// value, in insertion order. An empty result is not an error.
func (s *Store) QueryByIndicator(_ context.Context, value string) ([]incident.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byIndicator[value]
	matches := make([]incident.Incident, 0, len(ids))
	for _, id := range ids {
		if inc, ok := s.incidents[id]; ok {
			matches = append(matches, *inc)
		}
	}
	return matches, nil
}

// Append adds an audit entry. Entries are never mutated or removed; an
// entry with a log id already present is dropped as a retry duplicate.
func (s *Store) Append(_ context.Context, entry *pipeline.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.audit {
		if e.LogID == entry.LogID {
			return nil
		}
	}
	cp := *entry
	s.audit = append(s.audit, &cp)
	return nil
}

// AuditEntries returns a snapshot of the audit trail for an incident,
// in append order.
func (s *Store) AuditEntries(incidentID string) []pipeline.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pipeline.AuditEntry
	for _, e := range s.audit {
		if e.IncidentID == incidentID {
			out = append(out, *e)
		}
	}
	return out
}
