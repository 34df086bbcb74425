package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests. Its mutex is
// held across the overlap check and the write, which gives the same
// no-double-booking guarantee the Postgres store gets from serializable
// transactions.
type MemoryStore struct {
	mu    sync.Mutex
	appts map[string]*Appointment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{appts: make(map[string]*Appointment)}
}

func (s *MemoryStore) GetByID(_ context.Context, orgID, id string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appts[id]
	if !ok || appt.OrgID != orgID {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (s *MemoryStore) ListRange(_ context.Context, orgID string, from, to time.Time) ([]*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Appointment
	for _, appt := range s.appts {
		if appt.OrgID != orgID {
			continue
		}
		if appt.StartsAt.Before(to) && appt.EndsAt.After(from) {
			cp := *appt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *MemoryStore) FindBySource(_ context.Context, orgID, source string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, appt := range s.appts {
		if appt.OrgID == orgID && appt.Source == source {
			cp := *appt
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) HasOverlap(_ context.Context, orgID, staffID, excludeID string, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasOverlapLocked(orgID, staffID, excludeID, start, end), nil
}

func (s *MemoryStore) hasOverlapLocked(orgID, staffID, excludeID string, start, end time.Time) bool {
	if staffID == "" {
		return false
	}
	for _, appt := range s.appts {
		if appt.OrgID != orgID || appt.ID == excludeID || !appt.Active() {
			continue
		}
		if appt.StaffID == nil || *appt.StaffID != staffID {
			continue
		}
		if overlaps(appt.StartsAt, appt.EndsAt, start, end) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateChecked(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staffID := ""
	if appt.StaffID != nil {
		staffID = *appt.StaffID
	}
	if s.hasOverlapLocked(appt.OrgID, staffID, "", appt.StartsAt, appt.EndsAt) {
		return ErrConflict
	}
	cp := *appt
	s.appts[appt.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateChecked(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.appts[appt.ID]
	if !ok || existing.OrgID != appt.OrgID {
		return ErrNotFound
	}
	staffID := ""
	if appt.StaffID != nil {
		staffID = *appt.StaffID
	}
	if s.hasOverlapLocked(appt.OrgID, staffID, appt.ID, appt.StartsAt, appt.EndsAt) {
		return ErrConflict
	}
	cp := *appt
	s.appts[appt.ID] = &cp
	return nil
}

func (s *MemoryStore) Update(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.appts[appt.ID]
	if !ok || existing.OrgID != appt.OrgID {
		return ErrNotFound
	}
	cp := *appt
	s.appts[appt.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.appts[id]
	if !ok || existing.OrgID != orgID {
		return ErrNotFound
	}
	delete(s.appts, id)
	return nil
}
