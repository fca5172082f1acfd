package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-process Store used by tests and by dev mode without
// Postgres. A single RWMutex gives readers a consistent snapshot; the
// conflict re-check inside Insert holds the write lock, so the check and the
// write are atomic even without the service-level provider lock.
type MemStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]Appointment
	byProvider map[uuid.UUID][]uuid.UUID
	events     []EventRecord
	nextEvent  int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:       make(map[uuid.UUID]Appointment),
		byProvider: make(map[uuid.UUID][]uuid.UUID),
		nextEvent:  1,
	}
}

func (m *MemStore) Insert(ctx context.Context, appt Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.byProvider[appt.ProviderID] {
		existing := m.byID[id]
		if existing.Status != StatusScheduled {
			continue
		}
		if Overlaps(appt.Start, appt.End, existing.Start, existing.End) {
			return nil, ErrConflict
		}
	}

	now := time.Now()
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.Status = StatusScheduled
	appt.CreatedAt = now
	appt.UpdatedAt = now

	m.byID[appt.ID] = appt
	m.byProvider[appt.ProviderID] = append(m.byProvider[appt.ProviderID], appt.ID)

	return &appt, nil
}

func (m *MemStore) Cancel(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	if appt.Status == StatusCancelled {
		return nil
	}

	appt.Status = StatusCancelled
	appt.UpdatedAt = time.Now()
	m.byID[id] = appt
	return nil
}

func (m *MemStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	appt, ok := m.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

func (m *MemStore) ListForProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Appointment
	for _, id := range m.byProvider[providerID] {
		appt := m.byID[id]
		if appt.Status != StatusScheduled {
			continue
		}
		if !from.IsZero() && !appt.End.After(from) {
			continue
		}
		if !to.IsZero() && !appt.Start.Before(to) {
			continue
		}
		result = append(result, appt)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})

	return result, nil
}

func (m *MemStore) InsertEvent(ctx context.Context, ev EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = m.nextEvent
	m.nextEvent++
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MemStore) UnpublishedEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []EventRecord
	for _, ev := range m.events {
		if ev.PublishedAt != nil {
			continue
		}
		result = append(result, ev)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MemStore) MarkPublished(ctx context.Context, ids []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	marked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range m.events {
		if marked[m.events[i].ID] && m.events[i].PublishedAt == nil {
			t := at
			m.events[i].PublishedAt = &t
		}
	}
	return nil
}
