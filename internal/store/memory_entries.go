package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// MemoryEntries keeps entries in process memory. It backs the "memory" store
// driver for local runs and the service and handler tests.
type MemoryEntries struct {
	mu      sync.RWMutex
	entries map[string]models.Entry
	now     func() time.Time
}

func NewMemoryEntries() *MemoryEntries {
	return &MemoryEntries{
		entries: make(map[string]models.Entry),
		now:     time.Now,
	}
}

func (m *MemoryEntries) Insert(_ context.Context, entry *models.Entry) (*models.Entry, error) {
	now := m.now().UTC()
	e := cloneEntry(*entry)
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	m.mu.Lock()
	m.entries[e.ID] = e
	m.mu.Unlock()

	out := cloneEntry(e)
	return &out, nil
}

func (m *MemoryEntries) ListByOwner(_ context.Context, ownerID string, q models.EntryQuery) ([]models.Entry, int64, error) {
	m.mu.RLock()
	var matched []models.Entry
	for _, e := range m.entries {
		if e.OwnerID == ownerID && matches(e, q) {
			matched = append(matched, cloneEntry(e))
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if q.Skip > 0 {
		if q.Skip >= total {
			return []models.Entry{}, total, nil
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}
	if matched == nil {
		matched = []models.Entry{}
	}
	return matched, total, nil
}

func (m *MemoryEntries) UpdateOwned(_ context.Context, id, ownerID string, patch models.EntryPatch) (*models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	if patch.Mood != nil {
		e.Mood = *patch.Mood
	}
	if patch.Feelings != nil {
		e.Feelings = slices.Clone(*patch.Feelings)
	}
	if patch.Activities != nil {
		e.Activities = slices.Clone(*patch.Activities)
	}
	e.UpdatedAt = m.now().UTC()
	m.entries[id] = e

	out := cloneEntry(e)
	return &out, nil
}

func (m *MemoryEntries) DeleteOwned(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.OwnerID != ownerID {
		return models.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *MemoryEntries) Ping(context.Context) error { return nil }

// Len returns the number of stored entries across all owners.
func (m *MemoryEntries) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func matches(e models.Entry, q models.EntryQuery) bool {
	if q.Date != "" && e.Date != q.Date {
		return false
	}
	if q.From != "" && e.Date < q.From {
		return false
	}
	if q.To != "" && e.Date > q.To {
		return false
	}
	if q.Mood != "" && e.Mood != q.Mood {
		return false
	}
	return true
}

func cloneEntry(e models.Entry) models.Entry {
	e.Feelings = nonNil(slices.Clone(e.Feelings))
	e.Activities = nonNil(slices.Clone(e.Activities))
	return e
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
