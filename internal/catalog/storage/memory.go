package storage

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"gocatalog_sync/internal/catalog/models"
)

type memorySnapshot struct {
	state       string
	startedAt   time.Time
	summary     models.Summary
	products    map[string]models.ProductRow
	order       []string
	collections []models.CollectionRow
	entries     map[string]models.CacheEntry
}

// MemoryStore keeps snapshots in process memory. It follows the same publish rules as
// the Postgres store and serves tests and the -memory mode.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]*memorySnapshot
	current   uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[uuid.UUID]*memorySnapshot)}
}

func (m *MemoryStore) CreateSnapshot(_ context.Context, version uuid.UUID, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[version]; ok {
		return errors.Errorf("snapshot %s already exists", version)
	}
	m.snapshots[version] = &memorySnapshot{
		state:     stateBuilding,
		startedAt: startedAt,
		products:  make(map[string]models.ProductRow),
		entries:   make(map[string]models.CacheEntry),
	}
	return nil
}

func (m *MemoryStore) building(version uuid.UUID) (*memorySnapshot, error) {
	s, ok := m.snapshots[version]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSnapshot, "%s", version)
	}
	if s.state != stateBuilding {
		return nil, errors.Errorf("snapshot %s is %s", version, s.state)
	}
	return s, nil
}

func (m *MemoryStore) InsertProducts(_ context.Context, version uuid.UUID, rows []models.ProductRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.building(version)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, ok := s.products[row.ProductID]; ok {
			return errors.Errorf("duplicate product %s", row.ProductID)
		}
	}
	for _, row := range rows {
		s.products[row.ProductID] = row
		s.order = append(s.order, row.ProductID)
	}
	return nil
}

func (m *MemoryStore) InsertCollections(_ context.Context, version uuid.UUID, rows []models.CollectionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.building(version)
	if err != nil {
		return err
	}
	s.collections = append(s.collections, rows...)
	return nil
}

func (m *MemoryStore) PutEntries(_ context.Context, version uuid.UUID, entries []models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.building(version)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		s.entries[entry.Key] = entry
	}
	return nil
}

func (m *MemoryStore) Publish(_ context.Context, summary models.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.building(summary.Version)
	if err != nil {
		return err
	}
	if cur, ok := m.snapshots[m.current]; ok && cur.startedAt.After(s.startedAt) {
		return errors.Wrapf(ErrSuperseded, "current snapshot started at %s", cur.startedAt.Format(time.RFC3339))
	}

	summary.StartedAt = s.startedAt
	s.summary = summary
	s.state = statePublished
	m.current = summary.Version

	for version, other := range m.snapshots {
		if version == m.current {
			continue
		}
		if other.state != stateBuilding || other.startedAt.Before(s.startedAt) {
			delete(m.snapshots, version)
		}
	}
	return nil
}

func (m *MemoryStore) Discard(_ context.Context, version uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[version]
	if !ok {
		return nil
	}
	if s.state != stateBuilding {
		return errors.Errorf("snapshot %s is %s", version, s.state)
	}
	delete(m.snapshots, version)
	return nil
}

func (m *MemoryStore) Current(_ context.Context) (models.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[m.current]
	if !ok {
		return models.Summary{}, ErrNoSnapshot
	}
	return s.summary, nil
}

// Products returns the product rows of the current snapshot in insertion order.
func (m *MemoryStore) Products() []models.ProductRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[m.current]
	if !ok {
		return nil
	}
	rows := make([]models.ProductRow, 0, len(s.order))
	for _, id := range s.order {
		rows = append(rows, s.products[id])
	}
	return rows
}

func (m *MemoryStore) Collections() []models.CollectionRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[m.current]
	if !ok {
		return nil
	}
	return append([]models.CollectionRow(nil), s.collections...)
}

func (m *MemoryStore) Entry(key string) (models.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[m.current]
	if !ok {
		return models.CacheEntry{}, false
	}
	entry, ok := s.entries[key]
	return entry, ok
}

// Versions reports how many snapshots, published or building, are held.
func (m *MemoryStore) Versions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}
