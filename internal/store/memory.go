package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"socsim/pkg/models"
)

// MemoryStore is a bounded in-process store. The least recently used
// incident is evicted once capacity is reached.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *models.EnrichedIncident]
	seq   map[string]uint64
	next  uint64
}

// NewMemoryStore creates a store holding at most capacity incidents.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = 1000
	}
	s := &MemoryStore{seq: make(map[string]uint64, capacity)}
	cache, err := lru.NewWithEvict[string, *models.EnrichedIncident](capacity, func(key string, _ *models.EnrichedIncident) {
		delete(s.seq, key)
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Save stores the incident under its incident id.
func (s *MemoryStore) Save(ctx context.Context, inc *models.EnrichedIncident) (string, error) {
	if inc == nil || inc.Incident == nil {
		return "", ErrNotFound
	}
	if inc.StoreID == "" {
		inc.StoreID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.cache.Add(inc.Incident.IncidentID, inc)
	s.seq[inc.Incident.IncidentID] = s.next
	return inc.StoreID, nil
}

// Get returns the incident with the given id.
func (s *MemoryStore) Get(ctx context.Context, incidentID string) (*models.EnrichedIncident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.cache.Get(incidentID)
	if !ok {
		return nil, ErrNotFound
	}
	return inc, nil
}

// Recent returns up to limit incidents in reverse insertion order.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]*models.EnrichedIncident, error) {
	return s.filter(limit, func(*models.EnrichedIncident) bool { return true }), nil
}

// Related returns incidents from the same source IP or of the same type.
func (s *MemoryStore) Related(ctx context.Context, inc *models.Incident, limit int) ([]*models.EnrichedIncident, error) {
	if inc == nil {
		return nil, nil
	}
	return s.filter(limit, func(c *models.EnrichedIncident) bool { return isRelated(c, inc) }), nil
}

// Query filters and pages the stored incidents.
func (s *MemoryStore) Query(ctx context.Context, f Filter) (*Page, error) {
	return paginate(s.filter(0, func(*models.EnrichedIncident) bool { return true }), f), nil
}

// Summary aggregates the stored incidents.
func (s *MemoryStore) Summary(ctx context.Context, now time.Time) (*Summary, error) {
	return summarize(s.filter(0, func(*models.EnrichedIncident) bool { return true }), now), nil
}

// UpdateStatus replaces the stored incident with a copy in the new state.
func (s *MemoryStore) UpdateStatus(ctx context.Context, incidentID, status string, now time.Time) (*models.EnrichedIncident, error) {
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.cache.Peek(incidentID)
	if !ok {
		return nil, ErrNotFound
	}
	updated := withStatus(row, status, now)
	s.cache.Add(incidentID, updated)
	return updated, nil
}

// Len reports the number of stored incidents.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// Close releases the cache.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	return nil
}

func (s *MemoryStore) filter(limit int, keep func(*models.EnrichedIncident) bool) []*models.EnrichedIncident {
	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		seq uint64
		inc *models.EnrichedIncident
	}
	entries := make([]entry, 0, s.cache.Len())
	for _, key := range s.cache.Keys() {
		inc, ok := s.cache.Peek(key)
		if !ok || !keep(inc) {
			continue
		}
		entries = append(entries, entry{seq: s.seq[key], inc: inc})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]*models.EnrichedIncident, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.inc)
	}
	return out
}
