package primitive

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the default, zero-config Store backend: a mutex-guarded
// map. It's also what single-binary deployments without Postgres/SQLite
// configured fall back to.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) AddPrimitive(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = ContentID(e.Domain, e.Category, e.Properties)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[e.ID]; exists {
		return nil // entries are immutable once committed (§6)
	}
	s.entries[e.ID] = e
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok, nil
}

func (s *MemoryStore) SemanticSearch(ctx context.Context, query string, k int, domain string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryVec := HashEmbed(query)
	type scored struct {
		entry Entry
		score float64
	}
	var candidates []scored
	for _, e := range s.entries {
		if domain != "" && e.Domain != domain {
			continue
		}
		candidates = append(candidates, scored{e, CosineSimilarity(queryVec, e.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.ID < candidates[j].entry.ID
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Entry, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].entry
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Bootstrap(ctx context.Context, defaults []Entry) error {
	for _, e := range defaults {
		if err := s.AddPrimitive(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
