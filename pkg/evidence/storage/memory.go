package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
)

// MemoryStorage implements the Storage interface using an in-memory map.
// Records do not survive a restart; use it for tests and "memory://".
type MemoryStorage struct {
	records map[string]*evidence.EvidenceRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.EvidenceRecord),
	}
}

// Store persists an evidence record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Query retrieves evidence records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.EvidenceRecord, error) {
	s.mu.RLock()
	results := []*evidence.EvidenceRecord{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			results = append(results, cloneRecord(record))
		}
	}
	s.mu.RUnlock()

	sortRecords(results, query.SortBy, query.SortOrder)

	start := min(query.Offset, len(results))
	results = results[start:]
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the number of evidence records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes evidence records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// PingContext always succeeds.
func (s *MemoryStorage) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.EvidenceRecord)
	return nil
}

// GetByID retrieves a single evidence record by ID.
func (s *MemoryStorage) GetByID(id string) *evidence.EvidenceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	return cloneRecord(record)
}

// Size returns the number of records in storage.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func cloneRecord(r *evidence.EvidenceRecord) *evidence.EvidenceRecord {
	c := *r
	c.Attempts = slices.Clone(r.Attempts)
	return &c
}

// matchesQuery mirrors the WHERE clause built by SQLStorage.
func matchesQuery(record *evidence.EvidenceRecord, query *evidence.Query) bool {
	if query.StartTime != nil && record.RequestTime.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && !record.RequestTime.Before(*query.EndTime) {
		return false
	}

	if query.RequestID != "" && record.RequestID != query.RequestID {
		return false
	}
	if query.Model != "" && record.Model != query.Model {
		return false
	}
	if query.ModelGroup != "" && record.ModelGroup != query.ModelGroup {
		return false
	}
	if query.KeyAlias != "" && record.KeyAlias != query.KeyAlias {
		return false
	}
	if query.Deployment != "" && record.Deployment != query.Deployment {
		return false
	}

	switch query.Status {
	case "success":
		return record.Error == ""
	case "error":
		return record.Error != ""
	}
	return true
}

func sortRecords(records []*evidence.EvidenceRecord, sortBy, order string) {
	key := func(r *evidence.EvidenceRecord) int64 {
		switch sortBy {
		case "latency":
			return int64(r.Latency)
		case "status":
			return int64(r.Status)
		default:
			return r.RequestTime.UnixNano()
		}
	}
	slices.SortStableFunc(records, func(a, b *evidence.EvidenceRecord) int {
		if order == "asc" {
			return cmp.Compare(key(a), key(b))
		}
		return cmp.Compare(key(b), key(a))
	})
}
