package history

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]Record)}
}

func (r *memoryRepository) Insert(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.Reference]; exists {
		return ErrDuplicateRecord
	}
	r.records[record.Reference] = record
	return nil
}

func (r *memoryRepository) GetByReference(_ context.Context, reference string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[reference]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return record, nil
}

func (r *memoryRepository) ListByAccount(_ context.Context, accountNumber string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var records []Record
	for _, record := range r.records {
		if record.SourceAccount == accountNumber || record.DestinationAccount == accountNumber {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.After(records[j].Timestamp) })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, reference string, status Status) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[reference]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if record.Status.Terminal() {
		return Record{}, ErrStatusFinal
	}
	record.Status = status
	r.records[reference] = record
	return record, nil
}
