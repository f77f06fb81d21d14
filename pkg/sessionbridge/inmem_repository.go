package sessionbridge

import (
	"context"
	"sync"
)

// InMemRepository keeps bridge records in process memory, for tests and
// single-node dev setups.
type InMemRepository struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewInMemRepository creates an empty InMemRepository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		data: make(map[string]map[string][]byte),
	}
}

func (r *InMemRepository) Get(_ context.Context, sid, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.data[sid]
	if !ok {
		return nil, false, nil
	}
	v, ok := bucket[key]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), v...)
	return out, true, nil
}

func (r *InMemRepository) Set(_ context.Context, sid, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.data[sid]
	if !ok {
		bucket = make(map[string][]byte)
		r.data[sid] = bucket
	}
	bucket[key] = append([]byte(nil), value...)
	return nil
}

func (r *InMemRepository) Delete(_ context.Context, sid, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bucket, ok := r.data[sid]; ok {
		delete(bucket, key)
	}
	return nil
}

func (r *InMemRepository) DeleteAll(_ context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sid)
	return nil
}
