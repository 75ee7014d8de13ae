package engine

import (
	"context"
	"sync"
)

// Partition selects one of the two key/value store areas the extension
// platform provides.
type Partition string

const (
	// PartitionSync is replicated across the user's devices.
	PartitionSync Partition = "sync"
	// PartitionLocal stays on the current device.
	PartitionLocal Partition = "local"
)

// Storage is the external key/value store contract. Values are raw JSON.
// Get returns (nil, nil) for an absent key; callers distinguish "no value"
// from a store failure that way.
type Storage interface {
	Get(ctx context.Context, partition Partition, key string) ([]byte, error)
	Set(ctx context.Context, partition Partition, key string, value []byte) error
	Remove(ctx context.Context, partition Partition, key string) error
	Clear(ctx context.Context, partition Partition) error
}

// MemoryStorage is an in-process Storage, used in tests and as the default
// backend when the embedding host supplies none.
type MemoryStorage struct {
	mu         sync.RWMutex
	partitions map[Partition]map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		partitions: map[Partition]map[string][]byte{
			PartitionSync:  {},
			PartitionLocal: {},
		},
	}
}

func (s *MemoryStorage) Get(_ context.Context, partition Partition, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.partitions[partition][key]
	if !ok {
		return nil, nil
	}
	// Hand out a copy so callers can't mutate stored state.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStorage) Set(_ context.Context, partition Partition, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partitions[partition] == nil {
		s.partitions[partition] = map[string][]byte{}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.partitions[partition][key] = stored
	return nil
}

func (s *MemoryStorage) Remove(_ context.Context, partition Partition, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions[partition], key)
	return nil
}

func (s *MemoryStorage) Clear(_ context.Context, partition Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions[partition] = map[string][]byte{}
	return nil
}
