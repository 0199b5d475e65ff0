package storage

import (
	"bytes"
	"context"
	"sync"
)

type chunkID struct{ x, y int }

// MemoryStore keeps blobs in process memory. Nothing survives a restart.
type MemoryStore struct {
	mx    sync.RWMutex
	blobs map[chunkID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[chunkID][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, x, y int) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mx.RLock()
	defer s.mx.RUnlock()
	blob, ok := s.blobs[chunkID{x, y}]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(blob), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, x, y int, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mx.Lock()
	s.blobs[chunkID{x, y}] = bytes.Clone(blob)
	s.mx.Unlock()
	return nil
}

func (s *MemoryStore) Statistics() Statistics {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return Statistics{Driver: DriverMemory, Chunks: len(s.blobs)}
}

func (s *MemoryStore) Close() error {
	return nil
}
