package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var chunkBucket = []byte("terrain_chunks")

// BoltStore keeps blobs in a single bbolt file, one key per chunk.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open bolt store: empty path")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chunkBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(ctx context.Context, x, y int) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// values are only valid inside the transaction
		if v := tx.Bucket(chunkBucket).Get(chunkKey(x, y)); v != nil {
			blob = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("load chunk (%d,%d): %w", x, y, err)
	}
	return blob, blob != nil, nil
}

func (s *BoltStore) Save(ctx context.Context, x, y int, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chunkBucket).Put(chunkKey(x, y), blob)
	})
	if err != nil {
		return fmt.Errorf("save chunk (%d,%d): %w", x, y, err)
	}
	return nil
}

func (s *BoltStore) Statistics() Statistics {
	st := Statistics{Driver: DriverBolt}
	_ = s.db.View(func(tx *bolt.Tx) error {
		st.Chunks = tx.Bucket(chunkBucket).Stats().KeyN
		return nil
	})
	return st
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
