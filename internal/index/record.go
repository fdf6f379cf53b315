package index

import (
	"context"
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Contains reports whether the asset key has already been uploaded.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bUploaded); b != nil {
			found = b.Get([]byte(key)) != nil
		}
		return nil
	})
	return found, err
}

// Add marks the asset key as uploaded.
func (s *Store) Add(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bUploaded)
		if err != nil {
			return err
		}
		v := make([]byte, 8)
		binary.BigEndian.PutUint64(v, uint64(time.Now().Unix()))
		return b.Put([]byte(key), v)
	})
}
