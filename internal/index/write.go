package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"
	"postimport/internal/domain/content"
	domainerr "postimport/internal/domain/errors"
)

// Insert upserts post by its key. A previous version of the same post is
// replaced together with its published_at index entry.
func (s *Store) Insert(ctx context.Context, post *content.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.TrimSpace(post.String(content.KeyKey))
	if key == "" {
		return fmt.Errorf("%w: post without key", domainerr.ErrPersistenceFailure)
	}
	published, _ := post.Int64(content.KeyPublishedAt)

	body, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domainerr.ErrPersistenceFailure, key, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		postsB := tx.Bucket(bPosts)
		idxB := tx.Bucket(bIdxPublished)

		if prev := postsB.Get([]byte(key)); prev != nil {
			old := content.NewMetadata()
			if err := json.Unmarshal(prev, old); err == nil {
				if ts, ok := old.Int64(content.KeyPublishedAt); ok {
					if err := idxB.Delete(makePublishedKey(ts, key)); err != nil {
						return err
					}
				}
			}
		}

		if err := postsB.Put([]byte(key), body); err != nil {
			return err
		}
		return idxB.Put(makePublishedKey(published, key), []byte{1})
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domainerr.ErrPersistenceFailure, key, err)
	}
	return nil
}
