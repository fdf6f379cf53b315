package index

import (
	"encoding/json"
	"errors"
	"strings"

	bolt "go.etcd.io/bbolt"
	"postimport/internal/domain/content"
)

var ErrNotFound = errors.New("not found")

type ListOptions struct {
	Page int
	Size int
}

func (s *Store) Get(key string) (*content.Metadata, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNotFound
	}
	m := content.NewMetadata()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bPosts)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// List returns posts newest first by published_at.
func (s *Store) List(opt ListOptions) ([]*content.Metadata, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)

	var out []*content.Metadata
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bIdxPublished)
		postsB := tx.Bucket(bPosts)
		if idx == nil || postsB == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := idx.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			key := postKeyFromPublishedKey(k)
			if key == "" {
				continue
			}
			v := postsB.Get([]byte(key))
			if v == nil {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}

			m := content.NewMetadata()
			if err := json.Unmarshal(v, m); err != nil {
				continue
			}
			out = append(out, m)
			if len(out) >= opt.Size {
				break
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bPosts); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}
