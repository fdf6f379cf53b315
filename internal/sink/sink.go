// Package sink persists imported posts into SQL databases.
package sink

import (
	"encoding/json"
	"fmt"
	"strings"

	"postimport/internal/domain/content"
	domainerr "postimport/internal/domain/errors"
)

// row is the flattened form of a post shared by the SQL sinks. The full
// ordered record is kept alongside as JSON.
type row struct {
	Key         string
	Title       string
	PublishedAt int64
	HTML        string
	Metadata    string
}

func toRow(post *content.Metadata) (row, error) {
	key := strings.TrimSpace(post.String(content.KeyKey))
	if key == "" {
		return row{}, fmt.Errorf("%w: post without key", domainerr.ErrPersistenceFailure)
	}
	body, err := json.Marshal(post)
	if err != nil {
		return row{}, fmt.Errorf("%w: encode %s: %v", domainerr.ErrPersistenceFailure, key, err)
	}
	published, _ := post.Int64(content.KeyPublishedAt)
	return row{
		Key:         key,
		Title:       post.String(content.KeyTitle),
		PublishedAt: published,
		HTML:        post.String(content.KeyHTML),
		Metadata:    string(body),
	}, nil
}

func decodeMetadata(raw string) (*content.Metadata, error) {
	m := content.NewMetadata()
	if err := json.Unmarshal([]byte(raw), m); err != nil {
		return nil, err
	}
	return m, nil
}
