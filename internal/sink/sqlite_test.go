package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postimport/internal/domain/content"
	domainerr "postimport/internal/domain/errors"
)

func samplePost(title string) *content.Metadata {
	m := content.NewMetadata()
	m.Set(content.KeyKey, "hello")
	m.Set(content.KeyTitle, title)
	m.Set(content.KeyPublishedAt, int64(1619827200))
	m.Set(content.KeyHTML, "<p>World</p>")
	m.Set(content.KeyWordCount, 1)
	return m
}

func TestSQLiteInsertAndUpsert(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "posts.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(ctx, samplePost("Hello")))
	require.NoError(t, s.Insert(ctx, samplePost("Hello again")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got.String(content.KeyTitle))
	assert.Equal(t, []string{"key", "title", "published_at", "html", "word_count"}, got.Keys())
}

func TestSQLiteGetMissing(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRejectsKeylessPost(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	defer s.Close()

	err = s.Insert(context.Background(), content.NewMetadata())
	assert.ErrorIs(t, err, domainerr.ErrPersistenceFailure)
}
