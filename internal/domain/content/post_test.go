package content

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerr "postimport/internal/domain/errors"
)

func TestMetadataKeepsInsertionOrder(t *testing.T) {
	m := NewMetadata()
	m.Set("key", "hello")
	m.Set("title", "Hello")
	m.Set("published_at", int64(1))
	m.Set("title", "Overridden")

	assert.Equal(t, []string{"key", "title", "published_at"}, m.Keys())
	assert.Equal(t, "Overridden", m.String("title"))
}

func TestMetadataMergeOtherWins(t *testing.T) {
	base := NewMetadata()
	base.Set("key", "hello")
	base.Set("title", "Hello")

	fm := NewMetadata()
	fm.Set("title", "From front matter")
	fm.Set("cover_image", "cover.jpg")

	base.Merge(fm)

	assert.Equal(t, []string{"key", "title", "cover_image"}, base.Keys())
	assert.Equal(t, "From front matter", base.String("title"))
	assert.Equal(t, "hello", base.String("key"))
}

func TestMetadataJSONRoundTripPreservesOrder(t *testing.T) {
	m := NewMetadata()
	m.Set("zeta", "z")
	m.Set("alpha", 2)
	m.Set("word_count", 42)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":2,"word_count":42}`, string(b))

	got := NewMetadata()
	require.NoError(t, json.Unmarshal(b, got))
	assert.Equal(t, []string{"zeta", "alpha", "word_count"}, got.Keys())

	n, ok := got.Int64("word_count")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
}

func TestMetadataValidate(t *testing.T) {
	m := NewMetadata()
	m.Set(KeyKey, "hello")

	err := m.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerr.ErrInvalid))

	var ve domainerr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Items, 3)

	m.Set(KeyTitle, "Hello")
	m.Set(KeyPublishedAt, int64(1619827200))
	m.Set(KeyHTML, "")
	assert.NoError(t, m.Validate())
}
