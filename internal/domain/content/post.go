package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domainerr "postimport/internal/domain/errors"
)

// Well-known metadata keys.
const (
	KeyKey         = "key"
	KeyTitle       = "title"
	KeyPublishedAt = "published_at"
	KeyHTML        = "html"
	KeyWordCount   = "word_count"
	KeyExcerptHTML = "excerpt_html"
	KeyExcerptText = "excerpt_text"
	KeyTOC         = "toc"

	KeyCoverImage       = "cover_image"
	KeyCoverImageWidth  = "cover_image_width"
	KeyCoverImageHeight = "cover_image_height"
	KeyCoverImageColor  = "cover_image_color"
)

// Metadata is an insertion-ordered key/value record. Setting an existing key
// replaces the value in place and keeps its original position.
type Metadata struct {
	keys   []string
	values map[string]any
}

func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]any)}
}

func (m *Metadata) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Metadata) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *Metadata) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// String returns the value under key when it is a string, "" otherwise.
func (m *Metadata) String(key string) string {
	if s, ok := m.values[key].(string); ok {
		return s
	}
	return ""
}

// Int64 coerces numeric values, including ones that went through JSON.
func (m *Metadata) Int64(key string) (int64, bool) {
	switch v := m.values[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case time.Time:
		return v.UTC().Unix(), true
	}
	return 0, false
}

func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Metadata) Len() int {
	return len(m.keys)
}

// Merge overlays other onto m. Values from other win.
func (m *Metadata) Merge(other *Metadata) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

// Map returns a shallow copy as a plain map.
func (m *Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = m.values[k]
	}
	return out
}

// Validate checks the fields every sink relies on.
func (m *Metadata) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(m.String(KeyKey)) == "" {
		ve.Add(KeyKey, "must be a non-empty string")
	}
	if strings.TrimSpace(m.String(KeyTitle)) == "" {
		ve.Add(KeyTitle, "must be a non-empty string")
	}
	if _, ok := m.Int64(KeyPublishedAt); !ok {
		ve.Add(KeyPublishedAt, "must be an integer timestamp")
	}
	if _, ok := m.values[KeyHTML].(string); !ok {
		ve.Add(KeyHTML, "must be present")
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata: expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("metadata %q: %w", key, err)
		}
		m.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
