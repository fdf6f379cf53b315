package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
	"postimport/internal/domain/content"
	domainerr "postimport/internal/domain/errors"
)

const frontMatterSep = "---"

var documentNamePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-([\w\-]+)$`)

// DocumentName is the identity encoded in a document directory name
// (YYYY-MM-DD-slug).
type DocumentName struct {
	Slug string
	Date time.Time
}

// ParseDocumentName accepts either the document directory or the markdown
// file inside it.
func ParseDocumentName(path string) (DocumentName, error) {
	p := filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(p)) {
	case ".markdown", ".md":
		p = filepath.Dir(p)
	}
	base := filepath.Base(p)

	m := documentNamePattern.FindStringSubmatch(base)
	if m == nil {
		return DocumentName{}, fmt.Errorf("%w: %q does not match YYYY-MM-DD-slug", domainerr.ErrInvalidDocumentName, base)
	}

	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	date := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if date.Year() != y || int(date.Month()) != mo || date.Day() != d {
		return DocumentName{}, fmt.Errorf("%w: %s-%s-%s", domainerr.ErrInvalidDate, m[1], m[2], m[3])
	}

	return DocumentName{Slug: m[4], Date: date}, nil
}

// Seed returns the metadata derived from the document name alone.
func (n DocumentName) Seed() *content.Metadata {
	md := content.NewMetadata()
	md.Set(content.KeyKey, n.Slug)
	md.Set(content.KeyTitle, capitalize(n.Slug))
	md.Set(content.KeyPublishedAt, n.Date.Unix())
	return md
}

// ParseDocument seeds metadata from path and overlays the front matter found
// at the top of raw. The returned body has the front matter block removed.
func ParseDocument(raw []byte, path string) (*content.Metadata, []byte, error) {
	name, err := ParseDocumentName(path)
	if err != nil {
		return nil, nil, err
	}
	meta := name.Seed()

	fm, body, err := ParseFrontMatter(raw)
	if err != nil {
		return nil, nil, err
	}
	meta.Merge(fm)
	return meta, body, nil
}

// ParseFrontMatter splits raw into its front matter mapping and body. Without
// a complete delimiter pair the mapping is empty and body is the whole input.
func ParseFrontMatter(raw []byte) (*content.Metadata, []byte, error) {
	// normalise line endings
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))

	block, body, ok := splitFrontMatter(norm)
	if !ok {
		return content.NewMetadata(), norm, nil
	}
	fm, err := decodeFrontMatter(block)
	if err != nil {
		return nil, nil, err
	}
	return fm, body, nil
}

func splitFrontMatter(src []byte) (block, body []byte, ok bool) {
	first, rest, found := bytes.Cut(src, []byte("\n"))
	if !found || !isSepLine(first) {
		return nil, nil, false
	}

	off := 0
	for off <= len(rest) {
		line := rest[off:]
		next := len(rest)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = off + i + 1
		}
		if isSepLine(line) {
			return rest[:off], rest[next:], true
		}
		if next == len(rest) {
			break
		}
		off = next
	}
	return nil, nil, false
}

func isSepLine(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == frontMatterSep
}

func decodeFrontMatter(block []byte) (*content.Metadata, error) {
	fm := content.NewMetadata()
	if len(bytes.TrimSpace(block)) == 0 {
		return fm, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerr.ErrMalformedFrontMatter, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return fm, nil
		}
		root = root.Content[0]
	}
	switch {
	case root.Kind == 0:
		return fm, nil
	case root.Kind == yaml.ScalarNode && root.Tag == "!!null":
		return fm, nil
	case root.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("%w: top level must be a mapping", domainerr.ErrMalformedFrontMatter)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		var key string
		if err := root.Content[i].Decode(&key); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domainerr.ErrMalformedFrontMatter, root.Content[i].Line, err)
		}
		node := root.Content[i+1]
		// identity fields are text even when they read as numbers
		if (key == content.KeyKey || key == content.KeyTitle) && node.Kind == yaml.ScalarNode && node.Tag != "!!null" {
			var text string
			if err := node.Decode(&text); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", domainerr.ErrMalformedFrontMatter, key, err)
			}
			fm.Set(key, text)
			continue
		}
		if key == content.KeyPublishedAt && node.Kind == yaml.ScalarNode && node.ShortTag() == "!!timestamp" {
			var at time.Time
			if err := node.Decode(&at); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", domainerr.ErrMalformedFrontMatter, key, err)
			}
			fm.Set(key, at.UTC().Unix())
			continue
		}
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domainerr.ErrMalformedFrontMatter, key, err)
		}
		fm.Set(key, stringKeys(value))
	}
	return fm, nil
}

// stringKeys rewrites mappings keyed by non-strings so every value encodes
// as JSON.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	}
	return v
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
