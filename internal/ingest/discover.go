package ingest

import (
	"os"
	"path/filepath"
	"sort"
)

const (
	publishedDir = "published"
	draftsDir    = "drafts"
)

type SourceDocument struct {
	// Dir is the document directory (YYYY-MM-DD-slug).
	Dir string
}

// MarkdownPath is <dir>/<slug>.markdown.
func (d SourceDocument) MarkdownPath(slug string) string {
	return filepath.Join(d.Dir, slug+".markdown")
}

// CorpusDir returns the directory holding the documents to import.
func CorpusDir(root string, includeDrafts bool) string {
	if includeDrafts {
		return filepath.Join(root, draftsDir)
	}
	return filepath.Join(root, publishedDir)
}

// DiscoverSource lists the immediate subdirectories of the corpus directory,
// sorted by name. A missing corpus directory yields no documents.
func DiscoverSource(root string, includeDrafts bool) ([]SourceDocument, error) {
	dir := CorpusDir(root, includeDrafts)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []SourceDocument
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		out = append(out, SourceDocument{Dir: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out, nil
}
