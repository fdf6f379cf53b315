package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"postimport/internal/assets"
	"postimport/internal/domain/content"
	domainerr "postimport/internal/domain/errors"
	"postimport/internal/logging"
	"postimport/internal/render"
	"postimport/internal/transform"
)

// Sink persists one finished post. Upsert semantics belong to the sink.
type Sink interface {
	Insert(ctx context.Context, post *content.Metadata) error
}

// Syncer brings the local corpus up to date before an import.
type Syncer interface {
	EnsureFresh(ctx context.Context, root string) error
}

type Warning struct {
	Key  string
	Path string
	Msg  string
}

type Result struct {
	// Imported counts documents handed to the sink successfully.
	Imported int
	Failed   []*domainerr.DocumentError
	Warnings []Warning
}

type Pipeline struct {
	sink        Sink
	syncer      Syncer
	uploader    transform.AssetUploader
	covers      bool
	renderer    render.Renderer
	transformer *transform.Transformer
	workers     int
	log         logging.Logger
}

type Option func(*Pipeline)

func WithSyncer(s Syncer) Option {
	return func(p *Pipeline) { p.syncer = s }
}

// WithUploader enables rewriting of local images. When covers is set the
// cover_image field is uploaded and measured as well.
func WithUploader(u transform.AssetUploader, covers bool) Option {
	return func(p *Pipeline) {
		p.uploader = u
		p.covers = covers
	}
}

// WithRenderer replaces the default goldmark renderer.
func WithRenderer(r render.Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.log = logging.OrNoOp(l) }
}

func NewPipeline(sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:     sink,
		renderer: render.NewMarkdownRenderer(),
		workers:  1,
		log:      logging.NoOp(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.transformer = transform.New(p.uploader)
	return p
}

type outcome struct {
	doc   SourceDocument
	key   string
	warns []Warning
	err   error
}

// Run imports every document under root and returns how many were persisted.
// A sync failure aborts the run. Any other failure skips only the document it
// belongs to. Cancellation is honoured between documents; a document that has
// started is always finished.
func (p *Pipeline) Run(ctx context.Context, root string, includeDrafts bool) (Result, error) {
	var res Result

	if p.syncer != nil {
		if err := p.syncer.EnsureFresh(ctx, root); err != nil {
			return res, domainerr.Kind(domainerr.ErrSyncFailure, err)
		}
	}

	docs, err := DiscoverSource(root, includeDrafts)
	if err != nil {
		return res, fmt.Errorf("discover %s: %w", CorpusDir(root, includeDrafts), err)
	}

	workers := p.workers
	if workers > len(docs) {
		workers = len(docs)
	}
	jobs := make(chan SourceDocument)
	results := make(chan outcome)

	// work already begun is not interrupted by ctx
	docCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				if ctx.Err() != nil {
					continue
				}
				key, warns, err := p.importDocument(docCtx, doc)
				results <- outcome{doc: doc, key: key, warns: warns, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, d := range docs {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		for _, w := range r.warns {
			p.log.Warn(w.Msg, "key", w.Key, "path", w.Path)
		}
		res.Warnings = append(res.Warnings, r.warns...)
		if r.err != nil {
			de := &domainerr.DocumentError{Key: r.key, Path: r.doc.Dir, Err: r.err}
			p.log.Error("Import failed", "key", r.key, "path", r.doc.Dir, "error", r.err)
			res.Failed = append(res.Failed, de)
			continue
		}
		res.Imported++
	}

	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Path < res.Failed[j].Path })

	if err := ctx.Err(); err != nil {
		p.log.Warn("Import interrupted", "imported", res.Imported)
		return res, err
	}
	p.log.Info("Done!", "imported", res.Imported, "failed", len(res.Failed))
	return res, nil
}

func (p *Pipeline) importDocument(ctx context.Context, doc SourceDocument) (string, []Warning, error) {
	name, err := ParseDocumentName(doc.Dir)
	if err != nil {
		return "", nil, err
	}
	slug := name.Slug
	p.log.Info("Importing", "key", slug)

	var warns []Warning
	warn := func(format string, args ...any) {
		warns = append(warns, Warning{Key: slug, Path: doc.Dir, Msg: fmt.Sprintf(format, args...)})
	}

	mdPath := doc.MarkdownPath(slug)
	raw, err := os.ReadFile(mdPath)
	if err != nil {
		return slug, warns, err
	}

	meta, body, err := ParseDocument(raw, doc.Dir)
	if err != nil {
		return slug, warns, err
	}
	seed := name.Seed()
	if _, ok := meta.Int64(content.KeyPublishedAt); !ok {
		bad, _ := meta.Get(content.KeyPublishedAt)
		seeded, _ := seed.Get(content.KeyPublishedAt)
		warn("front matter %s %q is not a timestamp, keeping %v", content.KeyPublishedAt, fmt.Sprint(bad), seeded)
		meta.Set(content.KeyPublishedAt, seeded)
	}
	for _, k := range []string{content.KeyKey, content.KeyPublishedAt} {
		before, _ := seed.Get(k)
		after, _ := meta.Get(k)
		if fmt.Sprint(before) != fmt.Sprint(after) {
			warn("front matter overrides %s: %v -> %v", k, before, after)
		}
	}

	if p.covers && p.uploader != nil {
		if cover := strings.TrimSpace(meta.String(content.KeyCoverImage)); cover != "" {
			if err := p.attachCover(ctx, meta, doc.Dir, slug, cover, warn); err != nil {
				return slug, warns, err
			}
		}
	}

	rendered, err := p.renderer.Render(body)
	if err != nil {
		return slug, warns, err
	}

	out, err := p.transformer.Transform(ctx, rendered.HTML, transform.Document{Dir: doc.Dir, Key: slug})
	if err != nil {
		return slug, warns, err
	}
	for _, w := range out.Warnings {
		warn("%s", w)
	}

	if out.Title != "" {
		meta.Set(content.KeyTitle, out.Title)
	}
	meta.Set(content.KeyHTML, out.HTML)
	meta.Set(content.KeyWordCount, out.WordCount)
	meta.Set(content.KeyExcerptHTML, out.ExcerptHTML)
	meta.Set(content.KeyExcerptText, out.ExcerptText)
	if toc := tableOfContents(rendered.Headings); len(toc) > 0 {
		meta.Set(content.KeyTOC, toc)
	}

	if err := meta.Validate(); err != nil {
		return slug, warns, err
	}
	if err := p.sink.Insert(ctx, meta); err != nil {
		return slug, warns, domainerr.Kind(domainerr.ErrPersistenceFailure, err)
	}
	return slug, warns, nil
}

func (p *Pipeline) attachCover(ctx context.Context, meta *content.Metadata, dir, slug, cover string, warn func(string, ...any)) error {
	local := filepath.Join(dir, cover)
	url, err := p.uploader.Upload(ctx, local, slug+"/"+cover)
	if err != nil {
		return fmt.Errorf("cover image: %w", err)
	}
	meta.Set(content.KeyCoverImage, url)

	w, h, err := assets.Dimensions(local)
	if err != nil {
		return fmt.Errorf("cover image %s: %w", cover, err)
	}
	meta.Set(content.KeyCoverImageWidth, w)
	meta.Set(content.KeyCoverImageHeight, h)

	color, err := assets.FileColor(local)
	if err != nil {
		warn("cover image color: %v", err)
		return nil
	}
	meta.Set(content.KeyCoverImageColor, color)
	return nil
}

// tableOfContents keeps section headings; the h1 becomes the title.
func tableOfContents(heads []render.Heading) []render.Heading {
	var out []render.Heading
	for _, h := range heads {
		if h.Level < 2 {
			continue
		}
		out = append(out, h)
	}
	return out
}
