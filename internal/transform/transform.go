// Package transform post-processes a rendered post body: it promotes the
// leading heading to the title, moves local images to object storage and
// derives word count and excerpt from the resulting tree.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	excerptBlocks = 3
	// photo-row layouts only have responsive sizes for up to four images.
	maxPhotoRowImages = 4
	photoRowTag       = "photo-row"
)

// AssetUploader stores a local file under a logical key and returns its URL.
type AssetUploader interface {
	Upload(ctx context.Context, localPath, logicalKey string) (string, error)
}

// Document identifies where local image references are resolved from and
// which key prefix their uploads use.
type Document struct {
	Dir string
	Key string
}

type Result struct {
	// Title is the text of the removed leading h1, empty if there was none.
	Title       string
	HTML        string
	WordCount   int
	ExcerptHTML string
	ExcerptText string
	Warnings    []string
}

type Transformer struct {
	uploader AssetUploader
}

// New returns a Transformer. A nil uploader leaves image references alone.
func New(uploader AssetUploader) *Transformer {
	return &Transformer{uploader: uploader}
}

func (t *Transformer) Transform(ctx context.Context, src []byte, doc Document) (Result, error) {
	root, err := parseFragment(src)
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	var res Result
	res.Title = removeTitleHeading(root)

	if err := t.rewriteImages(ctx, root, doc); err != nil {
		return Result{}, err
	}
	res.Warnings = checkPhotoRows(root)

	out, err := renderChildren(root)
	if err != nil {
		return Result{}, fmt.Errorf("render html: %w", err)
	}
	res.HTML = strings.TrimSpace(out)
	res.WordCount = countWords(textContent(root))

	res.ExcerptHTML, res.ExcerptText, err = excerpt(root)
	if err != nil {
		return Result{}, fmt.Errorf("render excerpt: %w", err)
	}
	return res, nil
}

func parseFragment(src []byte) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(src), body)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// removeTitleHeading drops the first top-level h1 and returns its trimmed text.
func removeTitleHeading(root *html.Node) string {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.H1 {
			title := strings.TrimSpace(textContent(c))
			root.RemoveChild(c)
			return title
		}
	}
	return ""
}

func (t *Transformer) rewriteImages(ctx context.Context, root *html.Node, doc Document) error {
	if t.uploader == nil {
		return nil
	}
	for _, img := range findAll(root, atom.Img) {
		src, ok := attr(img, "src")
		if !ok || src == "" || strings.HasPrefix(src, "http") {
			continue
		}
		local := filepath.Join(doc.Dir, filepath.FromSlash(src))
		info, err := os.Stat(local)
		if err != nil || info.IsDir() {
			// not ours to upload
			continue
		}
		url, err := t.uploader.Upload(ctx, local, doc.Key+"/"+src)
		if err != nil {
			return fmt.Errorf("upload %s: %w", src, err)
		}
		setAttr(img, "src", url)
	}
	return nil
}

func checkPhotoRows(root *html.Node) []string {
	var warns []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == photoRowTag {
				if count := len(findAll(c, atom.Img)); count > maxPhotoRowImages {
					warns = append(warns, fmt.Sprintf("photo-row has %d images, at most %d are supported", count, maxPhotoRowImages))
				}
			}
			walk(c)
		}
	}
	walk(root)
	return warns
}

// excerpt takes the first excerptBlocks top-level children that are neither
// blank nor h2/h3 section headings.
func excerpt(root *html.Node) (string, string, error) {
	var htmlParts, textParts []string
	for c := root.FirstChild; c != nil && len(htmlParts) < excerptBlocks; c = c.NextSibling {
		s, err := renderNode(c)
		if err != nil {
			return "", "", err
		}
		if strings.TrimSpace(s) == "" || isSectionHeading(c) {
			continue
		}
		htmlParts = append(htmlParts, s)
		textParts = append(textParts, textContent(c))
	}
	return strings.Join(htmlParts, ""), strings.Join(textParts, " "), nil
}

func isSectionHeading(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.DataAtom == atom.H2 || n.DataAtom == atom.H3)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
