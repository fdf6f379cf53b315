package render

// Renderer turns a markdown body into an HTML fragment plus its headings.
type Renderer interface {
	Render(src []byte) (MarkdownResult, error)
}

var _ Renderer = (*MarkdownRenderer)(nil)
