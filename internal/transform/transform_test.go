package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath, logicalKey string) (string, error) {
	args := m.Called(ctx, localPath, logicalKey)
	return args.String(0), args.Error(1)
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
	return p
}

func TestTransformPromotesHeading(t *testing.T) {
	tr := New(nil)
	res, err := tr.Transform(context.Background(), []byte("<h1 id=\"hello\">Hello</h1>\n<p>World</p>\n"), Document{Dir: t.TempDir(), Key: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "Hello", res.Title)
	assert.Equal(t, "<p>World</p>", res.HTML)
	assert.NotContains(t, res.HTML, "<h1")
	assert.Equal(t, 1, res.WordCount)
	assert.Equal(t, "<p>World</p>", res.ExcerptHTML)
	assert.Equal(t, "World", res.ExcerptText)
}

func TestTransformWithoutHeadingKeepsTitleEmpty(t *testing.T) {
	tr := New(nil)
	res, err := tr.Transform(context.Background(), []byte("<p>Just text</p><h2>Sub</h2>"), Document{})
	require.NoError(t, err)
	assert.Empty(t, res.Title)
	assert.Contains(t, res.HTML, "<h2>Sub</h2>")
}

func TestTransformRemovesEmptyHeadingWithoutTitle(t *testing.T) {
	tr := New(nil)
	res, err := tr.Transform(context.Background(), []byte("<h1>  </h1><p>Body</p>"), Document{})
	require.NoError(t, err)
	assert.Empty(t, res.Title)
	assert.Equal(t, "<p>Body</p>", res.HTML)
}

func TestTransformOnlyFirstHeadingPromoted(t *testing.T) {
	tr := New(nil)
	res, err := tr.Transform(context.Background(), []byte("<h1>One</h1><p>x</p><h1>Two</h1>"), Document{})
	require.NoError(t, err)
	assert.Equal(t, "One", res.Title)
	assert.Equal(t, "<p>x</p><h1>Two</h1>", res.HTML)
}

func TestExcerptSkipsSectionHeadings(t *testing.T) {
	tr := New(nil)
	res, err := tr.Transform(context.Background(), []byte("<p>A</p><h2>Skip</h2><p>B</p><p>C</p><p>D</p>"), Document{})
	require.NoError(t, err)

	assert.Equal(t, "<p>A</p><p>B</p><p>C</p>", res.ExcerptHTML)
	assert.Equal(t, "A B C", res.ExcerptText)
}

func TestExcerptShortDocument(t *testing.T) {
	tr := New(nil)
	res, err := tr.Transform(context.Background(), []byte("\n<h3>Only heading</h3>\n<blockquote><p>Quote</p></blockquote>\n"), Document{})
	require.NoError(t, err)
	assert.Equal(t, "<blockquote><p>Quote</p></blockquote>", res.ExcerptHTML)
	assert.Equal(t, "Quote", res.ExcerptText)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 3, countWords("one  two\nthree"))
	assert.Equal(t, 2, countWords("  leading and  "))
	assert.Equal(t, 0, countWords(" \n\t"))
}

func TestTransformUploadsLocalImages(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.png")
	nested := writeFile(t, dir, "img/nested.jpg")

	up := new(MockUploader)
	up.On("Upload", mock.Anything, local, "hello/local.png").Return("https://b.s3.amazonaws.com/hello/local.png", nil).Once()
	up.On("Upload", mock.Anything, nested, "hello/img/nested.jpg").Return("https://b.s3.amazonaws.com/hello/img/nested.jpg", nil).Once()

	src := `<p><img src="local.png" alt="a"></p><figure><img src="img/nested.jpg"></figure>`
	res, err := New(up).Transform(context.Background(), []byte(src), Document{Dir: dir, Key: "hello"})
	require.NoError(t, err)

	assert.Contains(t, res.HTML, `src="https://b.s3.amazonaws.com/hello/local.png"`)
	assert.Contains(t, res.HTML, `alt="a"`)
	assert.Contains(t, res.HTML, `src="https://b.s3.amazonaws.com/hello/img/nested.jpg"`)
	up.AssertExpectations(t)
}

func TestTransformLeavesMissingAndRemoteImages(t *testing.T) {
	up := new(MockUploader)

	src := `<p><img src="local.png"><img src="http://x/y.png"><img src="https://x/z.png"><img></p>`
	res, err := New(up).Transform(context.Background(), []byte(src), Document{Dir: t.TempDir(), Key: "hello"})
	require.NoError(t, err)

	assert.Contains(t, res.HTML, `src="local.png"`)
	assert.Contains(t, res.HTML, `src="http://x/y.png"`)
	assert.Contains(t, res.HTML, `src="https://x/z.png"`)
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransformUploadFailureAbortsDocument(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.png")

	boom := errors.New("network down")
	up := new(MockUploader)
	up.On("Upload", mock.Anything, local, "hello/local.png").Return("", boom)

	_, err := New(up).Transform(context.Background(), []byte(`<img src="local.png">`), Document{Dir: dir, Key: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestTransformWarnsOnOversizedPhotoRow(t *testing.T) {
	imgs := strings.Repeat(`<img src="http://x/a.jpg">`, 5)
	src := `<photo-row>` + imgs + `</photo-row><photo-row><img src="http://x/b.jpg"></photo-row>`

	res, err := New(nil).Transform(context.Background(), []byte(src), Document{})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "5 images")
}
