package htmlsite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alvmarrod/ref-weaver/internal/crawler"
	"github.com/alvmarrod/ref-weaver/internal/objmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newSite lays out a small site and returns its root
func newSite(t *testing.T) string {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "index.html"), `<html><head>
<link rel="stylesheet" href="css/site.css">
<script src="js/app.js"></script>
</head><body>
<a href="about.html#team">About</a>
<a href="https://example.com/">External</a>
<a href="missing.html">Broken</a>
<img src="img/logo.png">
<a href="index.html">Home</a>
</body></html>`)
	writeFile(t, filepath.Join(root, "about.html"), `<html><body>
<a href="index.html">Home</a>
<img src="img/logo.png">
</body></html>`)
	writeFile(t, filepath.Join(root, "css", "site.css"), "body { color: red; }")
	writeFile(t, filepath.Join(root, "js", "app.js"), "console.log('hi')")
	writeFile(t, filepath.Join(root, "img", "logo.png"), "\x89PNG")

	return root
}

func TestPageReferences(t *testing.T) {
	root := newSite(t)
	m, err := NewModel(root)
	require.NoError(t, err)

	index, err := m.Open(filepath.Join(root, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, KindDocument, m.TypeOf(index))
	assert.Equal(t, "index.html", m.NameOf(index))

	refs, err := m.References(index)
	require.NoError(t, err)

	var names []string
	for _, r := range refs {
		names = append(names, m.NameOf(r))
	}
	assert.Equal(t, []string{"css/site.css", "js/app.js", "about.html", "img/logo.png", "index.html"}, names)
	assert.Same(t, index, refs[4], "self link resolves to the same handle")
}

func TestReferencesFollowDocumentOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "page.html"), `<html><body>
<img src="a.png">
<a href="b.html">B</a>
<video src="c.mp4"></video>
<link rel="icon" href="d.ico">
</body></html>`)
	writeFile(t, filepath.Join(root, "a.png"), "png")
	writeFile(t, filepath.Join(root, "b.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "c.mp4"), "mp4")
	writeFile(t, filepath.Join(root, "d.ico"), "ico")

	m, err := NewModel(root)
	require.NoError(t, err)
	page, err := m.Open(filepath.Join(root, "page.html"))
	require.NoError(t, err)

	refs, err := m.References(page)
	require.NoError(t, err)

	var names []string
	for _, r := range refs {
		names = append(names, m.NameOf(r))
	}
	assert.Equal(t, []string{"a.png", "b.html", "c.mp4", "d.ico"}, names)
}

func TestLinkAttr(t *testing.T) {
	assert.Equal(t, "href", linkAttr("a"))
	assert.Equal(t, "href", linkAttr("link"))
	assert.Equal(t, "src", linkAttr("img"))
	assert.Equal(t, "src", linkAttr("source"))
}

func TestNonDocumentIsLeaf(t *testing.T) {
	root := newSite(t)
	m, err := NewModel(root)
	require.NoError(t, err)

	css, err := m.Open(filepath.Join(root, "css", "site.css"))
	require.NoError(t, err)
	assert.Equal(t, "Stylesheet", m.TypeOf(css))

	refs, err := m.References(css)
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = m.References(42)
	assert.ErrorIs(t, err, objmodel.ErrEnumerationUnavailable)
}

func TestOpenDirectoryUsesIndex(t *testing.T) {
	root := newSite(t)
	m, err := NewModel(root)
	require.NoError(t, err)

	p, err := m.Open(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.root, "index.html"), p.Path)

	_, err = m.Open(filepath.Join(root, "css"))
	assert.Error(t, err)
}

func TestCrawlSite(t *testing.T) {
	root := newSite(t)
	m, err := NewModel(root)
	require.NoError(t, err)

	index, err := m.Open(filepath.Join(root, "index.html"))
	require.NoError(t, err)

	s := crawler.Crawl(m, index)
	assert.Equal(t, 5, s.Discovered())
	assert.Equal(t, []string{KindDocument, "Stylesheet", "Script", "Image"}, s.Groups().Types())
	assert.Len(t, s.Groups().Nodes(KindDocument), 2)

	path, err := m.Locate(s.Nodes()[0].Object)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.root, "index.html"), path)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindDocument, kindOf("a/B.HTM"))
	assert.Equal(t, "Font", kindOf("f.woff2"))
	assert.Equal(t, "File", kindOf("README"))
}
