// Package htmlsite exposes a static site on disk as a crawlable object graph:
// pages reference the local files they link, embed or load.
package htmlsite

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alvmarrod/ref-weaver/internal/objmodel"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Page is the handle of one file of the site. The model hands out one
// handle per path.
type Page struct {
	Path string // absolute
	Kind string
}

// URL returns the file URL of the page
func (p *Page) URL() string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p.Path)}).String()
}

// linkSelector matches every element whose attribute names another file.
// goquery returns group matches in document order.
const linkSelector = "a[href], link[href], script[src], img[src], iframe[src], source[src], video[src], audio[src]"

// linkAttr returns the attribute holding the link of element name
func linkAttr(name string) string {
	switch name {
	case "a", "link":
		return "href"
	}
	return "src"
}

// Model reads links with a colly collector served from the local file system
type Model struct {
	root      string
	collector *colly.Collector

	mu    sync.Mutex
	pages map[string]*Page
}

// NewModel creates a model for the site under root. Links leaving root are ignored.
func NewModel(root string) (*Model, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	t := &http.Transport{}
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(t)

	return &Model{
		root:      absRoot,
		collector: c,
		pages:     make(map[string]*Page),
	}, nil
}

// Open returns the handle of the file at path
func (m *Model) Open(path string) (*Page, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if info.IsDir() {
		index := filepath.Join(abs, "index.html")
		if _, err := os.Stat(index); err != nil {
			return nil, fmt.Errorf("%s is a directory without index.html", abs)
		}
		abs = index
	}
	return m.page(abs), nil
}

func (m *Model) page(abs string) *Page {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pages[abs]; ok {
		return p
	}
	p := &Page{Path: abs, Kind: kindOf(abs)}
	m.pages[abs] = p
	return p
}

// TypeOf returns the page kind
func (m *Model) TypeOf(obj any) string {
	if p, ok := obj.(*Page); ok {
		return p.Kind
	}
	return fmt.Sprintf("%T", obj)
}

// NameOf returns the path relative to the site root
func (m *Model) NameOf(obj any) string {
	p, ok := obj.(*Page)
	if !ok {
		return ""
	}
	if rel, err := filepath.Rel(m.root, p.Path); err == nil {
		return filepath.ToSlash(rel)
	}
	return p.Path
}

// Locate returns the page's file path for the history lookup
func (m *Model) Locate(obj any) (string, error) {
	p, ok := obj.(*Page)
	if !ok {
		return "", fmt.Errorf("%T is not a page", obj)
	}
	return p.Path, nil
}

// References returns the local files an HTML document points to, in document
// order. Other files have no references.
func (m *Model) References(obj any) ([]any, error) {
	p, ok := obj.(*Page)
	if !ok {
		return nil, objmodel.Unavailable(obj, errors.New("not a page"))
	}
	if p.Kind != KindDocument {
		return nil, nil
	}

	var links []string
	var fetchErr error

	c := m.collector.Clone()
	c.OnHTML(linkSelector, func(e *colly.HTMLElement) {
		links = append(links, e.Request.AbsoluteURL(e.Attr(linkAttr(e.Name))))
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(p.URL()); err != nil {
		return nil, objmodel.Unavailable(obj, err)
	}
	if fetchErr != nil {
		return nil, objmodel.Unavailable(obj, fetchErr)
	}

	refs := make([]any, 0, len(links))
	for _, link := range links {
		target, ok := m.resolve(link)
		if !ok {
			continue
		}
		refs = append(refs, m.page(target))
	}
	return refs, nil
}

// resolve maps an absolute link to a file under the site root
func (m *Model) resolve(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "file" {
		return "", false
	}

	path := filepath.Clean(filepath.FromSlash(u.Path))
	if path != m.root && !strings.HasPrefix(path, m.root+string(filepath.Separator)) {
		logrus.Debugf("Ignoring link outside site root: %s", link)
		return "", false
	}

	info, err := os.Stat(path)
	if err != nil {
		logrus.Debugf("Ignoring broken link: %s", link)
		return "", false
	}
	if info.IsDir() {
		path = filepath.Join(path, "index.html")
		if _, err := os.Stat(path); err != nil {
			return "", false
		}
	}
	return path, true
}
