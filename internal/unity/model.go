// Package unity exposes the assets of an editor project as a crawlable object
// graph. Serialized assets reference each other by GUID; GUIDs resolve to
// files through the .meta index kept in storage.
package unity

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alvmarrod/ref-weaver/internal/objmodel"
	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Asset is the handle of one project file. The model hands out exactly one
// handle per path, so handles compare equal iff they name the same file.
type Asset struct {
	GUID string
	Path string // absolute
	Type string
}

// Name returns the file name without extension, as the editor shows it
func (a *Asset) Name() string {
	base := filepath.Base(a.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Model resolves asset references through a GUID index
type Model struct {
	store *storage.Storage

	mu     sync.Mutex
	assets map[string]*Asset // path -> handle
}

// NewModel creates a model over an already built index
func NewModel(store *storage.Storage) *Model {
	return &Model{
		store:  store,
		assets: make(map[string]*Asset),
	}
}

// Open returns the handle of the asset at path
func (m *Model) Open(path string) (*Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("failed to open asset: %w", err)
	}

	rec, err := m.store.GetAssetByPath(abs)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Not indexed (no .meta); still crawlable, just not referenceable
		return m.handle(storage.Asset{Path: abs, Type: assetType(abs)}), nil
	}
	return m.handle(*rec), nil
}

func (m *Model) handle(rec storage.Asset) *Asset {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.assets[rec.Path]; ok {
		return a
	}
	a := &Asset{GUID: rec.GUID, Path: rec.Path, Type: rec.Type}
	m.assets[rec.Path] = a
	return a
}

// TypeOf returns the asset type
func (m *Model) TypeOf(obj any) string {
	if a, ok := obj.(*Asset); ok {
		return a.Type
	}
	return fmt.Sprintf("%T", obj)
}

// NameOf returns the asset name
func (m *Model) NameOf(obj any) string {
	if a, ok := obj.(*Asset); ok {
		return a.Name()
	}
	return ""
}

// Locate returns the asset's file path for the history lookup
func (m *Model) Locate(obj any) (string, error) {
	a, ok := obj.(*Asset)
	if !ok {
		return "", fmt.Errorf("%T is not an asset", obj)
	}
	return a.Path, nil
}

// References returns the assets referenced by GUID from a text serialized
// asset, in order of first appearance. Other files have no references.
func (m *Model) References(obj any) ([]any, error) {
	a, ok := obj.(*Asset)
	if !ok {
		return nil, objmodel.Unavailable(obj, errors.New("not an asset"))
	}
	if !yamlExts[strings.ToLower(filepath.Ext(a.Path))] {
		return nil, nil
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, objmodel.Unavailable(obj, err)
	}
	guids, err := ReferencedGUIDs(data)
	if err != nil {
		return nil, objmodel.Unavailable(obj, err)
	}

	refs := make([]any, 0, len(guids))
	for _, guid := range guids {
		rec, err := m.store.GetAsset(guid)
		if err != nil {
			return nil, objmodel.Unavailable(obj, err)
		}
		if rec == nil {
			logrus.Debugf("%s references unknown guid %s", a.Path, guid)
			continue
		}
		refs = append(refs, m.handle(*rec))
	}
	return refs, nil
}

// ReferencedGUIDs lists the distinct non-builtin GUIDs referenced by a text
// serialized asset, in document order
func ReferencedGUIDs(data []byte) ([]string, error) {
	if !bytes.HasPrefix(data, []byte("%YAML")) {
		return nil, errors.New("not a text serialized asset")
	}

	dec := yaml.NewDecoder(bytes.NewReader(normalize(data)))
	seen := make(map[string]bool)
	var guids []string

	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		walkGUIDs(&doc, func(guid string) {
			if IsBuiltin(guid) || seen[guid] {
				return
			}
			seen[guid] = true
			guids = append(guids, guid)
		})
	}
	return guids, nil
}

// walkGUIDs calls fn for the value of every "guid" key in the tree
func walkGUIDs(n *yaml.Node, fn func(string)) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Value == "guid" && val.Kind == yaml.ScalarNode {
				fn(val.Value)
				continue
			}
			walkGUIDs(val, fn)
		}
		return
	}
	for _, child := range n.Content {
		walkGUIDs(child, fn)
	}
}

// normalize rewrites the editor's document headers into plain YAML. Headers
// look like "--- !u!114 &11400000 stripped": the !u! tag handle is only
// declared once for the whole stream and "stripped" is not YAML at all.
func normalize(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	for _, line := range bytes.SplitAfter(data, []byte("\n")) {
		switch {
		case bytes.HasPrefix(line, []byte("%")):
			continue
		case bytes.HasPrefix(line, []byte("--- ")):
			out.WriteString("---\n")
		default:
			out.Write(line)
		}
	}
	return out.Bytes()
}
