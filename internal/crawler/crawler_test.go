package crawler

import (
	"errors"
	"testing"

	"github.com/alvmarrod/ref-weaver/internal/memory"
	"github.com/alvmarrod/ref-weaver/internal/objmodel"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// obj is a test object; refs are followed in order
type obj struct {
	name   string
	typ    string
	refs   []*obj
	broken bool
}

type graphModel struct {
	enumerations map[*obj]int
}

func newGraphModel() *graphModel {
	return &graphModel{enumerations: make(map[*obj]int)}
}

func (m *graphModel) TypeOf(o any) string { return o.(*obj).typ }

func (m *graphModel) NameOf(o any) string { return o.(*obj).name }

func (m *graphModel) References(o any) ([]any, error) {
	x := o.(*obj)
	m.enumerations[x]++
	if x.broken {
		return nil, objmodel.Unavailable(o, errors.New("opaque data"))
	}
	out := make([]any, len(x.refs))
	for i, r := range x.refs {
		out[i] = r
	}
	return out, nil
}

func names(nodes []*memory.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Object.(*obj).name
	}
	return out
}

func TestCrawlDiamond(t *testing.T) {
	d := &obj{name: "D", typ: "TD"}
	b := &obj{name: "B", typ: "TB", refs: []*obj{d}}
	c := &obj{name: "C", typ: "TC", refs: []*obj{d}}
	a := &obj{name: "A", typ: "TA", refs: []*obj{b, c}}

	m := newGraphModel()
	s := Crawl(m, a)

	assert.Equal(t, 4, s.Discovered())
	assert.Equal(t, []string{"TA", "TB", "TD", "TC"}, s.Groups().Types())
	for _, typ := range []string{"TA", "TB", "TC", "TD"} {
		assert.Len(t, s.Groups().Nodes(typ), 1, typ)
	}
	assert.Equal(t, 1, m.enumerations[d], "D must be visited exactly once")
	assert.Equal(t, []string{"A", "B", "D", "C"}, names(s.Nodes()))
}

func TestCrawlSelfReference(t *testing.T) {
	x := &obj{name: "X", typ: "TX"}
	x.refs = []*obj{x}

	s := Crawl(newGraphModel(), x)
	assert.Equal(t, 1, s.Discovered())
	assert.Equal(t, []string{"X"}, names(s.Groups().Nodes("TX")))
}

func TestCrawlLongCycle(t *testing.T) {
	const n = 10000
	nodes := make([]*obj, n)
	for i := range nodes {
		nodes[i] = &obj{name: "n", typ: "T"}
	}
	for i := range nodes {
		nodes[i].refs = []*obj{nodes[(i+1)%n]}
	}

	s := Crawl(newGraphModel(), nodes[0])
	assert.Equal(t, n, s.Discovered())
}

func TestCrawlNilRoot(t *testing.T) {
	s := Crawl(newGraphModel(), nil)
	assert.Equal(t, 0, s.Discovered())
	assert.Equal(t, 0, s.Groups().Len())

	var typed *obj
	s = Crawl(newGraphModel(), typed)
	assert.Equal(t, 0, s.Discovered())
}

func TestCrawlSkipsNilReferences(t *testing.T) {
	b := &obj{name: "B", typ: "T"}
	a := &obj{name: "A", typ: "T", refs: []*obj{nil, b, nil}}

	s := Crawl(newGraphModel(), a)
	assert.Equal(t, []string{"A", "B"}, names(s.Nodes()))
}

func TestCrawlTreatsUnenumerableObjectAsLeaf(t *testing.T) {
	hidden := &obj{name: "hidden", typ: "T"}
	opaque := &obj{name: "opaque", typ: "Blob", broken: true, refs: []*obj{hidden}}
	sibling := &obj{name: "sibling", typ: "T"}
	root := &obj{name: "root", typ: "T", refs: []*obj{opaque, sibling}}

	s := Crawl(newGraphModel(), root)
	assert.Equal(t, []string{"root", "opaque", "sibling"}, names(s.Nodes()))
}

func TestCrawlExcludedTypes(t *testing.T) {
	leaf := &obj{name: "leaf", typ: "Texture2D"}
	shader := &obj{name: "shader", typ: "Shader", refs: []*obj{leaf}}
	root := &obj{name: "root", typ: "Material", refs: []*obj{shader}}

	filter, err := NewTypeFilter([]string{"^Shader$"})
	require.NoError(t, err)

	c := NewCrawler(newGraphModel(), filter)
	var seen []string
	c.OnDiscover(func(n *memory.Node) { seen = append(seen, n.Object.(*obj).name) })
	s := c.Crawl(root)

	assert.Equal(t, []string{"root"}, names(s.Nodes()))
	assert.Equal(t, []string{"root"}, seen)
}

func TestCrawlExcludedRootIsReported(t *testing.T) {
	root := &obj{name: "root", typ: "Shader", refs: []*obj{{name: "leaf", typ: "Texture2D"}}}

	filter, err := NewTypeFilter([]string{"^Shader$"})
	require.NoError(t, err)

	hook := test.NewGlobal()
	defer hook.Reset()

	s := NewCrawler(newGraphModel(), filter).Crawl(root)
	assert.Equal(t, 0, s.Discovered())

	var infos []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel {
			infos = append(infos, e.Message)
		}
	}
	assert.Equal(t, []string{"Root root has excluded type Shader, nothing to crawl"}, infos)
}

func TestNewTypeFilterRejectsBadPattern(t *testing.T) {
	_, err := NewTypeFilter([]string{"("})
	assert.Error(t, err)

	var nilFilter *TypeFilter
	assert.False(t, nilFilter.Excluded("anything"))
}

func TestCrawlReflectModel(t *testing.T) {
	type asset struct {
		Name string
		Deps []*asset
	}
	shared := &asset{Name: "shared"}
	root := &asset{Name: "root", Deps: []*asset{shared, shared}}
	shared.Deps = []*asset{root}

	s := Crawl(objmodel.Reflect{}, root)
	assert.Equal(t, 2, s.Discovered())
	assert.Equal(t, 1, s.Groups().Len())
}

func TestIdentityOfSlicesAndMaps(t *testing.T) {
	backing := []int{1, 2, 3}
	k1, ok := identityOf(backing)
	require.True(t, ok)
	k2, _ := identityOf(backing)
	k3, _ := identityOf(backing[:2])
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	m := map[string]int{}
	mk1, ok := identityOf(m)
	require.True(t, ok)
	mk2, _ := identityOf(m)
	assert.Equal(t, mk1, mk2)

	_, ok = identityOf(func() {})
	assert.False(t, ok)
}

func TestFrontierPopsInPushOrder(t *testing.T) {
	f := newFrontier()
	f.pushAll([]any{"a", nil, "b", "c"})
	assert.Equal(t, 3, f.size())

	var got []any
	for {
		x, ok := f.pop()
		if !ok {
			break
		}
		got = append(got, x)
	}
	assert.Equal(t, []any{"a", "b", "c"}, got)
}
