package memory

import (
	"sync/atomic"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/vcs"
)

// AnnotationState tells whether a node's history has been fetched
type AnnotationState int

const (
	Unfetched AnnotationState = iota
	Succeeded
	Failed
)

func (s AnnotationState) String() string {
	switch s {
	case Succeeded:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unfetched"
	}
}

// Annotation is the outcome of one history fetch
type Annotation struct {
	State  AnnotationState
	Record *vcs.Record
}

// Node is one distinct object discovered by a crawl
type Node struct {
	Object any
	Type   string
	Index  int // position in global discovery order

	annotation atomic.Pointer[Annotation]
}

// Annotation returns the current annotation. Readers racing with the
// annotator see Unfetched until the write lands.
func (n *Node) Annotation() Annotation {
	if a := n.annotation.Load(); a != nil {
		return *a
	}
	return Annotation{}
}

// Annotate stores the fetch outcome. Returns false if the node was already annotated.
func (n *Node) Annotate(a Annotation) bool {
	if a.State == Unfetched {
		return false
	}
	return n.annotation.CompareAndSwap(nil, &a)
}

// Session holds the result of one crawl: visited identities, nodes in
// discovery order, and their grouping by type
type Session struct {
	visited   map[any]struct{}
	nodes     []*Node
	groups    *TypeGroup
	CreatedAt time.Time
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{
		visited:   make(map[any]struct{}),
		groups:    NewTypeGroup(),
		CreatedAt: time.Now(),
	}
}

// Visit marks an identity as visited. Returns false if it was seen before.
func (s *Session) Visit(identity any) bool {
	if _, seen := s.visited[identity]; seen {
		return false
	}
	s.visited[identity] = struct{}{}
	return true
}

// Add records a newly discovered object and returns its node
func (s *Session) Add(obj any, typ string) *Node {
	node := &Node{
		Object: obj,
		Type:   typ,
		Index:  len(s.nodes),
	}
	s.nodes = append(s.nodes, node)
	s.groups.add(node)
	return node
}

// Nodes returns every node in discovery order, across all types
func (s *Session) Nodes() []*Node {
	out := make([]*Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Groups returns the type grouping of the discovered nodes
func (s *Session) Groups() *TypeGroup {
	return s.groups
}

// Discovered returns the number of distinct objects found
func (s *Session) Discovered() int {
	return len(s.nodes)
}

// GetStats returns the number of types and nodes, and how many nodes carry
// each annotation state
func (s *Session) GetStats() Stats {
	st := Stats{Types: s.groups.Len(), Nodes: len(s.nodes)}
	for _, n := range s.nodes {
		switch n.Annotation().State {
		case Succeeded:
			st.Annotated++
		case Failed:
			st.Failed++
		}
	}
	return st
}

// Stats summarizes a session
type Stats struct {
	Types     int
	Nodes     int
	Annotated int
	Failed    int
}
