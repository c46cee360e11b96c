package memory

// TypeGroup maps a type tag to its nodes. Types iterate in the order their
// first node was discovered, nodes in discovery order within a type.
type TypeGroup struct {
	order []string
	nodes map[string][]*Node
}

// NewTypeGroup creates an empty grouping
func NewTypeGroup() *TypeGroup {
	return &TypeGroup{
		nodes: make(map[string][]*Node),
	}
}

func (g *TypeGroup) add(n *Node) {
	if _, exists := g.nodes[n.Type]; !exists {
		g.order = append(g.order, n.Type)
	}
	g.nodes[n.Type] = append(g.nodes[n.Type], n)
}

// Types returns the type tags in first-discovery order
func (g *TypeGroup) Types() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Nodes returns the nodes of one type, nil if the type was never seen
func (g *TypeGroup) Nodes(typ string) []*Node {
	list, ok := g.nodes[typ]
	if !ok {
		return nil
	}
	out := make([]*Node, len(list))
	copy(out, list)
	return out
}

// Len returns the number of distinct types
func (g *TypeGroup) Len() int {
	return len(g.order)
}

// Size returns the total number of nodes across all types
func (g *TypeGroup) Size() int {
	total := 0
	for _, list := range g.nodes {
		total += len(list)
	}
	return total
}
