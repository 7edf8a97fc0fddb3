package segment

import "sync/atomic"

// Node is a tree entry holding an optional segment. Nodes without a segment
// group related records under a display name.
type Node struct {
	name     string
	seg      *Segment
	children []*Node
	expanded atomic.Bool
}

// Tree is the decoded structure of one file.
type Tree struct {
	Root *Node
}

func NewTree() *Tree {
	return &Tree{Root: &Node{name: "root"}}
}

func (n *Node) Name() string       { return n.name }
func (n *Node) Segment() *Segment  { return n.seg }
func (n *Node) Children() []*Node  { return n.children }
func (n *Node) IsGroup() bool      { return n.seg == nil }
func (n *Node) Expanded() bool     { return n.expanded.Load() }
func (n *Node) SetExpanded(v bool) { n.expanded.Store(v) }

// AddSegment appends a child wrapping seg and returns it so sub-records can
// be attached underneath.
func (n *Node) AddSegment(seg *Segment) *Node {
	child := &Node{name: seg.Title, seg: seg}
	n.children = append(n.children, child)
	return child
}

// AddGroup appends a child with no segment.
func (n *Node) AddGroup(name string) *Node {
	child := &Node{name: name}
	n.children = append(n.children, child)
	return child
}

// All returns every descendant segment in breadth-first order, excluding n
// itself and skipping group nodes.
func (n *Node) All() []*Segment {
	var out []*Segment
	queue := append([]*Node(nil), n.children...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.seg != nil {
			out = append(out, cur.seg)
		}
		queue = append(queue, cur.children...)
	}
	return out
}

// FirstOffset is the start of the first segment found under n, used to
// scroll to a group.
func (n *Node) FirstOffset() (int, bool) {
	if n.seg != nil {
		return n.seg.Start, true
	}
	for _, c := range n.children {
		if off, ok := c.FirstOffset(); ok {
			return off, true
		}
	}
	return 0, false
}

// Walk visits descendants depth-first in discovery order. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(depth int, node *Node) bool) {
	n.walk(0, fn)
}

func (n *Node) walk(depth int, fn func(int, *Node) bool) {
	for _, c := range n.children {
		if fn(depth, c) {
			c.walk(depth+1, fn)
		}
	}
}

// SetExpandedAll sets the flag on n and every descendant.
func (n *Node) SetExpandedAll(v bool) {
	n.SetExpanded(v)
	for _, c := range n.children {
		c.SetExpandedAll(v)
	}
}

// Segments is Root.All.
func (t *Tree) Segments() []*Segment {
	return t.Root.All()
}
