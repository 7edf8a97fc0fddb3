// Package outline projects a decoded segment tree into plain values for
// renderers: JSON-ready nodes for the HTTP API and an indented text form for
// terminals.
package outline

import (
	"encoding/hex"

	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

// Node is one tree entry. Group nodes carry only a name and children.
type Node struct {
	Name      string             `json:"name"`
	Group     bool               `json:"group,omitempty"`
	Range     *view.Bound        `json:"range,omitempty"`
	Color     string             `json:"color,omitempty"`
	Title     string             `json:"title,omitempty"`
	Fields    []Field            `json:"fields,omitempty"`
	Fragments []segment.Fragment `json:"fragments,omitempty"`
	Children  []Node             `json:"children,omitempty"`
}

// Field is one materialised field view.
type Field struct {
	Bound     view.Bound `json:"bound"`
	StartMask byte       `json:"start_mask"`
	EndMask   byte       `json:"end_mask"`
	Value     any        `json:"value"`
	Writable  bool       `json:"writable"`
	Editor    string     `json:"editor"`
}

// Build materialises every segment under tree against buf, in discovery
// order. buf must not change while Build runs.
func Build(tree *segment.Tree, buf []byte) []Node {
	return nodes(tree.Root.Children(), buf)
}

func nodes(children []*segment.Node, buf []byte) []Node {
	if len(children) == 0 {
		return nil
	}
	out := make([]Node, 0, len(children))
	for _, c := range children {
		n := Node{Name: c.Name(), Children: nodes(c.Children(), buf)}
		if seg := c.Segment(); seg != nil {
			b := seg.Bound()
			n.Range = &b
			n.Color = seg.Color
			n.Title = seg.Title
			n.Fields = Fields(seg, buf)
			n.Fragments = seg.Fragments
		} else {
			n.Group = true
		}
		out = append(out, n)
	}
	return out
}

// Fields materialises the fields of one segment.
func Fields(seg *segment.Segment, buf []byte) []Field {
	out := make([]Field, len(seg.Fields))
	for i, v := range seg.Fields {
		out[i] = FieldOf(v, buf)
	}
	return out
}

func FieldOf(v view.View, buf []byte) Field {
	return Field{
		Bound:     v.Bound(),
		StartMask: v.StartBitmask(),
		EndMask:   v.EndBitmask(),
		Value:     Value(v.Value(buf)),
		Writable:  view.Writable(v),
		Editor:    v.Editor().String(),
	}
}

// Value renders raw bytes as hex. Views past the end of the buffer give nil,
// which encodes as null.
func Value(v any) any {
	if b, ok := v.([]byte); ok {
		return hex.EncodeToString(b)
	}
	return v
}
