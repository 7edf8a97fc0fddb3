package segment

import (
	"slices"

	"github.com/danmuck/binlens/internal/view"
)

// Fragment is a presentation template plus the indices of the fields its
// tokens refer to, in token order. Tokens:
//
//	%D     plain value
//	%Dh_N  value as zero-padded hex of width N
//	%d     value wrapped for click/hover binding
//	%c     binding class of the next field
type Fragment struct {
	Template string `json:"template"`
	Fields   []int  `json:"fields,omitempty"`
}

// Segment is one decoded record: a titled byte range with its field views.
type Segment struct {
	Start     int
	Length    int
	Color     string
	Title     string
	Fields    []view.View
	Fragments []Fragment
}

func (s *Segment) Bound() view.Bound {
	return view.Bound{Start: s.Start, Len: s.Length}
}

func (s *Segment) End() int {
	return s.Start + s.Length
}

// Builder accumulates the fields and fragments of one segment.
type Builder struct {
	seg  Segment
	head []Fragment
}

func NewBuilder(title string, start, length int, color string) *Builder {
	return &Builder{seg: Segment{Title: title, Start: start, Length: length, Color: color}}
}

// Field appends v and returns its index.
func (b *Builder) Field(v view.View) int {
	b.seg.Fields = append(b.seg.Fields, v)
	return len(b.seg.Fields) - 1
}

// Line appends a fragment referencing fields in token order.
func (b *Builder) Line(template string, fields ...view.View) *Builder {
	b.seg.Fragments = append(b.seg.Fragments, b.fragment(template, fields))
	return b
}

// Head queues a fragment that renders before every Line fragment.
func (b *Builder) Head(template string, fields ...view.View) *Builder {
	b.head = append(b.head, b.fragment(template, fields))
	return b
}

func (b *Builder) fragment(template string, fields []view.View) Fragment {
	f := Fragment{Template: template}
	for _, v := range fields {
		f.Fields = append(f.Fields, b.Field(v))
	}
	return f
}

// SetLength adjusts the span once a builder knows where its record ends.
func (b *Builder) SetLength(n int) *Builder {
	b.seg.Length = n
	return b
}

// SetTitle renames the record once its payload identifies it.
func (b *Builder) SetTitle(title string) *Builder {
	b.seg.Title = title
	return b
}

func (b *Builder) Title() string { return b.seg.Title }
func (b *Builder) Start() int    { return b.seg.Start }

func (b *Builder) Build() *Segment {
	s := b.seg
	s.Fields = slices.Clone(b.seg.Fields)
	s.Fragments = append(append([]Fragment(nil), b.head...), b.seg.Fragments...)
	return &s
}
