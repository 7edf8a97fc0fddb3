// Package session owns decoded buffers for editing. A Session holds the only
// copy of its bytes and serialises access to them: reads of field values take
// the read lock, writes through field views take the write lock.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/observability"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

var (
	ErrNoSegment = errors.New("session: segment index out of range")
	ErrNoField   = errors.New("session: field index out of range")
)

// Session is one decoded buffer open for inspection and editing.
type Session struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Format string    `json:"format"`
	Opened time.Time `json:"opened"`
	Size   int       `json:"size"`

	mu        sync.RWMutex
	buf       []byte
	tree      *segment.Tree
	segments  []*segment.Segment
	anomalies []decode.Anomaly
}

// FieldRef locates one field of one segment.
type FieldRef struct {
	Segment int        `json:"segment"`
	Field   int        `json:"field"`
	Bound   view.Bound `json:"bound"`
}

// New decodes a private copy of buf. The caller's slice is never aliased.
func New(id, name string, buf []byte, hint string, opts decode.Options) (*Session, error) {
	owned := slices.Clone(buf)
	if owned == nil {
		owned = []byte{}
	}
	res, err := Decode(owned, hint, opts)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        id,
		Name:      name,
		Format:    res.Format,
		Opened:    time.Now(),
		Size:      len(owned),
		buf:       owned,
		tree:      res.Tree,
		segments:  res.Tree.Segments(),
		anomalies: res.Anomalies,
	}, nil
}

// Tree is immutable apart from expand flags and safe to share.
func (s *Session) Tree() *segment.Tree { return s.tree }

// Segments returns every segment in breadth-first order. Indices into this
// slice address segments in the other methods.
func (s *Session) Segments() []*segment.Segment {
	return s.segments
}

func (s *Session) Anomalies() []decode.Anomaly {
	return s.anomalies
}

func (s *Session) Segment(i int) (*segment.Segment, error) {
	if i < 0 || i >= len(s.segments) {
		return nil, fmt.Errorf("%w: %d", ErrNoSegment, i)
	}
	return s.segments[i], nil
}

func (s *Session) field(seg, field int) (view.View, error) {
	sg, err := s.Segment(seg)
	if err != nil {
		return nil, err
	}
	if field < 0 || field >= len(sg.Fields) {
		return nil, fmt.Errorf("%w: segment %d field %d", ErrNoField, seg, field)
	}
	return sg.Fields[field], nil
}

// FieldValue materialises one field from the live buffer.
func (s *Session) FieldValue(seg, field int) (any, error) {
	v, err := s.field(seg, field)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return v.Value(s.buf), nil
}

// WriteField writes value back through a field's view.
func (s *Session) WriteField(seg, field int, value any) error {
	v, err := s.field(seg, field)
	if err != nil {
		return err
	}
	s.mu.Lock()
	err = view.Write(s.buf, v, value)
	s.mu.Unlock()
	observability.RecordFieldWrite(s.Format, writeOutcome(err))
	return err
}

func writeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, view.ErrReadOnly):
		return "read_only"
	case errors.Is(err, view.ErrValueType), errors.Is(err, view.ErrValueRange):
		return "rejected"
	default:
		return "error"
	}
}

// Select returns every field whose bound overlaps one of the ranges.
func (s *Session) Select(ranges []view.Bound) []FieldRef {
	var out []FieldRef
	for i, sg := range s.segments {
		if !overlaps(sg.Bound(), ranges) {
			continue
		}
		for j, f := range sg.Fields {
			if view.AnyIntersects(f, ranges) {
				out = append(out, FieldRef{Segment: i, Field: j, Bound: f.Bound()})
			}
		}
	}
	return out
}

func overlaps(b view.Bound, ranges []view.Bound) bool {
	for _, r := range ranges {
		if b.Intersects(r) {
			return true
		}
	}
	return false
}

// Bytes returns a copy of the current buffer.
func (s *Session) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.buf)
}

// Read runs fn with the live buffer under the read lock. fn must not keep buf.
func (s *Session) Read(fn func(buf []byte)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.buf)
}
