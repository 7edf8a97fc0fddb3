package view

import "fmt"

// Packed is count contiguous unsigned integers of width bytes each.
type Packed struct {
	span
	count int
	width int
	le    bool
}

func NewPacked(off, count, width int, le bool) *Packed {
	return &Packed{span: span{off, count * width}, count: count, width: width, le: le}
}

func (p *Packed) Count() int     { return p.count }
func (p *Packed) Width() int     { return p.width }
func (p *Packed) Editor() Editor { return EditorNone }

func (p *Packed) elem(i int) span {
	return span{p.off + i*p.width, p.width}
}

func (p *Packed) At(buf []byte, i int) uint64 {
	if i < 0 || i >= p.count {
		return 0
	}
	return getUint(p.elem(i).bytes(buf), p.le)
}

func (p *Packed) SetAt(buf []byte, i int, u uint64) error {
	if i < 0 || i >= p.count {
		return fmt.Errorf("%w: index %d of %d", ErrOutOfRange, i, p.count)
	}
	e := p.elem(i)
	if err := e.check(buf); err != nil {
		return err
	}
	if err := fits(u, uint(8*p.width)); err != nil {
		return err
	}
	putUint(buf[e.off:e.off+e.n], u, p.le)
	return nil
}

// Value materializes every element.
func (p *Packed) Value(buf []byte) any {
	if p.check(buf) != nil {
		return nil
	}
	out := make([]uint64, p.count)
	for i := range out {
		out[i] = p.At(buf, i)
	}
	return out
}

// Write replaces all elements; the input must have exactly Count entries.
func (p *Packed) Write(buf []byte, val any) error {
	var vals []any
	switch x := val.(type) {
	case []uint64:
		for _, u := range x {
			vals = append(vals, u)
		}
	case []any:
		vals = x
	default:
		return fmt.Errorf("%w: %T", ErrValueType, val)
	}
	if len(vals) != p.count {
		return fmt.Errorf("%w: want %d elements, got %d", ErrValueRange, p.count, len(vals))
	}
	us := make([]uint64, len(vals))
	for i, v := range vals {
		u, err := toUint(v)
		if err != nil {
			return err
		}
		if err := fits(u, uint(8*p.width)); err != nil {
			return err
		}
		us[i] = u
	}
	for i, u := range us {
		if err := p.SetAt(buf, i, u); err != nil {
			return err
		}
	}
	return nil
}

// Sub returns a view scoped to element i.
func (p *Packed) Sub(i int) *Element {
	return &Element{parent: p, index: i}
}

// Element is one entry of a Packed view.
type Element struct {
	parent *Packed
	index  int
}

func (e *Element) Index() int         { return e.index }
func (e *Element) StartByte() int     { return e.parent.off + e.index*e.parent.width }
func (e *Element) Length() int        { return e.parent.width }
func (e *Element) StartBitmask() byte { return FullMask }
func (e *Element) EndBitmask() byte   { return FullMask }
func (e *Element) Editor() Editor     { return EditorNumber }
func (e *Element) LittleEndian() bool { return e.parent.le }
func (e *Element) Bound() Bound       { return Bound{Start: e.StartByte(), Len: e.Length()} }

func (e *Element) Uint(buf []byte) uint64 { return e.parent.At(buf, e.index) }

func (e *Element) SetUint(buf []byte, u uint64) error {
	return e.parent.SetAt(buf, e.index, u)
}

// Value is nil for an index outside the array, even when the bytes it would
// address are inside buf.
func (e *Element) Value(buf []byte) any {
	if e.index < 0 || e.index >= e.parent.count || e.parent.elem(e.index).check(buf) != nil {
		return nil
	}
	return e.Uint(buf)
}

func (e *Element) Write(buf []byte, val any) error {
	u, err := toUint(val)
	if err != nil {
		return err
	}
	return e.SetUint(buf, u)
}
