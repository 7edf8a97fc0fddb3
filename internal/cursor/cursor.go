package cursor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/binlens/internal/view"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var ErrNoValue = errors.New("cursor: read past end of buffer")

// Cursor walks a buffer and hands out views anchored at the pre-read
// position. It never copies the buffer.
type Cursor struct {
	buf []byte
	pos int
}

func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

func (c *Cursor) Buffer() []byte { return c.buf }
func (c *Cursor) Len() int       { return len(c.buf) }
func (c *Cursor) Pos() int       { return c.pos }
func (c *Cursor) EOF() bool      { return c.pos >= len(c.buf) }
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// SetPos moves the cursor, clamping into [0, Len()].
func (c *Cursor) SetPos(n int) {
	c.pos = min(max(n, 0), len(c.buf))
}

// Skip advances by n bytes, clamped to the buffer end.
func (c *Cursor) Skip(n int) {
	c.SetPos(c.pos + n)
}

// take reserves n bytes at the current position.
func (c *Cursor) take(n int) (int, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return 0, fmt.Errorf("%w: need %d at %d, have %d", ErrNoValue, n, c.pos, len(c.buf)-c.pos)
	}
	off := c.pos
	c.pos += n
	return off, nil
}

// PeekByte returns the raw byte at the current position without advancing.
func (c *Cursor) PeekByte() (byte, bool) {
	if c.EOF() {
		return 0, false
	}
	return c.buf[c.pos], true
}

func (c *Cursor) Byte() (*view.Int, error) {
	off, err := c.take(1)
	if err != nil {
		return nil, err
	}
	return view.NewByte(off), nil
}

func (c *Cursor) Short() (*view.Int, error) {
	off, err := c.take(2)
	if err != nil {
		return nil, err
	}
	return view.NewShort(off), nil
}

func (c *Cursor) ShortLE() (*view.Int, error) {
	off, err := c.take(2)
	if err != nil {
		return nil, err
	}
	return view.NewShortLE(off), nil
}

func (c *Cursor) RGB() (*view.Int, error) {
	off, err := c.take(3)
	if err != nil {
		return nil, err
	}
	return view.NewRGB(off), nil
}

func (c *Cursor) Uint() (*view.Int, error) {
	off, err := c.take(4)
	if err != nil {
		return nil, err
	}
	return view.NewUint(off), nil
}

func (c *Cursor) UintLE() (*view.Int, error) {
	off, err := c.take(4)
	if err != nil {
		return nil, err
	}
	return view.NewUintLE(off), nil
}

func (c *Cursor) Bytes(n int) (*view.Raw, error) {
	off, err := c.take(n)
	if err != nil {
		return nil, err
	}
	return view.NewRaw(off, n), nil
}

// Reserve claims n bytes as a placeholder with no value.
func (c *Cursor) Reserve(n int) (*view.Placeholder, error) {
	off, err := c.take(n)
	if err != nil {
		return nil, err
	}
	return view.NewPlaceholder(off, n), nil
}

// Text reads n bytes of UTF-8 text.
func (c *Cursor) Text(n int) (*view.Text, error) {
	return c.text(n, nil)
}

// Latin1 reads n bytes of ISO-8859-1 text.
func (c *Cursor) Latin1(n int) (*view.Text, error) {
	return c.text(n, charmap.ISO8859_1)
}

func (c *Cursor) text(n int, enc encoding.Encoding) (*view.Text, error) {
	off, err := c.take(n)
	if err != nil {
		return nil, err
	}
	return view.NewText(off, n, false, enc), nil
}

// CString reads UTF-8 text up to and including a NUL terminator.
func (c *Cursor) CString() (*view.Text, error) {
	return c.cstring(nil)
}

func (c *Cursor) Latin1CString() (*view.Text, error) {
	return c.cstring(charmap.ISO8859_1)
}

func (c *Cursor) cstring(enc encoding.Encoding) (*view.Text, error) {
	i := bytes.IndexByte(c.buf[c.pos:], 0)
	if i < 0 {
		return nil, fmt.Errorf("%w: unterminated string at %d", ErrNoValue, c.pos)
	}
	off, err := c.take(i + 1)
	if err != nil {
		return nil, err
	}
	return view.NewText(off, i+1, true, enc), nil
}

func (c *Cursor) Packed(count, width int, le bool) (*view.Packed, error) {
	if count < 0 || width < 1 || width > 8 {
		return nil, fmt.Errorf("%w: packed %dx%d", ErrNoValue, count, width)
	}
	off, err := c.take(count * width)
	if err != nil {
		return nil, err
	}
	return view.NewPacked(off, count, width, le), nil
}
