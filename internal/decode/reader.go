package decode

import (
	"bytes"
	"fmt"

	"github.com/danmuck/binlens/internal/cursor"
	"github.com/danmuck/binlens/internal/view"
)

// Reader wraps a cursor with a sticky error so record builders can read a
// run of fields and check once. After the first failure every read returns
// nil and leaves the cursor alone; the views must not be used then.
type Reader struct {
	c   *cursor.Cursor
	err error
}

func NewReader(c *cursor.Cursor) *Reader {
	return &Reader{c: c}
}

func (r *Reader) Err() error     { return r.err }
func (r *Reader) Pos() int       { return r.c.Pos() }
func (r *Reader) Remaining() int { return r.c.Remaining() }
func (r *Reader) Buf() []byte    { return r.c.Buffer() }

// Fail records err unless an earlier error is already held.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Get materializes an integer field read through r, or 0 after a failure.
func (r *Reader) Get(v view.Number) int {
	if r.err != nil {
		return 0
	}
	return int(v.Uint(r.c.Buffer()))
}

func (r *Reader) SetPos(n int) {
	if r.err == nil {
		r.c.SetPos(n)
	}
}

func read[T any](r *Reader, fn func() (T, error)) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, err := fn()
	if err != nil {
		r.err = err
		return zero
	}
	return v
}

func (r *Reader) Byte() *view.Int     { return read(r, r.c.Byte) }
func (r *Reader) Short() *view.Int    { return read(r, r.c.Short) }
func (r *Reader) ShortLE() *view.Int  { return read(r, r.c.ShortLE) }
func (r *Reader) RGB() *view.Int      { return read(r, r.c.RGB) }
func (r *Reader) Uint() *view.Int     { return read(r, r.c.Uint) }
func (r *Reader) UintLE() *view.Int   { return read(r, r.c.UintLE) }
func (r *Reader) CString() *view.Text { return read(r, r.c.CString) }

func (r *Reader) Latin1CString() *view.Text { return read(r, r.c.Latin1CString) }

// CStringBefore reads a NUL-terminated string whose terminator must lie
// before limit, so a missing NUL cannot run into the next record.
func (r *Reader) CStringBefore(limit int, latin1 bool) *view.Text {
	if r.err != nil {
		return nil
	}
	buf, pos := r.c.Buffer(), r.c.Pos()
	limit = min(limit, len(buf))
	if pos > limit || bytes.IndexByte(buf[pos:limit], 0) < 0 {
		r.err = fmt.Errorf("%w: no terminator in [%d,%d)", cursor.ErrNoValue, pos, limit)
		return nil
	}
	if latin1 {
		return r.Latin1CString()
	}
	return r.CString()
}

func (r *Reader) Bytes(n int) *view.Raw {
	return read(r, func() (*view.Raw, error) { return r.c.Bytes(n) })
}

func (r *Reader) Reserve(n int) *view.Placeholder {
	return read(r, func() (*view.Placeholder, error) { return r.c.Reserve(n) })
}

func (r *Reader) Text(n int) *view.Text {
	return read(r, func() (*view.Text, error) { return r.c.Text(n) })
}

func (r *Reader) Latin1(n int) *view.Text {
	return read(r, func() (*view.Text, error) { return r.c.Latin1(n) })
}

func (r *Reader) Packed(count, width int, le bool) *view.Packed {
	return read(r, func() (*view.Packed, error) { return r.c.Packed(count, width, le) })
}

// Short16 reads a 16-bit integer in the given byte order.
func (r *Reader) Short16(le bool) *view.Int {
	if le {
		return r.ShortLE()
	}
	return r.Short()
}

// Uint32 reads a 32-bit integer in the given byte order.
func (r *Reader) Uint32(le bool) *view.Int {
	if le {
		return r.UintLE()
	}
	return r.Uint()
}
