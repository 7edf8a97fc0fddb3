package view

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
)

// Int is an unsigned integer of 1 to 8 bytes, big-endian unless le is set.
type Int struct {
	span
	le     bool
	editor Editor
}

func NewByte(off int) *Int    { return &Int{span: span{off, 1}, editor: EditorNumber} }
func NewShort(off int) *Int   { return &Int{span: span{off, 2}, editor: EditorNumber} }
func NewShortLE(off int) *Int { return &Int{span: span{off, 2}, le: true, editor: EditorNumber} }
func NewUint(off int) *Int    { return &Int{span: span{off, 4}, editor: EditorNumber} }
func NewUintLE(off int) *Int  { return &Int{span: span{off, 4}, le: true, editor: EditorNumber} }

// NewRGB packs three bytes into one 24-bit value 0xRRGGBB.
func NewRGB(off int) *Int { return &Int{span: span{off, 3}, editor: EditorColor} }

func (v *Int) LittleEndian() bool { return v.le }
func (v *Int) Editor() Editor     { return v.editor }

func (v *Int) Uint(buf []byte) uint64 {
	return getUint(v.bytes(buf), v.le)
}

func (v *Int) SetUint(buf []byte, u uint64) error {
	if err := v.check(buf); err != nil {
		return err
	}
	if err := fits(u, uint(8*v.n)); err != nil {
		return err
	}
	putUint(buf[v.off:v.off+v.n], u, v.le)
	return nil
}

func (v *Int) Value(buf []byte) any {
	if v.check(buf) != nil {
		return nil
	}
	return v.Uint(buf)
}

func (v *Int) Write(buf []byte, val any) error {
	if s, ok := val.(string); ok && v.editor == EditorColor && strings.HasPrefix(s, "#") {
		val = "0x" + s[1:]
	}
	u, err := toUint(val)
	if err != nil {
		return err
	}
	return v.SetUint(buf, u)
}

func getUint(b []byte, le bool) uint64 {
	var u uint64
	for i := range b {
		j := i
		if le {
			j = len(b) - 1 - i
		}
		u = u<<8 | uint64(b[j])
	}
	return u
}

func putUint(b []byte, u uint64, le bool) {
	for i := range b {
		j := len(b) - 1 - i
		if le {
			j = i
		}
		b[j] = byte(u)
		u >>= 8
	}
}

// Raw is an opaque byte span.
type Raw struct {
	span
}

func NewRaw(off, n int) *Raw { return &Raw{span{off, n}} }

func (v *Raw) Editor() Editor { return EditorBytes }

func (v *Raw) Value(buf []byte) any {
	b := v.bytes(buf)
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

// Write accepts a byte slice or a hex string of exactly the span length.
func (v *Raw) Write(buf []byte, val any) error {
	if err := v.check(buf); err != nil {
		return err
	}
	var b []byte
	switch x := val.(type) {
	case []byte:
		b = x
	case string:
		d, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(x), " ", ""))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValueType, err)
		}
		b = d
	default:
		return fmt.Errorf("%w: %T", ErrValueType, val)
	}
	if len(b) != v.n {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrValueRange, v.n, len(b))
	}
	copy(buf[v.off:], b)
	return nil
}

// Text is a fixed-width or null-terminated string. A nil encoding means UTF-8.
// For null-terminated text the span includes the terminator.
type Text struct {
	span
	terminated bool
	enc        encoding.Encoding
}

func NewText(off, n int, terminated bool, enc encoding.Encoding) *Text {
	return &Text{span: span{off, n}, terminated: terminated, enc: enc}
}

func (v *Text) Editor() Editor { return EditorText }

func (v *Text) Value(buf []byte) any {
	b := v.bytes(buf)
	if b == nil {
		return nil
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if v.enc == nil {
		return string(b)
	}
	out, err := v.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Write stores s, zero-padding the rest of the span.
func (v *Text) Write(buf []byte, val any) error {
	if err := v.check(buf); err != nil {
		return err
	}
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("%w: %T", ErrValueType, val)
	}
	b := []byte(s)
	if v.enc != nil {
		enc, err := v.enc.NewEncoder().Bytes(b)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValueRange, err)
		}
		b = enc
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return fmt.Errorf("%w: embedded NUL", ErrValueRange)
	}
	room := v.n
	if v.terminated {
		room--
	}
	if len(b) > room {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrValueRange, len(b), room)
	}
	dst := buf[v.off : v.off+v.n]
	n := copy(dst, b)
	clear(dst[n:])
	return nil
}

// Placeholder marks a reserved span that has no value.
type Placeholder struct {
	span
}

func NewPlaceholder(off, n int) *Placeholder { return &Placeholder{span{off, n}} }

func (v *Placeholder) Value([]byte) any { return nil }
func (v *Placeholder) Editor() Editor   { return EditorNone }
