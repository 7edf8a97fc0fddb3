package view

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const FullMask byte = 0xFF

var (
	ErrReadOnly   = errors.New("view: read-only field")
	ErrOutOfRange = errors.New("view: span outside buffer")
	ErrValueType  = errors.New("view: unsupported value type")
	ErrValueRange = errors.New("view: value out of range")
)

// Editor is a hint for which editor widget fits a field.
type Editor uint8

const (
	EditorNone Editor = iota
	EditorNumber
	EditorPartial
	EditorBool
	EditorColor
	EditorText
	EditorBytes
)

func (e Editor) String() string {
	switch e {
	case EditorNumber:
		return "number"
	case EditorPartial:
		return "partial"
	case EditorBool:
		return "bool"
	case EditorColor:
		return "color"
	case EditorText:
		return "text"
	case EditorBytes:
		return "bytes"
	default:
		return "none"
	}
}

// Bound is the half-open byte range [Start, Start+Len).
type Bound struct {
	Start int `json:"start"`
	Len   int `json:"len"`
}

func (b Bound) End() int {
	return b.Start + b.Len
}

// Intersects reports half-open overlap. Empty ranges never intersect.
func (b Bound) Intersects(o Bound) bool {
	if b.Len <= 0 || o.Len <= 0 {
		return false
	}
	return b.Start < o.End() && o.Start < b.End()
}

// View binds a byte/bit range of a buffer to an interpretation.
// Views remember coordinates only; values are read from buf on every call.
type View interface {
	Value(buf []byte) any
	StartByte() int
	Length() int
	StartBitmask() byte
	EndBitmask() byte
	Bound() Bound
	Editor() Editor
}

// Writer is a View that can store a value back into its span.
type Writer interface {
	View
	Write(buf []byte, v any) error
}

// Number is an unsigned integer view usable as the base of derived views.
type Number interface {
	Writer
	Uint(buf []byte) uint64
	SetUint(buf []byte, u uint64) error
}

// AnyIntersects reports whether v overlaps any of ranges.
func AnyIntersects(v View, ranges []Bound) bool {
	b := v.Bound()
	for _, r := range ranges {
		if b.Intersects(r) {
			return true
		}
	}
	return false
}

// Write stores value through v, or fails with ErrReadOnly.
func Write(buf []byte, v View, value any) error {
	w, ok := v.(Writer)
	if !ok {
		return ErrReadOnly
	}
	return w.Write(buf, value)
}

// Writable reports whether v accepts writes.
func Writable(v View) bool {
	_, ok := v.(Writer)
	return ok
}

// span is the coordinate part shared by all byte-aligned views.
type span struct {
	off int
	n   int
}

func (s span) StartByte() int     { return s.off }
func (s span) Length() int        { return s.n }
func (s span) StartBitmask() byte { return FullMask }
func (s span) EndBitmask() byte   { return FullMask }
func (s span) Bound() Bound       { return Bound{Start: s.off, Len: s.n} }

func (s span) check(buf []byte) error {
	if s.off < 0 || s.n < 0 || s.off+s.n > len(buf) {
		return fmt.Errorf("%w: [%d,%d) of %d", ErrOutOfRange, s.off, s.off+s.n, len(buf))
	}
	return nil
}

func (s span) bytes(buf []byte) []byte {
	if s.check(buf) != nil {
		return nil
	}
	return buf[s.off : s.off+s.n]
}

// toUint converts loosely typed input (JSON numbers, form strings) to an unsigned integer.
func toUint(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case int:
		return signed(int64(x))
	case int8:
		return signed(int64(x))
	case int16:
		return signed(int64(x))
	case int32:
		return signed(int64(x))
	case int64:
		return signed(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		u, err := strconv.ParseUint(strings.TrimSpace(x), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrValueType, x)
		}
		return u, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrValueType, v)
	}
}

func signed(x int64) (uint64, error) {
	if x < 0 {
		return 0, fmt.Errorf("%w: %d", ErrValueRange, x)
	}
	return uint64(x), nil
}

func fromFloat(f float64) (uint64, error) {
	if f < 0 || f != math.Trunc(f) || f > math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v", ErrValueRange, f)
	}
	return uint64(f), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrValueType, x)
		}
		return f, nil
	default:
		u, err := toUint(v)
		return float64(u), err
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrValueType, x)
		}
		return b, nil
	default:
		u, err := toUint(v)
		return u != 0, err
	}
}

func fits(u uint64, bits uint) error {
	if bits < 64 && u>>bits != 0 {
		return fmt.Errorf("%w: %d exceeds %d bits", ErrValueRange, u, bits)
	}
	return nil
}
