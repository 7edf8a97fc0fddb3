package view

import (
	"fmt"
	"math"
)

// Derived views keep their base's byte span and narrow only the bit mask.
type derived struct {
	base Number
}

func (d derived) StartByte() int { return d.base.StartByte() }
func (d derived) Length() int    { return d.base.Length() }
func (d derived) Bound() Bound   { return d.base.Bound() }

// masks splits a bit mask over the base value into its first and last byte masks.
func (d derived) masks(m uint64) (byte, byte) {
	w := uint(8 * d.base.Length())
	hi, lo := byte(m>>(w-8)), byte(m)
	if le, ok := d.base.(interface{ LittleEndian() bool }); ok && le.LittleEndian() {
		return lo, hi
	}
	return hi, lo
}

// Bit is the single bit at offset of the base value.
type Bit struct {
	derived
	offset uint
}

func NewBit(base Number, offset uint) *Bit {
	return &Bit{derived: derived{base}, offset: offset}
}

func (b *Bit) Editor() Editor { return EditorBool }

func (b *Bit) StartBitmask() byte {
	first, _ := b.masks(1 << b.offset)
	return first
}

func (b *Bit) EndBitmask() byte {
	_, last := b.masks(1 << b.offset)
	return last
}

func (b *Bit) Bool(buf []byte) bool {
	return b.base.Uint(buf)>>b.offset&1 == 1
}

func (b *Bit) Value(buf []byte) any {
	if b.base.Value(buf) == nil {
		return nil
	}
	return b.Bool(buf)
}

func (b *Bit) Write(buf []byte, val any) error {
	on, err := toBool(val)
	if err != nil {
		return err
	}
	u := b.base.Uint(buf) &^ (1 << b.offset)
	if on {
		u |= 1 << b.offset
	}
	return b.base.SetUint(buf, u)
}

// Bits is the field (base >> offset) & (1<<n - 1).
type Bits struct {
	derived
	offset uint
	n      uint
}

func NewBits(base Number, offset, n uint) *Bits {
	return &Bits{derived: derived{base}, offset: offset, n: n}
}

func (b *Bits) mask() uint64 {
	return (1<<b.n - 1) << b.offset
}

func (b *Bits) Editor() Editor { return EditorPartial }

func (b *Bits) StartBitmask() byte {
	first, _ := b.masks(b.mask())
	return first
}

func (b *Bits) EndBitmask() byte {
	_, last := b.masks(b.mask())
	return last
}

func (b *Bits) Uint(buf []byte) uint64 {
	return b.base.Uint(buf) >> b.offset & (1<<b.n - 1)
}

func (b *Bits) SetUint(buf []byte, u uint64) error {
	if err := fits(u, b.n); err != nil {
		return err
	}
	cur := b.base.Uint(buf) &^ b.mask()
	return b.base.SetUint(buf, cur|u<<b.offset)
}

func (b *Bits) Value(buf []byte) any {
	if b.base.Value(buf) == nil {
		return nil
	}
	return b.Uint(buf)
}

func (b *Bits) Write(buf []byte, val any) error {
	u, err := toUint(val)
	if err != nil {
		return err
	}
	return b.SetUint(buf, u)
}

// Enum labels the base value. It has no Write method: labels are display only.
type Enum struct {
	base   View
	labels map[string]string
	def    string
}

func NewEnum(base View, labels map[string]string) *Enum {
	return &Enum{base: base, labels: labels, def: "default"}
}

// NewEnumDefault is NewEnum with a custom fallback label.
func NewEnumDefault(base View, labels map[string]string, def string) *Enum {
	return &Enum{base: base, labels: labels, def: def}
}

func (e *Enum) Base() View         { return e.base }
func (e *Enum) StartByte() int     { return e.base.StartByte() }
func (e *Enum) Length() int        { return e.base.Length() }
func (e *Enum) StartBitmask() byte { return e.base.StartBitmask() }
func (e *Enum) EndBitmask() byte   { return e.base.EndBitmask() }
func (e *Enum) Bound() Bound       { return e.base.Bound() }
func (e *Enum) Editor() Editor     { return EditorNone }

func (e *Enum) Value(buf []byte) any {
	raw := e.base.Value(buf)
	if raw == nil {
		return nil
	}
	key := fmt.Sprint(raw)
	if label, ok := e.labels[key]; ok {
		return fmt.Sprintf("%s (%s)", label, key)
	}
	return fmt.Sprintf("%s (%s)", e.def, key)
}

// Factor presents base/factor, e.g. a gamma stored as gamma*100000.
type Factor struct {
	derived
	factor float64
}

func NewFactor(base Number, factor float64) *Factor {
	return &Factor{derived: derived{base}, factor: factor}
}

func (f *Factor) Editor() Editor     { return EditorNumber }
func (f *Factor) StartBitmask() byte { return f.base.StartBitmask() }
func (f *Factor) EndBitmask() byte   { return f.base.EndBitmask() }

func (f *Factor) Float(buf []byte) float64 {
	return float64(f.base.Uint(buf)) / f.factor
}

func (f *Factor) Value(buf []byte) any {
	if f.base.Value(buf) == nil {
		return nil
	}
	return f.Float(buf)
}

func (f *Factor) Write(buf []byte, val any) error {
	x, err := toFloat(val)
	if err != nil {
		return err
	}
	scaled := math.Round(x * f.factor)
	if scaled < 0 || math.IsNaN(scaled) || scaled > math.MaxUint64 {
		return fmt.Errorf("%w: %v", ErrValueRange, x)
	}
	return f.base.SetUint(buf, uint64(scaled))
}
