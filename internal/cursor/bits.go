package cursor

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrStreamEnd = errors.New("cursor: bitstream ended at marker")
	ErrBitCount  = errors.New("cursor: bit count must be 1..32")
)

// BitSeeker reads MSB-first bits from the cursor, undoing JPEG byte
// stuffing: 0xFF 0x00 yields a literal 0xFF, 0xFF followed by anything
// else is a marker and ends the stream. Plain cursor reads ignore the
// partial byte held here; call Reset between unrelated bit reads.
type BitSeeker struct {
	c       *Cursor
	cur     byte
	left    uint
	ended   bool
	marker  byte
	stuffed int
	logger  zerolog.Logger
}

func NewBitSeeker(c *Cursor, logger zerolog.Logger) *BitSeeker {
	return &BitSeeker{c: c, logger: logger}
}

// ReadBits returns the next n bits. On error the bits gathered so far are
// returned alongside it.
func (b *BitSeeker) ReadBits(n uint) (uint32, error) {
	if n == 0 || n > 32 {
		return 0, fmt.Errorf("%w: %d", ErrBitCount, n)
	}
	var v uint32
	for range n {
		if b.left == 0 {
			if err := b.refill(); err != nil {
				return v, err
			}
		}
		b.left--
		v = v<<1 | uint32(b.cur>>b.left&1)
	}
	return v, nil
}

func (b *BitSeeker) refill() error {
	if b.ended {
		return ErrStreamEnd
	}
	x, ok := b.c.PeekByte()
	if !ok {
		return fmt.Errorf("%w: bitstream at %d", ErrNoValue, b.c.Pos())
	}
	if x != 0xFF {
		b.c.Skip(1)
		b.cur, b.left = x, 8
		return nil
	}
	if b.c.Remaining() < 2 {
		b.ended = true
		b.logger.Debug().Int("offset", b.c.Pos()).Msg("bitstream ended at trailing 0xFF")
		return ErrStreamEnd
	}
	next := b.c.Buffer()[b.c.Pos()+1]
	if next != 0x00 {
		b.ended = true
		b.marker = next
		b.logger.Debug().Int("offset", b.c.Pos()).Msgf("bitstream ended at marker 0xFF%02X", next)
		return ErrStreamEnd
	}
	b.c.Skip(2)
	b.stuffed++
	b.cur, b.left = 0xFF, 8
	return nil
}

// Reset drops the partial byte and clears the end-of-stream state.
func (b *BitSeeker) Reset() {
	b.cur, b.left = 0, 0
	b.ended = false
	b.marker = 0
}

// Marker returns the marker byte that ended the stream, if any.
func (b *BitSeeker) Marker() (byte, bool) {
	return b.marker, b.ended && b.marker != 0
}

func (b *BitSeeker) Ended() bool  { return b.ended }
func (b *BitSeeker) Stuffed() int { return b.stuffed }

// Drain consumes whole bytes until the stream ends and returns the number
// of payload bytes delivered.
func (b *BitSeeker) Drain() (int, error) {
	b.left = 0
	n := 0
	for {
		if _, err := b.ReadBits(8); err != nil {
			if errors.Is(err, ErrStreamEnd) {
				return n, nil
			}
			return n, err
		}
		n++
	}
}
