package cursor

import (
	"errors"
	"testing"

	"github.com/danmuck/binlens/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadsAdvanceByWidthAndAnchorAtStart(t *testing.T) {
	testlog.Start(t)
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 'h', 'i', 0}
	c := New(buf)

	type step struct {
		name  string
		width int
		read  func() (interface{ StartByte() int }, error)
	}
	steps := []step{
		{"byte", 1, func() (interface{ StartByte() int }, error) { return c.Byte() }},
		{"short", 2, func() (interface{ StartByte() int }, error) { return c.Short() }},
		{"short-le", 2, func() (interface{ StartByte() int }, error) { return c.ShortLE() }},
		{"rgb", 3, func() (interface{ StartByte() int }, error) { return c.RGB() }},
		{"uint", 4, func() (interface{ StartByte() int }, error) { return c.Uint() }},
		{"packed", 4, func() (interface{ StartByte() int }, error) { return c.Packed(2, 2, false) }},
		{"cstring", 3, func() (interface{ StartByte() int }, error) { return c.CString() }},
	}
	prev := c.Pos()
	for _, s := range steps {
		v, err := s.read()
		require.NoError(t, err, s.name)
		assert.Equal(t, prev, v.StartByte(), s.name)
		assert.Equal(t, prev+s.width, c.Pos(), s.name)
		prev = c.Pos()
	}
	assert.True(t, c.EOF())
}

func TestFailedReadDoesNotAdvance(t *testing.T) {
	testlog.Start(t)
	c := New([]byte{0xAA, 0xBB, 0xCC})
	_, err := c.Short()
	require.NoError(t, err)

	_, err = c.Short()
	assert.True(t, errors.Is(err, ErrNoValue))
	assert.Equal(t, 2, c.Pos())
	_, err = c.Uint()
	assert.True(t, errors.Is(err, ErrNoValue))
	_, err = c.Bytes(2)
	assert.True(t, errors.Is(err, ErrNoValue))
	_, err = c.CString()
	assert.True(t, errors.Is(err, ErrNoValue))
	_, err = c.Packed(1, 9, false)
	assert.True(t, errors.Is(err, ErrNoValue))
	assert.Equal(t, 2, c.Pos())

	b, err := c.Byte()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xCC), b.Uint(c.Buffer()))
	_, err = c.Byte()
	assert.True(t, errors.Is(err, ErrNoValue))
	assert.Equal(t, 3, c.Pos())
}

func TestZeroLengthBytesIsValid(t *testing.T) {
	testlog.Start(t)
	c := New([]byte{1})
	c.SetPos(1)
	v, err := c.Bytes(0)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Length())
	assert.Equal(t, 1, c.Pos())
}

func TestSetPosClamps(t *testing.T) {
	testlog.Start(t)
	c := New(make([]byte, 5))
	c.SetPos(-3)
	assert.Equal(t, 0, c.Pos())
	c.SetPos(99)
	assert.Equal(t, 5, c.Pos())
	assert.True(t, c.EOF())
	c.SetPos(2)
	c.Skip(10)
	assert.Equal(t, 5, c.Pos())
	_, ok := c.PeekByte()
	assert.False(t, ok)
}

func TestTextReads(t *testing.T) {
	testlog.Start(t)
	buf := []byte{'I', 'H', 'D', 'R', 'c', 0xE9, 0}
	c := New(buf)
	tag, err := c.Text(4)
	require.NoError(t, err)
	assert.Equal(t, "IHDR", tag.Value(buf))
	s, err := c.Latin1CString()
	require.NoError(t, err)
	assert.Equal(t, "cé", s.Value(buf))
	assert.Equal(t, 3, s.Length())
}

func TestBitSeekerCrossesBytesMSBFirst(t *testing.T) {
	testlog.Start(t)
	c := New([]byte{0b1011_0011, 0b1100_0000, 0x12, 0x34, 0x56, 0x78})
	b := NewBitSeeker(c, zerolog.Nop())

	v, err := b.ReadBits(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b101), v)
	v, err = b.ReadBits(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b1_0011_11), v)

	b.Reset()
	v, err = b.ReadBits(32)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)

	_, err = b.ReadBits(0)
	assert.True(t, errors.Is(err, ErrBitCount))
	_, err = b.ReadBits(33)
	assert.True(t, errors.Is(err, ErrBitCount))
}

func TestBitSeekerUnstuffsAndStopsAtMarker(t *testing.T) {
	testlog.Start(t)
	c := New([]byte{0xFF, 0x00, 0x7F, 0xFF, 0xD9})
	b := NewBitSeeker(c, zerolog.Nop())

	v, err := b.ReadBits(16)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFF7F), v)
	assert.Equal(t, 1, b.Stuffed())

	v, err = b.ReadBits(4)
	assert.True(t, errors.Is(err, ErrStreamEnd))
	assert.Equal(t, uint32(0), v)
	m, ok := b.Marker()
	assert.True(t, ok)
	assert.Equal(t, byte(0xD9), m)
	assert.Equal(t, 3, c.Pos(), "cursor stays on the marker")
}

func TestBitSeekerDrainCountsPayload(t *testing.T) {
	testlog.Start(t)
	c := New([]byte{0x01, 0xFF, 0x00, 0x02, 0xFF, 0xD0, 0x03, 0xFF, 0xD9})
	b := NewBitSeeker(c, zerolog.Nop())

	n, err := b.Drain()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 4, c.Pos())

	c.Skip(2)
	b.Reset()
	n, err = b.Drain()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	m, _ := b.Marker()
	assert.Equal(t, byte(0xD9), m)
}

func TestBitSeekerRunsOffEnd(t *testing.T) {
	testlog.Start(t)
	c := New([]byte{0xAB})
	b := NewBitSeeker(c, zerolog.Nop())
	v, err := b.ReadBits(12)
	assert.True(t, errors.Is(err, ErrNoValue))
	assert.Equal(t, uint32(0xAB), v)
}
