package png

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/testutil/testlog"
	"github.com/danmuck/binlens/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(tag string, data []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	out = append(out, tag...)
	out = append(out, data...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out[4:]))
}

func file(chunks ...[]byte) []byte {
	out := append([]byte(nil), Magic...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func ihdr(w, h uint32, depth, colorType byte) []byte {
	data := binary.BigEndian.AppendUint32(nil, w)
	data = binary.BigEndian.AppendUint32(data, h)
	return chunk("IHDR", append(data, depth, colorType, 0, 0, 0))
}

func fieldValues(buf []byte, s *segment.Segment, f segment.Fragment) []any {
	var out []any
	for _, i := range f.Fields {
		out = append(out, s.Fields[i].Value(buf))
	}
	return out
}

func TestUnknownChunkUsesGenericPath(t *testing.T) {
	testlog.Start(t)
	buf := file(chunk("tEST", nil))
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)

	// the signature is its own root record, so the lone chunk is the second
	segs := res.Tree.Root.All()
	require.Len(t, segs, 2)
	assert.Equal(t, "PNG Signature", segs[0].Title)
	assert.Equal(t, view.Bound{Start: 0, Len: 8}, segs[0].Bound())

	c := segs[1]
	assert.Equal(t, 8, c.Start)
	assert.Equal(t, 12, c.Length)
	assert.Equal(t, "tEST Chunk", c.Title)
	assert.Equal(t, segment.ColorUnknown, c.Color)
	assert.Empty(t, res.Anomalies)

	assert.Equal(t, "Segment Header: %D Length: %D", c.Fragments[0].Template)
	assert.Equal(t, []any{"tEST", uint64(0)}, fieldValues(buf, c, c.Fragments[0]))
	// lowercase t marks the chunk ancillary; E, S and T are uppercase
	assert.Equal(t, []any{true, false, false, false}, fieldValues(buf, c, c.Fragments[1]))
	last := c.Fragments[len(c.Fragments)-1]
	assert.Equal(t, "Data Checksum: %Dh_8", last.Template)
	assert.Equal(t, uint64(crc32.ChecksumIEEE([]byte("tEST"))), fieldValues(buf, c, last)[0])
}

func TestBadMagicIsFatal(t *testing.T) {
	testlog.Start(t)
	for _, buf := range [][]byte{nil, Magic[:7], append([]byte{0x88}, Magic[1:]...)} {
		res, err := Decode(buf, decode.Options{})
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, decode.ErrBadSignature), "got %v", err)
	}
}

func TestImageChunksDecode(t *testing.T) {
	testlog.Start(t)
	latin1 := append([]byte("Author\x00J"), 0xFC, 'r', 'g')
	buf := file(
		ihdr(640, 480, 8, 3),
		chunk("sRGB", []byte{0}),
		chunk("gAMA", []byte{0x00, 0x00, 0xB1, 0x8F}),
		chunk("PLTE", []byte{0xFF, 0, 0, 0, 0xFF, 0, 0, 0, 0xFF}),
		chunk("tRNS", []byte{0x00, 0x80}),
		chunk("tEXt", latin1),
		chunk("IDAT", []byte{1, 2, 3}),
		chunk("IDAT", []byte{4, 5}),
		chunk("IEND", nil),
	)
	res, err := Decode(buf, decode.Options{Seed: 3})
	require.NoError(t, err)
	assert.Empty(t, res.Anomalies)
	assert.Equal(t, Format, res.Format)

	root := res.Tree.Root
	var names []string
	for _, n := range root.Children() {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{
		"PNG Signature", "IHDR Chunk (Image Header)", "sRGB Chunk", "gAMA Chunk",
		"PLTE Chunk (Palette)", "tRNS Chunk", "tEXt Chunk", "Image Data", "IEND Chunk (Image End)",
	}, names)

	group := root.Children()[7]
	require.True(t, group.IsGroup())
	require.Len(t, group.Children(), 2)
	assert.Equal(t, 3+12, group.Children()[0].Segment().Length)

	hdr := root.Children()[1].Segment()
	assert.Equal(t, []any{uint64(640), uint64(480)}, fieldValues(buf, hdr, hdr.Fragments[2]))
	assert.Equal(t, []any{"Indexed-colour (3)"}, fieldValues(buf, hdr, hdr.Fragments[4]))
	assert.Equal(t, []any{"No Interlacing (0)"}, fieldValues(buf, hdr, hdr.Fragments[7]))

	gama := root.Children()[3].Segment()
	assert.InDelta(t, 0.45455, fieldValues(buf, gama, gama.Fragments[2])[0], 1e-9)

	plte := root.Children()[4].Segment()
	assert.Equal(t, "0-2: %c%d %c%d %c%d", plte.Fragments[3].Template)
	assert.Equal(t, []any{uint64(0xFF0000), uint64(0x00FF00), uint64(0x0000FF)}, fieldValues(buf, plte, plte.Fragments[3]))

	text := root.Children()[6].Segment()
	assert.Equal(t, []any{"Author"}, fieldValues(buf, text, text.Fragments[2]))
	assert.Equal(t, []any{"Jürg"}, fieldValues(buf, text, text.Fragments[3]))

	var ordered []*segment.Segment
	root.Walk(func(_ int, n *segment.Node) bool {
		if s := n.Segment(); s != nil {
			ordered = append(ordered, s)
		}
		return true
	})
	require.Len(t, ordered, 10)
	for i := 1; i < len(ordered); i++ {
		assert.Equal(t, ordered[i-1].End(), ordered[i].Start, "segment %d abuts the previous one", i)
	}
	assert.Equal(t, len(buf), ordered[9].End())
}

func TestEditThroughIHDRField(t *testing.T) {
	testlog.Start(t)
	buf := file(ihdr(1, 1, 8, 2), chunk("IEND", nil))
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	hdr := res.Tree.Root.Children()[1].Segment()
	width := hdr.Fields[hdr.Fragments[2].Fields[0]]

	require.NoError(t, view.Write(buf, width, 1024))
	assert.Equal(t, uint32(1024), binary.BigEndian.Uint32(buf[16:]))

	colour := hdr.Fields[hdr.Fragments[4].Fields[0]]
	assert.True(t, errors.Is(view.Write(buf, colour, 6), view.ErrReadOnly))
}

func TestOverlongBuilderIsResynced(t *testing.T) {
	testlog.Start(t)
	long := ihdr(2, 2, 8, 6)
	// claim 15 bytes of data: the builder reads 13, resync skips two
	data := append(append([]byte(nil), long[8:8+13]...), 0xAA, 0xBB)
	buf := file(chunk("IHDR", data), chunk("IEND", nil))
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)

	require.Len(t, res.Anomalies, 1)
	a := res.Anomalies[0]
	assert.Equal(t, decode.KindResync, a.Kind)
	assert.Equal(t, 15, a.Declared-8)
	assert.Equal(t, 13, a.Consumed-8)

	segs := res.Tree.Segments()
	require.Len(t, segs, 3)
	assert.Equal(t, "IEND Chunk (Image End)", segs[2].Title)
	assert.Equal(t, 8+15+12, segs[2].Start)
}

func TestShortKnownChunkFallsBackToGeneric(t *testing.T) {
	testlog.Start(t)
	buf := file(chunk("gAMA", []byte{1, 2}), chunk("IEND", nil))
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, decode.KindMalformed, res.Anomalies[0].Kind)
	g := res.Tree.Segments()[1]
	assert.Equal(t, "gAMA Chunk", g.Title)
	assert.Equal(t, segment.ColorUnknown, g.Color)
	assert.Equal(t, 14, g.Length)
}

func TestOverrunAndTrailingBytesAreFlagged(t *testing.T) {
	testlog.Start(t)
	c := chunk("zzzz", make([]byte, 10))
	binary.BigEndian.PutUint32(c, 100)
	res, err := Decode(file(c), decode.Options{})
	require.NoError(t, err)
	segs := res.Tree.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, 8+10+4, segs[1].Length)

	kinds := map[decode.Kind]bool{}
	for _, a := range res.Anomalies {
		kinds[a.Kind] = true
	}
	assert.True(t, kinds[decode.KindOverrun])

	res, err = Decode(file(chunk("IEND", nil), []byte{1, 2, 3}), decode.Options{})
	require.NoError(t, err)
	segs = res.Tree.Segments()
	require.Len(t, segs, 3)
	assert.Equal(t, "Truncated Data", segs[2].Title)
	assert.Equal(t, 3, segs[2].Length)
	assert.Equal(t, decode.KindTruncated, res.Anomalies[0].Kind)
}

func TestPaletteLengthMustDivideByThree(t *testing.T) {
	testlog.Start(t)
	buf := file(chunk("PLTE", []byte{1, 2, 3, 4}))
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, decode.KindMalformed, res.Anomalies[0].Kind)
	p := res.Tree.Segments()[1]
	last := p.Fragments[len(p.Fragments)-2]
	assert.Equal(t, "Trailing: %D", last.Template)
}

func TestChromaticityUsesPackedFactors(t *testing.T) {
	testlog.Start(t)
	data := make([]byte, 0, 32)
	for _, v := range []uint32{31270, 32900, 64000, 33000, 30000, 60000, 15000, 6000} {
		data = binary.BigEndian.AppendUint32(data, v)
	}
	buf := file(chunk("cHRM", data))
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	c := res.Tree.Segments()[1]
	white := fieldValues(buf, c, c.Fragments[2])
	assert.InDelta(t, 0.3127, white[0], 1e-9)
	assert.InDelta(t, 0.329, white[1], 1e-9)

	first := c.Fields[c.Fragments[2].Fields[0]]
	assert.Equal(t, view.Bound{Start: 16, Len: 4}, first.Bound())
	require.NoError(t, view.Write(buf, first, 0.5))
	assert.Equal(t, uint32(50000), binary.BigEndian.Uint32(buf[16:]))
}

func TestDecodeIsDeterministicPerSeed(t *testing.T) {
	testlog.Start(t)
	buf := file(ihdr(1, 1, 8, 2), chunk("sRGB", []byte{0}), chunk("tIME", []byte{0x07, 0xE8, 1, 2, 3, 4, 5}))
	a, err := Decode(buf, decode.Options{Seed: 9})
	require.NoError(t, err)
	b, err := Decode(buf, decode.Options{Seed: 9})
	require.NoError(t, err)
	for i, s := range a.Tree.Segments() {
		assert.Equal(t, s.Color, b.Tree.Segments()[i].Color)
	}
	tm := a.Tree.Segments()[3]
	assert.Equal(t, []any{uint64(2024), uint64(1), uint64(2), uint64(3), uint64(4), uint64(5)}, fieldValues(buf, tm, tm.Fragments[2]))
}
