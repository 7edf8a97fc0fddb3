// Package gif decodes the GIF block stream into a segment tree. Each image
// is grouped with the extensions that control it; LZW data is bounded but
// not decompressed.
package gif

import (
	"fmt"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

const Format = "gif"

const (
	blockExtension byte = 0x21
	blockImage     byte = 0x2C
	blockTrailer   byte = 0x3B

	headerLen     = 13
	descriptorLen = 10
)

var versions = map[string]bool{"GIF87a": true, "GIF89a": true}

var aspectRatios = map[string]string{"0": "No aspect ratio information"}

type decoder struct {
	s      *decode.Scan
	images int
	// pending is the group opened by a graphics control extension and
	// closed by the next image.
	pending *segment.Node
}

// Decode scans buf block by block until the trailer.
func Decode(buf []byte, opts decode.Options) (*decode.Result, error) {
	if len(buf) < 6 || !versions[string(buf[:6])] {
		return nil, fmt.Errorf("%w: gif version header mismatch", decode.ErrBadSignature)
	}
	d := &decoder{s: decode.NewScan(Format, buf, opts)}
	if !d.header() {
		return d.s.Result(), nil
	}
	for {
		if d.s.C.EOF() {
			d.s.Flagf(decode.KindMissingTerminator, d.s.C.Pos(), "", "no trailer before end of buffer")
			break
		}
		if !d.block() {
			break
		}
	}
	return d.s.Result(), nil
}

func (d *decoder) header() bool {
	s := d.s
	r := s.Reader()
	version := r.Text(6)
	width, height := r.ShortLE(), r.ShortLE()
	packed := r.Byte()
	bg, aspect := r.Byte(), r.Byte()
	if r.Err() != nil {
		s.Flagf(decode.KindTruncated, 0, "Header", "logical screen descriptor cut short: %v", r.Err())
		b := segment.NewBuilder("Header (truncated)", 0, s.C.Len(), segment.ColorHeader)
		b.Line("Data: %D", view.NewRaw(0, s.C.Len()))
		s.Tree.Root.AddSegment(b.Build())
		return false
	}

	b := segment.NewBuilder("Header", 0, headerLen, segment.ColorHeader)
	b.Line("Signature/Version: %D", version)
	b.Line("Logical Screen: %D x %D", width, height)
	hasTable := view.NewBit(packed, 7)
	b.Line("Global Color Table: %D Color Resolution: %D Sorted: %D Table Size: %D",
		hasTable, view.NewBits(packed, 4, 3), view.NewBit(packed, 3), view.NewBits(packed, 0, 3))
	b.Line("Background Color Index: %D", bg)
	b.Line("Pixel Aspect Ratio: %D", view.NewEnumDefault(aspect, aspectRatios, "(N+15)/64"))
	s.Tree.Root.AddSegment(b.Build())

	if hasTable.Bool(s.Buf()) {
		n := 1 << (r.Get(packed)&7 + 1)
		return d.colorTable(s.Tree.Root, "Global Color Table", n)
	}
	return true
}

// colorTable reads n RGB entries at the cursor into a segment under parent.
func (d *decoder) colorTable(parent *segment.Node, title string, n int) bool {
	s := d.s
	start := s.C.Pos()
	r := s.Reader()
	entries := make([]view.View, 0, n)
	for range n {
		entries = append(entries, r.RGB())
	}
	if r.Err() != nil {
		s.Flagf(decode.KindTruncated, start, title, "%d-entry colour table cut short", n)
		b := segment.NewBuilder(title+" (truncated)", start, s.C.Len()-start, segment.ColorPalette)
		b.Line("Data: %D", view.NewRaw(start, s.C.Len()-start))
		parent.AddSegment(b.Build())
		s.C.SetPos(s.C.Len())
		return false
	}
	b := segment.NewBuilder(title, start, 3*n, segment.ColorPalette)
	b.Line(fmt.Sprintf("Color Table: %d entries", n))
	const perRow = 8
	for row := 0; row < n; row += perRow {
		k := min(perRow, n-row)
		tmpl := fmt.Sprintf("%d-%d:", row, row+k-1)
		for range k {
			tmpl += " %c%d"
		}
		b.Line(tmpl, entries[row:row+k]...)
	}
	parent.AddSegment(b.Build())
	return true
}

// block decodes one top-level block and reports whether to continue.
func (d *decoder) block() bool {
	s := d.s
	start := s.C.Pos()
	switch s.Buf()[start] {
	case blockTrailer:
		s.C.Skip(1)
		b := segment.NewBuilder("Trailer (End of File Marker)", start, 1, segment.ColorTerminal)
		b.Line("Block Type: %Dh_2", view.NewByte(start))
		s.Tree.Root.AddSegment(b.Build())
		if d.pending != nil {
			s.Flagf(decode.KindMalformed, start, "Trailer", "graphics control extension with no image")
		}
		if rest := s.C.Remaining(); rest > 0 {
			s.Flagf(decode.KindMalformed, start+1, "Trailer", "%d bytes after trailer", rest)
		}
		return false
	case blockImage:
		return d.image(start)
	case blockExtension:
		return d.extension(start)
	default:
		return d.unknown(start)
	}
}

// group returns the group for the next image: the one a control extension
// opened, or a fresh one.
func (d *decoder) group() *segment.Node {
	if d.pending != nil {
		g := d.pending
		d.pending = nil
		return g
	}
	return d.openGroup()
}

func (d *decoder) openGroup() *segment.Node {
	d.images++
	return d.s.Tree.Root.AddGroup(fmt.Sprintf("Image #%d", d.images))
}

func (d *decoder) image(start int) bool {
	s := d.s
	g := d.group()
	r := s.Reader()
	sep := r.Byte()
	left, top := r.ShortLE(), r.ShortLE()
	width, height := r.ShortLE(), r.ShortLE()
	packed := r.Byte()
	if r.Err() != nil {
		s.Flagf(decode.KindTruncated, start, "Image Descriptor", "descriptor cut short")
		b := segment.NewBuilder("Image Descriptor (truncated)", start, s.C.Len()-start, s.Palette.Random())
		b.Line("Data: %D", view.NewRaw(start, s.C.Len()-start))
		g.AddSegment(b.Build())
		s.C.SetPos(s.C.Len())
		return false
	}

	b := segment.NewBuilder("Image Descriptor", start, descriptorLen, s.Palette.Random())
	b.Line("Image Separator: %Dh_2", sep)
	b.Line("Offset: %D, %D", left, top)
	b.Line("Size: %D x %D", width, height)
	hasTable := view.NewBit(packed, 7)
	b.Line("Local Color Table: %D Interlaced: %D Sorted: %D Reserved: %D Table Size: %D",
		hasTable, view.NewBit(packed, 6), view.NewBit(packed, 5), view.NewBits(packed, 3, 2), view.NewBits(packed, 0, 3))
	g.AddSegment(b.Build())

	if hasTable.Bool(s.Buf()) {
		if !d.colorTable(g, "Local Color Table", 1<<(r.Get(packed)&7+1)) {
			return false
		}
	}
	return d.imageData(g)
}

func (d *decoder) imageData(g *segment.Node) bool {
	s := d.s
	start := s.C.Pos()
	r := s.Reader()
	lzw := r.Byte()
	if r.Err() != nil {
		s.Flagf(decode.KindTruncated, start, "Image Data", "missing LZW code size")
		return false
	}
	c := walkChain(s.Buf(), start+1)
	b := segment.NewBuilder("Image Data", start, c.end-start, s.Palette.Cycle(segment.ColorData))
	b.Line("LZW Minimum Code Size: %D", lzw)
	b.Field(r.Reserve(c.end - start - 1))
	b.Line(fmt.Sprintf("Sub-blocks: %d, %d data bytes", c.blocks, c.data))
	g.AddSegment(b.Build())
	s.Resync("Image Data", start, c.end)
	if !c.complete {
		s.Flagf(decode.KindMissingTerminator, start, "Image Data", "sub-block chain runs off end of buffer")
		return false
	}
	return true
}

// unknown covers a block type GIF does not define. It is read as a
// two-byte tag followed by a one-byte length.
func (d *decoder) unknown(start int) bool {
	s := d.s
	buf := s.Buf()
	id := buf[start]
	title := fmt.Sprintf("Unknown Block Type: %02x", id)
	s.Flagf(decode.KindUnknownTag, start, title, "unrecognised block type")
	if start+3 > len(buf) {
		b := segment.NewBuilder(title, start, len(buf)-start, segment.ColorUnknown)
		b.Line("Data: %D", view.NewRaw(start, len(buf)-start))
		s.Tree.Root.AddSegment(b.Build())
		s.C.SetPos(len(buf))
		return false
	}
	end := s.Clamp(title, start, start+4+int(buf[start+2]))
	b := segment.NewBuilder(title, start, end-start, segment.ColorUnknown)
	b.Line("Tag: %Dh_4 Length: %D", view.NewShort(start), view.NewByte(start+2))
	b.Field(view.NewPlaceholder(start+3, end-start-3))
	s.Tree.Root.AddSegment(b.Build())
	s.C.SetPos(end)
	return end < len(buf)
}

type chain struct {
	end      int
	blocks   int
	data     int
	complete bool
}

// walkChain follows length-prefixed sub-blocks from off to the zero-length
// terminator and returns the offset just past it.
func walkChain(buf []byte, off int) chain {
	var c chain
	for off < len(buf) {
		n := int(buf[off])
		if n == 0 {
			c.end, c.complete = off+1, true
			return c
		}
		off += 1 + n
		c.blocks++
		c.data += n
	}
	c.end = len(buf)
	return c
}
