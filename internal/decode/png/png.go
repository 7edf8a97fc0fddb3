// Package png decodes the PNG chunk layout into a segment tree. Chunk
// payloads are described, not decompressed, and CRCs are not checked.
package png

import (
	"bytes"
	"fmt"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

const Format = "png"

// Magic is the fixed 8-byte PNG signature.
var Magic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

const (
	headerLen  = 8
	trailerLen = 4
)

type decoder struct {
	s         *decode.Scan
	data      *segment.Node
	colorType int
}

// Decode scans buf chunk by chunk until the end of the buffer.
func Decode(buf []byte, opts decode.Options) (*decode.Result, error) {
	if len(buf) < len(Magic) || !bytes.Equal(buf[:len(Magic)], Magic) {
		return nil, fmt.Errorf("%w: png magic mismatch", decode.ErrBadSignature)
	}
	d := &decoder{s: decode.NewScan(Format, buf, opts), colorType: -1}
	d.signature()
	for !d.s.C.EOF() {
		if !d.chunk() {
			break
		}
	}
	return d.s.Result(), nil
}

func (d *decoder) signature() {
	r := d.s.Reader()
	magic := r.Bytes(len(Magic))
	b := segment.NewBuilder("PNG Signature", 0, len(Magic), segment.ColorHeader)
	b.Line("Signature: %D", magic)
	d.s.Tree.Root.AddSegment(b.Build())
}

// chunk decodes one chunk and reports whether the loop can continue.
func (d *decoder) chunk() bool {
	s := d.s
	buf := s.Buf()
	start := s.C.Pos()
	if s.C.Remaining() < headerLen {
		n := s.C.Remaining()
		s.Flagf(decode.KindTruncated, start, "", "%d trailing bytes cannot hold a chunk header", n)
		b := segment.NewBuilder("Truncated Data", start, n, segment.ColorUnknown)
		b.Line("Data: %D", view.NewRaw(start, n))
		s.Tree.Root.AddSegment(b.Build())
		s.C.SetPos(s.C.Len())
		return false
	}

	lengthView := view.NewUint(start)
	tagView := view.NewText(start+4, 4, false, nil)
	length := int(lengthView.Uint(buf))
	tag := decode.PrintableTag(buf[start+4 : start+8])
	kind := classify(tag)

	end := s.Clamp(tag, start, start+headerLen+length+trailerLen)
	dataLen := min(length, end-start-headerLen)

	s.C.SetPos(start + headerLen)
	b := d.builder(kind, tag, start, end-start)
	r := s.Reader()
	if err := d.build(kind, r, b, dataLen); err != nil {
		s.Flagf(decode.KindMalformed, start, tag, "chunk body unreadable: %v", err)
		b = d.builder(chunkUnknown, tag, start, end-start)
		s.C.SetPos(start + headerLen)
		_ = d.build(chunkUnknown, s.Reader(), b, dataLen)
	}
	s.Resync(tag, start, start+headerLen+dataLen)

	b.Head("Segment Header: %D Length: %D", tagView, lengthView)
	b.Head("Ancillary: %D Private: %D Reserved: %D Safe-to-copy: %D", propertyBits(start+4)...)
	if crc, err := s.C.Uint(); err == nil {
		b.Line("Data Checksum: %Dh_8", crc)
	} else {
		s.Flagf(decode.KindTruncated, start, tag, "missing checksum")
	}

	if kind == chunkIDAT {
		d.dataGroup().AddSegment(b.Build())
	} else {
		s.Tree.Root.AddSegment(b.Build())
	}
	s.C.SetPos(end)
	return true
}

// propertyBits exposes bit 5 of each tag byte, the chunk property flags.
func propertyBits(tagOff int) []view.View {
	out := make([]view.View, 4)
	for i := range out {
		out[i] = view.NewBit(view.NewByte(tagOff+i), 5)
	}
	return out
}

// dataGroup returns the node holding every IDAT chunk, creating it on first use.
func (d *decoder) dataGroup() *segment.Node {
	if d.data == nil {
		d.data = d.s.Tree.Root.AddGroup("Image Data")
	}
	return d.data
}
