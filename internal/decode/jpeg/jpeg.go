// Package jpeg decodes the JPEG marker stream into a segment tree. Tables
// and headers are broken out into fields; entropy-coded scan data is
// bounded, never decompressed.
package jpeg

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/binlens/internal/cursor"
	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

const Format = "jpeg"

var errShortSegment = errors.New("jpeg: segment shorter than its fixed layout")

var eoi = []byte{0xFF, 0xD9}

type decoder struct {
	s *decode.Scan
}

// Decode scans buf marker by marker. It stops at EOI, or at the first SOS,
// whose entropy-coded data runs to the end of the buffer.
func Decode(buf []byte, opts decode.Options) (*decode.Result, error) {
	if len(buf) < 2 || buf[0] != 0xFF || buf[1] != 0xD8 {
		return nil, fmt.Errorf("%w: jpeg SOI mismatch", decode.ErrBadSignature)
	}
	d := &decoder{s: decode.NewScan(Format, buf, opts)}
	d.standalone(0, markerSOI, 0xD8)
	d.s.C.SetPos(2)
	for {
		if d.s.C.EOF() {
			d.s.Flagf(decode.KindMissingTerminator, d.s.C.Pos(), "", "no EOI before end of buffer")
			break
		}
		more, err := d.next()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	return d.s.Result(), nil
}

// next decodes the record at the cursor and reports whether to continue.
func (d *decoder) next() (bool, error) {
	s := d.s
	buf := s.Buf()
	start := s.C.Pos()

	if buf[start] != 0xFF {
		return d.unexpected(start), nil
	}
	fill := start
	for fill+1 < len(buf) && buf[fill+1] == 0xFF {
		fill++
	}
	if fill > start {
		b := segment.NewBuilder("Fill Bytes", start, fill-start, segment.ColorScan)
		b.Line("Padding: %D", view.NewRaw(start, fill-start))
		s.Tree.Root.AddSegment(b.Build())
		s.C.SetPos(fill)
		return true, nil
	}
	if start+2 > len(buf) {
		d.truncated(start, "marker byte missing after 0xFF")
		return false, nil
	}

	m := buf[start+1]
	kind := classify(m)
	if kind.standalone() {
		d.standalone(start, kind, m)
		s.C.SetPos(start + 2)
		return kind != markerEOI, nil
	}
	if start+4 > len(buf) {
		d.truncated(start, fmt.Sprintf("length of marker 0x%02X missing", m))
		return false, nil
	}

	name := title(kind, m)
	length := int(view.NewShort(start + 2).Uint(buf))
	if length < 2 {
		s.Flagf(decode.KindMalformed, start, name, "declared length %d is below the minimum of 2", length)
		length = 2
	}
	if kind == markerSOS {
		if err := checkScanHeader(buf, start, length); err != nil {
			return false, err
		}
	}
	if kind == markerUnknown {
		s.Flagf(decode.KindUnknownTag, start, name, "unrecognised marker")
	}
	end := s.Clamp(name, start, start+2+length)

	s.C.SetPos(start + 4)
	b := d.builder(kind, m, start, end-start)
	if err := d.build(kind, m, s.Reader(), b, end); err != nil {
		s.Flagf(decode.KindMalformed, start, name, "segment body unreadable: %v", err)
		b = segment.NewBuilder(name, start, end-start, segment.ColorUnknown)
		s.C.SetPos(start + 4)
		_ = d.build(markerUnknown, m, s.Reader(), b, end)
	}
	s.Resync(name, start, end)
	b.Head("Marker: %Dh_4 Length: %D", view.NewShort(start), view.NewShort(start+2))
	s.Tree.Root.AddSegment(b.Build())

	if kind == markerSOS {
		d.scanData()
		return false, nil
	}
	return true, nil
}

// checkScanHeader enforces length == 6 + 2*Ns. A scan header that
// disagrees with itself leaves no safe place to resume.
func checkScanHeader(buf []byte, start, length int) error {
	if start+5 > len(buf) {
		return nil
	}
	ns := int(buf[start+4])
	if length != 6+2*ns {
		return fmt.Errorf("%w: SOS at %d declares length %d for %d components, want %d",
			decode.ErrInvariant, start, length, ns, 6+2*ns)
	}
	return nil
}

func (d *decoder) standalone(start int, kind markerKind, m byte) {
	s := d.s
	var color string
	switch kind {
	case markerSOI:
		if start == 0 {
			color = segment.ColorHeader
		} else {
			color = colorStray
			s.Flagf(decode.KindMalformed, start, "Start of Image", "SOI inside the stream")
		}
	case markerEOI:
		color = segment.ColorTerminal
	default:
		color = segment.ColorScan
	}
	b := segment.NewBuilder(title(kind, m), start, 2, color)
	b.Line("Marker: %Dh_4", view.NewShort(start))
	s.Tree.Root.AddSegment(b.Build())
}

// unexpected captures bytes found where a marker should start, up to the
// next 0xFF.
func (d *decoder) unexpected(start int) bool {
	s := d.s
	buf := s.Buf()
	end := len(buf)
	if i := bytes.IndexByte(buf[start:], 0xFF); i >= 0 {
		end = start + i
	}
	s.Flagf(decode.KindUnexpectedByte, start, "", "0x%02X where a marker was expected, %d bytes skipped", buf[start], end-start)
	b := segment.NewBuilder("Unexpected Data", start, end-start, segment.ColorUnknown)
	r := s.Reader()
	decode.Opaque(r, b, end-start, "Data")
	s.Tree.Root.AddSegment(b.Build())
	s.C.SetPos(end)
	return end < len(buf)
}

func (d *decoder) truncated(start int, detail string) {
	s := d.s
	n := s.C.Len() - start
	s.Flagf(decode.KindTruncated, start, "", "%s", detail)
	b := segment.NewBuilder("Truncated Data", start, n, segment.ColorUnknown)
	b.Line("Data: %D", view.NewRaw(start, n))
	s.Tree.Root.AddSegment(b.Build())
	s.C.SetPos(s.C.Len())
}

// scanData records everything after the scan header as one opaque record.
// Its children bound the entropy-coded intervals found by draining a
// BitSeeker, split at restart markers, then EOI and whatever trails it.
func (d *decoder) scanData() {
	s := d.s
	buf := s.Buf()
	start := s.C.Pos()
	if start >= len(buf) {
		s.Flagf(decode.KindMissingTerminator, start, "Scan Data", "no scan data after SOS")
		return
	}
	b := segment.NewBuilder("Scan Data", start, len(buf)-start, colorScan)
	b.Field(view.NewPlaceholder(start, len(buf)-start))
	b.Line(fmt.Sprintf("Entropy-coded data: %d bytes", len(buf)-start))
	node := s.Tree.Root.AddSegment(b.Build())

	bs := cursor.NewBitSeeker(s.C, s.Log)
	intervals := 0
	for !s.C.EOF() {
		from := s.C.Pos()
		bs.Reset()
		n, err := bs.Drain()
		if to := s.C.Pos(); to > from {
			intervals++
			eb := segment.NewBuilder("Entropy-Coded Segment", from, to-from, s.Palette.Cycle(segment.ColorData))
			eb.Field(view.NewPlaceholder(from, to-from))
			eb.Line(fmt.Sprintf("Interval %d: %d bytes, %d payload", intervals, to-from, n))
			node.AddSegment(eb.Build())
		}
		if err != nil {
			break
		}
		m, ok := bs.Marker()
		if !ok {
			break
		}
		pos := s.C.Pos()
		if m == 0xFF {
			s.C.SetPos(pos + 1)
			continue
		}
		if classify(m) != markerRST {
			break
		}
		rb := segment.NewBuilder(title(markerRST, m), pos, 2, segment.ColorScan)
		rb.Line("Marker: %Dh_4", view.NewShort(pos))
		node.AddSegment(rb.Build())
		s.C.SetPos(pos + 2)
	}

	pos := s.C.Pos()
	if bytes.HasPrefix(buf[pos:], eoi) {
		eb := segment.NewBuilder(title(markerEOI, 0xD9), pos, 2, segment.ColorTerminal)
		eb.Line("Marker: %Dh_4", view.NewShort(pos))
		node.AddSegment(eb.Build())
		pos += 2
	} else if !bytes.HasSuffix(buf, eoi) {
		s.Flagf(decode.KindMissingTerminator, start, "Scan Data", "no EOI after scan data")
	}
	if rest := len(buf) - pos; rest > 0 {
		pb := segment.NewBuilder("Post-Scan Data", pos, rest, segment.ColorScan)
		pb.Field(view.NewPlaceholder(pos, rest))
		pb.Line(fmt.Sprintf("Unparsed: %d bytes", rest))
		node.AddSegment(pb.Build())
	}
	s.C.SetPos(len(buf))
}
