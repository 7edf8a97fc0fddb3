package gif

import (
	"errors"
	"fmt"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

type extKind int

const (
	extUnknown extKind = iota
	extGraphicControl
	extComment
	extApplication
	extPlainText
)

func classify(label byte) extKind {
	switch label {
	case 0xF9:
		return extGraphicControl
	case 0xFE:
		return extComment
	case 0xFF:
		return extApplication
	case 0x01:
		return extPlainText
	default:
		return extUnknown
	}
}

var disposalMethods = map[string]string{
	"0": "No disposal specified",
	"1": "Do not dispose",
	"2": "Restore to background",
	"3": "Restore to previous",
}

var errBlockSize = errors.New("gif: unexpected block size")

// extension decodes a 0x21 block. Its end is found by walking the
// sub-block chain before any field is read.
func (d *decoder) extension(start int) bool {
	s := d.s
	buf := s.Buf()
	if start+2 > len(buf) {
		s.Flagf(decode.KindTruncated, start, "Extension", "extension label missing")
		b := segment.NewBuilder("Truncated Data", start, len(buf)-start, segment.ColorUnknown)
		b.Line("Data: %D", view.NewRaw(start, len(buf)-start))
		s.Tree.Root.AddSegment(b.Build())
		s.C.SetPos(len(buf))
		return false
	}
	label := buf[start+1]
	kind := classify(label)
	c := walkChain(buf, start+2)
	title := extTitle(kind, label)
	if kind == extUnknown {
		s.Flagf(decode.KindUnknownTag, start, title, "unrecognised extension label")
	}
	if !c.complete {
		s.Flagf(decode.KindMissingTerminator, start, title, "sub-block chain runs off end of buffer")
		kind = extUnknown
	}

	parent := s.Tree.Root
	switch kind {
	case extGraphicControl:
		if d.pending != nil {
			s.Flagf(decode.KindMalformed, start, title, "second graphics control extension before an image")
		} else {
			d.pending = d.openGroup()
		}
		parent = d.pending
	case extPlainText:
		parent = d.group()
	}

	b := segment.NewBuilder(title, start, c.end-start, extColor(kind, d))
	if err := d.buildExt(kind, b, start, c); err != nil {
		s.Flagf(decode.KindMalformed, start, title, "extension body unreadable: %v", err)
		b = segment.NewBuilder(title, start, c.end-start, segment.ColorUnknown)
		_ = d.buildExt(extUnknown, b, start, c)
	}
	s.Resync(title, start, c.end)
	parent.AddSegment(b.Build())
	return c.complete
}

func extTitle(kind extKind, label byte) string {
	switch kind {
	case extGraphicControl:
		return "Graphics Control Extension"
	case extComment:
		return "Comment Extension"
	case extApplication:
		return "Application Block"
	case extPlainText:
		return "Plain Text Extension"
	default:
		return fmt.Sprintf("Unknown Extension 0x%02X", label)
	}
}

func extColor(kind extKind, d *decoder) string {
	switch kind {
	case extUnknown:
		return segment.ColorUnknown
	case extComment, extApplication:
		return segment.ColorExtension
	default:
		return d.s.Palette.Random()
	}
}

func (d *decoder) buildExt(kind extKind, b *segment.Builder, start int, c chain) error {
	d.s.C.SetPos(start)
	r := d.s.Reader()
	b.Line("Extension Introducer: %Dh_2 Label: %Dh_2", r.Byte(), r.Byte())
	if err := r.Err(); err != nil {
		return err
	}
	switch kind {
	case extGraphicControl:
		graphicControl(r, b)
	case extComment:
		comment(r, b)
	case extApplication:
		application(r, b)
	case extPlainText:
		plainText(r, b)
	default:
		b.Line(fmt.Sprintf("Sub-blocks: %d, %d data bytes", c.blocks, c.data))
		b.Field(r.Reserve(c.end - r.Pos()))
		return r.Err()
	}
	if err := r.Err(); err != nil {
		return err
	}
	b.Line("Block Terminator: %Dh_2", r.Byte())
	return r.Err()
}

// blockSize reads a sub-block size byte that must equal want.
func blockSize(r *decode.Reader, b *segment.Builder, want int) {
	size := r.Byte()
	if got := r.Get(size); r.Err() == nil && got != want {
		r.Fail(fmt.Errorf("%w: %d, want %d", errBlockSize, got, want))
		return
	}
	b.Line("Block Size: %D", size)
}

func graphicControl(r *decode.Reader, b *segment.Builder) {
	blockSize(r, b, 4)
	packed := r.Byte()
	delay := r.ShortLE()
	transparent := r.Byte()
	if r.Err() != nil {
		return
	}
	b.Line("Disposal Method: %D Reserved: %D",
		view.NewEnumDefault(view.NewBits(packed, 2, 3), disposalMethods, "Reserved"), view.NewBits(packed, 5, 3))
	b.Line("User Input: %D Transparent Color: %D", view.NewBit(packed, 1), view.NewBit(packed, 0))
	b.Line("Delay: %D s", view.NewFactor(delay, 100))
	b.Line("Transparent Color Index: %D", transparent)
}

// subBlocks lists a chain's data sub-blocks up to, not including, the
// terminator. Text blocks are decoded as Latin-1.
func subBlocks(r *decode.Reader, b *segment.Builder, text bool) {
	for r.Err() == nil && r.Remaining() > 0 {
		n := r.Get(view.NewByte(r.Pos()))
		if n == 0 {
			return
		}
		size := r.Byte()
		if text {
			b.Line("%D", r.Latin1(n))
			b.Field(size)
			continue
		}
		b.Line("Sub-block: %D bytes", size)
		if n <= 64 {
			b.Field(r.Bytes(n))
		} else {
			b.Field(r.Reserve(n))
		}
	}
}

func comment(r *decode.Reader, b *segment.Builder) {
	subBlocks(r, b, true)
}

func application(r *decode.Reader, b *segment.Builder) {
	blockSize(r, b, 11)
	id, auth := r.Text(8), r.Text(3)
	if r.Err() != nil {
		return
	}
	b.Line("Application: %D", id)
	b.Line("Authentifier: %D", auth)
	buf := r.Buf()
	if id.Value(buf) == "NETSCAPE" && auth.Value(buf) == "2.0" && r.Remaining() >= 4 &&
		buf[r.Pos()] == 3 && buf[r.Pos()+1] == 1 {
		size, sub, loops := r.Byte(), r.Byte(), r.ShortLE()
		b.Field(size)
		b.Line("Sub-block ID: %D", sub)
		b.Line("Loop Count: %D", loops)
	}
	subBlocks(r, b, false)
}

func plainText(r *decode.Reader, b *segment.Builder) {
	blockSize(r, b, 12)
	left, top := r.ShortLE(), r.ShortLE()
	width, height := r.ShortLE(), r.ShortLE()
	cellW, cellH := r.Byte(), r.Byte()
	fg, bg := r.Byte(), r.Byte()
	if r.Err() != nil {
		return
	}
	b.Line("Text Grid Offset: %D, %D", left, top)
	b.Line("Text Grid Size: %D x %D", width, height)
	b.Line("Character Cell: %D x %D", cellW, cellH)
	b.Line("Foreground Index: %D Background Index: %D", fg, bg)
	subBlocks(r, b, true)
}
