package png

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

var errShortChunk = errors.New("png: chunk shorter than its fixed layout")

type chunkKind uint8

const (
	chunkUnknown chunkKind = iota
	chunkIHDR
	chunkPLTE
	chunkIDAT
	chunkIEND
	chunkSRGB
	chunkGAMA
	chunkPHYS
	chunkCHRM
	chunkTEXT
	chunkZTXT
	chunkITXT
	chunkTIME
	chunkHIST
	chunkBKGD
	chunkTRNS
)

func classify(tag string) chunkKind {
	switch tag {
	case "IHDR":
		return chunkIHDR
	case "PLTE":
		return chunkPLTE
	case "IDAT":
		return chunkIDAT
	case "IEND":
		return chunkIEND
	case "sRGB":
		return chunkSRGB
	case "gAMA":
		return chunkGAMA
	case "pHYs":
		return chunkPHYS
	case "cHRM":
		return chunkCHRM
	case "tEXt":
		return chunkTEXT
	case "zTXt":
		return chunkZTXT
	case "iTXt":
		return chunkITXT
	case "tIME":
		return chunkTIME
	case "hIST":
		return chunkHIST
	case "bKGD":
		return chunkBKGD
	case "tRNS":
		return chunkTRNS
	default:
		return chunkUnknown
	}
}

var (
	colorTypes = map[string]string{
		"0": "Greyscale",
		"2": "Truecolour",
		"3": "Indexed-colour",
		"4": "Greyscale with alpha",
		"6": "Truecolour with alpha",
	}
	compressionMethods = map[string]string{"0": "Deflate/Inflate Compression"}
	filterMethods      = map[string]string{"0": "Adaptive Filtering"}
	interlaceMethods   = map[string]string{"0": "No Interlacing", "1": "Adam7 Interlacing"}
	renderingIntents   = map[string]string{
		"0": "Perceptual",
		"1": "Relative colorimetric",
		"2": "Saturation",
		"3": "Absolute colorimetric",
	}
	physUnits   = map[string]string{"1": "meter"}
	textFlags   = map[string]string{"0": "Uncompressed", "1": "Compressed"}
	zlibMethods = map[string]string{"0": "zlib deflate"}

	// allowed bit depths per colour type
	bitDepths = map[int][]int{
		0: {1, 2, 4, 8, 16},
		2: {8, 16},
		3: {1, 2, 4, 8},
		4: {8, 16},
		6: {8, 16},
	}
)

func (d *decoder) builder(kind chunkKind, tag string, start, length int) *segment.Builder {
	p := d.s.Palette
	var title, color string
	switch kind {
	case chunkIHDR:
		title, color = "IHDR Chunk (Image Header)", segment.ColorHeader
	case chunkPLTE:
		title, color = "PLTE Chunk (Palette)", segment.ColorPalette
	case chunkIDAT:
		title, color = "IDAT Chunk (Image Data)", p.Cycle(segment.ColorData)
	case chunkIEND:
		title, color = "IEND Chunk (Image End)", segment.ColorTerminal
	case chunkUnknown:
		title, color = tag+" Chunk", segment.ColorUnknown
	default:
		title, color = tag+" Chunk", p.Random()
	}
	return segment.NewBuilder(title, start, length, color)
}

// build fills b from the n data bytes at the reader position.
func (d *decoder) build(kind chunkKind, r *decode.Reader, b *segment.Builder, n int) error {
	switch kind {
	case chunkIHDR:
		d.ihdr(r, b, n)
	case chunkPLTE:
		d.plte(r, b, n)
	case chunkIDAT:
		decode.Opaque(r, b, n, "Compressed Data")
	case chunkIEND:
		b.Line("End of PNG datastream")
	case chunkSRGB:
		need(r, n, 1)
		intent := r.Byte()
		b.Line("Rendering Intent: %D", view.NewEnumDefault(intent, renderingIntents, "Unknown, nonstandard"))
	case chunkGAMA:
		need(r, n, 4)
		// gAMA stores gamma times 100000
		b.Line("Gamma: %D", view.NewFactor(r.Uint(), 100000))
	case chunkPHYS:
		need(r, n, 9)
		x, y, unit := r.Uint(), r.Uint(), r.Byte()
		b.Line("Physical Pixel Dimensions: %D x %D pixels per %D", x, y,
			view.NewEnumDefault(unit, physUnits, "unspecified unit"))
	case chunkCHRM:
		chrm(r, b, n)
	case chunkTEXT:
		text(r, b, n)
	case chunkZTXT:
		ztxt(r, b, n)
	case chunkITXT:
		itxt(r, b, n)
	case chunkTIME:
		need(r, n, 7)
		year, month, day := r.Short(), r.Byte(), r.Byte()
		hour, minute, second := r.Byte(), r.Byte(), r.Byte()
		b.Line("Last Modified: %D-%D-%D %D:%D:%D UTC", year, month, day, hour, minute, second)
	case chunkHIST:
		hist(r, b, n)
	case chunkBKGD:
		d.bkgd(r, b, n)
	case chunkTRNS:
		d.trns(r, b, n)
	default:
		decode.Opaque(r, b, n, "Data")
	}
	return r.Err()
}

func need(r *decode.Reader, n, want int) bool {
	if n < want {
		r.Fail(fmt.Errorf("%w: need %d bytes, have %d", errShortChunk, want, n))
		return false
	}
	return true
}

func (d *decoder) ihdr(r *decode.Reader, b *segment.Builder, n int) {
	if !need(r, n, 13) {
		return
	}
	width, height := r.Uint(), r.Uint()
	depth, colorType := r.Byte(), r.Byte()
	compression, filter, interlace := r.Byte(), r.Byte(), r.Byte()
	if r.Err() != nil {
		return
	}
	b.Line("Image Dimensions: %D x %D", width, height)
	b.Line("Bit Depth: %D bit", depth)
	b.Line("Color Type: %D", view.NewEnumDefault(colorType, colorTypes, "Unknown Color Type"))
	b.Line("Compression Method: %D", view.NewEnumDefault(compression, compressionMethods, "Nonstandard Compression Method"))
	b.Line("Filter Method: %D", view.NewEnumDefault(filter, filterMethods, "Nonstandard Filtering Method"))
	b.Line("Interlace Method: %D", view.NewEnumDefault(interlace, interlaceMethods, "Nonstandard Interlacing Method"))

	ct, bd := r.Get(colorType), r.Get(depth)
	d.colorType = ct
	allowed, ok := bitDepths[ct]
	if !ok || !containsInt(allowed, bd) {
		d.s.Flagf(decode.KindMalformed, b.Start(), "IHDR", "bit depth %d invalid for colour type %d", bd, ct)
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (d *decoder) plte(r *decode.Reader, b *segment.Builder, n int) {
	if n%3 != 0 {
		d.s.Flagf(decode.KindMalformed, r.Pos()-headerLen, "PLTE", "palette length %d is not a multiple of 3", n)
	}
	entries := n / 3
	colors := make([]view.View, 0, entries)
	for range entries {
		colors = append(colors, r.RGB())
	}
	if r.Err() != nil {
		return
	}
	b.Line(fmt.Sprintf("Color Table: %d entries", entries))
	const perRow = 8
	for row := 0; row < entries; row += perRow {
		k := min(perRow, entries-row)
		tmpl := fmt.Sprintf("%d-%d: %s", row, row+k-1, strings.TrimSpace(strings.Repeat("%c%d ", k)))
		b.Line(tmpl, colors[row:row+k]...)
	}
	if rest := n % 3; rest > 0 {
		b.Line("Trailing: %D", r.Bytes(rest))
	}
}

func chrm(r *decode.Reader, b *segment.Builder, n int) {
	if !need(r, n, 32) {
		return
	}
	p := r.Packed(8, 4, false)
	if r.Err() != nil {
		return
	}
	f := func(i int) view.View { return view.NewFactor(p.Sub(i), 100000) }
	b.Line("White Point: x=%d y=%d", f(0), f(1))
	b.Line("Red: x=%d y=%d", f(2), f(3))
	b.Line("Green: x=%d y=%d", f(4), f(5))
	b.Line("Blue: x=%d y=%d", f(6), f(7))
}

// text decodes tEXt: a Latin-1 keyword, NUL, Latin-1 text.
func text(r *decode.Reader, b *segment.Builder, n int) {
	end := r.Pos() + n
	keyword := r.CStringBefore(end, true)
	if r.Err() != nil {
		return
	}
	b.Line("Keyword: %D", keyword)
	b.Line("Text: %D", r.Latin1(end-r.Pos()))
}

func ztxt(r *decode.Reader, b *segment.Builder, n int) {
	end := r.Pos() + n
	keyword := r.CStringBefore(end, true)
	method := r.Byte()
	if r.Err() != nil {
		return
	}
	b.Line("Keyword: %D", keyword)
	b.Line("Compression Method: %D", view.NewEnumDefault(method, zlibMethods, "Nonstandard Compression Method"))
	decode.Opaque(r, b, end-r.Pos(), "Compressed Text")
}

func itxt(r *decode.Reader, b *segment.Builder, n int) {
	end := r.Pos() + n
	keyword := r.CStringBefore(end, true)
	flag, method := r.Byte(), r.Byte()
	lang := r.CStringBefore(end, false)
	translated := r.CStringBefore(end, false)
	if r.Err() != nil {
		return
	}
	b.Line("Keyword: %D", keyword)
	b.Line("Compression: %D %D", view.NewEnumDefault(flag, textFlags, "Invalid flag"),
		view.NewEnumDefault(method, zlibMethods, "Nonstandard Compression Method"))
	b.Line("Language: %D Translated Keyword: %D", lang, translated)
	if r.Get(flag) == 0 {
		b.Line("Text: %D", r.Text(end-r.Pos()))
		return
	}
	decode.Opaque(r, b, end-r.Pos(), "Compressed Text")
}

func hist(r *decode.Reader, b *segment.Builder, n int) {
	count := n / 2
	p := r.Packed(count, 2, false)
	if r.Err() != nil {
		return
	}
	b.Line(fmt.Sprintf("Histogram: %d entries", count))
	const perRow = 8
	for row := 0; row < count; row += perRow {
		k := min(perRow, count-row)
		fields := make([]view.View, k)
		for i := range fields {
			fields[i] = p.Sub(row + i)
		}
		b.Line(fmt.Sprintf("%d-%d: %s", row, row+k-1, strings.TrimSpace(strings.Repeat("%d ", k))), fields...)
	}
	if n%2 == 1 {
		b.Line("Trailing: %D", r.Bytes(1))
	}
}

// bkgd layout depends on the IHDR colour type.
func (d *decoder) bkgd(r *decode.Reader, b *segment.Builder, n int) {
	switch d.colorType {
	case 3:
		if need(r, n, 1) {
			b.Line("Background Palette Index: %D", r.Byte())
		}
	case 0, 4:
		if need(r, n, 2) {
			b.Line("Background Grey: %D", r.Short())
		}
	case 2, 6:
		if need(r, n, 6) {
			red, green, blue := r.Short(), r.Short(), r.Short()
			b.Line("Background: R=%D G=%D B=%D", red, green, blue)
		}
	default:
		decode.Opaque(r, b, n, "Data (no IHDR)")
	}
}

func (d *decoder) trns(r *decode.Reader, b *segment.Builder, n int) {
	switch d.colorType {
	case 3:
		alpha := r.Packed(n, 1, false)
		if r.Err() != nil {
			return
		}
		b.Line(fmt.Sprintf("Palette Alpha: %d entries", n))
		for i := range n {
			b.Line(fmt.Sprintf("%d: %%D", i), alpha.Sub(i))
		}
	case 0:
		if need(r, n, 2) {
			b.Line("Transparent Grey: %D", r.Short())
		}
	case 2:
		if need(r, n, 6) {
			red, green, blue := r.Short(), r.Short(), r.Short()
			b.Line("Transparent Colour: R=%D G=%D B=%D", red, green, blue)
		}
	default:
		decode.Opaque(r, b, n, "Data")
	}
}
