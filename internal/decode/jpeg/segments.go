package jpeg

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

var (
	componentIDs = map[string]string{"1": "Y", "2": "Cb", "3": "Cr", "4": "I", "5": "Q"}
	densityUnits = map[string]string{
		"0": "No units (aspect ratio)",
		"1": "Pixels per inch",
		"2": "Pixels per centimeter",
	}
	jfxxCodes = map[string]string{
		"16": "Thumbnail coded using JPEG",
		"17": "Thumbnail stored using 1 byte/pixel",
		"19": "Thumbnail stored using 3 bytes/pixel",
	}
	tableClasses   = map[string]string{"0": "DC", "1": "AC"}
	dqtPrecisions  = map[string]string{"0": "8-bit", "1": "16-bit"}
	xmpIdentifier  = "http://ns.adobe.com/xap/1.0/"
	maxInlineText  = 1024
	huffmanLengths = 16
)

// unzig maps a zig-zag index to its natural (row-major) position in the
// 8x8 block.
var unzig = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// zigzag is the inverse of unzig.
var zigzag = func() (z [64]int) {
	for k, p := range unzig {
		z[p] = k
	}
	return z
}()

func (d *decoder) builder(kind markerKind, m byte, start, length int) *segment.Builder {
	var color string
	switch kind {
	case markerAPP0, markerAPP1:
		color = d.appColor(start)
	case markerAPPn:
		color = colorAPPn
	case markerSOF:
		color = colorSOF
	case markerDHT:
		color = colorDHT
	case markerDQT:
		color = colorDQT
	case markerSOS:
		color = colorScan
	case markerCOM, markerDRI, markerDNL:
		color = d.s.Palette.Random()
	case markerUnknown:
		color = segment.ColorUnknown
	default:
		color = segment.ColorScan
	}
	return segment.NewBuilder(title(kind, m), start, length, color)
}

func (d *decoder) appColor(start int) string {
	buf := d.s.Buf()
	switch {
	case bytes.HasPrefix(buf[start+4:], []byte("JFIF\x00")):
		return colorJFIF
	case bytes.HasPrefix(buf[start+4:], []byte("Exif\x00")):
		return colorExif
	default:
		return colorAPPn
	}
}

// build fills b from the reader, which starts just past the length field
// and must stop at end.
func (d *decoder) build(kind markerKind, m byte, r *decode.Reader, b *segment.Builder, end int) error {
	switch kind {
	case markerAPP0:
		d.app0(r, b, end)
	case markerAPP1:
		d.app1(r, b, end)
	case markerAPPn:
		d.appn(r, b, end, m)
	case markerCOM:
		b.Line("Comment: %D", r.Latin1(end-r.Pos()))
	case markerSOF:
		d.sof(r, b, end)
	case markerDHT:
		d.dht(r, b, end)
	case markerDQT:
		d.dqt(r, b, end)
	case markerDRI:
		need(r, end, 2)
		b.Line("Restart Interval: %D MCUs", r.Short())
	case markerDNL:
		need(r, end, 2)
		b.Line("Number of Lines: %D", r.Short())
	case markerSOS:
		d.sos(r, b, end)
	default:
		if n := end - r.Pos(); n > 0 {
			decode.Opaque(r, b, n, "Data")
		}
	}
	return r.Err()
}

func need(r *decode.Reader, end, want int) bool {
	if have := end - r.Pos(); have < want {
		r.Fail(fmt.Errorf("%w: need %d bytes, have %d", errShortSegment, want, have))
		return false
	}
	return true
}

// identifier reads the NUL-terminated identifier that opens an APPn
// payload. It reports "" without failing the reader when there is none.
func identifier(r *decode.Reader, end int) (*view.Text, string) {
	buf := r.Buf()
	pos := r.Pos()
	if pos >= end || bytes.IndexByte(buf[pos:end], 0) < 0 {
		return nil, ""
	}
	id := r.CStringBefore(end, false)
	if r.Err() != nil {
		return nil, ""
	}
	v, _ := id.Value(buf).(string)
	return id, v
}

func rest(r *decode.Reader, b *segment.Builder, end int, label string) {
	if n := end - r.Pos(); n > 0 {
		decode.Opaque(r, b, n, label)
	}
}

func (d *decoder) app0(r *decode.Reader, b *segment.Builder, end int) {
	idView, id := identifier(r, end)
	switch id {
	case "JFIF":
		b.SetTitle("JFIF Application Data")
		b.Line("Identifier: %D", idView)
		if !need(r, end, 9) {
			return
		}
		major, minor := r.Byte(), r.Byte()
		units := r.Byte()
		xd, yd := r.Short(), r.Short()
		tw, th := r.Byte(), r.Byte()
		b.Line("Version: %D.%D", major, minor)
		b.Line("Pixel Density Units: %D", view.NewEnumDefault(units, densityUnits, "Unknown"))
		b.Line("Density: %D x %D", xd, yd)
		b.Line("Thumbnail Size: %D x %D", tw, th)
		if n := 3 * r.Get(tw) * r.Get(th); n > 0 {
			if !need(r, end, n) {
				return
			}
			decode.Opaque(r, b, n, "Thumbnail (RGB)")
		}
		rest(r, b, end, "Extra Data")
	case "JFXX":
		b.SetTitle("JFXX Extension Data")
		b.Line("Identifier: %D", idView)
		if !need(r, end, 1) {
			return
		}
		b.Line("Extension Code: %D", view.NewEnumDefault(r.Byte(), jfxxCodes, "Unknown"))
		rest(r, b, end, "Thumbnail")
	default:
		if idView != nil {
			b.Line("Identifier: %D", idView)
		}
		rest(r, b, end, "Data")
	}
}

func (d *decoder) app1(r *decode.Reader, b *segment.Builder, end int) {
	idView, id := identifier(r, end)
	switch id {
	case "Exif":
		b.SetTitle("Exif Data")
		b.Line("Identifier: %D", idView)
		if need(r, end, 1) {
			b.Field(r.Byte())
		}
		d.exif(r, b, end)
	case xmpIdentifier:
		b.SetTitle("XMP Data")
		b.Line("Namespace: %D", idView)
		if n := end - r.Pos(); n > 0 && n <= maxInlineText {
			b.Line("Packet: %D", r.Text(n))
		} else {
			rest(r, b, end, "Packet")
		}
	default:
		if idView != nil {
			b.Line("Identifier: %D", idView)
		}
		rest(r, b, end, "Data")
	}
}

func (d *decoder) appn(r *decode.Reader, b *segment.Builder, end int, m byte) {
	if idView, _ := identifier(r, end); idView != nil {
		b.Line("Identifier: %D", idView)
	}
	rest(r, b, end, fmt.Sprintf("APP%d Data", m-0xE0))
}

func (d *decoder) sof(r *decode.Reader, b *segment.Builder, end int) {
	if !need(r, end, 6) {
		return
	}
	start := b.Start()
	precision := r.Byte()
	height, width := r.Short(), r.Short()
	ns := r.Byte()
	b.Line("Precision: %D bits", precision)
	b.Line("Image Size: %D x %D", width, height)
	b.Line("Number of Components: %D", ns)

	declared := r.Get(ns)
	fits := (end - r.Pos()) / 3
	if declared*3 != end-r.Pos() {
		d.s.Flagf(decode.KindMalformed, start, b.Title(),
			"%d components declared, room for %d", declared, fits)
	}
	for i := range min(declared, fits) {
		id, sampling, table := r.Byte(), r.Byte(), r.Byte()
		b.Line(fmt.Sprintf("Component %d: ", i)+"%D Sampling Factors: %Dx%D Quantization Table: %D",
			view.NewEnumDefault(id, componentIDs, "?"), view.NewBits(sampling, 4, 4), view.NewBits(sampling, 0, 4), table)
	}
}

func (d *decoder) sos(r *decode.Reader, b *segment.Builder, end int) {
	if !need(r, end, 1) {
		return
	}
	ns := r.Byte()
	b.Line("Number of Components: %D", ns)
	for i := range r.Get(ns) {
		sel, tables := r.Byte(), r.Byte()
		b.Line(fmt.Sprintf("Component %d: ", i)+"%D DC Table: %D AC Table: %D",
			view.NewEnumDefault(sel, componentIDs, "?"), view.NewBits(tables, 4, 4), view.NewBits(tables, 0, 4))
	}
	ss, se, approx := r.Byte(), r.Byte(), r.Byte()
	if r.Err() != nil {
		return
	}
	b.Line("Spectral Selection: %D-%D", ss, se)
	b.Line("Successive Approximation: %D/%D", view.NewBits(approx, 4, 4), view.NewBits(approx, 0, 4))
}

func (d *decoder) dht(r *decode.Reader, b *segment.Builder, end int) {
	for n := 0; r.Err() == nil && r.Pos() < end; n++ {
		if !need(r, end, 1+huffmanLengths) {
			return
		}
		info := r.Byte()
		counts := r.Packed(huffmanLengths, 1, false)
		b.Line(fmt.Sprintf("Table %d: ", n)+"Class: %D Destination: %D",
			view.NewEnumDefault(view.NewBits(info, 4, 4), tableClasses, "Invalid"), view.NewBits(info, 0, 4))
		b.Line("Codes per Length: %D", counts)

		var perLen [16]int
		total := 0
		for i := range perLen {
			perLen[i] = int(counts.At(r.Buf(), i))
			total += perLen[i]
		}
		if !need(r, end, total) {
			return
		}
		if total == 0 {
			continue
		}
		symbols := r.Packed(total, 1, false)
		codes, ok := decode.CanonicalCodes(perLen)
		if !ok {
			d.s.Flagf(decode.KindMalformed, b.Start(), b.Title(), "table %d oversubscribes the code space", n)
		}
		for i := 0; i < len(codes); {
			l := codes[i].Len
			var tmpl strings.Builder
			fmt.Fprintf(&tmpl, "%d bits:", l)
			var fields []view.View
			for ; i < len(codes) && codes[i].Len == l; i++ {
				fmt.Fprintf(&tmpl, " %s=%%Dh_2", codes[i])
				fields = append(fields, symbols.Sub(i))
			}
			b.Line(tmpl.String(), fields...)
		}
	}
}

func (d *decoder) dqt(r *decode.Reader, b *segment.Builder, end int) {
	for n := 0; r.Err() == nil && r.Pos() < end; n++ {
		info := r.Byte()
		if r.Err() != nil {
			return
		}
		precision := view.NewBits(info, 4, 4)
		width := 1
		switch precision.Uint(r.Buf()) {
		case 0:
		case 1:
			width = 2
		default:
			r.Fail(fmt.Errorf("%w: table precision %d", errShortSegment, precision.Uint(r.Buf())))
			return
		}
		if !need(r, end, 64*width) {
			return
		}
		table := r.Packed(64, width, false)
		b.Line(fmt.Sprintf("Table %d: ", n)+"Precision: %D Destination: %D",
			view.NewEnumDefault(precision, dqtPrecisions, "Invalid"), view.NewBits(info, 0, 4))
		for row := range 8 {
			fields := make([]view.View, 8)
			for col := range fields {
				fields[col] = table.Sub(zigzag[row*8+col])
			}
			b.Line("%D %D %D %D %D %D %D %D", fields...)
		}
	}
}
