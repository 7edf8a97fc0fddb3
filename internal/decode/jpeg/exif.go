package jpeg

import (
	"errors"
	"strconv"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

var errByteOrder = errors.New("jpeg: exif byte order is neither II nor MM")

const (
	tiffMagic   = 42
	ifdEntryLen = 12
	tiffHeadLen = 8
	nextIFDLen  = 4
	ifdCountLen = 2
)

var byteOrders = map[string]string{
	"II": "Little-endian (Intel)",
	"MM": "Big-endian (Motorola)",
}

// Enum labels are keyed by the decimal rendering of the value.
func labels(m map[uint16]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strconv.Itoa(int(k))] = v
	}
	return out
}

var exifTags = labels(map[uint16]string{
	0x010E: "ImageDescription",
	0x010F: "Make",
	0x0110: "Model",
	0x0112: "Orientation",
	0x011A: "XResolution",
	0x011B: "YResolution",
	0x0128: "ResolutionUnit",
	0x0131: "Software",
	0x0132: "DateTime",
	0x013B: "Artist",
	0x0201: "JPEGInterchangeFormat",
	0x0202: "JPEGInterchangeFormatLength",
	0x0213: "YCbCrPositioning",
	0x8298: "Copyright",
	0x8769: "ExifIFDPointer",
	0x8825: "GPSInfoIFDPointer",
})

var exifTypes = labels(map[uint16]string{
	1:  "BYTE",
	2:  "ASCII",
	3:  "SHORT",
	4:  "LONG",
	5:  "RATIONAL",
	6:  "SBYTE",
	7:  "UNDEFINED",
	8:  "SSHORT",
	9:  "SLONG",
	10: "SRATIONAL",
	11: "FLOAT",
	12: "DOUBLE",
})

// exif breaks out the TIFF header and the IFD0 entry table. Values that
// live outside their entry are left behind offsets.
func (d *decoder) exif(r *decode.Reader, b *segment.Builder, end int) {
	if !need(r, end, tiffHeadLen) {
		return
	}
	buf := r.Buf()
	tiff := r.Pos()
	order := r.Text(2)
	var le bool
	switch order.Value(buf) {
	case "II":
		le = true
	case "MM":
	default:
		r.Fail(errByteOrder)
		return
	}
	b.Line("Byte Order: %D", view.NewEnumDefault(order, byteOrders, "Invalid"))
	magic := r.Short16(le)
	b.Line("TIFF Magic: %D", magic)
	if r.Get(magic) != tiffMagic {
		d.s.Flagf(decode.KindMalformed, b.Start(), b.Title(), "TIFF magic %d, want %d", r.Get(magic), tiffMagic)
	}
	first := r.Uint32(le)
	b.Line("IFD0 Offset: %D", first)

	off := tiff + r.Get(first)
	if off < r.Pos() || off+ifdCountLen > end {
		d.s.Flagf(decode.KindMalformed, b.Start(), b.Title(), "IFD0 offset %d lies outside the segment", r.Get(first))
		rest(r, b, end, "TIFF Data")
		return
	}
	if gap := off - r.Pos(); gap > 0 {
		decode.Opaque(r, b, gap, "Padding")
	}

	count := r.Short16(le)
	b.Line("IFD0 Entries: %D", count)
	n := r.Get(count)
	if fits := (end - r.Pos()) / ifdEntryLen; n > fits {
		d.s.Flagf(decode.KindMalformed, b.Start(), b.Title(), "%d IFD0 entries declared, room for %d", n, fits)
		n = fits
	}
	for range n {
		tag, typ := r.Short16(le), r.Short16(le)
		cnt, val := r.Uint32(le), r.Uint32(le)
		b.Line("%D Type: %D Count: %D Value/Offset: %Dh_8",
			view.NewEnumDefault(tag, exifTags, "Unknown Tag"), view.NewEnumDefault(typ, exifTypes, "Unknown"), cnt, val)
	}
	if end-r.Pos() >= nextIFDLen {
		b.Line("Next IFD Offset: %D", r.Uint32(le))
	}
	rest(r, b, end, "IFD Data")
}
