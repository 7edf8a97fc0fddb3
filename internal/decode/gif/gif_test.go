package gif

import (
	"errors"
	"testing"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/testutil/testlog"
	"github.com/danmuck/binlens/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(packed byte) []byte {
	return []byte{'G', 'I', 'F', '8', '9', 'a', 0x02, 0x00, 0x01, 0x00, packed, 0x00, 0x00}
}

var (
	gce        = []byte{0x21, 0xF9, 0x04, 0x05, 0x0A, 0x00, 0x01, 0x00}
	descriptor = []byte{0x2C, 0, 0, 0, 0, 0x02, 0x00, 0x01, 0x00, 0x00}
	imageData  = []byte{0x02, 0x02, 0x4C, 0x01, 0x00}
)

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func values(buf []byte, s *segment.Segment, f segment.Fragment) []any {
	var out []any
	for _, i := range f.Fields {
		out = append(out, s.Fields[i].Value(buf))
	}
	return out
}

func ordered(root *segment.Node) []*segment.Segment {
	var out []*segment.Segment
	root.Walk(func(_ int, n *segment.Node) bool {
		if s := n.Segment(); s != nil {
			out = append(out, s)
		}
		return true
	})
	return out
}

func TestBadVersionIsFatal(t *testing.T) {
	testlog.Start(t)
	for _, buf := range [][]byte{nil, []byte("GIF8"), []byte("GIF90a......."), []byte("gif89a.......")} {
		res, err := Decode(buf, decode.Options{})
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, decode.ErrBadSignature), "got %v", err)
	}
}

func TestImageGroupedWithControlExtension(t *testing.T) {
	testlog.Start(t)
	comment := []byte{0x21, 0xFE, 0x03, 'h', 'i', 0xE9, 0x00}
	buf := join(header(0x80), []byte{0xFF, 0, 0, 0, 0, 0xFF}, gce, descriptor, imageData, comment, []byte{0x3B})
	res, err := Decode(buf, decode.Options{Seed: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Anomalies)
	assert.Equal(t, Format, res.Format)

	var names []string
	for _, n := range res.Tree.Root.Children() {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"Header", "Global Color Table", "Image #1", "Comment Extension", "Trailer (End of File Marker)"}, names)

	img := res.Tree.Root.Children()[2]
	require.True(t, img.IsGroup())
	var inner []string
	for _, n := range img.Children() {
		inner = append(inner, n.Name())
	}
	assert.Equal(t, []string{"Graphics Control Extension", "Image Descriptor", "Image Data"}, inner)

	hdr := res.Tree.Root.Children()[0].Segment()
	assert.Equal(t, []any{"GIF89a"}, values(buf, hdr, hdr.Fragments[0]))
	assert.Equal(t, []any{uint64(2), uint64(1)}, values(buf, hdr, hdr.Fragments[1]))
	assert.Equal(t, []any{true, uint64(0), false, uint64(0)}, values(buf, hdr, hdr.Fragments[2]))
	assert.Equal(t, []any{"No aspect ratio information (0)"}, values(buf, hdr, hdr.Fragments[4]))

	table := res.Tree.Root.Children()[1].Segment()
	assert.Equal(t, "0-1: %c%d %c%d", table.Fragments[1].Template)
	assert.Equal(t, []any{uint64(0xFF0000), uint64(0x0000FF)}, values(buf, table, table.Fragments[1]))

	ctl := img.Children()[0].Segment()
	assert.Equal(t, 8, ctl.Length)
	assert.Equal(t, []any{"Do not dispose (1)", uint64(0)}, values(buf, ctl, ctl.Fragments[2]))
	assert.Equal(t, []any{false, true}, values(buf, ctl, ctl.Fragments[3]))
	assert.InDelta(t, 0.1, values(buf, ctl, ctl.Fragments[4])[0], 1e-9)

	data := img.Children()[2].Segment()
	assert.Equal(t, 5, data.Length)
	assert.Equal(t, "Sub-blocks: 1, 2 data bytes", data.Fragments[1].Template)

	c := res.Tree.Root.Children()[3].Segment()
	assert.Equal(t, []any{"hié"}, values(buf, c, c.Fragments[1]))

	segs := ordered(res.Tree.Root)
	require.Len(t, segs, 7)
	for i := 1; i < len(segs); i++ {
		assert.Equal(t, segs[i-1].End(), segs[i].Start, "segment %d abuts the previous one", i)
	}
	assert.Equal(t, len(buf), segs[len(segs)-1].End())
}

func TestImageWithoutControlExtensionGetsOwnGroup(t *testing.T) {
	testlog.Start(t)
	buf := join(header(0), descriptor, imageData, descriptor, imageData, []byte{0x3B})
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Anomalies)
	kids := res.Tree.Root.Children()
	require.Len(t, kids, 4)
	assert.Equal(t, "Image #1", kids[1].Name())
	assert.Equal(t, "Image #2", kids[2].Name())
	assert.Len(t, kids[2].Children(), 2)
}

func TestDelayIsEditableInSeconds(t *testing.T) {
	testlog.Start(t)
	buf := join(header(0), gce, descriptor, imageData, []byte{0x3B})
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	ctl := res.Tree.Root.Children()[1].Children()[0].Segment()
	delay := ctl.Fields[ctl.Fragments[4].Fields[0]]
	require.NoError(t, view.Write(buf, delay, 1.5))
	assert.Equal(t, []byte{150, 0}, buf[13+4:13+6])

	disposal := ctl.Fields[ctl.Fragments[2].Fields[0]]
	assert.True(t, errors.Is(view.Write(buf, disposal, 2), view.ErrReadOnly))
}

func TestNetscapeLoopCount(t *testing.T) {
	testlog.Start(t)
	app := join([]byte{0x21, 0xFF, 0x0B}, []byte("NETSCAPE2.0"), []byte{0x03, 0x01, 0x05, 0x00, 0x00})
	buf := join(header(0), app, []byte{0x3B})
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Anomalies)
	a := res.Tree.Root.Children()[1].Segment()
	assert.Equal(t, "Application Block", a.Title)
	assert.Equal(t, len(app), a.Length)
	assert.Equal(t, []any{"NETSCAPE"}, values(buf, a, a.Fragments[2]))
	assert.Equal(t, []any{"2.0"}, values(buf, a, a.Fragments[3]))
	assert.Equal(t, "Loop Count: %D", a.Fragments[5].Template)
	assert.Equal(t, []any{uint64(5)}, values(buf, a, a.Fragments[5]))
}

func TestMissingTrailerIsFlagged(t *testing.T) {
	testlog.Start(t)
	res, err := Decode(join(header(0), descriptor, imageData), decode.Options{})
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, decode.KindMissingTerminator, res.Anomalies[0].Kind)
}

func TestUnterminatedChainIsFlagged(t *testing.T) {
	testlog.Start(t)
	buf := join(header(0), descriptor, []byte{0x02, 0x05, 0x01})
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Anomalies)
	assert.Equal(t, decode.KindMissingTerminator, res.Anomalies[0].Kind)
	segs := ordered(res.Tree.Root)
	assert.Equal(t, len(buf), segs[len(segs)-1].End())
}

func TestUnknownBlockAndExtension(t *testing.T) {
	testlog.Start(t)
	unknown := []byte{0x99, 0x01, 0x02, 0xAA, 0xBB, 0x00}
	ext := []byte{0x21, 0x7E, 0x01, 0x42, 0x00}
	buf := join(header(0), unknown, ext, []byte{0x3B})
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)

	kids := res.Tree.Root.Children()
	require.Len(t, kids, 4)
	u := kids[1].Segment()
	assert.Equal(t, "Unknown Block Type: 99", u.Title)
	assert.Equal(t, len(unknown), u.Length)
	assert.Equal(t, segment.ColorUnknown, u.Color)

	e := kids[2].Segment()
	assert.Equal(t, "Unknown Extension 0x7E", e.Title)
	assert.Equal(t, len(ext), e.Length)

	require.Len(t, res.Anomalies, 2)
	for _, a := range res.Anomalies {
		assert.Equal(t, decode.KindUnknownTag, a.Kind)
	}
}

func TestRepeatedControlExtensionIsMalformed(t *testing.T) {
	testlog.Start(t)
	buf := join(header(0), gce, gce, descriptor, imageData, []byte{0x3B})
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, decode.KindMalformed, res.Anomalies[0].Kind)
	kids := res.Tree.Root.Children()
	require.Len(t, kids, 3)
	assert.Len(t, kids[1].Children(), 4)
}

func TestWrongControlBlockSizeFallsBack(t *testing.T) {
	testlog.Start(t)
	bad := []byte{0x21, 0xF9, 0x03, 0x00, 0x00, 0x00, 0x00}
	buf := join(header(0), bad, descriptor, imageData, []byte{0x3B})
	res, err := Decode(buf, decode.Options{})
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, decode.KindMalformed, res.Anomalies[0].Kind)
	ctl := res.Tree.Root.Children()[1].Children()[0].Segment()
	assert.Equal(t, segment.ColorUnknown, ctl.Color)
	assert.Equal(t, len(bad), ctl.Length)
}
