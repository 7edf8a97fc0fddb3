package session

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sync"
	"testing"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/decode/png"
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

func tinyPNG() []byte {
	hdr := binary.BigEndian.AppendUint32(nil, 1)
	hdr = binary.BigEndian.AppendUint32(hdr, 1)
	hdr = append(hdr, 8, 2, 0, 0, 0)
	out := append([]byte(nil), png.Magic...)
	out = append(out, chunk("IHDR", hdr)...)
	return append(out, chunk("IEND", nil)...)
}

// widthField is the IHDR width: segment 1 in breadth-first order.
func widthField(t *testing.T, s *Session) int {
	t.Helper()
	sg, err := s.Segment(1)
	require.NoError(t, err)
	require.Equal(t, "IHDR Chunk (Image Header)", sg.Title)
	return sg.Fragments[2].Fields[0]
}

func TestParseFormat(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"png":             "png",
		".PNG":            "png",
		" jpg ":           "jpeg",
		"JFIF":            "jpeg",
		"photo.jpe":       "jpeg",
		"dir/anim.Gif":    "gif",
		"archive.tar.gif": "gif",
	}
	for hint, want := range cases {
		got, err := ParseFormat(hint)
		require.NoError(t, err, hint)
		assert.Equal(t, want, got, hint)
	}

	for _, hint := range []string{"", "bmp", "notes.txt", "png2"} {
		_, err := ParseFormat(hint)
		assert.True(t, errors.Is(err, decode.ErrUnsupportedFormat), "hint %q: %v", hint, err)
	}
}

func TestDecodeDispatchesOnHint(t *testing.T) {
	testlog.Start(t)
	res, err := Decode(tinyPNG(), "image.png", decode.Options{})
	require.NoError(t, err)
	assert.Equal(t, "png", res.Format)

	_, err = Decode(tinyPNG(), "gif", decode.Options{})
	assert.True(t, errors.Is(err, decode.ErrBadSignature))

	_, err = Decode(tinyPNG(), "tiff", decode.Options{})
	assert.True(t, errors.Is(err, decode.ErrUnsupportedFormat))
}

func TestNewDoesNotAliasCallerBuffer(t *testing.T) {
	testlog.Start(t)
	buf := tinyPNG()
	s, err := New("s1", "tiny.png", buf, "png", decode.Options{})
	require.NoError(t, err)
	assert.Equal(t, len(buf), s.Size)

	buf[16] = 0xFF
	v, err := s.FieldValue(1, widthField(t, s))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	out := s.Bytes()
	out[19] = 0xEE
	v, err = s.FieldValue(1, widthField(t, s))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestWriteFieldRoundTrips(t *testing.T) {
	testlog.Start(t)
	s, err := New("s1", "tiny.png", tinyPNG(), "png", decode.Options{})
	require.NoError(t, err)
	w := widthField(t, s)

	require.NoError(t, s.WriteField(1, w, 640))
	v, err := s.FieldValue(1, w)
	require.NoError(t, err)
	assert.Equal(t, uint64(640), v)
	assert.Equal(t, uint32(640), binary.BigEndian.Uint32(s.Bytes()[16:]))

	sg, _ := s.Segment(1)
	colour := sg.Fragments[4].Fields[0]
	assert.True(t, errors.Is(s.WriteField(1, colour, 6), view.ErrReadOnly))

	assert.True(t, errors.Is(s.WriteField(99, 0, 1), ErrNoSegment))
	assert.True(t, errors.Is(s.WriteField(1, 999, 1), ErrNoField))
	_, err = s.FieldValue(-1, 0)
	assert.True(t, errors.Is(err, ErrNoSegment))
}

func TestSelectReturnsOverlappingFields(t *testing.T) {
	testlog.Start(t)
	s, err := New("s1", "tiny.png", tinyPNG(), "png", decode.Options{})
	require.NoError(t, err)

	refs := s.Select([]view.Bound{{Start: 16, Len: 4}})
	require.NotEmpty(t, refs)
	for _, r := range refs {
		assert.Equal(t, 1, r.Segment)
		assert.True(t, r.Bound.Intersects(view.Bound{Start: 16, Len: 4}))
	}
	assert.Contains(t, refs, FieldRef{Segment: 1, Field: widthField(t, s), Bound: view.Bound{Start: 16, Len: 4}})

	assert.Empty(t, s.Select([]view.Bound{{Start: 16, Len: 0}}))
	assert.Empty(t, s.Select(nil))
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	testlog.Start(t)
	s, err := New("s1", "tiny.png", tinyPNG(), "png", decode.Options{})
	require.NoError(t, err)
	w := widthField(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, s.WriteField(1, w, n+1))
		}(i)
		go func() {
			defer wg.Done()
			v, err := s.FieldValue(1, w)
			assert.NoError(t, err)
			assert.NotZero(t, v)
		}()
	}
	wg.Wait()
}

func TestStoreLifecycle(t *testing.T) {
	testlog.Start(t)
	st := NewStore(2, decode.Options{})

	a, err := st.Open("a.png", "", tinyPNG())
	require.NoError(t, err)
	assert.Equal(t, "png", a.Format)
	assert.NotEmpty(t, a.ID)

	b, err := st.Open("b", "png", tinyPNG())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = st.Open("c.png", "", tinyPNG())
	assert.True(t, errors.Is(err, ErrStoreFull))

	list := st.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)

	got, err := st.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)

	require.NoError(t, st.Delete(a.ID))
	assert.True(t, errors.Is(st.Delete(a.ID), ErrNotFound))
	_, err = st.Get(a.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Len(t, st.List(), 1)
}

func TestStoreRejectsUndecodable(t *testing.T) {
	testlog.Start(t)
	st := NewStore(0, decode.Options{})
	_, err := st.Open("x.png", "", []byte("not a png"))
	assert.True(t, errors.Is(err, decode.ErrBadSignature))
	_, err = st.Open("x.bmp", "", tinyPNG())
	assert.True(t, errors.Is(err, decode.ErrUnsupportedFormat))
	assert.Empty(t, st.List())
}
