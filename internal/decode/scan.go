package decode

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/danmuck/binlens/internal/cursor"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options tune a single decode. The zero value is usable.
type Options struct {
	// Palette supplies segment colours; when nil one is seeded from Seed.
	Palette *segment.Palette
	Seed    uint64
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

func (o Options) palette() *segment.Palette {
	if o.Palette != nil {
		return o.Palette
	}
	return segment.NewPalette(o.Seed)
}

func (o Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return log.Logger
}

// Result is a decoded tree plus the anomalies recovered from on the way.
type Result struct {
	Format    string
	Tree      *segment.Tree
	Anomalies []Anomaly
}

// Scan is the state shared by every format's record loop.
type Scan struct {
	C       *cursor.Cursor
	Tree    *segment.Tree
	Palette *segment.Palette
	Log     zerolog.Logger

	format    string
	anomalies []Anomaly
}

func NewScan(format string, buf []byte, opts Options) *Scan {
	return &Scan{
		C:       cursor.New(buf),
		Tree:    segment.NewTree(),
		Palette: opts.palette(),
		Log:     opts.logger().With().Str("format", format).Logger(),
		format:  format,
	}
}

func (s *Scan) Buf() []byte {
	return s.C.Buffer()
}

// Reader returns a sticky reader over the scan cursor.
func (s *Scan) Reader() *Reader {
	return NewReader(s.C)
}

// Flag records an anomaly and logs it.
func (s *Scan) Flag(a Anomaly) {
	s.anomalies = append(s.anomalies, a)
	event := s.Log.Warn()
	if a.Kind == KindUnknownTag {
		event = s.Log.Debug()
	}
	event.
		Str("kind", string(a.Kind)).
		Int("offset", a.Offset).
		Str("record", a.Record).
		Msg(a.Detail)
}

// Flagf is Flag for the common case without length details.
func (s *Scan) Flagf(kind Kind, offset int, record, format string, args ...any) {
	s.Flag(Anomaly{Kind: kind, Offset: offset, Record: record, Detail: fmt.Sprintf(format, args...)})
}

// Resync forces the cursor to end, the declared end of the record that
// began at start. A builder that stopped anywhere else is flagged.
func (s *Scan) Resync(record string, start, end int) {
	if pos := s.C.Pos(); pos != end {
		s.Flag(Anomaly{
			Kind:     KindResync,
			Offset:   start,
			Record:   record,
			Declared: end - start,
			Consumed: pos - start,
			Detail:   fmt.Sprintf("builder stopped at %d, declared end %d", pos, end),
		})
	}
	s.C.SetPos(end)
}

// Clamp bounds a declared record end to the buffer, flagging an overrun.
func (s *Scan) Clamp(record string, start, end int) int {
	if end <= s.C.Len() {
		return end
	}
	s.Flag(Anomaly{
		Kind:     KindOverrun,
		Offset:   start,
		Record:   record,
		Declared: end - start,
		Consumed: s.C.Len() - start,
		Detail:   fmt.Sprintf("record runs %d bytes past end of buffer", end-s.C.Len()),
	})
	return s.C.Len()
}

func (s *Scan) Anomalies() []Anomaly {
	return s.anomalies
}

func (s *Scan) Result() *Result {
	return &Result{Format: s.format, Tree: s.Tree, Anomalies: s.anomalies}
}

// PrintableTag renders a record tag for titles, quoting it when it holds
// non-printable bytes.
func PrintableTag(b []byte) string {
	for _, c := range b {
		if c > unicode.MaxASCII || !unicode.IsPrint(rune(c)) {
			return strconv.QuoteToASCII(string(b))
		}
	}
	return string(b)
}
