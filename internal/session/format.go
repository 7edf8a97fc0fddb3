package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/decode/gif"
	"github.com/danmuck/binlens/internal/decode/jpeg"
	"github.com/danmuck/binlens/internal/decode/png"
	"github.com/danmuck/binlens/internal/observability"
)

var extensions = map[string]string{
	"jpg":  jpeg.Format,
	"jpeg": jpeg.Format,
	"jpe":  jpeg.Format,
	"jfif": jpeg.Format,
	"png":  png.Format,
	"gif":  gif.Format,
}

// ParseFormat resolves a format hint: a bare extension with or without the
// dot, in any case, or a file name.
func ParseFormat(hint string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if ext := filepath.Ext(h); ext != "" {
		h = ext
	}
	h = strings.TrimPrefix(h, ".")
	if f, ok := extensions[h]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", decode.ErrUnsupportedFormat, hint)
}

// Decode picks a decoder from hint and runs it over buf.
func Decode(buf []byte, hint string, opts decode.Options) (*decode.Result, error) {
	format, err := ParseFormat(hint)
	if err != nil {
		observability.RecordDecode("unknown", outcome(err), 0)
		return nil, err
	}
	start := time.Now()
	var res *decode.Result
	switch format {
	case jpeg.Format:
		res, err = jpeg.Decode(buf, opts)
	case png.Format:
		res, err = png.Decode(buf, opts)
	case gif.Format:
		res, err = gif.Decode(buf, opts)
	}
	observability.RecordDecode(format, outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	for _, a := range res.Anomalies {
		observability.RecordAnomaly(format, string(a.Kind))
	}
	return res, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, decode.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, decode.ErrInvariant):
		return "invariant"
	case errors.Is(err, decode.ErrUnsupportedFormat):
		return "unsupported"
	default:
		return "error"
	}
}
