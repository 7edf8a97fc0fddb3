package decode

import (
	"fmt"

	"github.com/danmuck/binlens/internal/segment"
)

// Opaque covers n bytes a builder does not interpret. Short payloads are
// exposed as raw bytes, long ones as a placeholder.
func Opaque(r *Reader, b *segment.Builder, n int, label string) {
	if n <= 64 {
		b.Line(label+": %D", r.Bytes(n))
		return
	}
	b.Field(r.Reserve(n))
	b.Line(fmt.Sprintf("%s: %d bytes", label, n))
}
