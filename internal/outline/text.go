package outline

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/binlens/internal/segment"
	"github.com/danmuck/binlens/internal/view"
)

// TextOptions control WriteText.
type TextOptions struct {
	// Fields renders each segment's fragments under its title.
	Fields bool
	// Indent is the per-level prefix; two spaces when empty.
	Indent string
}

// WriteText writes an indented outline of tree. Titles are styled with their
// segment colour when w is a colour-capable terminal.
func WriteText(w io.Writer, tree *segment.Tree, buf []byte, opts TextOptions) error {
	indent := opts.Indent
	if indent == "" {
		indent = "  "
	}
	r := lipgloss.NewRenderer(w)
	dim := r.NewStyle().Faint(true)

	var err error
	tree.Root.Walk(func(depth int, n *segment.Node) bool {
		if err != nil {
			return false
		}
		pad := strings.Repeat(indent, depth)
		seg := n.Segment()
		if seg == nil {
			_, err = fmt.Fprintf(w, "%s%s\n", pad, r.NewStyle().Bold(true).Render(n.Name()))
			return err == nil
		}
		title := r.NewStyle().Foreground(lipgloss.Color(seg.Color)).Render(seg.Title)
		span := dim.Render(fmt.Sprintf("[0x%06x +%d]", seg.Start, seg.Length))
		if _, err = fmt.Fprintf(w, "%s%s %s\n", pad, title, span); err != nil {
			return false
		}
		if opts.Fields {
			for _, f := range seg.Fragments {
				if _, err = fmt.Fprintf(w, "%s%s%s\n", pad, indent, Render(seg, f, buf)); err != nil {
					return false
				}
			}
		}
		return true
	})
	return err
}

// Render substitutes a fragment's tokens with field values from buf.
// %D and %d print the next field, %Dh_N prints it as hex padded to N digits
// and %c, which only marks the colour binding of the next field, is dropped.
func Render(seg *segment.Segment, f segment.Fragment, buf []byte) string {
	var sb strings.Builder
	t := f.Template
	next := 0
	field := func() view.View {
		if next >= len(f.Fields) {
			return nil
		}
		i := f.Fields[next]
		next++
		if i < 0 || i >= len(seg.Fields) {
			return nil
		}
		return seg.Fields[i]
	}
	for i := 0; i < len(t); i++ {
		if t[i] != '%' || i+1 >= len(t) {
			sb.WriteByte(t[i])
			continue
		}
		switch t[i+1] {
		case 'c':
			i++
		case 'd':
			sb.WriteString(text(field(), buf, 0))
			i++
		case 'D':
			width, n := hexWidth(t[i+2:])
			sb.WriteString(text(field(), buf, width))
			i += 1 + n
		default:
			sb.WriteByte(t[i])
		}
	}
	return sb.String()
}

// hexWidth parses an "h_N" suffix, returning N and the bytes consumed.
func hexWidth(s string) (int, int) {
	if !strings.HasPrefix(s, "h_") {
		return 0, 0
	}
	j := 2
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	n, err := strconv.Atoi(s[2:j])
	if err != nil {
		return 0, 0
	}
	return n, j
}

func text(v view.View, buf []byte, width int) string {
	if v == nil {
		return "?"
	}
	val := v.Value(buf)
	switch x := val.(type) {
	case nil:
		return "?"
	case uint64:
		if width > 0 {
			return fmt.Sprintf("%0*x", width, x)
		}
		if v.Editor() == view.EditorColor {
			return fmt.Sprintf("#%06x", x)
		}
		return strconv.FormatUint(x, 10)
	case []byte:
		return fmt.Sprintf("%x", x)
	case []uint64:
		parts := make([]string, len(x))
		for i, u := range x {
			parts[i] = strconv.FormatUint(u, 10)
		}
		return strings.Join(parts, " ")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
