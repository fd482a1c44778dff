package bar

import (
	"github.com/mattn/go-runewidth"
)

// Width returns the display width of text in terminal cells. Wide runes
// count double, combining marks count zero.
func Width(text string) int {
	return runewidth.StringWidth(text)
}

// Render joins segments with the separator and truncates the result to
// maxCells. A maxCells of zero or less means unlimited.
func Render(segments []Segment, sep string, maxCells int) string {
	out := ""
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += seg.Text
	}
	if maxCells > 0 && Width(out) > maxCells {
		out = runewidth.Truncate(out, maxCells, "…")
	}
	return out
}

// Span is the half-open cell range a segment occupies in the rendered
// line, used to resolve clicks on button blocks.
type Span struct {
	Index      int
	Start, End int
}

// Spans returns the cell ranges of the non-empty segments as laid out by
// Render with the same separator.
func Spans(segments []Segment, sep string) []Span {
	var spans []Span
	pos := 0
	sepWidth := Width(sep)
	for i, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if pos > 0 {
			pos += sepWidth
		}
		w := Width(seg.Text)
		spans = append(spans, Span{Index: i, Start: pos, End: pos + w})
		pos += w
	}
	return spans
}

// HitTest returns the index of the segment covering the given cell, or -1.
func HitTest(segments []Segment, sep string, cell int) int {
	for _, span := range Spans(segments, sep) {
		if cell >= span.Start && cell < span.End {
			return span.Index
		}
	}
	return -1
}
