package layout

// arrangeScrolling lays every window out in a horizontal ribbon of equal
// columns. NumMaster doubles as the visible column count (defaulting to
// two); ScrollOffset shifts the ribbon left by whole columns so the caller
// can bring later windows into view. Clamping the offset to the content
// bounds is the state layer's job.
func arrangeScrolling(n int, area Rect, gaps Gaps, p Params) []Rect {
	if n == 0 {
		return nil
	}
	innerX, _, outerX, outerY := gaps.effective(n)

	visible := p.NumMaster
	if visible <= 0 {
		visible = 2
	}

	availableWidth := area.Width - 2*outerX
	if availableWidth < 0 {
		availableWidth = 0
	}
	availableHeight := area.Height - 2*outerY
	if availableHeight < 0 {
		availableHeight = 0
	}

	columns := visible
	if n < columns {
		columns = n
	}
	totalGaps := 0
	if columns > 1 {
		totalGaps = innerX * (columns - 1)
	}
	width := availableWidth - totalGaps
	if columns > 0 {
		width /= columns
	}

	x := area.X + outerX - p.ScrollOffset*(width+innerX)
	rects := make([]Rect, 0, n)
	for i := 0; i < n; i++ {
		rects = append(rects, Rect{
			X:      x,
			Y:      area.Y + outerY,
			Width:  width,
			Height: availableHeight,
		})
		x += width + innerX
	}
	return rects
}
