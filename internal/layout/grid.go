package layout

// arrangeGrid tiles windows into the smallest near-square grid that holds
// them: columns grow first, so 2 windows sit side by side and 3 windows get
// two columns with the first column split. Cell sizes are exact integer
// splits with remainders given to the earlier rows and columns.
func arrangeGrid(n int, area Rect, gaps Gaps, p Params) []Rect {
	if n == 0 {
		return nil
	}
	innerX, innerY, outerX, outerY := gaps.effective(n)

	cols := 1
	for cols*cols < n {
		cols++
	}

	usableWidth := area.Width - 2*outerX
	if cols > 1 {
		usableWidth -= innerX * (cols - 1)
	}
	if usableWidth < 0 {
		usableWidth = 0
	}

	rects := make([]Rect, 0, n)
	x := area.X + outerX
	for col := 0; col < cols; col++ {
		colWidth := usableWidth / cols
		if col < usableWidth%cols {
			colWidth++
		}
		// Column-major fill keeps the first windows in the leftmost column.
		count := n/cols + boolToInt(col < n%cols)
		usableHeight := area.Height - 2*outerY
		if count > 1 {
			usableHeight -= innerY * (count - 1)
		}
		if usableHeight < 0 {
			usableHeight = 0
		}
		y := area.Y + outerY
		for row := 0; row < count; row++ {
			h := usableHeight / count
			if row < usableHeight%count {
				h++
			}
			rects = append(rects, Rect{X: x, Y: y, Width: colWidth, Height: h})
			y += h + innerY
		}
		x += colWidth + innerX
	}
	return rects
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
