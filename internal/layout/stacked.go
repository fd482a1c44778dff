package layout

// arrangeFull gives every window the whole usable area. The normie layout
// pairs this with VisibilityFocused so only the focused window is shown;
// monocle pairs it with VisibilityStacked so the focused window covers the
// rest.
func arrangeFull(n int, area Rect, gaps Gaps, p Params) []Rect {
	if n == 0 {
		return nil
	}
	_, _, outerX, outerY := gaps.effective(n)
	full := Rect{
		X:      area.X + outerX,
		Y:      area.Y + outerY,
		Width:  area.Width - 2*outerX,
		Height: area.Height - 2*outerY,
	}
	if full.Width < 0 {
		full.Width = 0
	}
	if full.Height < 0 {
		full.Height = 0
	}
	rects := make([]Rect, n)
	for i := range rects {
		rects[i] = full
	}
	return rects
}

// arrangeTabbed is arrangeFull with a strip reserved at the top for the tab
// row.
func arrangeTabbed(n int, area Rect, gaps Gaps, p Params) []Rect {
	if p.TabBarHeight > 0 {
		area.Y += p.TabBarHeight
		area.Height -= p.TabBarHeight
		if area.Height < 0 {
			area.Height = 0
		}
	}
	return arrangeFull(n, area, gaps, p)
}
