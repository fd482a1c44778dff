package layout

// Rect represents a window geometry in screen pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Overlaps reports whether two rectangles share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Insets describes reserved space at the edges of a monitor, such as the
// strip occupied by the status bar.
type Insets struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// ShrinkRect returns the rectangle reduced by the insets, clamped at zero.
func (in Insets) ShrinkRect(r Rect) Rect {
	r.X += in.Left
	r.Y += in.Top
	r.Width -= in.Left + in.Right
	r.Height -= in.Top + in.Bottom
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}

// Gaps holds the spacing applied around and between tiled windows. InnerX is
// the horizontal spacing between columns, InnerY the vertical spacing between
// rows; OuterX/OuterY pad the monitor edges. Smart suppresses the outer gap
// when a single window is tiled.
type Gaps struct {
	Enabled bool
	Smart   bool
	InnerX  int
	InnerY  int
	OuterX  int
	OuterY  int
}

// effective resolves the gap values for a given tiled window count.
func (g Gaps) effective(windowCount int) (innerX, innerY, outerX, outerY int) {
	if !g.Enabled {
		return 0, 0, 0, 0
	}
	innerX, innerY = g.InnerX, g.InnerY
	outerX, outerY = g.OuterX, g.OuterY
	if g.Smart && windowCount == 1 {
		outerX, outerY = 0, 0
	}
	return innerX, innerY, outerX, outerY
}
