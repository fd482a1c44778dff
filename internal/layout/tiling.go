package layout

// arrangeTiling implements the master-stack split. The first NumMaster
// windows fill a master column sized by MasterFactor; the rest stack
// vertically to its right. Heights are split in integer pixels with the
// remainder handed out one pixel at a time from the top.
func arrangeTiling(n int, area Rect, gaps Gaps, p Params) []Rect {
	if n == 0 {
		return nil
	}
	innerX, innerY, outerX, outerY := gaps.effective(n)

	numMaster := p.NumMaster
	if numMaster < 0 {
		numMaster = 0
	}
	masterCount := n
	if numMaster < masterCount {
		masterCount = numMaster
	}
	stackCount := n - masterCount

	masterHeight := area.Height - 2*outerY
	if masterCount > 1 {
		masterHeight -= innerY * (masterCount - 1)
	}
	stackHeight := area.Height - 2*outerY
	if stackCount > 1 {
		stackHeight -= innerY * (stackCount - 1)
	}

	totalWidth := area.Width - 2*outerX
	masterWidth := totalWidth
	stackWidth := totalWidth
	masterX := area.X + outerX
	stackX := masterX
	if numMaster > 0 && n > numMaster {
		masterWidth = int(float64(totalWidth-innerX)*p.MasterFactor + 0.5)
		stackWidth = totalWidth - innerX - masterWidth
		stackX = masterX + masterWidth + innerX
	}

	rects := make([]Rect, 0, n)
	masterY := area.Y + outerY
	stackY := area.Y + outerY
	for i := 0; i < n; i++ {
		if i < masterCount {
			h := masterHeight / masterCount
			if i < masterHeight%masterCount {
				h++
			}
			rects = append(rects, Rect{X: masterX, Y: masterY, Width: masterWidth, Height: h})
			masterY += h + innerY
		} else {
			h := stackHeight
			if stackCount > 0 {
				h = stackHeight / stackCount
				if i-masterCount < stackHeight%stackCount {
					h++
				}
			}
			rects = append(rects, Rect{X: stackX, Y: stackY, Width: stackWidth, Height: h})
			stackY += h + innerY
		}
	}
	return rects
}
