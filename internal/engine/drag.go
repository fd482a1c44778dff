package engine

import (
	"time"

	"github.com/zafkar/oxwm/internal/layout"
)

// snapDistance is how close to a monitor edge a dragged window snaps, in
// pixels.
const snapDistance = 32

// motionThrottle drops motion events arriving faster than the configure
// round trips they cause.
const motionThrottle = 16 * time.Millisecond

const (
	dragButtonMove   = 1
	dragButtonResize = 3
)

// drag tracks an in-progress pointer move or resize.
type drag struct {
	window      uint32
	resize      bool
	wasFloating bool
	startX      int
	startY      int
	origin      layout.Rect
	lastMotion  time.Time
}

// beginDrag starts a pointer move (button 1) or resize (button 3) on a
// managed window. A tiled window floats for the duration of the drag.
func (e *Engine) beginDrag(window uint32, button, rootX, rootY int) {
	c := e.world.FindClient(window)
	if c == nil {
		return
	}
	e.world.Focus(window)
	e.applyFocus()
	e.drawBars()
	if c.Fullscreen {
		e.flush()
		return
	}

	mon := e.world.Monitors[c.Monitor]
	normie := e.world.TagStateFor(mon).Layout == "normie"
	resize := button == dragButtonResize
	if resize && e.world.AutoTile() && !c.Floating && !normie &&
		len(e.world.TiledWindows(mon)) <= 1 {
		e.flush()
		return
	}

	wasFloating := c.Floating
	if !c.Floating && !normie {
		e.world.ToggleFloating()
	}
	e.conn.GrabPointer()
	e.drag = &drag{
		window:      window,
		resize:      resize,
		wasFloating: wasFloating,
		startX:      rootX,
		startY:      rootY,
		origin:      c.Geometry,
	}
	e.arrange()
}

func (e *Engine) dragMotion(rootX, rootY int) {
	d := e.drag
	if d == nil {
		return
	}
	now := time.Now()
	if now.Sub(d.lastMotion) < motionThrottle {
		return
	}
	d.lastMotion = now
	c := e.world.FindClient(d.window)
	if c == nil {
		e.cancelDrag()
		return
	}

	r := d.origin
	if d.resize {
		r.Width = d.origin.Width + rootX - d.startX
		r.Height = d.origin.Height + rootY - d.startY
		if r.Width < 1 {
			r.Width = 1
		}
		if r.Height < 1 {
			r.Height = 1
		}
	} else {
		r.X = d.origin.X + rootX - d.startX
		r.Y = d.origin.Y + rootY - d.startY
		area := e.world.Monitors[c.Monitor].WindowArea()
		r.X = snapAxis(r.X, r.Width, area.X, area.Width)
		r.Y = snapAxis(r.Y, r.Height, area.Y, area.Height)
	}
	c.Geometry = r
	c.FloatGeometry = r
	e.conn.Configure(d.window, r, e.borderFor(c))
	e.flush()
}

// endDrag finishes a drag: the window follows the pointer across monitors,
// and with auto-tile enabled a window that was tiled before the drag
// re-enters the tiling order at the drop position.
func (e *Engine) endDrag() {
	d := e.drag
	if d == nil {
		return
	}
	e.drag = nil
	e.conn.UngrabPointer()
	c := e.world.FindClient(d.window)
	if c == nil {
		e.flush()
		return
	}

	cx := c.Geometry.X + c.Geometry.Width/2
	cy := c.Geometry.Y + c.Geometry.Height/2
	if dst := e.world.MonitorAt(cx, cy); dst != c.Monitor {
		e.world.SendToMonitor(d.window, dst)
		e.world.SelMon = dst
	}

	mon := e.world.Monitors[c.Monitor]
	normie := e.world.TagStateFor(mon).Layout == "normie"
	if e.world.AutoTile() && !d.wasFloating && !normie {
		if target := e.world.TiledWindowAt(c.Monitor, cx, cy, d.window); target != 0 {
			e.world.InsertBefore(d.window, target)
		}
		c.Floating = false
	}
	e.arrange()
}

func (e *Engine) cancelDrag() {
	e.drag = nil
	e.conn.UngrabPointer()
	e.flush()
}

// snapAxis pulls a coordinate onto the near or far edge of the usable area
// when it lands within snapDistance of it.
func snapAxis(pos, size, areaPos, areaSize int) int {
	if abs(areaPos-pos) < snapDistance {
		return areaPos
	}
	if abs(areaPos+areaSize-(pos+size)) < snapDistance {
		return areaPos + areaSize - size
	}
	return pos
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
