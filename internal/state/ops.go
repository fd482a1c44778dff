package state

import (
	"github.com/zafkar/oxwm/internal/layout"
	"github.com/zafkar/oxwm/internal/rules"
)

// Map admits a new client, applying its rule placement, and focuses it.
func (w *World) Map(c *Client, placement rules.Placement) {
	mon := w.SelMon
	if placement.Monitor != nil && *placement.Monitor >= 0 && *placement.Monitor < len(w.Monitors) {
		mon = *placement.Monitor
	}
	c.Monitor = mon
	c.Floating = c.Floating || placement.Floating
	if placement.Tag != nil && *placement.Tag >= 0 && *placement.Tag < w.NumTags {
		c.Tags = Mask(*placement.Tag)
	} else if c.Tags == 0 {
		c.Tags = w.Monitors[mon].Selected()
	}
	if c.Floating {
		c.FloatGeometry = c.Geometry
	}

	w.Clients[c.Window] = c
	m := w.Monitors[mon]
	m.Order = append(m.Order, c.Window)
	m.FocusStack = append([]uint32{c.Window}, m.FocusStack...)
	w.SelMon = mon
}

// Unmap forgets a client; focus falls back to the most recently focused
// visible client on its monitor.
func (w *World) Unmap(window uint32) bool {
	c := w.Clients[window]
	if c == nil {
		return false
	}
	mon := w.Monitors[c.Monitor]
	mon.Order = removeWindow(mon.Order, window)
	mon.FocusStack = removeWindow(mon.FocusStack, window)
	delete(w.Clients, window)
	return true
}

// Focus moves the client to the top of its monitor's focus stack and
// selects that monitor. Focusing clears urgency.
func (w *World) Focus(window uint32) bool {
	c := w.Clients[window]
	if c == nil {
		return false
	}
	mon := w.Monitors[c.Monitor]
	mon.FocusStack = append([]uint32{window}, removeWindow(mon.FocusStack, window)...)
	c.Urgent = false
	w.SelMon = c.Monitor
	return true
}

// CycleFocus moves focus forward or backward through the visible clients
// in tiling order, wrapping at the ends.
func (w *World) CycleFocus(delta int) bool {
	mon := w.SelectedMonitor()
	visible := w.VisibleWindows(mon)
	if len(visible) < 2 {
		return false
	}
	cur := 0
	if f := w.FocusedClient(); f != nil {
		for i, win := range visible {
			if win == f.Window {
				cur = i
				break
			}
		}
	}
	next := (cur + delta%len(visible) + len(visible)) % len(visible)
	return w.Focus(visible[next])
}

// MoveInStack swaps the focused client with its neighbor in tiling order,
// wrapping at the ends.
func (w *World) MoveInStack(delta int) bool {
	mon := w.SelectedMonitor()
	f := w.FocusedClient()
	if f == nil {
		return false
	}
	visible := w.VisibleWindows(mon)
	if len(visible) < 2 {
		return false
	}
	cur := -1
	for i, win := range visible {
		if win == f.Window {
			cur = i
			break
		}
	}
	if cur < 0 {
		return false
	}
	next := (cur + delta%len(visible) + len(visible)) % len(visible)
	a, b := indexOf(mon.Order, visible[cur]), indexOf(mon.Order, visible[next])
	mon.Order[a], mon.Order[b] = mon.Order[b], mon.Order[a]
	return true
}

// ViewTag shows exactly the given tag on the focused monitor. Re-viewing the
// already-visible tag flips back to the previous tag-set when back-and-forth
// is enabled, and is a no-op otherwise.
func (w *World) ViewTag(tag int) bool {
	if tag < 0 || tag >= w.NumTags {
		return false
	}
	mon := w.SelectedMonitor()
	target := Mask(tag)
	if mon.Selected() == target {
		if !w.backAndForth {
			return false
		}
		mon.SelTags ^= 1
		w.refocus(mon)
		return true
	}
	mon.SelTags ^= 1
	mon.Tagset[mon.SelTags] = target
	w.refocus(mon)
	return true
}

// ViewMask shows an arbitrary tag-set; an empty mask is refused.
func (w *World) ViewMask(mask TagMask) bool {
	mask &= w.allTags()
	if mask == 0 {
		return false
	}
	mon := w.SelectedMonitor()
	if mon.Selected() == mask {
		return false
	}
	mon.SelTags ^= 1
	mon.Tagset[mon.SelTags] = mask
	w.refocus(mon)
	return true
}

// ToggleView adds or removes a tag from the visible set. Removing the last
// visible tag is refused: the visible set never becomes empty.
func (w *World) ToggleView(tag int) bool {
	if tag < 0 || tag >= w.NumTags {
		return false
	}
	mon := w.SelectedMonitor()
	next := mon.Selected() ^ Mask(tag)
	if next == 0 {
		return false
	}
	mon.Tagset[mon.SelTags] = next
	w.refocus(mon)
	return true
}

// MoveToTag retags the focused client to exactly the given tag.
func (w *World) MoveToTag(tag int) bool {
	if tag < 0 || tag >= w.NumTags {
		return false
	}
	c := w.FocusedClient()
	if c == nil {
		return false
	}
	c.Tags = Mask(tag)
	w.refocus(w.SelectedMonitor())
	return true
}

// ToggleTag adds or removes one tag from the focused client's membership.
// Removing the client's last tag is a silent no-op.
func (w *World) ToggleTag(tag int) bool {
	if tag < 0 || tag >= w.NumTags {
		return false
	}
	c := w.FocusedClient()
	if c == nil {
		return false
	}
	next := c.Tags ^ Mask(tag)
	if next == 0 {
		return false
	}
	c.Tags = next
	w.refocus(w.SelectedMonitor())
	return true
}

// ViewNext views the adjacent tag in the given direction, wrapping. With
// onlyOccupied set, empty tags are skipped; if no other tag is occupied the
// view does not move.
func (w *World) ViewNext(delta int, onlyOccupied bool) bool {
	mon := w.SelectedMonitor()
	cur := mon.ActiveTag()
	for step := 1; step <= w.NumTags; step++ {
		tag := (cur + step*delta + step*w.NumTags) % w.NumTags
		if tag == cur {
			return false
		}
		if onlyOccupied && !w.HasWindowsOnTag(mon.Index, tag) {
			continue
		}
		return w.ViewTag(tag)
	}
	return false
}

// SetMonitorFocus selects a monitor by relative offset, wrapping.
func (w *World) SetMonitorFocus(delta int) bool {
	if len(w.Monitors) < 2 {
		return false
	}
	n := len(w.Monitors)
	w.SelMon = (w.SelMon + delta%n + n) % n
	return true
}

// MoveClientToMonitor sends the focused client to the monitor at the given
// relative offset. The client adopts the destination's visible tag-set.
func (w *World) MoveClientToMonitor(delta int) bool {
	if len(w.Monitors) < 2 {
		return false
	}
	c := w.FocusedClient()
	if c == nil {
		return false
	}
	n := len(w.Monitors)
	dst := (c.Monitor + delta%n + n) % n
	if dst == c.Monitor {
		return false
	}
	src := w.Monitors[c.Monitor]
	src.Order = removeWindow(src.Order, c.Window)
	src.FocusStack = removeWindow(src.FocusStack, c.Window)

	c.Monitor = dst
	c.Tags = w.Monitors[dst].Selected()
	w.Monitors[dst].Order = append(w.Monitors[dst].Order, c.Window)
	w.Monitors[dst].FocusStack = append([]uint32{c.Window}, w.Monitors[dst].FocusStack...)
	return true
}

// SendToMonitor moves a client to the monitor with the given index; the
// client adopts the destination's visible tag-set.
func (w *World) SendToMonitor(window uint32, dst int) bool {
	c := w.Clients[window]
	if c == nil || dst < 0 || dst >= len(w.Monitors) || dst == c.Monitor {
		return false
	}
	src := w.Monitors[c.Monitor]
	src.Order = removeWindow(src.Order, window)
	src.FocusStack = removeWindow(src.FocusStack, window)

	c.Monitor = dst
	c.Tags = w.Monitors[dst].Selected()
	w.Monitors[dst].Order = append(w.Monitors[dst].Order, window)
	w.Monitors[dst].FocusStack = append([]uint32{window}, w.Monitors[dst].FocusStack...)
	return true
}

// InsertBefore reorders a client to sit directly before target in the
// target's monitor tiling order. Both must be managed.
func (w *World) InsertBefore(window, target uint32) bool {
	c, t := w.Clients[window], w.Clients[target]
	if c == nil || t == nil || window == target {
		return false
	}
	if c.Monitor != t.Monitor {
		if !w.SendToMonitor(window, t.Monitor) {
			return false
		}
	}
	mon := w.Monitors[t.Monitor]
	mon.Order = removeWindow(mon.Order, window)
	at := indexOf(mon.Order, target)
	if at < 0 {
		mon.Order = append(mon.Order, window)
		return true
	}
	mon.Order = append(mon.Order, 0)
	copy(mon.Order[at+1:], mon.Order[at:])
	mon.Order[at] = window
	return true
}

// AdjustMasterFactor changes the active tag's master area fraction, clamped
// to [0.05, 0.95].
func (w *World) AdjustMasterFactor(delta float64) bool {
	ts := w.TagStateFor(w.SelectedMonitor())
	next := ts.MasterFactor + delta
	if next < 0.05 {
		next = 0.05
	} else if next > 0.95 {
		next = 0.95
	}
	if next == ts.MasterFactor {
		return false
	}
	ts.MasterFactor = next
	return true
}

// IncNumMaster changes the active tag's master slot count; it never goes
// below zero.
func (w *World) IncNumMaster(delta int) bool {
	ts := w.TagStateFor(w.SelectedMonitor())
	next := ts.NumMaster + delta
	if next < 0 {
		next = 0
	}
	if next == ts.NumMaster {
		return false
	}
	ts.NumMaster = next
	return true
}

// SetLayout selects a layout by name for the active tag.
func (w *World) SetLayout(name string) bool {
	spec, err := layout.ByName(name)
	if err != nil {
		return false
	}
	ts := w.TagStateFor(w.SelectedMonitor())
	if ts.Layout == spec.Name {
		return false
	}
	ts.Layout = spec.Name
	ts.ScrollOffset = 0
	return true
}

// CycleLayout advances the active tag to the next registered layout.
func (w *World) CycleLayout() bool {
	ts := w.TagStateFor(w.SelectedMonitor())
	ts.Layout = layout.Next(ts.Layout).Name
	ts.ScrollOffset = 0
	return true
}

// ScrollBy shifts the scrolling layout's viewport by whole columns, clamped
// so at least one column stays visible.
func (w *World) ScrollBy(delta int) bool {
	mon := w.SelectedMonitor()
	ts := w.TagStateFor(mon)
	n := len(w.TiledWindows(mon))
	visible := ts.NumMaster
	if visible < 1 {
		visible = 2
	}
	max := n - visible
	if max < 0 {
		max = 0
	}
	next := ts.ScrollOffset + delta
	if next < 0 {
		next = 0
	} else if next > max {
		next = max
	}
	if next == ts.ScrollOffset {
		return false
	}
	ts.ScrollOffset = next
	return true
}

// ToggleFloating flips the focused client between floating and tiled,
// restoring the remembered floating rectangle on the way out.
func (w *World) ToggleFloating() bool {
	c := w.FocusedClient()
	if c == nil || c.Fullscreen {
		return false
	}
	if c.Floating {
		c.Floating = false
	} else {
		c.Floating = true
		if c.FloatGeometry.Width > 0 && c.FloatGeometry.Height > 0 {
			c.Geometry = c.FloatGeometry
		}
	}
	return true
}

// ToggleFullscreen flips the focused client in and out of fullscreen. The
// pre-fullscreen rectangle is restored on exit.
func (w *World) ToggleFullscreen() bool {
	c := w.FocusedClient()
	if c == nil {
		return false
	}
	mon := w.Monitors[c.Monitor]
	if c.Fullscreen {
		c.Fullscreen = false
		c.Geometry = c.FloatGeometry
	} else {
		c.Fullscreen = true
		c.FloatGeometry = c.Geometry
		c.Geometry = mon.Geometry
	}
	return true
}

// ToggleBar shows or hides the focused monitor's bar strip.
func (w *World) ToggleBar() bool {
	mon := w.SelectedMonitor()
	mon.ShowBar = !mon.ShowBar
	return true
}

// refocus drops focus from clients no longer visible and promotes the most
// recently focused visible client.
func (w *World) refocus(mon *Monitor) {
	for _, win := range mon.FocusStack {
		if w.visibleOn(w.Clients[win], mon) {
			mon.FocusStack = append([]uint32{win}, removeWindow(mon.FocusStack, win)...)
			return
		}
	}
}

func (w *World) allTags() TagMask {
	return TagMask(1)<<uint(w.NumTags) - 1
}

func removeWindow(list []uint32, window uint32) []uint32 {
	out := list[:0]
	for _, win := range list {
		if win != window {
			out = append(out, win)
		}
	}
	return out
}

func indexOf(list []uint32, window uint32) int {
	for i, win := range list {
		if win == window {
			return i
		}
	}
	return -1
}
