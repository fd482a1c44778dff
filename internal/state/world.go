// Package state is the authoritative in-memory model of managed windows,
// tags and monitors. Every mutation goes through an operation on World; the
// engine's loop goroutine is its only mutator.
package state

import (
	"fmt"

	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/layout"
)

// Client is one managed window.
type Client struct {
	Window   uint32
	Title    string
	Class    string
	Instance string

	Tags    TagMask
	Monitor int

	Floating   bool
	Fullscreen bool
	Urgent     bool

	// Geometry is the client's current on-screen rectangle. FloatGeometry
	// remembers the rectangle to restore when the client leaves tiling.
	Geometry      layout.Rect
	FloatGeometry layout.Rect
}

// TagState carries the per-tag layout selection and its parameters.
type TagState struct {
	Layout       string
	MasterFactor float64
	NumMaster    int
	ScrollOffset int
}

// Monitor is one physical output region.
type Monitor struct {
	Index    int
	Geometry layout.Rect
	// BarInset reserves the strip occupied by the status bar.
	BarInset layout.Insets
	ShowBar  bool

	// Tagset holds the current and previous visible tag-sets; SelTags
	// indexes the current one. Keeping the pair enables back-and-forth
	// tag switching.
	Tagset  [2]TagMask
	SelTags int

	// Tags holds per-tag layout state, indexed by tag.
	Tags []TagState

	// Order is the tiling order of clients owned by this monitor; the
	// visible subset tiles top to bottom. FocusStack records focus
	// recency, most recent first.
	Order      []uint32
	FocusStack []uint32
}

// Selected returns the monitor's currently visible tag-set.
func (m *Monitor) Selected() TagMask {
	return m.Tagset[m.SelTags]
}

// ActiveTag returns the lowest visible tag index; layout parameter
// adjustments apply to it.
func (m *Monitor) ActiveTag() int {
	if t := m.Selected().First(); t >= 0 {
		return t
	}
	return 0
}

// WindowArea returns the monitor rectangle minus the bar strip.
func (m *Monitor) WindowArea() layout.Rect {
	if !m.ShowBar {
		return m.Geometry
	}
	return m.BarInset.ShrinkRect(m.Geometry)
}

// World is the tag/monitor/client graph.
type World struct {
	NumTags  int
	Clients  map[uint32]*Client
	Monitors []*Monitor
	// SelMon is the focused monitor index; exactly one monitor is focused
	// at all times.
	SelMon int

	backAndForth bool
	autoTile     bool
}

// New builds the world for the given monitor geometries, seeding per-tag
// layout state from the configuration.
func New(cfg *config.Config, monitors []layout.Rect, barHeight int) *World {
	w := &World{
		NumTags:      len(cfg.Tags),
		Clients:      make(map[uint32]*Client),
		backAndForth: cfg.TagBackAndForth,
		autoTile:     cfg.AutoTile,
	}
	for i, geom := range monitors {
		mon := &Monitor{
			Index:    i,
			Geometry: geom,
			BarInset: layout.Insets{Top: barHeight},
			ShowBar:  true,
			Tagset:   [2]TagMask{Mask(0), Mask(0)},
			Tags:     make([]TagState, len(cfg.Tags)),
		}
		for t := range mon.Tags {
			mon.Tags[t] = TagState{
				Layout:       cfg.DefaultLayout,
				MasterFactor: 0.55,
				NumMaster:    1,
			}
		}
		w.Monitors = append(w.Monitors, mon)
	}
	return w
}

// ApplySettings refreshes the configuration-derived toggles after a reload
// and reconciles the tag dimension when the tag list changed size. Client
// and tag assignments survive where the new range allows.
func (w *World) ApplySettings(cfg *config.Config) {
	w.backAndForth = cfg.TagBackAndForth
	w.autoTile = cfg.AutoTile
	w.resizeTags(cfg)
}

// resizeTags grows or shrinks the per-monitor tag state to the new tag
// count. Tag masks are clamped to the new range; a mask left empty falls
// back to the first tag so nothing ever shows or carries an empty set.
func (w *World) resizeTags(cfg *config.Config) {
	n := len(cfg.Tags)
	if n < 1 {
		return
	}
	w.NumTags = n
	all := w.allTags()
	for _, c := range w.Clients {
		c.Tags &= all
		if c.Tags == 0 {
			c.Tags = Mask(0)
		}
	}
	for _, mon := range w.Monitors {
		for len(mon.Tags) < n {
			mon.Tags = append(mon.Tags, TagState{
				Layout:       cfg.DefaultLayout,
				MasterFactor: 0.55,
				NumMaster:    1,
			})
		}
		mon.Tags = mon.Tags[:n]
		for i := range mon.Tagset {
			mon.Tagset[i] &= all
			if mon.Tagset[i] == 0 {
				mon.Tagset[i] = Mask(0)
			}
		}
		w.refocus(mon)
	}
}

// SelectedMonitor returns the focused monitor.
func (w *World) SelectedMonitor() *Monitor {
	return w.Monitors[w.SelMon]
}

// FindClient returns the managed client for the window, or nil.
func (w *World) FindClient(window uint32) *Client {
	return w.Clients[window]
}

// FocusedClient returns the focused client on the focused monitor, or nil.
func (w *World) FocusedClient() *Client {
	mon := w.SelectedMonitor()
	if len(mon.FocusStack) == 0 {
		return nil
	}
	return w.Clients[mon.FocusStack[0]]
}

// visibleOn reports whether the client is shown on the monitor's current
// tag-set.
func (w *World) visibleOn(c *Client, mon *Monitor) bool {
	return c != nil && c.Monitor == mon.Index && c.Tags&mon.Selected() != 0
}

// VisibleWindows returns the monitor's visible clients in tiling order.
func (w *World) VisibleWindows(mon *Monitor) []uint32 {
	var out []uint32
	for _, win := range mon.Order {
		if w.visibleOn(w.Clients[win], mon) {
			out = append(out, win)
		}
	}
	return out
}

// TiledWindows returns the visible clients that participate in tiling:
// floating and fullscreen clients are excluded.
func (w *World) TiledWindows(mon *Monitor) []uint32 {
	var out []uint32
	for _, win := range mon.Order {
		c := w.Clients[win]
		if w.visibleOn(c, mon) && !c.Floating && !c.Fullscreen {
			out = append(out, win)
		}
	}
	return out
}

// HasWindowsOnTag reports whether any client on the monitor carries the tag.
func (w *World) HasWindowsOnTag(monitor, tag int) bool {
	mask := Mask(tag)
	for _, c := range w.Clients {
		if c.Monitor == monitor && c.Tags&mask != 0 {
			return true
		}
	}
	return false
}

// OccupiedTags returns the union of tag-memberships on the monitor.
func (w *World) OccupiedTags(monitor int) TagMask {
	var mask TagMask
	for _, c := range w.Clients {
		if c.Monitor == monitor {
			mask |= c.Tags
		}
	}
	return mask
}

// UrgentTags returns the tags carrying at least one urgent client.
func (w *World) UrgentTags(monitor int) TagMask {
	var mask TagMask
	for _, c := range w.Clients {
		if c.Monitor == monitor && c.Urgent {
			mask |= c.Tags
		}
	}
	return mask
}

// AutoTile reports whether dropped drags re-enter the tiling order.
func (w *World) AutoTile() bool {
	return w.autoTile
}

// MonitorAt returns the index of the monitor containing the point, or the
// selected monitor when no geometry contains it.
func (w *World) MonitorAt(x, y int) int {
	for _, mon := range w.Monitors {
		g := mon.Geometry
		if x >= g.X && x < g.X+g.Width && y >= g.Y && y < g.Y+g.Height {
			return mon.Index
		}
	}
	return w.SelMon
}

// TiledWindowAt returns the visible tiled client whose rectangle contains
// the point, skipping exclude. Zero means no hit.
func (w *World) TiledWindowAt(monitor, x, y int, exclude uint32) uint32 {
	if monitor < 0 || monitor >= len(w.Monitors) {
		return 0
	}
	for _, win := range w.TiledWindows(w.Monitors[monitor]) {
		if win == exclude {
			continue
		}
		g := w.Clients[win].Geometry
		if x >= g.X && x < g.X+g.Width && y >= g.Y && y < g.Y+g.Height {
			return win
		}
	}
	return 0
}

// TagStateFor returns the per-tag layout state the monitor's active tag
// uses.
func (w *World) TagStateFor(mon *Monitor) *TagState {
	return &mon.Tags[mon.ActiveTag()]
}

// CheckInvariants verifies structural invariants that must never break: a
// mapped client always has a monitor in range and a non-empty tag set, and
// monitors never show an empty tag-set. A violation is unrecoverable.
func (w *World) CheckInvariants() error {
	for win, c := range w.Clients {
		if c.Tags == 0 {
			return fmt.Errorf("client 0x%x has empty tag membership", win)
		}
		if c.Monitor < 0 || c.Monitor >= len(w.Monitors) {
			return fmt.Errorf("client 0x%x owned by unknown monitor %d", win, c.Monitor)
		}
	}
	for _, mon := range w.Monitors {
		if mon.Selected() == 0 {
			return fmt.Errorf("monitor %d shows an empty tag-set", mon.Index)
		}
	}
	if w.SelMon < 0 || w.SelMon >= len(w.Monitors) {
		return fmt.Errorf("selected monitor %d out of range", w.SelMon)
	}
	return nil
}
