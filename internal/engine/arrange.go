package engine

import (
	"strings"

	"github.com/zafkar/oxwm/internal/bar"
	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/layout"
	"github.com/zafkar/oxwm/internal/state"
	"github.com/zafkar/oxwm/internal/x11"
)

// blockSeparator joins the right-hand bar blocks.
const blockSeparator = " | "

// arrange recomputes every monitor's window geometry from the world,
// applies it through the connection, then repaints the bars.
func (e *Engine) arrange() {
	for _, mon := range e.world.Monitors {
		e.arrangeMonitor(mon)
	}
	e.applyFocus()
	e.drawBars()
	e.flush()

	// A broken structural invariant means the world is corrupt; carrying
	// on would scramble every window, so abort instead.
	if err := e.world.CheckInvariants(); err != nil {
		e.logger.Errorf("engine: state invariant broken: %v", err)
		panic(err)
	}
}

func (e *Engine) arrangeMonitor(mon *state.Monitor) {
	ts := e.world.TagStateFor(mon)
	spec, err := layout.ByName(ts.Layout)
	if err != nil {
		spec, _ = layout.ByName(e.cfg.DefaultLayout)
	}

	tiled := e.world.TiledWindows(mon)
	params := layout.Params{
		MasterFactor: ts.MasterFactor,
		NumMaster:    ts.NumMaster,
		ScrollOffset: ts.ScrollOffset,
		TabBarHeight: e.barHeight,
	}
	assignments := layout.Compute(tiled, mon.WindowArea(), spec, layoutGaps(e.gaps), params)

	focused := e.focusedOn(mon)
	shown := make(map[uint32]bool)
	for _, asg := range assignments {
		c := e.world.FindClient(asg.Window)
		if c == nil {
			continue
		}
		if spec.Visibility == layout.VisibilityFocused && (focused == nil || focused.Window != c.Window) {
			continue
		}
		c.Geometry = asg.Rect
		bw := e.borderFor(c)
		e.conn.Configure(c.Window, shrinkForBorder(asg.Rect, bw), bw)
		e.conn.SetBorder(c.Window, e.borderColor(c))
		e.conn.Show(c.Window)
		shown[c.Window] = true
	}

	// Floating and fullscreen clients sit above the tiled plane.
	for _, win := range e.world.VisibleWindows(mon) {
		c := e.world.FindClient(win)
		if c == nil || shown[win] {
			continue
		}
		switch {
		case c.Fullscreen:
			e.conn.Configure(win, mon.Geometry, 0)
			e.conn.Show(win)
			e.conn.Raise(win)
			shown[win] = true
		case c.Floating:
			bw := e.cfg.Border.Width
			e.conn.Configure(win, c.Geometry, bw)
			e.conn.SetBorder(win, e.borderColor(c))
			e.conn.Show(win)
			e.conn.Raise(win)
			shown[win] = true
		}
	}

	for win, c := range e.world.Clients {
		if c.Monitor != mon.Index || shown[win] {
			continue
		}
		e.conn.Hide(win)
	}

	if spec.Visibility == layout.VisibilityStacked && focused != nil && shown[focused.Window] {
		e.conn.Raise(focused.Window)
	}
}

// applyFocus pushes input focus and border colors for the focused client.
func (e *Engine) applyFocus() {
	focused := e.world.FocusedClient()
	for win, c := range e.world.Clients {
		e.conn.SetBorder(win, e.borderColor(c))
	}
	if focused != nil {
		e.conn.Focus(focused.Window)
	}
}

// focusedOn returns the monitor's most recently focused visible client.
func (e *Engine) focusedOn(mon *state.Monitor) *state.Client {
	for _, win := range mon.FocusStack {
		c := e.world.FindClient(win)
		if c != nil && c.Monitor == mon.Index && c.Tags&mon.Selected() != 0 {
			return c
		}
	}
	return nil
}

func (e *Engine) borderFor(c *state.Client) int {
	if c.Fullscreen {
		return 0
	}
	return e.cfg.Border.Width
}

func (e *Engine) borderColor(c *state.Client) config.Color {
	if f := e.world.FocusedClient(); f != nil && f.Window == c.Window && c.Monitor == e.world.SelMon {
		return e.cfg.Border.Focused
	}
	return e.cfg.Border.Unfocused
}

// shrinkForBorder converts an outer rectangle to the window size X expects,
// which excludes the border on every side.
func shrinkForBorder(r layout.Rect, bw int) layout.Rect {
	r.Width -= 2 * bw
	r.Height -= 2 * bw
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

func layoutGaps(g config.Gaps) layout.Gaps {
	return layout.Gaps{
		Enabled: g.Enabled,
		Smart:   g.Smart,
		InnerX:  g.InnerX,
		InnerY:  g.InnerY,
		OuterX:  g.OuterX,
		OuterY:  g.OuterY,
	}
}

// barRegions remembers where drawBars put things on one monitor's bar, in
// cells, so clicks can be resolved later.
type barRegions struct {
	tagSpans   []tagSpan
	rightStart int
}

type tagSpan struct {
	tag        int
	start, end int
}

// drawBars repaints every bar: tag cells, layout symbol, a chord
// indicator, the focused title on the left and the block segments on the
// right.
func (e *Engine) drawBars() {
	if len(e.regions) != len(e.world.Monitors) {
		e.regions = make([]barRegions, len(e.world.Monitors))
	}
	segments := e.blocks.Segments()
	for _, mon := range e.world.Monitors {
		e.drawBar(mon, segments)
	}
}

func (e *Engine) drawBar(mon *state.Monitor, segments []bar.Segment) {
	regions := barRegions{rightStart: -1}
	if !mon.ShowBar {
		e.regions[mon.Index] = regions
		return
	}

	occupied := e.world.OccupiedTags(mon.Index)
	urgent := e.world.UrgentTags(mon.Index)
	selected := mon.Selected()

	var left []x11.BarText
	cell := 0
	for i, name := range e.cfg.Tags {
		if e.cfg.HideVacantTags && !occupied.Has(i) && !selected.Has(i) {
			continue
		}
		text := " " + name + " "
		scheme := e.tagScheme(i, selected, occupied, urgent)
		left = append(left, x11.BarText{
			Text:       text,
			Foreground: scheme.Foreground,
			Background: scheme.Background,
			Underline:  selected.Has(i),
		})
		w := bar.Width(text)
		regions.tagSpans = append(regions.tagSpans, tagSpan{tag: i, start: cell, end: cell + w})
		cell += w
	}

	ts := e.world.TagStateFor(mon)
	left = append(left, x11.BarText{
		Text:       " " + e.layoutSymbol(ts.Layout) + " ",
		Foreground: e.cfg.SchemeNormal.Foreground,
		Background: e.cfg.SchemeNormal.Background,
	})

	if prefix, armed := e.resolver.Pending(); armed {
		parts := make([]string, len(prefix))
		for i, step := range prefix {
			parts[i] = step.String()
		}
		left = append(left, x11.BarText{
			Text:       "[" + strings.Join(parts, " ") + "] ",
			Foreground: e.cfg.SchemeSelected.Foreground,
			Background: e.cfg.SchemeSelected.Background,
		})
	}

	if c := e.focusedOn(mon); c != nil && c.Title != "" {
		scheme := e.cfg.SchemeNormal
		if mon.Index == e.world.SelMon {
			scheme = e.cfg.SchemeSelected
		}
		left = append(left, x11.BarText{
			Text:       " " + c.Title,
			Foreground: scheme.Foreground,
			Background: scheme.Background,
		})
	}

	var right []x11.BarText
	rightCells := 0
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if len(right) > 0 {
			right = append(right, x11.BarText{
				Text:       blockSeparator,
				Foreground: e.cfg.SchemeNormal.Foreground,
				Background: e.cfg.SchemeNormal.Background,
			})
			rightCells += bar.Width(blockSeparator)
		}
		fg := seg.Color
		if fg == 0 {
			fg = e.cfg.SchemeNormal.Foreground
		}
		right = append(right, x11.BarText{
			Text:       seg.Text,
			Foreground: fg,
			Background: e.cfg.SchemeNormal.Background,
			Underline:  seg.Underline,
		})
		rightCells += bar.Width(seg.Text)
	}
	if cw := e.conn.CellWidth(); cw > 0 && rightCells > 0 {
		regions.rightStart = mon.Geometry.Width/cw - rightCells
	}

	e.regions[mon.Index] = regions
	e.conn.DrawBar(mon.Index, x11.BarDrawing{Left: left, Right: right})
}

func (e *Engine) tagScheme(tag int, selected, occupied, urgent state.TagMask) config.Scheme {
	switch {
	case urgent.Has(tag):
		return e.cfg.SchemeUrgent
	case selected.Has(tag):
		return e.cfg.SchemeSelected
	case occupied.Has(tag):
		return e.cfg.SchemeOccupied
	default:
		return e.cfg.SchemeNormal
	}
}

func (e *Engine) layoutSymbol(name string) string {
	if sym, ok := e.cfg.LayoutSymbols[name]; ok {
		return sym
	}
	if spec, err := layout.ByName(name); err == nil {
		return spec.Symbol
	}
	return "???"
}

// handleBarClick resolves a press on a bar: tag cells switch the view,
// button blocks run their click command.
func (e *Engine) handleBarClick(monitor, x int) {
	if monitor < 0 || monitor >= len(e.regions) || monitor >= len(e.world.Monitors) {
		return
	}
	cw := e.conn.CellWidth()
	if cw <= 0 {
		return
	}
	cell := x / cw
	regions := e.regions[monitor]

	for _, span := range regions.tagSpans {
		if cell >= span.start && cell < span.end {
			e.world.SelMon = monitor
			if e.world.ViewTag(span.tag) {
				e.arrange()
			}
			return
		}
	}

	if regions.rightStart >= 0 && cell >= regions.rightStart {
		segments := e.blocks.Segments()
		idx := bar.HitTest(segments, blockSeparator, cell-regions.rightStart)
		if idx >= 0 && segments[idx].ClickCommand != "" {
			e.spawnShell(segments[idx].ClickCommand)
		}
	}
}
