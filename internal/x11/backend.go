package x11

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xinerama"
	"github.com/jezek/xgb/xproto"

	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/layout"
	"github.com/zafkar/oxwm/internal/util"
)

// X modifier bits as they appear in event state masks.
const (
	xShiftMask   = 1 << 0
	xLockMask    = 1 << 1
	xControlMask = 1 << 2
	xMod1Mask    = 1 << 3
	xMod2Mask    = 1 << 4
	xMod4Mask    = 1 << 6
)

type atoms struct {
	wmProtocols    xproto.Atom
	wmDeleteWindow xproto.Atom
	wmName         xproto.Atom
	wmHints        xproto.Atom
	wmTransient    xproto.Atom
	netWMState     xproto.Atom
	netWMStateFS   xproto.Atom
	netWMName      xproto.Atom
}

type barWindow struct {
	win  xproto.Window
	gc   xproto.Gcontext
	rect layout.Rect
}

// XConn is the live display server connection.
type XConn struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	root   xproto.Window
	atoms  atoms
	log    *util.Logger

	// keycode -> first keysym, from the server's keyboard mapping.
	keymap map[xproto.Keycode]uint32

	barHeight int
	font      xproto.Font
	fontAsc   int
	cellWidth int
	bars      []barWindow

	// dragMods is read by the event goroutine while GrabButtons runs on
	// the engine goroutine.
	dragMods atomic.Uint32

	events chan Event
}

// Dial connects to the display, claims substructure redirection (failing
// if another window manager runs) and prepares bar windows.
func Dial(log *util.Logger, barHeight int) (*XConn, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to display: %w", err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	x := &XConn{
		conn:      conn,
		screen:    screen,
		root:      screen.Root,
		log:       log,
		barHeight: barHeight,
		events:    make(chan Event, 64),
	}

	mask := uint32(xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskPropertyChange)
	if err := xproto.ChangeWindowAttributesChecked(conn, x.root,
		xproto.CwEventMask, []uint32{mask}).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("claim root window (another WM running?): %w", err)
	}

	if err := x.internAtoms(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := x.loadKeymap(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := x.openFont(); err != nil {
		conn.Close()
		return nil, err
	}
	monitors, err := x.Monitors()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := x.createBars(monitors); err != nil {
		conn.Close()
		return nil, err
	}

	go x.eventLoop()
	return x, nil
}

func (x *XConn) internAtoms() error {
	intern := func(name string) (xproto.Atom, error) {
		reply, err := xproto.InternAtom(x.conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return 0, fmt.Errorf("intern %s: %w", name, err)
		}
		return reply.Atom, nil
	}
	var err error
	for _, a := range []struct {
		dst  *xproto.Atom
		name string
	}{
		{&x.atoms.wmProtocols, "WM_PROTOCOLS"},
		{&x.atoms.wmDeleteWindow, "WM_DELETE_WINDOW"},
		{&x.atoms.wmName, "WM_NAME"},
		{&x.atoms.wmHints, "WM_HINTS"},
		{&x.atoms.wmTransient, "WM_TRANSIENT_FOR"},
		{&x.atoms.netWMState, "_NET_WM_STATE"},
		{&x.atoms.netWMStateFS, "_NET_WM_STATE_FULLSCREEN"},
		{&x.atoms.netWMName, "_NET_WM_NAME"},
	} {
		if *a.dst, err = intern(a.name); err != nil {
			return err
		}
	}
	return nil
}

func (x *XConn) loadKeymap() error {
	setup := xproto.Setup(x.conn)
	first := setup.MinKeycode
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(x.conn, first, count).Reply()
	if err != nil {
		return fmt.Errorf("keyboard mapping: %w", err)
	}
	per := int(reply.KeysymsPerKeycode)
	x.keymap = make(map[xproto.Keycode]uint32, int(count))
	for i := 0; i < int(count); i++ {
		sym := uint32(reply.Keysyms[i*per])
		if sym != 0 {
			x.keymap[first+xproto.Keycode(i)] = sym
		}
	}
	return nil
}

func (x *XConn) openFont() error {
	font, err := xproto.NewFontId(x.conn)
	if err != nil {
		return err
	}
	const name = "fixed"
	if err := xproto.OpenFontChecked(x.conn, font, uint16(len(name)), name).Check(); err != nil {
		return fmt.Errorf("open font %q: %w", name, err)
	}
	x.font = font
	reply, err := xproto.QueryFont(x.conn, xproto.Fontable(font)).Reply()
	if err != nil {
		return fmt.Errorf("query font: %w", err)
	}
	x.fontAsc = int(reply.FontAscent)
	x.cellWidth = int(reply.MaxBounds.CharacterWidth)
	if have := x.fontAsc + int(reply.FontDescent); x.barHeight < have+2 {
		x.barHeight = have + 2
	}
	return nil
}

func (x *XConn) createBars(monitors []layout.Rect) error {
	for i, mon := range monitors {
		win, err := xproto.NewWindowId(x.conn)
		if err != nil {
			return err
		}
		rect := layout.Rect{X: mon.X, Y: mon.Y, Width: mon.Width, Height: x.barHeight}
		err = xproto.CreateWindowChecked(x.conn, x.screen.RootDepth, win, x.root,
			int16(rect.X), int16(rect.Y), uint16(rect.Width), uint16(rect.Height), 0,
			xproto.WindowClassInputOutput, x.screen.RootVisual,
			xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
			[]uint32{
				uint32(x.screen.BlackPixel),
				1,
				xproto.EventMaskExposure | xproto.EventMaskButtonPress,
			}).Check()
		if err != nil {
			return fmt.Errorf("create bar window %d: %w", i, err)
		}
		gc, err := xproto.NewGcontextId(x.conn)
		if err != nil {
			return err
		}
		if err := xproto.CreateGCChecked(x.conn, gc, xproto.Drawable(win),
			xproto.GcForeground|xproto.GcBackground|xproto.GcFont,
			[]uint32{
				uint32(x.screen.WhitePixel),
				uint32(x.screen.BlackPixel),
				uint32(x.font),
			}).Check(); err != nil {
			return fmt.Errorf("create bar gc %d: %w", i, err)
		}
		xproto.MapWindow(x.conn, win)
		x.bars = append(x.bars, barWindow{win: win, gc: gc, rect: rect})
	}
	return nil
}

// BarHeight is the pixel height the bars actually got, which may exceed
// the requested height to fit the font.
func (x *XConn) BarHeight() int { return x.barHeight }

func (x *XConn) CellWidth() int { return x.cellWidth }

func (x *XConn) Monitors() ([]layout.Rect, error) {
	if err := xinerama.Init(x.conn); err == nil {
		if reply, err := xinerama.QueryScreens(x.conn).Reply(); err == nil && len(reply.ScreenInfo) > 0 {
			var out []layout.Rect
			for _, si := range reply.ScreenInfo {
				out = append(out, layout.Rect{
					X:      int(si.XOrg),
					Y:      int(si.YOrg),
					Width:  int(si.Width),
					Height: int(si.Height),
				})
			}
			return out, nil
		}
	}
	return []layout.Rect{{
		Width:  int(x.screen.WidthInPixels),
		Height: int(x.screen.HeightInPixels),
	}}, nil
}

func (x *XConn) Events() <-chan Event { return x.events }

func (x *XConn) Existing() ([]uint32, error) {
	reply, err := xproto.QueryTree(x.conn, x.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query tree: %w", err)
	}
	var out []uint32
	for _, child := range reply.Children {
		if x.isBar(child) {
			continue
		}
		attrs, err := xproto.GetWindowAttributes(x.conn, child).Reply()
		if err != nil || attrs.OverrideRedirect || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		out = append(out, uint32(child))
	}
	return out, nil
}

func (x *XConn) isBar(win xproto.Window) bool {
	for _, bar := range x.bars {
		if bar.win == win {
			return true
		}
	}
	return false
}

func (x *XConn) eventLoop() {
	defer close(x.events)
	for {
		ev, xerr := x.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			x.log.Debugf("x11: request error: %v", xerr)
			continue
		}
		if out, ok := x.translate(ev); ok {
			x.events <- out
		}
	}
}

func (x *XConn) translate(ev xgb.Event) (Event, bool) {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		sym, ok := x.keymap[e.Detail]
		if !ok {
			return Event{}, false
		}
		name, ok := keysymName(sym)
		if !ok {
			return Event{}, false
		}
		return Event{Kind: EventKey, Step: config.KeyStep{
			Mods: modsFromState(uint16(e.State)),
			Key:  name,
		}}, true
	case xproto.ButtonPressEvent:
		for i, bar := range x.bars {
			if bar.win == e.Event {
				return Event{Kind: EventButton, Monitor: i,
					X: int(e.EventX), Y: int(e.EventY)}, true
			}
		}
		if e.Event == x.root {
			// A grabbed press froze the pointer queue; replay it so the
			// client still sees the click.
			xproto.AllowEvents(x.conn, xproto.AllowReplayPointer, e.Time)
			mods := config.ModMask(x.dragMods.Load())
			held := modsFromState(uint16(e.State)) & mods
			if e.Child != 0 && mods != 0 && held == mods &&
				(e.Detail == xproto.ButtonIndex1 || e.Detail == xproto.ButtonIndex3) {
				return Event{Kind: EventClientButton, Window: uint32(e.Child),
					Button: int(e.Detail), X: int(e.RootX), Y: int(e.RootY)}, true
			}
		}
		return Event{}, false
	case xproto.MotionNotifyEvent:
		return Event{Kind: EventMotion, X: int(e.RootX), Y: int(e.RootY)}, true
	case xproto.ButtonReleaseEvent:
		return Event{Kind: EventButtonRelease,
			X: int(e.RootX), Y: int(e.RootY)}, true
	case xproto.MapRequestEvent:
		return Event{Kind: EventMapRequest, Window: uint32(e.Window)}, true
	case xproto.UnmapNotifyEvent:
		return Event{Kind: EventUnmap, Window: uint32(e.Window)}, true
	case xproto.DestroyNotifyEvent:
		return Event{Kind: EventDestroy, Window: uint32(e.Window)}, true
	case xproto.ConfigureRequestEvent:
		return Event{Kind: EventConfigureRequest, Window: uint32(e.Window), Rect: layout.Rect{
			X: int(e.X), Y: int(e.Y), Width: int(e.Width), Height: int(e.Height),
		}}, true
	case xproto.PropertyNotifyEvent:
		switch e.Atom {
		case x.atoms.wmName, x.atoms.netWMName:
			return Event{Kind: EventTitle, Window: uint32(e.Window)}, true
		case x.atoms.wmHints:
			return Event{Kind: EventUrgent, Window: uint32(e.Window)}, true
		}
		return Event{}, false
	case xproto.ClientMessageEvent:
		if e.Type == x.atoms.netWMState {
			data := e.Data.Data32
			if len(data) >= 3 && (xproto.Atom(data[1]) == x.atoms.netWMStateFS ||
				xproto.Atom(data[2]) == x.atoms.netWMStateFS) {
				return Event{Kind: EventFullscreenRequest, Window: uint32(e.Window)}, true
			}
		}
		return Event{}, false
	case xproto.EnterNotifyEvent:
		return Event{Kind: EventEnter, Window: uint32(e.Event)}, true
	case xproto.ExposeEvent:
		for i, bar := range x.bars {
			if bar.win == e.Window {
				return Event{Kind: EventExpose, Monitor: i}, true
			}
		}
		return Event{}, false
	default:
		return Event{}, false
	}
}

func modsFromState(state uint16) config.ModMask {
	var m config.ModMask
	if state&xShiftMask != 0 {
		m |= config.ModShift
	}
	if state&xControlMask != 0 {
		m |= config.ModControl
	}
	if state&xMod1Mask != 0 {
		m |= config.ModAlt
	}
	if state&xMod4Mask != 0 {
		m |= config.ModSuper
	}
	return m
}

func stateFromMods(m config.ModMask) uint16 {
	var state uint16
	if m&config.ModShift != 0 {
		state |= xShiftMask
	}
	if m&config.ModControl != 0 {
		state |= xControlMask
	}
	if m&config.ModAlt != 0 {
		state |= xMod1Mask
	}
	if m&config.ModSuper != 0 {
		state |= xMod4Mask
	}
	return state
}

func (x *XConn) GrabKeys(steps []config.KeyStep) error {
	xproto.UngrabKey(x.conn, xproto.Keycode(xproto.GrabAny), x.root, xproto.ModMaskAny)
	for _, step := range steps {
		sym, ok := keysymByName(step.Key)
		if !ok {
			x.log.Warnf("x11: no keysym for %q, binding skipped", step.Key)
			continue
		}
		code, ok := x.keycodeFor(sym)
		if !ok {
			x.log.Warnf("x11: key %q not on this keyboard, binding skipped", step.Key)
			continue
		}
		base := stateFromMods(step.Mods)
		// Grab with Caps Lock and Num Lock variants so they do not mask
		// the binding.
		for _, extra := range []uint16{0, xLockMask, xMod2Mask, xLockMask | xMod2Mask} {
			xproto.GrabKey(x.conn, true, x.root, base|extra, code,
				xproto.GrabModeAsync, xproto.GrabModeAsync)
		}
	}
	return x.Flush()
}

// GrabButtons claims modkey-clicks on every window via the root. The sync
// pointer mode lets translate replay the press to the client when the
// press is not a drag start.
func (x *XConn) GrabButtons(mods config.ModMask) error {
	xproto.UngrabButton(x.conn, xproto.ButtonIndexAny, x.root, xproto.ModMaskAny)
	base := stateFromMods(mods)
	buttons := []byte{xproto.ButtonIndex1, xproto.ButtonIndex3}
	for _, button := range buttons {
		for _, extra := range []uint16{0, xLockMask, xMod2Mask, xLockMask | xMod2Mask} {
			xproto.GrabButton(x.conn, false, x.root,
				xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease,
				xproto.GrabModeSync, xproto.GrabModeAsync,
				xproto.WindowNone, xproto.CursorNone, button, base|extra)
		}
	}
	x.dragMods.Store(uint32(mods))
	return x.Flush()
}

func (x *XConn) GrabPointer() {
	xproto.GrabPointer(x.conn, false, x.root,
		xproto.EventMaskPointerMotion|xproto.EventMaskButtonRelease|xproto.EventMaskButtonPress,
		xproto.GrabModeAsync, xproto.GrabModeAsync,
		xproto.WindowNone, xproto.CursorNone, xproto.TimeCurrentTime)
}

func (x *XConn) UngrabPointer() {
	xproto.UngrabPointer(x.conn, xproto.TimeCurrentTime)
}

func (x *XConn) GrabKeyboard() {
	xproto.GrabKeyboard(x.conn, true, x.root, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync)
}

func (x *XConn) UngrabKeyboard() {
	xproto.UngrabKeyboard(x.conn, xproto.TimeCurrentTime)
}

func (x *XConn) keycodeFor(sym uint32) (xproto.Keycode, bool) {
	for code, s := range x.keymap {
		if s == sym {
			return code, true
		}
	}
	return 0, false
}

func (x *XConn) Manage(window uint32) (Props, error) {
	win := xproto.Window(window)
	props := Props{}

	geo, err := xproto.GetGeometry(x.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return props, fmt.Errorf("window 0x%x geometry: %w", window, err)
	}
	props.Geometry = layout.Rect{
		X: int(geo.X), Y: int(geo.Y),
		Width: int(geo.Width), Height: int(geo.Height),
	}

	props.Title = x.textProperty(win, x.atoms.netWMName)
	if props.Title == "" {
		props.Title = x.textProperty(win, x.atoms.wmName)
	}
	if wmClass := x.textProperty(win, xproto.AtomWmClass); wmClass != "" {
		// WM_CLASS is instance\0class\0.
		parts := strings.Split(wmClass, "\x00")
		if len(parts) > 0 {
			props.Instance = parts[0]
		}
		if len(parts) > 1 {
			props.Class = parts[1]
		}
	}
	if reply, err := xproto.GetProperty(x.conn, false, win, x.atoms.wmTransient,
		xproto.AtomWindow, 0, 1).Reply(); err == nil && len(reply.Value) >= 4 {
		props.TransientFor = uint32(xgb.Get32(reply.Value))
	}

	// Watch for title and hint changes, and pointer entry for
	// focus-follows-mouse.
	xproto.ChangeWindowAttributes(x.conn, win, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange | xproto.EventMaskEnterWindow})
	return props, nil
}

func (x *XConn) textProperty(win xproto.Window, atom xproto.Atom) string {
	reply, err := xproto.GetProperty(x.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, 1<<16).Reply()
	if err != nil || reply == nil {
		return ""
	}
	return strings.TrimRight(string(reply.Value), "\x00")
}

func (x *XConn) Configure(window uint32, r layout.Rect, borderWidth int) {
	xproto.ConfigureWindow(x.conn, xproto.Window(window),
		xproto.ConfigWindowX|xproto.ConfigWindowY|
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|
			xproto.ConfigWindowBorderWidth,
		[]uint32{
			uint32(r.X), uint32(r.Y),
			uint32(r.Width), uint32(r.Height),
			uint32(borderWidth),
		})
}

func (x *XConn) SetBorder(window uint32, color config.Color) {
	xproto.ChangeWindowAttributes(x.conn, xproto.Window(window),
		xproto.CwBorderPixel, []uint32{uint32(color)})
}

func (x *XConn) Show(window uint32) {
	xproto.MapWindow(x.conn, xproto.Window(window))
}

// Hide parks the window beyond the left screen edge instead of unmapping
// it, so its client state survives tag switches.
func (x *XConn) Hide(window uint32) {
	xproto.ConfigureWindow(x.conn, xproto.Window(window),
		xproto.ConfigWindowX, []uint32{uint32(-int32(x.screen.WidthInPixels) * 2)})
}

func (x *XConn) Focus(window uint32) {
	xproto.SetInputFocus(x.conn, xproto.InputFocusPointerRoot,
		xproto.Window(window), xproto.TimeCurrentTime)
}

func (x *XConn) Raise(window uint32) {
	xproto.ConfigureWindow(x.conn, xproto.Window(window),
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

func (x *XConn) CloseWindow(window uint32) {
	win := xproto.Window(window)
	if x.supportsDelete(win) {
		data := xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(x.atoms.wmDeleteWindow), uint32(xproto.TimeCurrentTime), 0, 0, 0,
		})
		msg := xproto.ClientMessageEvent{
			Format: 32,
			Window: win,
			Type:   x.atoms.wmProtocols,
			Data:   data,
		}
		xproto.SendEvent(x.conn, false, win, xproto.EventMaskNoEvent, string(msg.Bytes()))
		return
	}
	xproto.KillClient(x.conn, uint32(win))
}

func (x *XConn) supportsDelete(win xproto.Window) bool {
	reply, err := xproto.GetProperty(x.conn, false, win, x.atoms.wmProtocols,
		xproto.AtomAtom, 0, 32).Reply()
	if err != nil || reply == nil {
		return false
	}
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		if xproto.Atom(xgb.Get32(reply.Value[i:])) == x.atoms.wmDeleteWindow {
			return true
		}
	}
	return false
}

func (x *XConn) DrawBar(monitor int, d BarDrawing) {
	if monitor < 0 || monitor >= len(x.bars) {
		return
	}
	bar := x.bars[monitor]
	xproto.ChangeGC(x.conn, bar.gc, xproto.GcForeground,
		[]uint32{uint32(x.screen.BlackPixel)})
	xproto.PolyFillRectangle(x.conn, xproto.Drawable(bar.win), bar.gc,
		[]xproto.Rectangle{{Width: uint16(bar.rect.Width), Height: uint16(bar.rect.Height)}})

	y := int16(x.fontAsc + 1)
	px := 0
	for _, run := range d.Left {
		px = x.drawRun(bar, run, px, y)
	}
	rightWidth := 0
	for _, run := range d.Right {
		rightWidth += len(run.Text) * x.cellWidth
	}
	px = bar.rect.Width - rightWidth
	for _, run := range d.Right {
		px = x.drawRun(bar, run, px, y)
	}
	x.Flush()
}

func (x *XConn) drawRun(bar barWindow, run BarText, px int, y int16) int {
	if run.Text == "" {
		return px
	}
	xproto.ChangeGC(x.conn, bar.gc, xproto.GcForeground|xproto.GcBackground,
		[]uint32{uint32(run.Foreground), uint32(run.Background)})
	text := run.Text
	if len(text) > 255 {
		text = text[:255]
	}
	xproto.ImageText8(x.conn, byte(len(text)), xproto.Drawable(bar.win), bar.gc,
		int16(px), y, text)
	width := len(text) * x.cellWidth
	if run.Underline {
		xproto.PolyFillRectangle(x.conn, xproto.Drawable(bar.win), bar.gc,
			[]xproto.Rectangle{{
				X: int16(px), Y: int16(bar.rect.Height - 2),
				Width: uint16(width), Height: 2,
			}})
	}
	return px + width
}

func (x *XConn) Flush() error {
	x.conn.Sync()
	return nil
}

func (x *XConn) Close() {
	x.conn.Close()
}
