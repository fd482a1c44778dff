// Package x11 is the display server boundary. The Conn interface carries
// every capability the engine needs; the xgb-backed implementation talks
// the X wire protocol and the fake backs tests.
package x11

import (
	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/layout"
)

// EventKind discriminates Event.
type EventKind int

const (
	// EventKey is a grabbed key press; Step carries the decoded combination.
	EventKey EventKind = iota
	// EventButton is a pointer press on the bar window; X and Y are
	// bar-relative pixels, Monitor identifies the bar.
	EventButton
	// EventMapRequest asks to manage a new window.
	EventMapRequest
	// EventUnmap and EventDestroy withdraw a managed window.
	EventUnmap
	EventDestroy
	// EventTitle reports a WM_NAME change.
	EventTitle
	// EventConfigureRequest is a client-initiated geometry request.
	EventConfigureRequest
	// EventUrgent reports an urgency hint on an unfocused window.
	EventUrgent
	// EventFullscreenRequest is a _NET_WM_STATE fullscreen toggle.
	EventFullscreenRequest
	// EventEnter reports the pointer entering a managed window.
	EventEnter
	// EventExpose asks for a bar redraw.
	EventExpose
	// EventClientButton is a modkey press on a managed window; Button is
	// the pointer button, X and Y are root coordinates.
	EventClientButton
	// EventMotion reports pointer movement while the pointer is grabbed.
	EventMotion
	// EventButtonRelease ends a pointer drag.
	EventButtonRelease
	// EventError is a fatal connection failure.
	EventError
)

// Event is one display server notification.
type Event struct {
	Kind    EventKind
	Window  uint32
	Step    config.KeyStep
	Monitor int
	Button  int
	X, Y    int
	Rect    layout.Rect
	Err     error
}

// Props are the window properties the engine matches rules against.
type Props struct {
	Title        string
	Class        string
	Instance     string
	TransientFor uint32
	Geometry     layout.Rect
}

// BarText is one colored run within a bar line.
type BarText struct {
	Text       string
	Foreground config.Color
	Background config.Color
	Underline  bool
}

// BarDrawing is a full bar repaint for one monitor.
type BarDrawing struct {
	Left  []BarText
	Right []BarText
}

// Conn is everything the engine needs from the display server. All calls
// happen on the engine goroutine; Events delivery is the only concurrent
// path.
type Conn interface {
	// Monitors returns the usable output rectangles, primary first.
	Monitors() ([]layout.Rect, error)
	// Events yields display notifications; the channel closes when the
	// connection dies.
	Events() <-chan Event
	// Existing lists the top-level windows already mapped, so a restarted
	// manager can adopt them.
	Existing() ([]uint32, error)
	// GrabKeys re-registers the global key grabs; previous grabs are
	// dropped.
	GrabKeys(steps []config.KeyStep) error
	// GrabKeyboard takes the whole keyboard while a chord prefix is
	// armed, so the follow-up steps arrive without their own grabs.
	GrabKeyboard()
	UngrabKeyboard()
	// GrabButtons registers passive grabs for modkey+Button1/Button3 so
	// drags reach the manager before the client sees the click.
	GrabButtons(mods config.ModMask) error
	// GrabPointer takes the pointer for the duration of a drag, so
	// motion and the final release are delivered.
	GrabPointer()
	UngrabPointer()
	// Manage fetches a window's properties when it first maps.
	Manage(window uint32) (Props, error)
	// Configure moves and resizes a window.
	Configure(window uint32, r layout.Rect, borderWidth int)
	// SetBorder recolors a window's border.
	SetBorder(window uint32, color config.Color)
	// Show and Hide map a window on screen or park it outside the
	// visible area so it keeps its state.
	Show(window uint32)
	Hide(window uint32)
	// Focus gives a window input focus; Raise lifts it in stacking order.
	Focus(window uint32)
	Raise(window uint32)
	// CloseWindow asks the client to close, falling back to a forced
	// kill when it does not speak WM_DELETE_WINDOW.
	CloseWindow(window uint32)
	// DrawBar repaints one monitor's bar. CellWidth is the fixed glyph
	// width the bar renders with, for translating click x to a cell.
	DrawBar(monitor int, d BarDrawing)
	CellWidth() int
	// Flush pushes buffered requests to the server.
	Flush() error
	Close()
}
