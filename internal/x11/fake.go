package x11

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/layout"
)

// Fake is an in-memory Conn for tests. Tests push events with Send and
// assert on the recorded calls.
type Fake struct {
	mu sync.Mutex

	Screens []layout.Rect
	// Windows seeds Manage responses by window id.
	Windows map[uint32]Props

	events chan Event

	Calls      []string
	Configured map[uint32]layout.Rect
	Borders    map[uint32]config.Color
	Hidden     map[uint32]bool
	FocusedWin uint32
	Grabbed    []config.KeyStep
	Bars       map[int]BarDrawing
	Closed     []uint32
}

// NewFake builds a fake with one 1920x1080 screen unless overridden.
func NewFake(screens ...layout.Rect) *Fake {
	if len(screens) == 0 {
		screens = []layout.Rect{{Width: 1920, Height: 1080}}
	}
	return &Fake{
		Screens:    screens,
		Windows:    make(map[uint32]Props),
		events:     make(chan Event, 64),
		Configured: make(map[uint32]layout.Rect),
		Borders:    make(map[uint32]config.Color),
		Hidden:     make(map[uint32]bool),
		Bars:       make(map[int]BarDrawing),
	}
}

// Send queues an event for the engine.
func (f *Fake) Send(ev Event) { f.events <- ev }

// CloseEvents ends the event stream, stopping the engine loop.
func (f *Fake) CloseEvents() { close(f.events) }

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *Fake) Monitors() ([]layout.Rect, error) {
	return append([]layout.Rect(nil), f.Screens...), nil
}

func (f *Fake) Events() <-chan Event { return f.events }

func (f *Fake) Existing() ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, 0, len(f.Windows))
	for win := range f.Windows {
		out = append(out, win)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *Fake) GrabKeys(steps []config.KeyStep) error {
	f.mu.Lock()
	f.Grabbed = append([]config.KeyStep(nil), steps...)
	f.mu.Unlock()
	f.record("grab %d", len(steps))
	return nil
}

func (f *Fake) GrabKeyboard() { f.record("grab-keyboard") }

func (f *Fake) UngrabKeyboard() { f.record("ungrab-keyboard") }

func (f *Fake) GrabButtons(mods config.ModMask) error {
	f.record("grab-buttons %s", mods)
	return nil
}

func (f *Fake) GrabPointer() { f.record("grab-pointer") }

func (f *Fake) UngrabPointer() { f.record("ungrab-pointer") }

func (f *Fake) Manage(window uint32) (Props, error) {
	f.mu.Lock()
	props, ok := f.Windows[window]
	f.mu.Unlock()
	if !ok {
		return Props{}, fmt.Errorf("no such window 0x%x", window)
	}
	return props, nil
}

func (f *Fake) Configure(window uint32, r layout.Rect, borderWidth int) {
	f.mu.Lock()
	f.Configured[window] = r
	f.mu.Unlock()
	f.record("configure 0x%x %dx%d+%d+%d", window, r.Width, r.Height, r.X, r.Y)
}

func (f *Fake) SetBorder(window uint32, color config.Color) {
	f.mu.Lock()
	f.Borders[window] = color
	f.mu.Unlock()
}

func (f *Fake) Show(window uint32) {
	f.mu.Lock()
	f.Hidden[window] = false
	f.mu.Unlock()
	f.record("show 0x%x", window)
}

func (f *Fake) Hide(window uint32) {
	f.mu.Lock()
	f.Hidden[window] = true
	f.mu.Unlock()
	f.record("hide 0x%x", window)
}

func (f *Fake) Focus(window uint32) {
	f.mu.Lock()
	f.FocusedWin = window
	f.mu.Unlock()
	f.record("focus 0x%x", window)
}

func (f *Fake) Raise(window uint32) { f.record("raise 0x%x", window) }

func (f *Fake) CloseWindow(window uint32) {
	f.mu.Lock()
	f.Closed = append(f.Closed, window)
	f.mu.Unlock()
	f.record("close 0x%x", window)
}

func (f *Fake) DrawBar(monitor int, d BarDrawing) {
	f.mu.Lock()
	f.Bars[monitor] = d
	f.mu.Unlock()
}

// CellWidth matches the 8px glyph cell the tests assume for bar clicks.
func (f *Fake) CellWidth() int { return 8 }

func (f *Fake) Flush() error { return nil }

func (f *Fake) Close() {}

// BarLine flattens the last drawing for a monitor into plain text, for
// assertions.
func (f *Fake) BarLine(monitor int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.Bars[monitor]
	out := ""
	for _, t := range d.Left {
		out += t.Text
	}
	for _, t := range d.Right {
		out += t.Text
	}
	return out
}
