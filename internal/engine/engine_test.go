package engine

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zafkar/oxwm/internal/bar"
	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/input"
	"github.com/zafkar/oxwm/internal/layout"
	"github.com/zafkar/oxwm/internal/metrics"
	"github.com/zafkar/oxwm/internal/rules"
	"github.com/zafkar/oxwm/internal/state"
	"github.com/zafkar/oxwm/internal/store"
	"github.com/zafkar/oxwm/internal/util"
	"github.com/zafkar/oxwm/internal/x11"
)

const testBarHeight = 20

func testConfig(t *testing.T, mutate func(*config.Builder)) *config.Config {
	t.Helper()
	b := config.NewBuilder()
	b.SetGapsEnabled(false)
	if mutate != nil {
		mutate(b)
	}
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	return cfg
}

// newTestEngine wires an engine to a fake display and runs the same
// initialization Run performs, without starting the loop.
func newTestEngine(t *testing.T, cfg *config.Config, fake *x11.Fake, sessions *store.Store) *Engine {
	t.Helper()
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	e := New(fake, logger, metrics.NewCollector(true), sessions, cfg, testBarHeight)
	monitors, err := fake.Monitors()
	if err != nil {
		t.Fatalf("monitors: %v", err)
	}
	e.world = state.New(cfg, monitors, testBarHeight)
	e.matcher = rules.New(cfg.Rules)
	e.resolver = input.NewResolver(cfg.Bindings, cfg.ChordTimeout)
	blocks, err := bar.NewScheduler(cfg.Blocks)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	e.blocks = blocks
	e.blocks.OnError = e.blockFailed
	return e
}

func TestManageTilesNewWindow(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty", Instance: "kitty", Title: "shell"}

	e.manage(1, nil)

	if e.world.FindClient(1) == nil {
		t.Fatalf("expected window 1 to be managed")
	}
	if fake.FocusedWin != 1 {
		t.Fatalf("expected focus on window 1, got 0x%x", fake.FocusedWin)
	}
	got := fake.Configured[1]
	want := layout.Rect{X: 0, Y: testBarHeight, Width: 1920 - 4, Height: 1060 - 4}
	if got != want {
		t.Fatalf("expected geometry %+v, got %+v", want, got)
	}
}

func TestManageAppliesRulePlacement(t *testing.T) {
	tag := 4
	floating := true
	cfg := testConfig(t, func(b *config.Builder) {
		b.AddRule(config.Rule{Class: "mpv", Floating: &floating, Tag: &tag})
	})
	fake := x11.NewFake()
	e := newTestEngine(t, cfg, fake, nil)
	fake.Windows[7] = x11.Props{Class: "mpv", Geometry: layout.Rect{X: 50, Y: 60, Width: 640, Height: 480}}

	e.manage(7, nil)

	c := e.world.FindClient(7)
	if c == nil || !c.Floating {
		t.Fatalf("expected floating client, got %+v", c)
	}
	if c.Tags != state.Mask(4) {
		t.Fatalf("expected tag mask %v, got %v", state.Mask(4), c.Tags)
	}
	if snap := e.collector.Snapshot(); snap.Counters.RuleMatches != 1 {
		t.Fatalf("expected one recorded rule match, got %d", snap.Counters.RuleMatches)
	}
}

func TestTransientWindowsFloatWithParent(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "gimp"}
	fake.Windows[2] = x11.Props{Class: "gimp", TransientFor: 1}

	e.manage(1, nil)
	e.world.MoveToTag(3)
	e.world.ViewTag(3)
	e.manage(2, nil)

	c := e.world.FindClient(2)
	if c == nil || !c.Floating {
		t.Fatalf("expected transient to float, got %+v", c)
	}
	if c.Tags != state.Mask(3) {
		t.Fatalf("expected transient to inherit parent tags, got %v", c.Tags)
	}
}

func TestMasterStackSplit(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "a"}
	fake.Windows[2] = x11.Props{Class: "b"}

	e.manage(1, nil)
	e.manage(2, nil)

	master, stack := fake.Configured[1], fake.Configured[2]
	if master.X != 0 {
		t.Fatalf("expected master at x=0, got %d", master.X)
	}
	if stack.X != 1056 {
		t.Fatalf("expected stack column at x=1056, got %d", stack.X)
	}
	if master.Width+4 != 1056 {
		t.Fatalf("expected master width 1052, got %d", master.Width)
	}
}

func TestKeyPressDispatchesBinding(t *testing.T) {
	cfg := testConfig(t, func(b *config.Builder) {
		b.BindKey(config.ModSuper, "2", config.Action{Kind: config.ActionViewTag, Int: 1})
	})
	fake := x11.NewFake()
	e := newTestEngine(t, cfg, fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty"}
	e.manage(1, nil)

	e.handleKey(config.KeyStep{Mods: config.ModSuper, Key: "2"})

	if got := e.world.SelectedMonitor().Selected(); got != state.Mask(1) {
		t.Fatalf("expected view on tag 1, got %v", got)
	}
	if !fake.Hidden[1] {
		t.Fatalf("expected window 1 hidden after switching tags")
	}
}

func TestChordGrabsAndReleasesKeyboard(t *testing.T) {
	cfg := testConfig(t, func(b *config.Builder) {
		b.BindChord([]config.KeyStep{
			{Mods: config.ModSuper, Key: "g"},
			{Key: "t"},
		}, config.Action{Kind: config.ActionSetLayout, Str: "grid"})
	})
	fake := x11.NewFake()
	e := newTestEngine(t, cfg, fake, nil)

	e.handleKey(config.KeyStep{Mods: config.ModSuper, Key: "g"})
	if !e.keyboardHeld {
		t.Fatalf("expected keyboard held while chord is armed")
	}

	e.handleKey(config.KeyStep{Key: "t"})
	if e.keyboardHeld {
		t.Fatalf("expected keyboard released after chord completed")
	}
	mon := e.world.SelectedMonitor()
	if got := e.world.TagStateFor(mon).Layout; got != "grid" {
		t.Fatalf("expected grid layout, got %q", got)
	}
}

func TestFullscreenRequestCoversMonitor(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "mpv"}
	e.manage(1, nil)

	if err := e.handleEvent(context.Background(), x11.Event{Kind: x11.EventFullscreenRequest, Window: 1}); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if got := fake.Configured[1]; got != (layout.Rect{Width: 1920, Height: 1080}) {
		t.Fatalf("expected fullscreen geometry, got %+v", got)
	}

	if err := e.handleEvent(context.Background(), x11.Event{Kind: x11.EventFullscreenRequest, Window: 1}); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if got := fake.Configured[1]; got.Height == 1080 {
		t.Fatalf("expected geometry restored after leaving fullscreen, got %+v", got)
	}
}

func TestConfigureRequestHonoredForFloating(t *testing.T) {
	floating := true
	cfg := testConfig(t, func(b *config.Builder) {
		b.AddRule(config.Rule{Class: "scratch", Floating: &floating})
	})
	fake := x11.NewFake()
	e := newTestEngine(t, cfg, fake, nil)
	fake.Windows[1] = x11.Props{Class: "scratch"}
	fake.Windows[2] = x11.Props{Class: "kitty"}
	e.manage(1, nil)
	e.manage(2, nil)

	want := layout.Rect{X: 100, Y: 120, Width: 400, Height: 300}
	e.configureRequest(1, want)
	if fake.Configured[1] != want {
		t.Fatalf("expected floating request honored, got %+v", fake.Configured[1])
	}

	tiledBefore := fake.Configured[2]
	e.configureRequest(2, want)
	if fake.Configured[2] == want {
		t.Fatalf("expected tiled request to be overridden")
	}
	if fake.Configured[2] != tiledBefore {
		t.Fatalf("expected tiled slot re-asserted, got %+v", fake.Configured[2])
	}
}

func TestBarShowsTagsLayoutAndTitle(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty", Title: "vim"}
	e.manage(1, nil)

	line := fake.BarLine(0)
	for _, want := range []string{" 1 ", " 9 ", "[]=", "vim"} {
		if !contains(line, want) {
			t.Fatalf("expected bar line %q to contain %q", line, want)
		}
	}
}

func TestBarChordIndicator(t *testing.T) {
	cfg := testConfig(t, func(b *config.Builder) {
		b.BindChord([]config.KeyStep{
			{Mods: config.ModSuper, Key: "g"},
			{Key: "t"},
		}, config.Action{Kind: config.ActionSetLayout, Str: "grid"})
	})
	fake := x11.NewFake()
	e := newTestEngine(t, cfg, fake, nil)

	e.handleKey(config.KeyStep{Mods: config.ModSuper, Key: "g"})
	if line := fake.BarLine(0); !contains(line, "[Super+g]") {
		t.Fatalf("expected chord indicator in bar line %q", line)
	}

	e.handleKey(config.KeyStep{Key: "Escape"})
	if line := fake.BarLine(0); contains(line, "[Super+g]") {
		t.Fatalf("expected chord indicator cleared, got %q", line)
	}
}

func TestBarClickSwitchesTag(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	e.drawBars()

	// Tag cells are 3 cells wide; cell 4 lands inside " 2 ". The fake
	// renders 8px cells.
	e.handleBarClick(0, 4*8)

	if got := e.world.SelectedMonitor().Selected(); got != state.Mask(1) {
		t.Fatalf("expected click to view tag 1, got %v", got)
	}
}

func TestHideVacantTags(t *testing.T) {
	cfg := testConfig(t, func(b *config.Builder) {
		b.SetHideVacantTags(true)
	})
	fake := x11.NewFake()
	e := newTestEngine(t, cfg, fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty"}
	e.manage(1, nil)

	line := fake.BarLine(0)
	if !contains(line, " 1 ") {
		t.Fatalf("expected occupied tag shown, got %q", line)
	}
	if contains(line, " 5 ") {
		t.Fatalf("expected vacant tag hidden, got %q", line)
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	fake := x11.NewFake()
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	e := New(fake, logger, metrics.NewCollector(false), nil, testConfig(t, nil), testBarHeight)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	e.Quit()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("engine did not stop")
	}
}

func TestRunReturnsErrRestart(t *testing.T) {
	fake := x11.NewFake()
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	e := New(fake, logger, metrics.NewCollector(false), nil, testConfig(t, nil), testBarHeight)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	e.Restart()

	select {
	case err := <-done:
		if !errors.Is(err, ErrRestart) {
			t.Fatalf("expected ErrRestart, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("engine did not stop")
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	sessions, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer sessions.Close()

	cfg := testConfig(t, nil)
	fakeA := x11.NewFake()
	a := newTestEngine(t, cfg, fakeA, sessions)
	fakeA.Windows[41] = x11.Props{Class: "kitty"}
	a.manage(41, nil)
	a.world.MoveToTag(6)
	a.world.ViewTag(6)
	a.world.SetLayout("monocle")
	a.persist(true)

	fakeB := x11.NewFake()
	fakeB.Windows[41] = x11.Props{Class: "kitty"}
	b := newTestEngine(t, cfg, fakeB, sessions)
	restored := b.restoreSession(ctx)
	b.adoptExisting(restored)

	c := b.world.FindClient(41)
	if c == nil {
		t.Fatalf("expected window 41 adopted after restart")
	}
	if c.Tags != state.Mask(6) {
		t.Fatalf("expected restored tag mask %v, got %v", state.Mask(6), c.Tags)
	}
	mon := b.world.SelectedMonitor()
	if got := mon.Selected(); got != state.Mask(6) {
		t.Fatalf("expected restored view %v, got %v", state.Mask(6), got)
	}
	if got := mon.Tags[6].Layout; got != "monocle" {
		t.Fatalf("expected restored monocle layout, got %q", got)
	}
}

func TestApplyConfigReplacesBindings(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, func(b *config.Builder) {
		b.BindKey(config.ModSuper, "1", config.Action{Kind: config.ActionViewTag, Int: 0})
	}), fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty"}
	e.manage(1, nil)
	e.world.MoveToTag(4)
	e.world.ViewTag(4)
	e.world.ToggleFloating()

	next := testConfig(t, func(b *config.Builder) {
		b.BindKey(config.ModSuper, "9", config.Action{Kind: config.ActionViewTag, Int: 8})
		b.BindKey(config.ModSuper, "8", config.Action{Kind: config.ActionViewTag, Int: 7})
	})
	if err := e.applyConfig(next); err != nil {
		t.Fatalf("apply config: %v", err)
	}

	if len(fake.Grabbed) != 2 {
		t.Fatalf("expected 2 grabbed steps, got %d", len(fake.Grabbed))
	}
	e.handleKey(config.KeyStep{Mods: config.ModSuper, Key: "9"})
	if got := e.world.SelectedMonitor().Selected(); got != state.Mask(8) {
		t.Fatalf("expected new binding active, got view %v", got)
	}
	if snap := e.collector.Snapshot(); snap.Counters.ReloadsOK != 1 {
		t.Fatalf("expected one successful reload, got %d", snap.Counters.ReloadsOK)
	}

	// Existing clients keep their placement across the reload.
	c := e.world.FindClient(1)
	if c == nil {
		t.Fatalf("expected client to survive the reload")
	}
	if c.Tags != state.Mask(4) || !c.Floating || c.Monitor != 0 {
		t.Fatalf("expected placement preserved, got tags=%v floating=%v monitor=%d",
			c.Tags, c.Floating, c.Monitor)
	}
}

func TestApplyConfigReconcilesTagCount(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty"}
	e.manage(1, nil)
	e.world.MoveToTag(8)
	e.world.ViewTag(8)

	shrunk := testConfig(t, func(b *config.Builder) {
		b.SetTags([]string{"web", "code", "chat"})
	})
	if err := e.applyConfig(shrunk); err != nil {
		t.Fatalf("apply config: %v", err)
	}

	if e.world.NumTags != 3 {
		t.Fatalf("expected 3 tags after reload, got %d", e.world.NumTags)
	}
	mon := e.world.SelectedMonitor()
	if len(mon.Tags) != 3 {
		t.Fatalf("expected per-tag state resized, got %d entries", len(mon.Tags))
	}
	c := e.world.FindClient(1)
	if c.Tags != state.Mask(0) {
		t.Fatalf("expected out-of-range membership to fall back to tag 0, got %v", c.Tags)
	}
	if got := mon.Selected(); got != state.Mask(0) {
		t.Fatalf("expected out-of-range view to fall back to tag 0, got %v", got)
	}
	if err := e.world.CheckInvariants(); err != nil {
		t.Fatalf("invariants broken after tag reload: %v", err)
	}

	// Growing the list makes the new tags addressable.
	grown := testConfig(t, func(b *config.Builder) {
		b.SetTags([]string{"web", "code", "chat", "mail", "misc"})
	})
	if err := e.applyConfig(grown); err != nil {
		t.Fatalf("apply config: %v", err)
	}
	if !e.world.ViewTag(4) {
		t.Fatalf("expected newly added tag to be viewable")
	}
}

func TestDragFloatsAndMovesWindow(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty"}
	e.manage(1, nil)

	e.beginDrag(1, dragButtonMove, 500, 500)
	c := e.world.FindClient(1)
	if c == nil || !c.Floating {
		t.Fatalf("expected dragged tiled window to float, got %+v", c)
	}
	if !containsCall(fake, "grab-pointer") {
		t.Fatalf("expected pointer grabbed for the drag")
	}

	before := c.Geometry
	e.dragMotion(600, 550)
	if c.Geometry.X != before.X+100 || c.Geometry.Y != before.Y+50 {
		t.Fatalf("expected window moved by pointer delta, got %+v", c.Geometry)
	}

	e.endDrag()
	if !containsCall(fake, "ungrab-pointer") {
		t.Fatalf("expected pointer released after the drag")
	}
	if !c.Floating {
		t.Fatalf("expected window to stay floating without auto-tile")
	}
}

func TestDragResizeGrowsWindow(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty"}
	e.manage(1, nil)

	e.beginDrag(1, dragButtonResize, 1000, 1000)
	c := e.world.FindClient(1)
	before := c.Geometry
	e.dragMotion(1100, 1080)
	if c.Geometry.Width != before.Width+100 || c.Geometry.Height != before.Height+80 {
		t.Fatalf("expected window grown by pointer delta, got %+v", c.Geometry)
	}
	e.endDrag()
}

func TestAutoTileDropReordersStack(t *testing.T) {
	cfg := testConfig(t, func(b *config.Builder) {
		b.SetAutoTile(true)
	})
	fake := x11.NewFake()
	e := newTestEngine(t, cfg, fake, nil)
	for win := uint32(1); win <= 3; win++ {
		fake.Windows[win] = x11.Props{Class: "term"}
		e.manage(win, nil)
	}

	// Window 3 sits in the lower stack slot; drag it onto the master
	// column and drop.
	e.beginDrag(3, dragButtonMove, 1500, 800)
	e.dragMotion(500, 520)
	e.endDrag()

	c := e.world.FindClient(3)
	if c.Floating {
		t.Fatalf("expected dropped window tiled again under auto-tile")
	}
	mon := e.world.SelectedMonitor()
	if mon.Order[0] != 3 {
		t.Fatalf("expected window 3 promoted to the drop slot, got order %v", mon.Order)
	}
	if got := fake.Configured[3]; got.X != 0 {
		t.Fatalf("expected window 3 in the master column, got %+v", got)
	}
}

func TestArrangeAbortsOnCorruptState(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "kitty"}
	e.manage(1, nil)

	e.world.FindClient(1).Tags = 0
	defer func() {
		if recover() == nil {
			t.Fatalf("expected arrange to abort on an empty tag membership")
		}
	}()
	e.arrange()
}

func containsCall(fake *x11.Fake, call string) bool {
	for _, c := range fake.Calls {
		if c == call {
			return true
		}
	}
	return false
}

func TestUrgencyClearedByFocus(t *testing.T) {
	fake := x11.NewFake()
	e := newTestEngine(t, testConfig(t, nil), fake, nil)
	fake.Windows[1] = x11.Props{Class: "a"}
	fake.Windows[2] = x11.Props{Class: "b"}
	e.manage(1, nil)
	e.manage(2, nil)

	e.markUrgent(1)
	if c := e.world.FindClient(1); !c.Urgent {
		t.Fatalf("expected unfocused window to turn urgent")
	}
	e.enterWindow(1)
	if c := e.world.FindClient(1); c.Urgent {
		t.Fatalf("expected urgency cleared on focus")
	}
	if fake.FocusedWin != 1 {
		t.Fatalf("expected focus to follow pointer, got 0x%x", fake.FocusedWin)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
