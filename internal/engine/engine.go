// Package engine is the window manager's event loop. It owns the state
// world, reacts to display server events, resolves key presses to actions
// and keeps the on-screen arrangement in sync. Everything runs on the Run
// goroutine; the control server and the config reloader reach it through
// serialized closures.
package engine

import (
	"context"
	"errors"
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

// ErrRestart tells the caller to re-exec the process in place. The session
// is saved before Run returns it, so X clients survive the restart.
var ErrRestart = errors.New("restart requested")

type stopReason int

const (
	stopQuit stopReason = iota
	stopRestart
)

// Engine drives the manager. Construct with New, then call Run.
type Engine struct {
	conn      x11.Conn
	logger    *util.Logger
	collector *metrics.Collector
	sessions  *store.Store

	cfg      *config.Config
	gaps     config.Gaps
	world    *state.World
	matcher  *rules.Engine
	resolver *input.Resolver
	blocks   *bar.Scheduler

	barHeight    int
	regions      []barRegions
	keyboardHeld bool
	drag         *drag

	requests chan func()
	stop     chan stopReason
	finished chan struct{}
}

// New builds an engine over the display connection. The session store may
// be nil, which disables restart persistence.
func New(conn x11.Conn, logger *util.Logger, collector *metrics.Collector, sessions *store.Store, cfg *config.Config, barHeight int) *Engine {
	return &Engine{
		conn:      conn,
		logger:    logger,
		collector: collector,
		sessions:  sessions,
		cfg:       cfg,
		gaps:      cfg.Gaps,
		barHeight: barHeight,
		requests:  make(chan func()),
		stop:      make(chan stopReason, 1),
		finished:  make(chan struct{}),
	}
}

// Run manages the display until the context ends, quit is requested or the
// connection dies. A restart request returns ErrRestart after saving the
// session.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.finished)

	monitors, err := e.conn.Monitors()
	if err != nil {
		return err
	}
	if len(monitors) == 0 {
		return errors.New("no monitors reported")
	}
	e.world = state.New(e.cfg, monitors, e.barHeight)
	e.matcher = rules.New(e.cfg.Rules)
	e.resolver = input.NewResolver(e.cfg.Bindings, e.cfg.ChordTimeout)

	blocks, err := bar.NewScheduler(e.cfg.Blocks)
	if err != nil {
		return err
	}
	e.blocks = blocks
	e.blocks.OnError = e.blockFailed

	if err := e.conn.GrabKeys(grabSteps(e.cfg.Bindings)); err != nil {
		return err
	}
	if err := e.conn.GrabButtons(e.cfg.ModKey); err != nil {
		return err
	}

	restored := e.restoreSession(ctx)
	e.adoptExisting(restored)
	for _, argv := range e.cfg.Autostart {
		e.spawn(argv)
	}
	e.blocks.Tick(ctx)
	e.arrange()

	wake := time.NewTimer(time.Hour)
	defer wake.Stop()
	for {
		e.rearm(wake)
		select {
		case <-ctx.Done():
			e.persist(false)
			return ctx.Err()
		case reason := <-e.stop:
			e.persist(reason == stopRestart)
			if reason == stopRestart {
				return ErrRestart
			}
			return nil
		case ev, ok := <-e.conn.Events():
			if !ok {
				return errors.New("display event stream closed")
			}
			if err := e.handleEvent(ctx, ev); err != nil {
				return err
			}
		case <-wake.C:
			if e.resolver.Expire() {
				e.releaseKeyboard()
				e.drawBars()
			}
			e.blocks.Tick(ctx)
			e.drawBars()
			e.flush()
		case <-e.blocks.Updates():
			e.drawBars()
			e.flush()
		case fn := <-e.requests:
			fn()
		}
	}
}

// do runs fn on the loop goroutine and waits for it. Calls made after the
// loop exited return without running fn.
func (e *Engine) do(fn func()) {
	done := make(chan struct{})
	select {
	case e.requests <- func() { fn(); close(done) }:
	case <-e.finished:
		return
	}
	select {
	case <-done:
	case <-e.finished:
	}
}

// rearm points the wake timer at the next deadline: a block refresh or an
// armed chord expiry, whichever is sooner.
func (e *Engine) rearm(t *time.Timer) {
	next, ok := e.blocks.NextDue()
	if dl, armed := e.resolver.Deadline(); armed && (!ok || dl.Before(next)) {
		next, ok = dl, true
	}
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if !ok {
		t.Reset(time.Hour)
		return
	}
	d := time.Until(next)
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func (e *Engine) handleEvent(ctx context.Context, ev x11.Event) error {
	switch ev.Kind {
	case x11.EventError:
		return ev.Err
	case x11.EventKey:
		e.handleKey(ev.Step)
	case x11.EventButton:
		e.handleBarClick(ev.Monitor, ev.X)
	case x11.EventMapRequest:
		e.manage(ev.Window, nil)
	case x11.EventUnmap, x11.EventDestroy:
		if e.world.Unmap(ev.Window) {
			e.arrange()
		}
	case x11.EventTitle:
		e.refreshTitle(ev.Window)
	case x11.EventUrgent:
		e.markUrgent(ev.Window)
	case x11.EventConfigureRequest:
		e.configureRequest(ev.Window, ev.Rect)
	case x11.EventFullscreenRequest:
		if c := e.world.FindClient(ev.Window); c != nil {
			e.world.Focus(c.Window)
			e.world.ToggleFullscreen()
			e.arrange()
		}
	case x11.EventClientButton:
		e.beginDrag(ev.Window, ev.Button, ev.X, ev.Y)
	case x11.EventMotion:
		e.dragMotion(ev.X, ev.Y)
	case x11.EventButtonRelease:
		e.endDrag()
	case x11.EventEnter:
		e.enterWindow(ev.Window)
	case x11.EventExpose:
		e.drawBars()
		e.flush()
	}
	return nil
}

func (e *Engine) handleKey(step config.KeyStep) {
	res := e.resolver.Press(step)
	switch {
	case res.Action != nil:
		e.releaseKeyboard()
		if err := e.runAction(*res.Action); err != nil {
			e.logger.Warnf("engine: action %s failed: %v", res.Action.Describe(), err)
		}
		e.drawBars()
		e.flush()
	case res.Pending:
		if !e.keyboardHeld {
			e.conn.GrabKeyboard()
			e.keyboardHeld = true
		}
		e.drawBars()
		e.flush()
	case res.Consumed:
		// An armed chord was aborted; clear the bar indicator.
		e.releaseKeyboard()
		e.drawBars()
		e.flush()
	}
}

func (e *Engine) releaseKeyboard() {
	if e.keyboardHeld {
		e.conn.UngrabKeyboard()
		e.keyboardHeld = false
	}
}

// manage admits a window. A session row from a previous incarnation
// overrides rule placement so restarts keep the client where it was.
func (e *Engine) manage(window uint32, row *store.ClientRow) {
	if e.world.FindClient(window) != nil {
		return
	}
	props, err := e.conn.Manage(window)
	if err != nil {
		e.logger.Debugf("engine: manage 0x%x: %v", window, err)
		return
	}

	c := &state.Client{
		Window:   window,
		Title:    props.Title,
		Class:    props.Class,
		Instance: props.Instance,
		Geometry: props.Geometry,
	}
	placement, matched := e.matcher.Classify(props.Class, props.Instance, props.Title)
	if matched {
		e.collector.RecordRuleMatch()
	}
	if props.TransientFor != 0 {
		c.Floating = true
		if parent := e.world.FindClient(props.TransientFor); parent != nil {
			c.Tags = parent.Tags
			mon := parent.Monitor
			placement.Monitor = &mon
		}
	}
	if row != nil {
		c.Tags = state.TagMask(row.Tags)
		c.Floating = row.Floating
		c.Fullscreen = row.Fullscreen
		if row.Monitor >= 0 && row.Monitor < len(e.world.Monitors) {
			mon := row.Monitor
			placement.Monitor = &mon
		}
		placement.Tag = nil
	}

	e.world.Map(c, placement)
	e.collector.RecordManaged()
	e.logger.Debugf("engine: managing 0x%x class=%q instance=%q", window, c.Class, c.Instance)
	e.arrange()
}

func (e *Engine) refreshTitle(window uint32) {
	c := e.world.FindClient(window)
	if c == nil {
		return
	}
	if props, err := e.conn.Manage(window); err == nil {
		c.Title = props.Title
	}
	e.drawBars()
	e.flush()
}

func (e *Engine) markUrgent(window uint32) {
	c := e.world.FindClient(window)
	if c == nil {
		return
	}
	if f := e.world.FocusedClient(); f != nil && f.Window == window {
		return
	}
	c.Urgent = true
	e.drawBars()
	e.flush()
}

// configureRequest honors geometry requests from floating and unmanaged
// windows; tiled clients get their slot re-asserted instead.
func (e *Engine) configureRequest(window uint32, r layout.Rect) {
	c := e.world.FindClient(window)
	switch {
	case c == nil:
		e.conn.Configure(window, r, 0)
	case c.Floating && !c.Fullscreen:
		c.Geometry = r
		c.FloatGeometry = r
		e.conn.Configure(window, r, e.cfg.Border.Width)
	default:
		e.conn.Configure(window, shrinkForBorder(c.Geometry, e.borderFor(c)), e.borderFor(c))
	}
	e.flush()
}

func (e *Engine) enterWindow(window uint32) {
	c := e.world.FindClient(window)
	if c == nil {
		return
	}
	if f := e.world.FocusedClient(); f != nil && f.Window == window {
		return
	}
	if !e.world.Focus(window) {
		return
	}
	e.applyFocus()
	e.drawBars()
	e.flush()
}

func (e *Engine) blockFailed(index int, err error) {
	e.collector.RecordBlockFailure()
	e.logger.Warnf("bar: block %d failed: %v", index, err)
}

func (e *Engine) flush() {
	if err := e.conn.Flush(); err != nil {
		e.logger.Errorf("engine: flush: %v", err)
	}
}

// grabSteps returns the distinct opening steps of the bindings; only the
// first step of a chord needs a passive grab.
func grabSteps(bindings []config.Binding) []config.KeyStep {
	seen := make(map[config.KeyStep]bool)
	var out []config.KeyStep
	for _, b := range bindings {
		if len(b.Steps) == 0 {
			continue
		}
		step := b.Steps[0]
		if seen[step] {
			continue
		}
		seen[step] = true
		out = append(out, step)
	}
	return out
}
