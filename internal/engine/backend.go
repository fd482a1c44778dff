package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zafkar/oxwm/internal/bar"
	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/control"
	"github.com/zafkar/oxwm/internal/metrics"
	"github.com/zafkar/oxwm/internal/rules"
)

// The engine implements control.Backend. Every method marshals onto the
// loop goroutine; results are copies, safe to serialize after return.
var _ control.Backend = (*Engine)(nil)

// StateSnapshot reports the full manager state.
func (e *Engine) StateSnapshot() control.StateSnapshot {
	var snap control.StateSnapshot
	e.do(func() {
		snap.Tags = append([]string(nil), e.cfg.Tags...)
		for _, mon := range e.world.Monitors {
			ts := e.world.TagStateFor(mon)
			snap.Monitors = append(snap.Monitors, control.MonitorInfo{
				Index:       mon.Index,
				Width:       mon.Geometry.Width,
				Height:      mon.Geometry.Height,
				X:           mon.Geometry.X,
				Y:           mon.Geometry.Y,
				VisibleTags: uint32(mon.Selected()),
				Layout:      ts.Layout,
				Selected:    mon.Index == e.world.SelMon,
				ShowBar:     mon.ShowBar,
			})
		}
		focused := e.world.FocusedClient()
		wins := make([]uint32, 0, len(e.world.Clients))
		for win := range e.world.Clients {
			wins = append(wins, win)
		}
		sort.Slice(wins, func(i, j int) bool { return wins[i] < wins[j] })
		for _, win := range wins {
			c := e.world.Clients[win]
			snap.Clients = append(snap.Clients, control.ClientInfo{
				Window:     c.Window,
				Title:      c.Title,
				Class:      c.Class,
				Instance:   c.Instance,
				Tags:       uint32(c.Tags),
				Monitor:    c.Monitor,
				Floating:   c.Floating,
				Fullscreen: c.Fullscreen,
				Urgent:     c.Urgent,
				Focused:    focused != nil && focused.Window == c.Window,
			})
		}
	})
	return snap
}

// Keybinds lists the configured bindings.
func (e *Engine) Keybinds() []control.KeybindInfo {
	var out []control.KeybindInfo
	e.do(func() {
		out = e.keybindList()
	})
	return out
}

func (e *Engine) keybindList() []control.KeybindInfo {
	out := make([]control.KeybindInfo, 0, len(e.cfg.Bindings))
	for _, b := range e.cfg.Bindings {
		parts := make([]string, len(b.Steps))
		for i, step := range b.Steps {
			parts[i] = step.String()
		}
		out = append(out, control.KeybindInfo{
			Keys:   strings.Join(parts, " "),
			Action: b.Action.Describe(),
			Chord:  b.IsChord(),
		})
	}
	return out
}

// MetricsSnapshot reports dispatch counters.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	return e.collector.Snapshot()
}

// Dispatch runs a named action as if a key had triggered it.
func (e *Engine) Dispatch(kind string, intArg int, strArg string) error {
	action := config.Action{Kind: config.ActionKind(kind), Int: intArg, Str: strArg}
	if strArg != "" && action.Kind == config.ActionSpawn {
		action.Argv = []string{"sh", "-c", strArg}
	}
	if err := action.Validate(); err != nil {
		return err
	}
	var err error
	e.do(func() {
		err = e.runAction(action)
	})
	return err
}

// Quit stops the event loop.
func (e *Engine) Quit() {
	e.requestStop(stopQuit)
}

// Restart makes Run return ErrRestart so the process can re-exec.
func (e *Engine) Restart() {
	e.requestStop(stopRestart)
}

// Apply swaps in a freshly loaded configuration. Called by the reloader
// from its own goroutine.
func (e *Engine) Apply(cfg *config.Config) error {
	var err error
	e.do(func() {
		err = e.applyConfig(cfg)
	})
	return err
}

func (e *Engine) applyConfig(cfg *config.Config) error {
	blocks, err := bar.NewScheduler(cfg.Blocks)
	if err != nil {
		e.collector.RecordReload(false)
		return fmt.Errorf("bar blocks: %w", err)
	}
	blocks.OnError = e.blockFailed

	e.cfg = cfg
	e.gaps = cfg.Gaps
	e.world.ApplySettings(cfg)
	e.matcher = rules.New(cfg.Rules)
	e.resolver.Replace(cfg.Bindings, cfg.ChordTimeout)
	e.releaseKeyboard()
	e.blocks = blocks
	if err := e.conn.GrabKeys(grabSteps(cfg.Bindings)); err != nil {
		e.collector.RecordReload(false)
		return fmt.Errorf("grab keys: %w", err)
	}
	if err := e.conn.GrabButtons(cfg.ModKey); err != nil {
		e.collector.RecordReload(false)
		return fmt.Errorf("grab buttons: %w", err)
	}
	e.blocks.Tick(context.Background())
	e.arrange()
	e.collector.RecordReload(true)
	return nil
}
