package engine

import (
	"fmt"

	"github.com/zafkar/oxwm/internal/config"
)

// runAction executes one action against the world and re-arranges when it
// changed anything. It runs on the loop goroutine only.
func (e *Engine) runAction(a config.Action) error {
	e.collector.RecordDispatch(string(a.Kind))
	err := e.dispatch(a)
	if err != nil {
		e.collector.RecordFailure(string(a.Kind))
	}
	return err
}

func (e *Engine) dispatch(a config.Action) error {
	changed := false
	switch a.Kind {
	case config.ActionNone:
	case config.ActionSpawn:
		e.spawn(a.Argv)
	case config.ActionSpawnTerminal:
		if e.cfg.Terminal == "" {
			return fmt.Errorf("no terminal configured")
		}
		e.spawn([]string{e.cfg.Terminal})
	case config.ActionKillClient:
		if c := e.world.FocusedClient(); c != nil {
			e.conn.CloseWindow(c.Window)
			e.flush()
		}
	case config.ActionToggleFullscreen:
		changed = e.world.ToggleFullscreen()
	case config.ActionToggleFloating:
		changed = e.world.ToggleFloating()
	case config.ActionFocusStack:
		changed = e.world.CycleFocus(a.Int)
	case config.ActionMoveStack:
		changed = e.world.MoveInStack(a.Int)
	case config.ActionViewTag:
		changed = e.world.ViewTag(a.Int)
	case config.ActionViewNext:
		changed = e.world.ViewNext(1, false)
	case config.ActionViewPrev:
		changed = e.world.ViewNext(-1, false)
	case config.ActionViewNextNonEmpty:
		changed = e.world.ViewNext(1, true)
	case config.ActionViewPrevNonEmpty:
		changed = e.world.ViewNext(-1, true)
	case config.ActionToggleView:
		changed = e.world.ToggleView(a.Int)
	case config.ActionMoveToTag:
		changed = e.world.MoveToTag(a.Int)
	case config.ActionToggleTag:
		changed = e.world.ToggleTag(a.Int)
	case config.ActionFocusMonitor:
		changed = e.world.SetMonitorFocus(a.Int)
	case config.ActionTagMonitor:
		changed = e.world.MoveClientToMonitor(a.Int)
	case config.ActionSetLayout:
		changed = e.world.SetLayout(a.Str)
	case config.ActionCycleLayout:
		changed = e.world.CycleLayout()
	case config.ActionScrollLeft:
		changed = e.world.ScrollBy(-1)
	case config.ActionScrollRight:
		changed = e.world.ScrollBy(1)
	case config.ActionSetMasterFactor:
		changed = e.world.AdjustMasterFactor(a.Float)
	case config.ActionIncNumMaster:
		changed = e.world.IncNumMaster(a.Int)
	case config.ActionToggleGaps:
		e.gaps.Enabled = !e.gaps.Enabled
		changed = true
	case config.ActionToggleBar:
		changed = e.world.ToggleBar()
	case config.ActionShowKeybinds:
		e.logKeybinds()
	case config.ActionQuit:
		e.requestStop(stopQuit)
	case config.ActionRestart:
		e.requestStop(stopRestart)
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
	if changed {
		e.arrange()
	}
	return nil
}

func (e *Engine) requestStop(reason stopReason) {
	select {
	case e.stop <- reason:
	default:
	}
}

func (e *Engine) logKeybinds() {
	for _, info := range e.keybindList() {
		e.logger.Infof("bind: %-28s %s", info.Keys, info.Action)
	}
}
