package config

import "fmt"

// ActionKind names an executable window manager action.
type ActionKind string

const (
	ActionNone             ActionKind = "none"
	ActionSpawn            ActionKind = "spawn"
	ActionSpawnTerminal    ActionKind = "spawn-terminal"
	ActionKillClient       ActionKind = "kill-client"
	ActionToggleFullscreen ActionKind = "toggle-fullscreen"
	ActionToggleFloating   ActionKind = "toggle-floating"
	ActionFocusStack       ActionKind = "focus-stack"
	ActionMoveStack        ActionKind = "move-stack"
	ActionViewTag          ActionKind = "view-tag"
	ActionViewNext         ActionKind = "view-next"
	ActionViewPrev         ActionKind = "view-prev"
	ActionViewNextNonEmpty ActionKind = "view-next-nonempty"
	ActionViewPrevNonEmpty ActionKind = "view-prev-nonempty"
	ActionToggleView       ActionKind = "toggle-view"
	ActionMoveToTag        ActionKind = "move-to-tag"
	ActionToggleTag        ActionKind = "toggle-tag"
	ActionFocusMonitor     ActionKind = "focus-monitor"
	ActionTagMonitor       ActionKind = "tag-monitor"
	ActionSetLayout        ActionKind = "set-layout"
	ActionCycleLayout      ActionKind = "cycle-layout"
	ActionScrollLeft       ActionKind = "scroll-left"
	ActionScrollRight      ActionKind = "scroll-right"
	ActionSetMasterFactor  ActionKind = "set-master-factor"
	ActionIncNumMaster     ActionKind = "inc-num-master"
	ActionToggleGaps       ActionKind = "toggle-gaps"
	ActionToggleBar        ActionKind = "toggle-bar"
	ActionShowKeybinds     ActionKind = "show-keybinds"
	ActionQuit             ActionKind = "quit"
	ActionRestart          ActionKind = "restart"
)

// Action is an action kind plus its argument. Only the field matching the
// kind is meaningful.
type Action struct {
	Kind  ActionKind
	Int   int
	Float float64
	Str   string
	Argv  []string
}

// argKind classifies the argument each action kind expects.
var actionArgs = map[ActionKind]string{
	ActionNone:             "",
	ActionSpawn:            "argv",
	ActionSpawnTerminal:    "",
	ActionKillClient:       "",
	ActionToggleFullscreen: "",
	ActionToggleFloating:   "",
	ActionFocusStack:       "int",
	ActionMoveStack:        "int",
	ActionViewTag:          "int",
	ActionViewNext:         "",
	ActionViewPrev:         "",
	ActionViewNextNonEmpty: "",
	ActionViewPrevNonEmpty: "",
	ActionToggleView:       "int",
	ActionMoveToTag:        "int",
	ActionToggleTag:        "int",
	ActionFocusMonitor:     "int",
	ActionTagMonitor:       "int",
	ActionSetLayout:        "str",
	ActionCycleLayout:      "",
	ActionScrollLeft:       "",
	ActionScrollRight:      "",
	ActionSetMasterFactor:  "float",
	ActionIncNumMaster:     "int",
	ActionToggleGaps:       "",
	ActionToggleBar:        "",
	ActionShowKeybinds:     "",
	ActionQuit:             "",
	ActionRestart:          "",
}

// Validate checks the action kind and its argument shape.
func (a Action) Validate() error {
	arg, ok := actionArgs[a.Kind]
	if !ok {
		return fmt.Errorf("unknown action %q", a.Kind)
	}
	if arg == "argv" && len(a.Argv) == 0 {
		return fmt.Errorf("action %q requires a command", a.Kind)
	}
	if a.Kind == ActionSetLayout && a.Str == "" {
		return fmt.Errorf("action %q requires a layout name", a.Kind)
	}
	return nil
}

// Describe renders a short human-readable form used by keybind listings.
func (a Action) Describe() string {
	switch actionArgs[a.Kind] {
	case "argv":
		return fmt.Sprintf("%s %v", a.Kind, a.Argv)
	case "int":
		return fmt.Sprintf("%s %d", a.Kind, a.Int)
	case "float":
		return fmt.Sprintf("%s %+.2f", a.Kind, a.Float)
	case "str":
		return fmt.Sprintf("%s %s", a.Kind, a.Str)
	default:
		return string(a.Kind)
	}
}
