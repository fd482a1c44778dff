package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Color is a packed 0xRRGGBB value.
type Color uint32

// ParseColor accepts "#rrggbb", "0xrrggbb" or plain hex.
func ParseColor(s string) (Color, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "0x")
	if len(trimmed) != 6 {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c))
}

// Scheme groups the foreground, background and underline colors used to draw
// one class of bar segment.
type Scheme struct {
	Foreground Color
	Background Color
	Underline  Color
}

// Border holds window border appearance.
type Border struct {
	Width     int
	Focused   Color
	Unfocused Color
}

// Gaps holds the configured gap sizes and toggles.
type Gaps struct {
	Enabled bool
	Smart   bool
	InnerX  int
	InnerY  int
	OuterX  int
	OuterY  int
}

// Rule classifies a newly mapped window. Empty predicate fields match
// anything; set fields must all match (substring, like dwm).
type Rule struct {
	Class    string
	Instance string
	Title    string

	Floating *bool
	Tag      *int
	Monitor  *int
}

// BlockKind selects a status bar data source.
type BlockKind string

const (
	BlockBattery  BlockKind = "battery"
	BlockMemory   BlockKind = "memory"
	BlockShell    BlockKind = "shell"
	BlockDateTime BlockKind = "datetime"
	BlockStatic   BlockKind = "static"
	BlockButton   BlockKind = "button"
)

// Block describes one status bar segment and its refresh cadence.
type Block struct {
	Kind BlockKind
	// Format is a template; every "{}" is replaced with the block's value.
	Format    string
	Interval  time.Duration
	Color     Color
	Underline bool

	// Shell and button blocks.
	Command      string
	ClickCommand string

	// Datetime blocks, in time.Format layout syntax.
	TimeLayout string

	// Static blocks.
	Text string

	// Battery blocks.
	FormatCharging    string
	FormatDischarging string
	FormatFull        string
	BatteryName       string
}

// ModMask is a bitmask of keyboard modifiers.
type ModMask uint8

const (
	ModShift ModMask = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

var modNames = map[string]ModMask{
	"shift":   ModShift,
	"ctrl":    ModControl,
	"control": ModControl,
	"alt":     ModAlt,
	"mod1":    ModAlt,
	"super":   ModSuper,
	"mod4":    ModSuper,
}

// ParseMod resolves a modifier name.
func ParseMod(name string) (ModMask, error) {
	if m, ok := modNames[strings.ToLower(name)]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown modifier %q", name)
}

func (m ModMask) String() string {
	var parts []string
	if m&ModSuper != 0 {
		parts = append(parts, "Super")
	}
	if m&ModControl != 0 {
		parts = append(parts, "Ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	return strings.Join(parts, "+")
}

// KeyStep is one modifier+key combination within a binding or chord.
type KeyStep struct {
	Mods ModMask
	Key  string
}

func (s KeyStep) String() string {
	if s.Mods == 0 {
		return s.Key
	}
	return s.Mods.String() + "+" + s.Key
}

// Binding maps an ordered key sequence to an action. A single step is a
// plain binding; more than one step is a chord.
type Binding struct {
	Steps  []KeyStep
	Action Action
}

// IsChord reports whether the binding requires more than one step.
func (b Binding) IsChord() bool {
	return len(b.Steps) > 1
}

// Config is the immutable configuration snapshot the engine runs against.
// Instances are produced by Builder.Build and never mutated afterwards.
type Config struct {
	Terminal        string
	ModKey          ModMask
	Tags            []string
	TagBackAndForth bool
	AutoTile        bool
	DefaultLayout   string
	LayoutSymbols   map[string]string

	Border Border
	Gaps   Gaps

	Font           string
	HideVacantTags bool
	SchemeNormal   Scheme
	SchemeOccupied Scheme
	SchemeSelected Scheme
	SchemeUrgent   Scheme
	Blocks         []Block

	Rules     []Rule
	Bindings  []Binding
	Autostart [][]string

	ChordTimeout time.Duration
}
