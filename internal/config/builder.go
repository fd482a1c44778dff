package config

import (
	"fmt"
	"time"
)

// Builder collects the registration calls made by a configuration script
// and seals them into an immutable Config. It is the only way for the
// script boundary to influence the engine: the script runtime drives the
// builder once per load, Build validates the result, and the engine never
// calls back into the script.
type Builder struct {
	cfg Config
}

// NewBuilder returns a builder primed with the stock defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		Terminal:      "st",
		ModKey:        ModSuper,
		Tags:          []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		DefaultLayout: "tiling",
		LayoutSymbols: map[string]string{},
		Border: Border{
			Width:     2,
			Focused:   0x6dade3,
			Unfocused: 0xbbbbbb,
		},
		Gaps: Gaps{
			Enabled: true,
			Smart:   true,
			InnerX:  5,
			InnerY:  5,
			OuterX:  5,
			OuterY:  5,
		},
		Font:           "monospace:style=Bold:size=10",
		SchemeNormal:   Scheme{Foreground: 0xffffff, Background: 0x000000, Underline: 0x444444},
		SchemeOccupied: Scheme{Foreground: 0xffffff, Background: 0x000000, Underline: 0x444444},
		SchemeSelected: Scheme{Foreground: 0xffffff, Background: 0x000000, Underline: 0x444444},
		SchemeUrgent:   Scheme{Foreground: 0xff5555, Background: 0x000000, Underline: 0xff5555},
		ChordTimeout:   time.Second,
	}}
}

func (b *Builder) SetTerminal(command string) { b.cfg.Terminal = command }
func (b *Builder) SetModKey(mask ModMask) { b.cfg.ModKey = mask }
func (b *Builder) SetTags(names []string) { b.cfg.Tags = append([]string(nil), names...) }
func (b *Builder) SetTagBackAndForth(on bool) { b.cfg.TagBackAndForth = on }
func (b *Builder) SetAutoTile(on bool) { b.cfg.AutoTile = on }
func (b *Builder) SetDefaultLayout(name string) { b.cfg.DefaultLayout = name }
func (b *Builder) SetLayoutSymbol(name, glyph string) {
	b.cfg.LayoutSymbols[name] = glyph
}

func (b *Builder) SetBorderWidth(px int) { b.cfg.Border.Width = px }
func (b *Builder) SetBorderFocused(c Color) { b.cfg.Border.Focused = c }
func (b *Builder) SetBorderUnfocused(c Color) { b.cfg.Border.Unfocused = c }
func (b *Builder) SetGapsEnabled(on bool) { b.cfg.Gaps.Enabled = on }
func (b *Builder) SetGapsSmart(on bool) { b.cfg.Gaps.Smart = on }
func (b *Builder) SetGapsInner(x, y int) { b.cfg.Gaps.InnerX, b.cfg.Gaps.InnerY = x, y }
func (b *Builder) SetGapsOuter(x, y int) { b.cfg.Gaps.OuterX, b.cfg.Gaps.OuterY = x, y }

func (b *Builder) SetFont(spec string) { b.cfg.Font = spec }
func (b *Builder) SetHideVacantTags(on bool) { b.cfg.HideVacantTags = on }
func (b *Builder) SetSchemeNormal(s Scheme) { b.cfg.SchemeNormal = s }
func (b *Builder) SetSchemeOccupied(s Scheme) { b.cfg.SchemeOccupied = s }
func (b *Builder) SetSchemeSelected(s Scheme) { b.cfg.SchemeSelected = s }
func (b *Builder) SetSchemeUrgent(s Scheme) { b.cfg.SchemeUrgent = s }
func (b *Builder) SetBlocks(blocks []Block) { b.cfg.Blocks = append([]Block(nil), blocks...) }
func (b *Builder) SetChordTimeout(d time.Duration) { b.cfg.ChordTimeout = d }

func (b *Builder) AddRule(r Rule) { b.cfg.Rules = append(b.cfg.Rules, r) }
func (b *Builder) AddAutostart(argv []string) {
	b.cfg.Autostart = append(b.cfg.Autostart, append([]string(nil), argv...))
}

// BindKey registers a single-step binding.
func (b *Builder) BindKey(mods ModMask, key string, action Action) {
	b.cfg.Bindings = append(b.cfg.Bindings, Binding{
		Steps:  []KeyStep{{Mods: mods, Key: key}},
		Action: action,
	})
}

// BindChord registers a multi-step binding recognized within the chord
// timeout.
func (b *Builder) BindChord(steps []KeyStep, action Action) {
	b.cfg.Bindings = append(b.cfg.Bindings, Binding{
		Steps:  append([]KeyStep(nil), steps...),
		Action: action,
	})
}

// Build validates every registration and returns the sealed configuration.
// Any malformed or out-of-range value fails the whole build.
func (b *Builder) Build() (*Config, error) {
	cfg := b.cfg
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Copy the mutable collections so later builder use cannot reach the
	// sealed snapshot.
	cfg.Tags = append([]string(nil), cfg.Tags...)
	cfg.Blocks = append([]Block(nil), cfg.Blocks...)
	cfg.Rules = append([]Rule(nil), cfg.Rules...)
	cfg.Bindings = append([]Binding(nil), cfg.Bindings...)
	symbols := make(map[string]string, len(cfg.LayoutSymbols))
	for k, v := range cfg.LayoutSymbols {
		symbols[k] = v
	}
	cfg.LayoutSymbols = symbols
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Terminal == "" {
		return fmt.Errorf("terminal command cannot be empty")
	}
	if len(c.Tags) == 0 {
		return fmt.Errorf("at least one tag is required")
	}
	if len(c.Tags) > 32 {
		return fmt.Errorf("at most 32 tags are supported, got %d", len(c.Tags))
	}
	seen := map[string]struct{}{}
	for i, name := range c.Tags {
		if name == "" {
			return fmt.Errorf("tag %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate tag name %q", name)
		}
		seen[name] = struct{}{}
	}
	if c.Border.Width < 0 {
		return fmt.Errorf("border width cannot be negative")
	}
	if c.Gaps.InnerX < 0 || c.Gaps.InnerY < 0 || c.Gaps.OuterX < 0 || c.Gaps.OuterY < 0 {
		return fmt.Errorf("gap sizes cannot be negative")
	}
	if c.ChordTimeout <= 0 {
		return fmt.Errorf("chord timeout must be positive")
	}
	for i, rule := range c.Rules {
		if rule.Class == "" && rule.Instance == "" && rule.Title == "" {
			return fmt.Errorf("rule %d matches everything; give it a class, instance or title", i)
		}
		if rule.Tag != nil && (*rule.Tag < 0 || *rule.Tag >= len(c.Tags)) {
			return fmt.Errorf("rule %d assigns tag %d outside 0..%d", i, *rule.Tag, len(c.Tags)-1)
		}
		if rule.Monitor != nil && *rule.Monitor < 0 {
			return fmt.Errorf("rule %d assigns a negative monitor", i)
		}
	}
	for i, block := range c.Blocks {
		if err := validateBlock(block); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	for i, binding := range c.Bindings {
		if len(binding.Steps) == 0 {
			return fmt.Errorf("binding %d has no key steps", i)
		}
		for _, step := range binding.Steps {
			if step.Key == "" {
				return fmt.Errorf("binding %d has an empty key symbol", i)
			}
		}
		if err := binding.Action.Validate(); err != nil {
			return fmt.Errorf("binding %d: %w", i, err)
		}
		if binding.Action.Kind == ActionViewTag || binding.Action.Kind == ActionToggleView ||
			binding.Action.Kind == ActionMoveToTag || binding.Action.Kind == ActionToggleTag {
			if binding.Action.Int < 0 || binding.Action.Int >= len(c.Tags) {
				return fmt.Errorf("binding %d targets tag %d outside 0..%d", i, binding.Action.Int, len(c.Tags)-1)
			}
		}
	}
	for i, argv := range c.Autostart {
		if len(argv) == 0 {
			return fmt.Errorf("autostart entry %d is empty", i)
		}
	}
	return nil
}

func validateBlock(b Block) error {
	switch b.Kind {
	case BlockBattery, BlockMemory, BlockShell, BlockDateTime, BlockStatic, BlockButton:
	default:
		return fmt.Errorf("unknown block kind %q", b.Kind)
	}
	switch b.Kind {
	case BlockStatic, BlockButton:
		// Static content never refreshes; any interval is accepted.
	default:
		if b.Interval <= 0 {
			return fmt.Errorf("%s block needs a positive interval", b.Kind)
		}
	}
	if b.Kind == BlockShell && b.Command == "" {
		return fmt.Errorf("shell block needs a command")
	}
	if b.Kind == BlockButton && b.ClickCommand == "" {
		return fmt.Errorf("button block needs a click command")
	}
	if b.Kind == BlockDateTime && b.TimeLayout == "" {
		return fmt.Errorf("datetime block needs a time layout")
	}
	return nil
}
