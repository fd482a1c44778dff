package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// document is the YAML shape of a configuration file. Loading a document is
// just a replay of its entries through the Builder, so the file format and
// any embedded script runtime share one registration surface.
type document struct {
	Terminal        string     `yaml:"terminal"`
	ModKey          string     `yaml:"modkey"`
	Tags            []string   `yaml:"tags"`
	TagBackAndForth *bool      `yaml:"tagBackAndForth"`
	AutoTile        *bool      `yaml:"autoTile"`
	Layout          layoutDoc  `yaml:"layout"`
	Border          borderDoc  `yaml:"border"`
	Gaps            *gapsDoc   `yaml:"gaps"`
	Bar             barDoc     `yaml:"bar"`
	Rules           []ruleDoc  `yaml:"rules"`
	Keys            []keyDoc   `yaml:"keys"`
	Autostart       [][]string `yaml:"autostart"`
	ChordTimeout    string     `yaml:"chordTimeout"`
}

type layoutDoc struct {
	Default string            `yaml:"default"`
	Symbols map[string]string `yaml:"symbols"`
}

type borderDoc struct {
	Width     *int   `yaml:"width"`
	Focused   string `yaml:"focused"`
	Unfocused string `yaml:"unfocused"`
}

type gapsDoc struct {
	Enabled *bool  `yaml:"enabled"`
	Smart   *bool  `yaml:"smart"`
	Inner   *[2]int `yaml:"inner"`
	Outer   *[2]int `yaml:"outer"`
}

type schemeDoc struct {
	Foreground string `yaml:"fg"`
	Background string `yaml:"bg"`
	Underline  string `yaml:"underline"`
}

type barDoc struct {
	Font           string               `yaml:"font"`
	HideVacantTags *bool                `yaml:"hideVacantTags"`
	Schemes        map[string]schemeDoc `yaml:"schemes"`
	Blocks         []blockDoc           `yaml:"blocks"`
}

type blockDoc struct {
	Kind      string `yaml:"kind"`
	Format    string `yaml:"format"`
	Interval  string `yaml:"interval"`
	Color     string `yaml:"color"`
	Underline bool   `yaml:"underline"`

	Command      string `yaml:"command"`
	ClickCommand string `yaml:"clickCommand"`
	TimeLayout   string `yaml:"timeLayout"`
	Text         string `yaml:"text"`

	FormatCharging    string `yaml:"formatCharging"`
	FormatDischarging string `yaml:"formatDischarging"`
	FormatFull        string `yaml:"formatFull"`
	BatteryName       string `yaml:"batteryName"`
}

type ruleDoc struct {
	Class    string `yaml:"class"`
	Instance string `yaml:"instance"`
	Title    string `yaml:"title"`
	Floating *bool  `yaml:"floating"`
	Tag      *int   `yaml:"tag"`
	Monitor  *int   `yaml:"monitor"`
}

type keyDoc struct {
	Bind   string    `yaml:"bind"`
	Chord  []string  `yaml:"chord"`
	Action actionDoc `yaml:"action"`
}

type actionDoc struct {
	Do    string   `yaml:"do"`
	Int   *int     `yaml:"int"`
	Float *float64 `yaml:"float"`
	Str   string   `yaml:"str"`
	Argv  []string `yaml:"argv"`
}

// Load reads, replays and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from serialized YAML.
func Parse(data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	b := NewBuilder()
	if err := doc.replay(b); err != nil {
		return nil, err
	}
	return b.Build()
}

func (d *document) replay(b *Builder) error {
	if d.Terminal != "" {
		b.SetTerminal(d.Terminal)
	}
	modkey := ModSuper
	if d.ModKey != "" {
		m, err := ParseMod(d.ModKey)
		if err != nil {
			return err
		}
		modkey = m
		b.SetModKey(m)
	}
	if len(d.Tags) > 0 {
		b.SetTags(d.Tags)
	}
	if d.TagBackAndForth != nil {
		b.SetTagBackAndForth(*d.TagBackAndForth)
	}
	if d.AutoTile != nil {
		b.SetAutoTile(*d.AutoTile)
	}
	if d.Layout.Default != "" {
		b.SetDefaultLayout(d.Layout.Default)
	}
	for name, glyph := range d.Layout.Symbols {
		b.SetLayoutSymbol(name, glyph)
	}

	if d.Border.Width != nil {
		b.SetBorderWidth(*d.Border.Width)
	}
	if d.Border.Focused != "" {
		c, err := ParseColor(d.Border.Focused)
		if err != nil {
			return fmt.Errorf("border.focused: %w", err)
		}
		b.SetBorderFocused(c)
	}
	if d.Border.Unfocused != "" {
		c, err := ParseColor(d.Border.Unfocused)
		if err != nil {
			return fmt.Errorf("border.unfocused: %w", err)
		}
		b.SetBorderUnfocused(c)
	}

	if d.Gaps != nil {
		if d.Gaps.Enabled != nil {
			b.SetGapsEnabled(*d.Gaps.Enabled)
		}
		if d.Gaps.Smart != nil {
			b.SetGapsSmart(*d.Gaps.Smart)
		}
		if d.Gaps.Inner != nil {
			b.SetGapsInner(d.Gaps.Inner[0], d.Gaps.Inner[1])
		}
		if d.Gaps.Outer != nil {
			b.SetGapsOuter(d.Gaps.Outer[0], d.Gaps.Outer[1])
		}
	}

	if err := d.Bar.replay(b); err != nil {
		return err
	}

	for _, r := range d.Rules {
		b.AddRule(Rule{
			Class:    r.Class,
			Instance: r.Instance,
			Title:    r.Title,
			Floating: r.Floating,
			Tag:      r.Tag,
			Monitor:  r.Monitor,
		})
	}

	for i, k := range d.Keys {
		action, err := k.Action.toAction()
		if err != nil {
			return fmt.Errorf("keys[%d]: %w", i, err)
		}
		switch {
		case k.Bind != "" && len(k.Chord) > 0:
			return fmt.Errorf("keys[%d]: bind and chord are mutually exclusive", i)
		case k.Bind != "":
			step, err := ParseKeySpec(k.Bind, modkey)
			if err != nil {
				return fmt.Errorf("keys[%d]: %w", i, err)
			}
			b.BindKey(step.Mods, step.Key, action)
		case len(k.Chord) > 0:
			steps := make([]KeyStep, 0, len(k.Chord))
			for _, spec := range k.Chord {
				step, err := ParseKeySpec(spec, modkey)
				if err != nil {
					return fmt.Errorf("keys[%d]: %w", i, err)
				}
				steps = append(steps, step)
			}
			b.BindChord(steps, action)
		default:
			return fmt.Errorf("keys[%d]: needs bind or chord", i)
		}
	}

	for _, argv := range d.Autostart {
		b.AddAutostart(argv)
	}

	if d.ChordTimeout != "" {
		dur, err := time.ParseDuration(d.ChordTimeout)
		if err != nil {
			return fmt.Errorf("chordTimeout: %w", err)
		}
		b.SetChordTimeout(dur)
	}
	return nil
}

func (d *barDoc) replay(b *Builder) error {
	if d.Font != "" {
		b.SetFont(d.Font)
	}
	if d.HideVacantTags != nil {
		b.SetHideVacantTags(*d.HideVacantTags)
	}
	for name, s := range d.Schemes {
		scheme, err := s.toScheme()
		if err != nil {
			return fmt.Errorf("bar.schemes.%s: %w", name, err)
		}
		switch name {
		case "normal":
			b.SetSchemeNormal(scheme)
		case "occupied":
			b.SetSchemeOccupied(scheme)
		case "selected":
			b.SetSchemeSelected(scheme)
		case "urgent":
			b.SetSchemeUrgent(scheme)
		default:
			return fmt.Errorf("bar.schemes: unknown scheme %q", name)
		}
	}
	if len(d.Blocks) > 0 {
		blocks := make([]Block, 0, len(d.Blocks))
		for i, bd := range d.Blocks {
			block, err := bd.toBlock()
			if err != nil {
				return fmt.Errorf("bar.blocks[%d]: %w", i, err)
			}
			blocks = append(blocks, block)
		}
		b.SetBlocks(blocks)
	}
	return nil
}

func (s schemeDoc) toScheme() (Scheme, error) {
	var scheme Scheme
	var err error
	if scheme.Foreground, err = ParseColor(s.Foreground); err != nil {
		return Scheme{}, err
	}
	if scheme.Background, err = ParseColor(s.Background); err != nil {
		return Scheme{}, err
	}
	if scheme.Underline, err = ParseColor(s.Underline); err != nil {
		return Scheme{}, err
	}
	return scheme, nil
}

func (d blockDoc) toBlock() (Block, error) {
	block := Block{
		Kind:              BlockKind(strings.ToLower(d.Kind)),
		Format:            d.Format,
		Underline:         d.Underline,
		Command:           d.Command,
		ClickCommand:      d.ClickCommand,
		TimeLayout:        d.TimeLayout,
		Text:              d.Text,
		FormatCharging:    d.FormatCharging,
		FormatDischarging: d.FormatDischarging,
		FormatFull:        d.FormatFull,
		BatteryName:       d.BatteryName,
	}
	if block.Format == "" {
		block.Format = "{}"
	}
	if d.Interval != "" {
		dur, err := time.ParseDuration(d.Interval)
		if err != nil {
			return Block{}, fmt.Errorf("interval: %w", err)
		}
		block.Interval = dur
	}
	if d.Color != "" {
		c, err := ParseColor(d.Color)
		if err != nil {
			return Block{}, err
		}
		block.Color = c
	} else {
		block.Color = 0xffffff
	}
	return block, nil
}

func (a actionDoc) toAction() (Action, error) {
	action := Action{Kind: ActionKind(strings.ToLower(a.Do)), Str: a.Str, Argv: a.Argv}
	if a.Int != nil {
		action.Int = *a.Int
	}
	if a.Float != nil {
		action.Float = *a.Float
	}
	if err := action.Validate(); err != nil {
		return Action{}, err
	}
	return action, nil
}

// ParseKeySpec parses a "mod+shift+k" style key specification. "mod" stands
// for the configured modkey; the final component is the key symbol.
func ParseKeySpec(spec string, modkey ModMask) (KeyStep, error) {
	parts := strings.Split(spec, "+")
	if len(parts) == 0 || strings.TrimSpace(parts[len(parts)-1]) == "" {
		return KeyStep{}, fmt.Errorf("invalid key spec %q", spec)
	}
	key := strings.TrimSpace(parts[len(parts)-1])
	// Letter keys match on the keyboard map's unshifted keysym, which is
	// lowercase; "mod+K" means the k key, shift is its own modifier.
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		key = strings.ToLower(key)
	}
	step := KeyStep{Key: key}
	for _, raw := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "mod" {
			step.Mods |= modkey
			continue
		}
		m, err := ParseMod(name)
		if err != nil {
			return KeyStep{}, fmt.Errorf("key spec %q: %w", spec, err)
		}
		step.Mods |= m
	}
	return step, nil
}
