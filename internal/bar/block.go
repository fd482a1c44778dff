// Package bar produces the status bar content: per-block data sources, a
// refresh scheduler and segment rendering.
package bar

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zafkar/oxwm/internal/config"
)

// Source is one status block's data producer. Read returns the current
// text; a failing source renders as a placeholder, never breaks the bar.
type Source interface {
	Read(ctx context.Context) (string, error)
}

// NewSource builds the source for a block definition.
func NewSource(blk config.Block) (Source, error) {
	switch blk.Kind {
	case config.BlockStatic, config.BlockButton:
		return staticSource(blk.Text), nil
	case config.BlockDateTime:
		layout := blk.TimeLayout
		if layout == "" {
			layout = "Mon 02 Jan 15:04"
		}
		return &datetimeSource{layout: layout, format: blk.Format}, nil
	case config.BlockMemory:
		return &memorySource{format: blk.Format, root: "/"}, nil
	case config.BlockBattery:
		return &batterySource{
			name:        orDefault(blk.BatteryName, "BAT0"),
			charging:    orDefault(blk.FormatCharging, "chr {}%"),
			discharging: orDefault(blk.FormatDischarging, "bat {}%"),
			full:        orDefault(blk.FormatFull, "ful {}%"),
			root:        "/",
		}, nil
	case config.BlockShell:
		return &shellSource{command: blk.Command, format: blk.Format, timeout: shellTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown block kind %q", blk.Kind)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// formatValue interpolates a block's format template: every "{}" is
// replaced with the value. An empty template yields the bare value.
func formatValue(format, value string) string {
	if format == "" {
		return value
	}
	return strings.ReplaceAll(format, "{}", value)
}

type staticSource string

func (s staticSource) Read(context.Context) (string, error) { return string(s), nil }

type datetimeSource struct {
	layout string
	format string
}

func (d *datetimeSource) Read(context.Context) (string, error) {
	return formatValue(d.format, time.Now().Format(d.layout)), nil
}

// memorySource reports used-memory percentage from /proc/meminfo.
type memorySource struct {
	format string
	root   string
}

func (m *memorySource) Read(context.Context) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.root, "proc/meminfo"))
	if err != nil {
		return "", err
	}
	total, avail := int64(-1), int64(-1)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseInt(fields[1], 10, 64)
		case "MemAvailable:":
			avail, _ = strconv.ParseInt(fields[1], 10, 64)
		}
	}
	if total <= 0 || avail < 0 {
		return "", fmt.Errorf("meminfo missing MemTotal or MemAvailable")
	}
	used := 100 * (total - avail) / total
	return formatValue(m.format, strconv.FormatInt(used, 10)), nil
}

// batterySource reads capacity and charge status from sysfs, picking the
// format string by status.
type batterySource struct {
	name        string
	charging    string
	discharging string
	full        string
	root        string
}

func (b *batterySource) Read(context.Context) (string, error) {
	dir := filepath.Join(b.root, "sys/class/power_supply", b.name)
	capRaw, err := os.ReadFile(filepath.Join(dir, "capacity"))
	if err != nil {
		return "", err
	}
	percent, err := strconv.Atoi(strings.TrimSpace(string(capRaw)))
	if err != nil {
		return "", fmt.Errorf("battery %s: bad capacity: %w", b.name, err)
	}
	statusRaw, _ := os.ReadFile(filepath.Join(dir, "status"))
	format := b.discharging
	switch strings.TrimSpace(string(statusRaw)) {
	case "Charging":
		format = b.charging
	case "Full":
		format = b.full
	}
	return formatValue(format, strconv.Itoa(percent)), nil
}

const shellTimeout = 5 * time.Second

// shellSource runs a command through sh -c. The scheduler calls Read from
// a worker goroutine so a slow command never stalls the event loop.
type shellSource struct {
	command string
	format  string
	timeout time.Duration
}

func (s *shellSource) Read(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "sh", "-c", s.command).Output()
	if err != nil {
		return "", err
	}
	return formatValue(s.format, strings.TrimRight(string(out), "\n")), nil
}
