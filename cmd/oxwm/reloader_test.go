package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/metrics"
	"github.com/zafkar/oxwm/internal/util"
)

type fakeApplier struct {
	applied []*config.Config
}

func (f *fakeApplier) Apply(cfg *config.Config) error {
	f.applied = append(f.applied, cfg)
	return nil
}

const initialConfig = `terminal: kitty
tags: ["web", "code", "chat"]
keys:
  - bind: mod+Return
    action: {do: spawn-terminal}
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestReloadAppliesNewConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, initialConfig)
	cfg, err := config.Parse([]byte(initialConfig))
	if err != nil {
		t.Fatalf("parse initial config: %v", err)
	}

	eng := &fakeApplier{}
	logger := util.NewLoggerWithWriter(util.LevelError, &bytes.Buffer{})
	reloader := newConfigReloader(path, logger, eng, metrics.NewCollector(true), cfg, []byte(initialConfig))

	updated := strings.Replace(initialConfig, "kitty", "alacritty", 1)
	writeConfig(t, dir, updated)

	if err := reloader.Reload("test"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(eng.applied) != 1 {
		t.Fatalf("expected one applied config, got %d", len(eng.applied))
	}
	if got := eng.applied[0].Terminal; got != "alacritty" {
		t.Fatalf("expected new terminal applied, got %q", got)
	}
}

func TestReloadRejectsBadConfigAndLogsDiff(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, initialConfig)
	cfg, err := config.Parse([]byte(initialConfig))
	if err != nil {
		t.Fatalf("parse initial config: %v", err)
	}

	bad := strings.Replace(initialConfig, "do: spawn-terminal", "do: warp-speed", 1)
	writeConfig(t, dir, bad)

	eng := &fakeApplier{}
	var logs bytes.Buffer
	logger := util.NewLoggerWithWriter(util.LevelInfo, &logs)
	collector := metrics.NewCollector(true)
	reloader := newConfigReloader(path, logger, eng, collector, cfg, []byte(initialConfig))

	if err := reloader.Reload("test"); err == nil {
		t.Fatalf("expected reload error for unknown action")
	}
	if len(eng.applied) != 0 {
		t.Fatalf("engine must not see a rejected config")
	}
	if !strings.Contains(logs.String(), "config change rejected") {
		t.Fatalf("expected rejection log with diff, got %s", logs.String())
	}
	if snap := collector.Snapshot(); snap.Counters.ReloadsFailed != 1 {
		t.Fatalf("expected one failed reload recorded, got %d", snap.Counters.ReloadsFailed)
	}
}
