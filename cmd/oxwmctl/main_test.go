package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zafkar/oxwm/internal/config"
)

func TestTagNames(t *testing.T) {
	tags := []string{"web", "code", "chat"}
	if got := tagNames(tags, 0); got != "-" {
		t.Fatalf("expected dash for empty mask, got %q", got)
	}
	if got := tagNames(tags, 0b101); got != "web,chat" {
		t.Fatalf("expected web,chat, got %q", got)
	}
	if got := tagNames(tags, 0b1000); got != "3" {
		t.Fatalf("expected index fallback for unnamed tag, got %q", got)
	}
}

func TestCheckValidatesConfigFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("terminal: kitty\ntags: [\"1\", \"2\"]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(good); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("tags: [\"1\", \"1\"]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(bad); err == nil {
		t.Fatalf("expected duplicate tags to be rejected")
	}
}
