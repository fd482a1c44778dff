package tui

import (
	"strings"
	"testing"

	"github.com/zafkar/oxwm/internal/control"
)

func TestRenderMonitors(t *testing.T) {
	snap := control.StateSnapshot{
		Tags: []string{"web", "code", "chat"},
		Monitors: []control.MonitorInfo{
			{Index: 0, Width: 1920, Height: 1080, Layout: "tiling", VisibleTags: 0b011, Selected: true, ShowBar: true},
			{Index: 1, Width: 1280, Height: 1024, X: 1920, Layout: "monocle", VisibleTags: 0b100, ShowBar: false},
		},
	}
	out := renderMonitors(snap)
	for _, want := range []string{"0*", "web,code", "monocle", "chat", "hidden"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderClientsMarksFocusAndState(t *testing.T) {
	snap := control.StateSnapshot{
		Tags: []string{"1", "2"},
		Clients: []control.ClientInfo{
			{Window: 0x40, Class: "kitty", Title: "shell", Tags: 1, Focused: true},
			{Window: 0x41, Class: "mpv", Tags: 2, Floating: true, Urgent: true},
		},
	}
	out := renderClients(snap)
	if !strings.Contains(out, "*0x00000040") {
		t.Fatalf("expected focused marker, got:\n%s", out)
	}
	if !strings.Contains(out, "floating, urgent") {
		t.Fatalf("expected state flags, got:\n%s", out)
	}
	if !strings.Contains(out, "(untitled)") {
		t.Fatalf("expected untitled placeholder, got:\n%s", out)
	}
}

func TestTagLabel(t *testing.T) {
	tags := []string{"web", "code"}
	if got := tagLabel(tags, 0); got != "-" {
		t.Fatalf("expected dash for empty mask, got %q", got)
	}
	if got := tagLabel(tags, 0b11); got != "web,code" {
		t.Fatalf("expected names, got %q", got)
	}
	if got := tagLabel(tags, 0b100); got != "2" {
		t.Fatalf("expected index fallback, got %q", got)
	}
}
