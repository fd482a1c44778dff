package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession() Session {
	return Session{
		Clients: []ClientRow{
			{Window: 0x400001, Tags: 1, Monitor: 0},
			{Window: 0x400002, Tags: 1 << 4, Monitor: 1, Floating: true},
		},
		Monitors: []MonitorRow{
			{Index: 0, Tagset: [2]uint32{1, 4}, SelTags: 1, ShowBar: true},
			{Index: 1, Tagset: [2]uint32{2, 2}, SelTags: 0, ShowBar: false},
		},
		TagStates: []TagStateRow{
			{Monitor: 0, Tag: 0, Layout: "tiling", MasterFactor: 0.6, NumMaster: 2},
			{Monitor: 0, Tag: 2, Layout: "scrolling", MasterFactor: 0.55, NumMaster: 1, ScrollOffset: 1},
		},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleSession()
	if err := s.SaveSession(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEmptyReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LoadSession(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SaveSession(ctx, sampleSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	next := Session{
		Clients:  []ClientRow{{Window: 7, Tags: 2}},
		Monitors: []MonitorRow{{Index: 0, Tagset: [2]uint32{2, 2}, ShowBar: true}},
	}
	if err := s.SaveSession(ctx, next); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(next, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SaveSession(ctx, sampleSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.LoadSession(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after clear", err)
	}
}

func TestRejectsEmptyClientTags(t *testing.T) {
	s := openTestStore(t)
	sess := sampleSession()
	sess.Clients[0].Tags = 0
	if err := s.SaveSession(context.Background(), sess); err == nil {
		t.Fatal("save with empty tag membership should fail the CHECK constraint")
	}
}
