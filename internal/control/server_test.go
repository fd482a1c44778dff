package control

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/zafkar/oxwm/internal/metrics"
	"github.com/zafkar/oxwm/internal/util"
)

type fakeBackend struct {
	mu         sync.Mutex
	dispatched []string
	quit       bool
	restart    bool
}

func (f *fakeBackend) StateSnapshot() StateSnapshot {
	return StateSnapshot{
		Tags: []string{"1", "2"},
		Monitors: []MonitorInfo{
			{Index: 0, Width: 1920, Height: 1080, VisibleTags: 1, Layout: "tiling", Selected: true, ShowBar: true},
		},
		Clients: []ClientInfo{
			{Window: 0x400001, Title: "xterm", Class: "XTerm", Tags: 1, Focused: true},
		},
	}
}

func (f *fakeBackend) Keybinds() []KeybindInfo {
	return []KeybindInfo{{Keys: "Super+Return", Action: "spawn-terminal"}}
}

func (f *fakeBackend) MetricsSnapshot() metrics.Snapshot {
	return metrics.Snapshot{Enabled: true}
}

func (f *fakeBackend) Dispatch(kind string, intArg int, strArg string) error {
	if kind == "bogus" {
		return errors.New("no such action")
	}
	f.mu.Lock()
	f.dispatched = append(f.dispatched, kind)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Quit()    { f.quit = true }
func (f *fakeBackend) Restart() { f.restart = true }

func roundTrip(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var resp Response
	go func() {
		defer wg.Done()
		if err := json.NewEncoder(clientConn).Encode(req); err != nil {
			t.Errorf("encode request: %v", err)
			return
		}
		if err := json.NewDecoder(clientConn).Decode(&resp); err != nil {
			t.Errorf("decode response: %v", err)
		}
	}()
	srv.handle(serverConn)
	wg.Wait()
	return resp
}

func testServer(t *testing.T, backend Backend, reload func(string) error) *Server {
	t.Helper()
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	srv, err := NewServer(backend, logger, reload)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv
}

func TestHandleState(t *testing.T) {
	srv := testServer(t, &fakeBackend{}, nil)
	resp := roundTrip(t, srv, Request{Action: ActionState})
	if resp.Status != StatusOK {
		t.Fatalf("status = %s (%s)", resp.Status, resp.Error)
	}
	raw, _ := json.Marshal(resp.Data)
	var snap StateSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Clients) != 1 || snap.Clients[0].Class != "XTerm" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestHandleDispatch(t *testing.T) {
	backend := &fakeBackend{}
	srv := testServer(t, backend, nil)
	resp := roundTrip(t, srv, Request{
		Action: ActionDispatch,
		Params: map[string]any{"do": "view-tag", "int": float64(3)},
	})
	if resp.Status != StatusOK {
		t.Fatalf("status = %s (%s)", resp.Status, resp.Error)
	}
	if len(backend.dispatched) != 1 || backend.dispatched[0] != "view-tag" {
		t.Fatalf("dispatched = %v", backend.dispatched)
	}
}

func TestHandleDispatchError(t *testing.T) {
	srv := testServer(t, &fakeBackend{}, nil)
	resp := roundTrip(t, srv, Request{
		Action: ActionDispatch,
		Params: map[string]any{"do": "bogus"},
	})
	if resp.Status != StatusError || resp.Error == "" {
		t.Fatalf("resp = %+v, want error", resp)
	}
}

func TestHandleReload(t *testing.T) {
	var reason string
	srv := testServer(t, &fakeBackend{}, func(r string) error {
		reason = r
		return nil
	})
	resp := roundTrip(t, srv, Request{Action: ActionReload})
	if resp.Status != StatusOK {
		t.Fatalf("status = %s (%s)", resp.Status, resp.Error)
	}
	if reason != "control request" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestHandleReloadUnsupported(t *testing.T) {
	srv := testServer(t, &fakeBackend{}, nil)
	if resp := roundTrip(t, srv, Request{Action: ActionReload}); resp.Status != StatusError {
		t.Fatalf("resp = %+v, want error", resp)
	}
}

func TestHandleUnknownAction(t *testing.T) {
	srv := testServer(t, &fakeBackend{}, nil)
	if resp := roundTrip(t, srv, Request{Action: "nope"}); resp.Status != StatusError {
		t.Fatalf("resp = %+v, want error", resp)
	}
}
