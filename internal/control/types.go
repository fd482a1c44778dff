package control

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/zafkar/oxwm/internal/metrics"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionState    = "state"
	ActionKeybinds = "keybinds"
	ActionMetrics  = "metrics"
	ActionReload   = "reload"
	ActionDispatch = "dispatch"
	ActionQuit     = "quit"
	ActionRestart  = "restart"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ClientInfo describes one managed window in a state snapshot.
type ClientInfo struct {
	Window     uint32 `json:"window"`
	Title      string `json:"title"`
	Class      string `json:"class"`
	Instance   string `json:"instance,omitempty"`
	Tags       uint32 `json:"tags"`
	Monitor    int    `json:"monitor"`
	Floating   bool   `json:"floating,omitempty"`
	Fullscreen bool   `json:"fullscreen,omitempty"`
	Urgent     bool   `json:"urgent,omitempty"`
	Focused    bool   `json:"focused,omitempty"`
}

// MonitorInfo describes one monitor in a state snapshot.
type MonitorInfo struct {
	Index       int    `json:"index"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	VisibleTags uint32 `json:"visibleTags"`
	Layout      string `json:"layout"`
	Selected    bool   `json:"selected,omitempty"`
	ShowBar     bool   `json:"showBar"`
}

// StateSnapshot is the full manager state returned by the state action.
type StateSnapshot struct {
	Tags     []string      `json:"tags"`
	Monitors []MonitorInfo `json:"monitors"`
	Clients  []ClientInfo  `json:"clients"`
}

// KeybindInfo describes one configured binding.
type KeybindInfo struct {
	Keys   string `json:"keys"`
	Action string `json:"action"`
	Chord  bool   `json:"chord,omitempty"`
}

// Backend is the manager surface the control server drives. Calls may come
// from any connection goroutine; implementations serialize onto the event
// loop.
type Backend interface {
	StateSnapshot() StateSnapshot
	Keybinds() []KeybindInfo
	MetricsSnapshot() metrics.Snapshot
	// Dispatch runs a named action, e.g. "view-tag" with an int parameter.
	Dispatch(kind string, intArg int, strArg string) error
	Quit()
	Restart()
}

// DefaultSocketPath returns the expected location of the control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("OXWM_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "oxwm", SocketFileName), nil
}
