// Package client talks to a running oxwm instance over its control socket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/zafkar/oxwm/internal/control"
	"github.com/zafkar/oxwm/internal/metrics"
)

// defaultTimeout is used when the caller does not provide a context deadline.
const defaultTimeout = 3 * time.Second

// Client talks to the running window manager over its control socket.
type Client struct {
	socketPath string
}

type (
	// StateSnapshot mirrors the manager state payload.
	StateSnapshot = control.StateSnapshot
	// KeybindInfo mirrors one configured binding.
	KeybindInfo = control.KeybindInfo
	// MetricsSnapshot mirrors the counters payload.
	MetricsSnapshot = metrics.Snapshot
)

// New creates a client that connects to the provided socket path. When path
// is empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// State retrieves the manager's current monitors, tags and clients.
func (c *Client) State(ctx context.Context) (StateSnapshot, error) {
	var snap StateSnapshot
	if err := c.do(ctx, control.Request{Action: control.ActionState}, &snap); err != nil {
		return StateSnapshot{}, err
	}
	return snap, nil
}

// Keybinds retrieves the configured bindings.
func (c *Client) Keybinds(ctx context.Context) ([]KeybindInfo, error) {
	var binds []KeybindInfo
	if err := c.do(ctx, control.Request{Action: control.ActionKeybinds}, &binds); err != nil {
		return nil, err
	}
	return binds, nil
}

// Metrics retrieves the manager's runtime counters.
func (c *Client) Metrics(ctx context.Context) (MetricsSnapshot, error) {
	var snap MetricsSnapshot
	if err := c.do(ctx, control.Request{Action: control.ActionMetrics}, &snap); err != nil {
		return MetricsSnapshot{}, err
	}
	return snap, nil
}

// Reload asks the manager to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionReload}, nil)
}

// Dispatch runs a named action with optional parameters.
func (c *Client) Dispatch(ctx context.Context, kind string, intArg int, strArg string) error {
	if kind == "" {
		return errors.New("action kind cannot be empty")
	}
	params := map[string]any{"do": kind}
	if intArg != 0 {
		params["int"] = intArg
	}
	if strArg != "" {
		params["str"] = strArg
	}
	return c.do(ctx, control.Request{Action: control.ActionDispatch, Params: params}, nil)
}

// Quit asks the manager to exit.
func (c *Client) Quit(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionQuit}, nil)
}

// Restart asks the manager to re-execute itself in place.
func (c *Client) Restart(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionRestart}, nil)
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
