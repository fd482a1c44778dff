package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/zafkar/oxwm/internal/util"
)

// Server hosts the oxwm control socket and serves requests.
type Server struct {
	backend    Backend
	logger     *util.Logger
	reload     func(reason string) error
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new control server.
func NewServer(backend Backend, logger *util.Logger, reload func(reason string) error) (*Server, error) {
	path, err := DefaultSocketPath()
	if err != nil {
		return nil, err
	}
	return &Server{
		backend:    backend,
		logger:     logger,
		reload:     reload,
		socketPath: path,
	}, nil
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("control server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept error: %v", err)
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove control socket: %v", err)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	switch req.Action {
	case ActionState:
		s.writeOK(conn, s.backend.StateSnapshot())
	case ActionKeybinds:
		s.writeOK(conn, s.backend.Keybinds())
	case ActionMetrics:
		s.writeOK(conn, s.backend.MetricsSnapshot())
	case ActionReload:
		s.handleReload(conn)
	case ActionDispatch:
		s.handleDispatch(conn, req.Params)
	case ActionQuit:
		s.backend.Quit()
		s.writeOK(conn, nil)
	case ActionRestart:
		s.backend.Restart()
		s.writeOK(conn, nil)
	default:
		s.writeError(conn, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) handleReload(conn net.Conn) {
	if s.reload == nil {
		s.writeError(conn, errors.New("reload not supported"))
		return
	}
	if err := s.reload("control request"); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func (s *Server) handleDispatch(conn net.Conn, params map[string]any) {
	kind, _ := params["do"].(string)
	if kind == "" {
		s.writeError(conn, errors.New("missing action kind"))
		return
	}
	intArg := 0
	if v, ok := params["int"].(float64); ok {
		intArg = int(v)
	}
	strArg, _ := params["str"].(string)
	if err := s.backend.Dispatch(kind, intArg, strArg); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func (s *Server) writeOK(conn net.Conn, data any) {
	resp := Response{Status: StatusOK}
	if data != nil {
		resp.Data = data
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) writeError(conn net.Conn, err error) {
	resp := Response{Status: StatusError}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(resp)
}
