package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/platform"
	"github.com/1broseidon/presenter/internal/projector"
	"github.com/1broseidon/presenter/internal/runtimepath"
)

// Dispatcher executes daemon commands. *app.Service satisfies it.
type Dispatcher interface {
	Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error)
	Monitors() ([]platform.Monitor, error)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	svc          Dispatcher
	logger       *slog.Logger
	loadConfig   func() (*config.Config, error)
	reloadChan   chan<- *config.Config
	ctx          context.Context
	cancel       context.CancelFunc
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates an IPC server on the standard runtime socket path.
// Successful RELOAD requests deliver the new config on reloadChan.
func NewServer(svc Dispatcher, reloadChan chan<- *config.Config, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, svc, reloadChan, logger), nil
}

// NewServerAt creates an IPC server bound to socketPath.
func NewServerAt(socketPath string, svc Dispatcher, reloadChan chan<- *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		svc:        svc,
		logger:     logger,
		loadConfig: config.Load,
		reloadChan: reloadChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SocketPath returns the listening socket path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Error("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves one newline-terminated request per connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Clients send nothing after the request line, so any read completing
	// means the peer hung up and the command should be abandoned.
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() {
		_, _ = reader.ReadByte()
		cancel()
	}()

	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandPing:
		resp, _ := NewOKResponse(nil)
		return resp
	case CommandListMonitors:
		return s.handleListMonitors()
	case CommandGetStatus,
		CommandGetMonitors,
		CommandOpenProjector,
		CommandCloseProjector,
		CommandUpdate,
		CommandFetchContent,
		CommandBroadcastState:
		return s.handleInvoke(ctx, req)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleInvoke(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)
	result, err := s.svc.Invoke(ctx, req.Command.AppCommand(), req.Payload)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(result)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD")

	newCfg, err := s.loadConfig()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	// Notify the daemon (non-blocking)
	select {
	case s.reloadChan <- newCfg:
	default:
		s.logger.Warn("reload already pending, dropping request")
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleListMonitors() *Response {
	monitors, err := s.svc.Monitors()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
	}

	labels := projector.Labels(monitors)
	infos := make([]MonitorInfo, len(monitors))
	for i, m := range monitors {
		infos[i] = MonitorInfo{
			Index:  m.Index,
			Name:   m.Name,
			Label:  labels[i],
			X:      m.Bounds.X,
			Y:      m.Bounds.Y,
			Width:  m.Bounds.Width,
			Height: m.Bounds.Height,
		}
	}

	resp, _ := NewOKResponse(MonitorsData{Monitors: infos})
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
