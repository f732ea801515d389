// Package remote serves the phone/tablet remote control: a status endpoint,
// the remote UI and a websocket that relays commands to the control window
// and pushes presentation state back.
package remote

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/httpserver"
)

// StateUpdateType is the frame type carrying presentation state.
const StateUpdateType = "state-update"

const clientQueue = 16

// commands accepted from remotes. Only stage-slide carries data.
var commands = map[string]bool{
	"stage-next":  false,
	"stage-prev":  false,
	"go-live":     false,
	"clear":       false,
	"stage-slide": true,
	"next-stack":  false,
	"prev-stack":  false,
}

// EventName is the control-window event a remote command is forwarded as.
func EventName(command string) string {
	return "remote-" + command
}

// IsCommand reports whether command is accepted from remotes.
func IsCommand(command string) bool {
	_, ok := commands[command]
	return ok
}

// Message is a websocket frame in either direction.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Emitter publishes a named event to a window label.
type Emitter interface {
	Emit(label, name string, payload any) (int, error)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server is the remote control server.
type Server struct {
	emitter Emitter
	logger  *slog.Logger
	engine  *gin.Engine

	mu      sync.Mutex
	clients map[*client]struct{}
	state   json.RawMessage
}

// New builds the remote routes.
func New(emitter Emitter, cfg config.RemoteConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		emitter: emitter,
		logger:  logger,
		engine:  httpserver.NewEngine(logger),
		clients: make(map[*client]struct{}),
	}

	var static http.Handler = http.NotFoundHandler()
	if cfg.StaticDir != "" {
		static = http.StripPrefix("/remote", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	s.engine.GET("/api/status", s.handleStatus)
	s.engine.GET("/remote/*path", func(c *gin.Context) {
		if c.Param("path") == "/ws" {
			s.handleWS(c)
			return
		}
		static.ServeHTTP(c.Writer, c.Request)
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen starts serving on addr.
func (s *Server) Listen(addr string) (*httpserver.Server, error) {
	return httpserver.Listen("remote", addr, s.engine, s.logger)
}

// ClientCount returns the number of connected remotes.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// State returns the last broadcast state, or nil.
func (s *Server) State() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BroadcastState stores state and pushes it to every connected remote. It
// returns the number of remotes it was queued for.
func (s *Server) BroadcastState(state json.RawMessage) int {
	frame, err := json.Marshal(Message{Type: StateUpdateType, Data: state})
	if err != nil {
		s.logger.Warn("invalid presentation state", "error", err)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state

	n := 0
	for c := range s.clients {
		if s.enqueue(c, frame) {
			n++
		}
	}
	return n
}

// Close disconnects every remote.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.Lock()
	resp := gin.H{
		"online":           true,
		"connectedClients": len(s.clients),
		"state":            s.state,
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := httpserver.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("remote websocket upgrade failed", "error", err)
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, clientQueue)}
	s.register(cl)
	go s.writePump(cl)
	s.logger.Info("remote client connected", "addr", conn.RemoteAddr().String())

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleMessage(msg)
	}

	s.unregister(cl)
	s.logger.Info("remote client disconnected", "addr", conn.RemoteAddr().String())
}

// register adds c and queues the current state for it under the same lock,
// so a concurrent broadcast cannot be overtaken by a stale snapshot.
func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}

	if hasState(s.state) {
		frame, err := json.Marshal(Message{Type: StateUpdateType, Data: s.state})
		if err == nil {
			s.enqueue(c, frame)
		}
	}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// enqueue must be called with s.mu held.
func (s *Server) enqueue(c *client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		s.logger.Warn("remote client queue full, dropping frame")
		return false
	}
}

// writePump is the only goroutine writing to c.conn.
func (s *Server) writePump(c *client) {
	ping := time.NewTicker(httpserver.PingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(httpserver.WriteWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(httpserver.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(httpserver.WriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Debug("ignoring malformed remote frame", "error", err)
		return
	}
	carriesData, ok := commands[msg.Type]
	if !ok {
		s.logger.Debug("ignoring unknown remote command", "type", msg.Type)
		return
	}

	var payload json.RawMessage
	if carriesData {
		payload = msg.Data
	}
	s.logger.Info("remote command", "type", msg.Type)
	if _, err := s.emitter.Emit(config.MainLabel, EventName(msg.Type), payload); err != nil {
		s.logger.Warn("failed to forward remote command", "type", msg.Type, "error", err)
	}
}

func hasState(state json.RawMessage) bool {
	return len(state) > 0 && string(state) != "null"
}
