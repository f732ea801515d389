// Package httpserver holds the gin and websocket plumbing shared by the
// bridge and the remote control server.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// WriteWait bounds a single websocket write.
	WriteWait = 10 * time.Second
	// PingPeriod is how often idle websocket clients are pinged.
	PingPeriod = 30 * time.Second
)

// Upgrader accepts websocket connections from any origin; the front-end may
// be loaded from file:// or another port.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewEngine returns a gin engine in release mode with recovery, slog request
// logging and permissive CORS.
func NewEngine(logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(CORS())
	return r
}

// CORS allows cross-origin calls from the front-end.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger logs each request at debug level.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

// Server is a running HTTP listener.
type Server struct {
	name   string
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// Listen binds addr synchronously, so address errors surface to the caller,
// then serves h in the background.
func Listen(name, addr string, h http.Handler, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to listen on %s: %w", name, addr, err)
	}

	s := &Server{
		name:   name,
		srv:    &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second},
		ln:     ln,
		logger: logger,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "server", name, "error", err)
		}
	}()
	logger.Info("http server listening", "server", name, "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops accepting requests and waits for handlers to return.
// Hijacked websocket connections are not tracked by net/http; callers close
// those themselves.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ReadUntilClosed drains inbound frames and returns a channel closed once the
// peer disconnects.
func ReadUntilClosed(conn *websocket.Conn, onMessage func([]byte)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if onMessage != nil {
				onMessage(msg)
			}
		}
	}()
	return done
}
