// Package bridge exposes the command service and per-window event streams
// to the web front-end over HTTP and websockets.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/1broseidon/presenter/internal/app"
	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/events"
	"github.com/1broseidon/presenter/internal/httpserver"
)

// Invoker runs a named command. *app.Service satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error)
}

// Bridge serves the front-end API.
type Bridge struct {
	svc    Invoker
	bus    *events.Bus
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the bridge routes. staticDir, when set, is served for any path
// not matched by the API.
func New(svc Invoker, bus *events.Bus, cfg config.BridgeConfig, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		svc:    svc,
		bus:    bus,
		logger: logger,
		engine: httpserver.NewEngine(logger),
	}

	api := b.engine.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.POST("/invoke/:command", b.handleInvoke)
	api.GET("/events/:window", b.handleEvents)

	if cfg.StaticDir != "" {
		b.engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.StaticDir))))
	}
	return b
}

// Handler returns the HTTP handler.
func (b *Bridge) Handler() http.Handler {
	return b.engine
}

// Listen starts serving on addr.
func (b *Bridge) Listen(addr string) (*httpserver.Server, error) {
	return httpserver.Listen("bridge", addr, b.engine, b.logger)
}

func (b *Bridge) handleInvoke(c *gin.Context) {
	name := c.Param("command")
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	result, err := b.svc.Invoke(c.Request.Context(), name, raw)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrUnknownCommand) || errors.Is(err, app.ErrInvalidArgs) {
			status = http.StatusBadRequest
		}
		b.logger.Warn("command failed", "command", name, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// handleEvents streams one window's events as JSON text frames. The
// subscription is registered before the upgrade completes so nothing
// emitted after the handshake is missed.
func (b *Bridge) handleEvents(c *gin.Context) {
	label := c.Param("window")
	sub, err := b.bus.Subscribe(label, events.DefaultBuffer)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer sub.Close()

	conn, err := httpserver.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "window", label, "error", err)
		return
	}
	defer conn.Close()

	b.logger.Info("view connected", "window", label)
	defer b.logger.Info("view disconnected", "window", label)

	done := httpserver.ReadUntilClosed(conn, nil)
	ping := time.NewTicker(httpserver.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(httpserver.WriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(httpserver.WriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(httpserver.WriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
