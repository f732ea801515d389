// Package projector owns the secondary output window: placing it on a
// monitor, closing it and relaying slide updates to it.
package projector

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/platform"
)

// UpdateSlideEvent is the event name the projector view listens for.
const UpdateSlideEvent = "update-slide"

const logPayloadLimit = 100

// Emitter publishes a named event to the views of one window label.
type Emitter interface {
	Emit(label, name string, payload any) (int, error)
}

// Options configures the projector window.
type Options struct {
	Title         string
	Class         string
	Width         int
	Height        int
	SettleTimeout time.Duration
}

// OptionsFromConfig maps the projector config section.
func OptionsFromConfig(cfg config.ProjectorConfig) Options {
	return Options{
		Title:         cfg.Title,
		Class:         cfg.Class,
		Width:         cfg.DefaultWidth,
		Height:        cfg.DefaultHeight,
		SettleTimeout: cfg.SettleTimeout(),
	}
}

// Controller serializes all access to the single projector window.
type Controller struct {
	backend platform.Backend
	emitter Emitter
	logger  *slog.Logger

	mu     sync.Mutex
	opts   Options
	window platform.Window
}

// NewController creates a controller with no window.
func NewController(backend platform.Backend, emitter Emitter, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		backend: backend,
		emitter: emitter,
		logger:  logger,
		opts:    opts,
	}
}

// SetOptions replaces the options used for the next window created.
func (c *Controller) SetOptions(opts Options) {
	c.mu.Lock()
	c.opts = opts
	c.mu.Unlock()
}

// IsOpen reports whether a projector window is held.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window != nil
}

// Open creates the projector window, or reuses the one already held, and
// shows it. When index names an enumerated monitor the window is placed
// over that monitor's bounds first; otherwise placement is left to the
// window system.
func (c *Controller) Open(index *int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	monitors, err := c.backend.Monitors()
	if err != nil {
		return fmt.Errorf("failed to query monitors: %w", err)
	}

	win := c.window
	if win == nil {
		win, err = c.backend.CreateWindow(platform.WindowOptions{
			Label:       config.ProjectorLabel,
			Title:       c.opts.Title,
			Class:       c.opts.Class,
			Decorations: false,
			SkipTaskbar: true,
			Fullscreen:  false,
			Visible:     false,
			Width:       c.opts.Width,
			Height:      c.opts.Height,
		}, func() { c.handleClosed(win) })
		if err != nil {
			return fmt.Errorf("failed to create projector window: %w", err)
		}
		c.window = win
		c.logger.Info("projector window created")
	} else {
		c.logger.Info("projector window already open, reusing")
	}

	if index != nil && *index >= 0 && *index < len(monitors) {
		bounds := monitors[*index].Bounds
		if err := win.SetPosition(bounds.X, bounds.Y); err != nil {
			return fmt.Errorf("failed to position projector window: %w", err)
		}
		if err := win.SetSize(bounds.Width, bounds.Height); err != nil {
			return fmt.Errorf("failed to size projector window: %w", err)
		}
		if !win.WaitConfigured(bounds, c.opts.SettleTimeout) {
			c.logger.Debug("projector geometry not confirmed before timeout", "timeout", c.opts.SettleTimeout)
		}
		c.logger.Info("projector placed", "monitor", *index, "x", bounds.X, "y", bounds.Y, "width", bounds.Width, "height", bounds.Height)
	} else if index != nil {
		c.logger.Warn("monitor index out of range, using default placement", "monitor", *index, "available", len(monitors))
	}

	if err := win.Show(); err != nil {
		return fmt.Errorf("failed to show projector window: %w", err)
	}
	return nil
}

// Close destroys the projector window if one is held. The reference is
// dropped even when the window system reports an error.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.window == nil {
		return nil
	}
	win := c.window
	c.window = nil
	if err := win.Close(); err != nil {
		return fmt.Errorf("failed to close projector window: %w", err)
	}
	c.logger.Info("projector window closed")
	return nil
}

// Update forwards payload unchanged to the projector view. Without a
// window it only logs.
func (c *Controller) Update(payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("slide update", "payload", truncate(payload, logPayloadLimit))
	if c.window == nil {
		c.logger.Warn("projector window not open, dropping slide update")
		return nil
	}
	if _, err := c.emitter.Emit(config.ProjectorLabel, UpdateSlideEvent, payload); err != nil {
		return fmt.Errorf("failed to emit %s: %w", UpdateSlideEvent, err)
	}
	return nil
}

// handleClosed runs when the user or window manager closed the window.
func (c *Controller) handleClosed(win platform.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.window != nil && c.window == win {
		c.window = nil
		c.logger.Info("projector window closed externally")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
