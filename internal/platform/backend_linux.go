//go:build linux

package platform

import (
	"fmt"
	"time"

	"github.com/1broseidon/presenter/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/kbinani/screenshot"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection to display
// ($DISPLAY when empty).
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, err
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// XUtil exposes the X connection for components that grab keys.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the root window of the default screen.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Quit stops EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// Monitors returns all active monitors. RandR is preferred; when it reports
// nothing (Xinerama-only servers, nested X) the Xinerama layout is used.
func (b *LinuxBackend) Monitors() ([]Monitor, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	raw, randrErr := conn.GetMonitors()
	if randrErr == nil && len(raw) > 0 {
		monitors := make([]Monitor, 0, len(raw))
		for i, m := range raw {
			monitors = append(monitors, Monitor{
				Index:  i,
				Name:   m.Name,
				Bounds: Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
			})
		}
		return monitors, nil
	}

	fallback := xineramaMonitors()
	if len(fallback) == 0 && randrErr != nil {
		return nil, randrErr
	}
	return fallback, nil
}

func xineramaMonitors() []Monitor {
	n := screenshot.NumActiveDisplays()
	monitors := make([]Monitor, 0, n)
	for i := 0; i < n; i++ {
		r := screenshot.GetDisplayBounds(i)
		if r.Empty() {
			continue
		}
		monitors = append(monitors, Monitor{
			Index: len(monitors),
			Name:  fmt.Sprintf("Monitor%d", i),
			Bounds: Rect{
				X:      r.Min.X,
				Y:      r.Min.Y,
				Width:  r.Dx(),
				Height: r.Dy(),
			},
		})
	}
	return monitors
}

// CreateWindow creates a native X11 window.
func (b *LinuxBackend) CreateWindow(opts WindowOptions, onClosed func()) (Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	pw, err := conn.CreateProjectorWindow(x11.WindowOptions{
		Title:       opts.Title,
		Class:       opts.Class,
		Decorations: opts.Decorations,
		SkipTaskbar: opts.SkipTaskbar,
		Fullscreen:  opts.Fullscreen,
		Width:       opts.Width,
		Height:      opts.Height,
	}, onClosed)
	if err != nil {
		return nil, err
	}

	w := &linuxWindow{label: opts.Label, win: pw}
	if opts.Visible {
		if err := w.Show(); err != nil {
			return w, err
		}
	}
	return w, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

type linuxWindow struct {
	label string
	win   *x11.ProjectorWindow
}

func (w *linuxWindow) Label() string { return w.label }

func (w *linuxWindow) SetPosition(x, y int) error { return w.win.SetPosition(x, y) }

func (w *linuxWindow) SetSize(width, height int) error { return w.win.SetSize(width, height) }

func (w *linuxWindow) WaitConfigured(target Rect, timeout time.Duration) bool {
	return w.win.WaitConfigured(x11.Geometry{
		X:      target.X,
		Y:      target.Y,
		Width:  target.Width,
		Height: target.Height,
	}, timeout)
}

func (w *linuxWindow) Show() error { return w.win.Show() }

func (w *linuxWindow) Close() error { return w.win.Close() }
