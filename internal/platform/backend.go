package platform

import "time"

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Monitor describes a physical display in enumeration order.
type Monitor struct {
	Index  int
	Name   string
	Bounds Rect
}

// WindowOptions configures a native top-level window.
type WindowOptions struct {
	Label       string
	Title       string
	Class       string
	Decorations bool
	SkipTaskbar bool
	Fullscreen  bool
	// Visible maps the window immediately after creation.
	Visible bool
	Width   int
	Height  int
}

// Window is a native top-level window owned by the daemon.
type Window interface {
	Label() string
	SetPosition(x, y int) error
	SetSize(width, height int) error
	// WaitConfigured reports whether the window system confirmed the
	// target geometry before timeout.
	WaitConfigured(target Rect, timeout time.Duration) bool
	Show() error
	Close() error
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	Monitors() ([]Monitor, error)
	// CreateWindow creates a window. onClosed is invoked, off the caller's
	// goroutine, when the user or window manager closes the window.
	CreateWindow(opts WindowOptions, onClosed func()) (Window, error)
}
