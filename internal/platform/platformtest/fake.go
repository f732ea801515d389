// Package platformtest provides an in-memory platform.Backend for tests.
package platformtest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/presenter/internal/platform"
)

// Call records one operation performed on a FakeWindow.
type Call struct {
	Op     string
	X, Y   int
	Width  int
	Height int
}

// FakeBackend is a scriptable platform.Backend.
type FakeBackend struct {
	mu sync.Mutex

	MonitorList []platform.Monitor
	MonitorsErr error
	CreateErr   error
	// Configured controls what WaitConfigured reports on new windows.
	Configured bool

	Windows []*FakeWindow
}

var _ platform.Backend = (*FakeBackend)(nil)

// NewFakeBackend returns a backend exposing the given monitor bounds.
func NewFakeBackend(bounds ...platform.Rect) *FakeBackend {
	b := &FakeBackend{Configured: true}
	for i, r := range bounds {
		b.MonitorList = append(b.MonitorList, platform.Monitor{
			Index:  i,
			Name:   fmt.Sprintf("FAKE-%d", i),
			Bounds: r,
		})
	}
	return b
}

func (b *FakeBackend) Monitors() ([]platform.Monitor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MonitorsErr != nil {
		return nil, b.MonitorsErr
	}
	out := make([]platform.Monitor, len(b.MonitorList))
	copy(out, b.MonitorList)
	return out, nil
}

func (b *FakeBackend) CreateWindow(opts platform.WindowOptions, onClosed func()) (platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CreateErr != nil {
		return nil, b.CreateErr
	}
	w := &FakeWindow{
		Opts:       opts,
		onClosed:   onClosed,
		configured: b.Configured,
	}
	if opts.Visible {
		w.Visible = true
	}
	b.Windows = append(b.Windows, w)
	return w, nil
}

// Created returns the number of windows created so far.
func (b *FakeBackend) Created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Windows)
}

// Last returns the most recently created window, or nil.
func (b *FakeBackend) Last() *FakeWindow {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Windows) == 0 {
		return nil
	}
	return b.Windows[len(b.Windows)-1]
}

// FakeWindow records every geometry and visibility call.
type FakeWindow struct {
	mu sync.Mutex

	Opts    platform.WindowOptions
	Visible bool
	Closed  bool

	SetPositionErr error
	SetSizeErr     error
	ShowErr        error
	CloseErr       error

	calls      []Call
	configured bool
	onClosed   func()
}

var _ platform.Window = (*FakeWindow)(nil)

func (w *FakeWindow) Label() string { return w.Opts.Label }

func (w *FakeWindow) SetPosition(x, y int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, Call{Op: "position", X: x, Y: y})
	return w.SetPositionErr
}

func (w *FakeWindow) SetSize(width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, Call{Op: "size", Width: width, Height: height})
	return w.SetSizeErr
}

func (w *FakeWindow) WaitConfigured(target platform.Rect, _ time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, Call{Op: "settle", X: target.X, Y: target.Y, Width: target.Width, Height: target.Height})
	return w.configured
}

func (w *FakeWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, Call{Op: "show"})
	if w.ShowErr != nil {
		return w.ShowErr
	}
	w.Visible = true
	return nil
}

func (w *FakeWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, Call{Op: "close"})
	w.Closed = true
	w.Visible = false
	return w.CloseErr
}

// Calls returns a copy of the recorded calls.
func (w *FakeWindow) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Call, len(w.calls))
	copy(out, w.calls)
	return out
}

// GeometryCalls returns only the position and size calls.
func (w *FakeWindow) GeometryCalls() []Call {
	var out []Call
	for _, c := range w.Calls() {
		if c.Op == "position" || c.Op == "size" {
			out = append(out, c)
		}
	}
	return out
}

// SimulateUserClose marks the window closed and fires the close callback
// synchronously, as the window manager would after WM_DELETE_WINDOW.
func (w *FakeWindow) SimulateUserClose() error {
	w.mu.Lock()
	if w.Closed {
		w.mu.Unlock()
		return errors.New("window already closed")
	}
	w.Closed = true
	w.Visible = false
	cb := w.onClosed
	w.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}
