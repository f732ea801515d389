package x11

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowOptions describes a top-level window created by the daemon.
type WindowOptions struct {
	Title       string
	Class       string
	Decorations bool
	SkipTaskbar bool
	Fullscreen  bool
	Width       int
	Height      int
}

// Geometry is a window rectangle in root coordinates.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ProjectorWindow is a daemon-owned top-level window. It starts unmapped.
type ProjectorWindow struct {
	conn *Connection
	win  *xwindow.Window

	mu        sync.Mutex
	requested Geometry
	reported  Geometry
	// pending is set by each configure request and cleared by the next
	// ConfigureNotify, so a geometry that already matched before a move
	// does not count as confirmation.
	pending bool
	closed  bool

	configured chan struct{}
	onClosed   func()
}

// CreateProjectorWindow creates and decorates (or undecorates) a new
// top-level window without mapping it. onClosed runs on its own goroutine
// when the window goes away for any reason other than Close.
func (c *Connection) CreateProjectorWindow(opts WindowOptions, onClosed func()) (*ProjectorWindow, error) {
	width, height := opts.Width, opts.Height
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}
	err = win.CreateChecked(c.Root, 0, 0, width, height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0x000000, xproto.EventMaskStructureNotify)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	p := &ProjectorWindow{
		conn:       c,
		win:        win,
		requested:  Geometry{Width: width, Height: height},
		reported:   Geometry{Width: width, Height: height},
		configured: make(chan struct{}, 1),
		onClosed:   onClosed,
	}

	if err := p.applyProperties(opts); err != nil {
		win.Destroy()
		return nil, err
	}

	win.WMGracefulClose(func(w *xwindow.Window) {
		if p.markClosed() {
			w.Destroy()
			p.notifyClosed()
		}
	})
	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if p.markClosed() {
			xevent.Detach(xu, ev.Window)
			p.notifyClosed()
		}
	}).Connect(c.XUtil, win.Id)
	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		p.recordGeometry(Geometry{
			X:      int(ev.X),
			Y:      int(ev.Y),
			Width:  int(ev.Width),
			Height: int(ev.Height),
		})
	}).Connect(c.XUtil, win.Id)

	return p, nil
}

func (p *ProjectorWindow) applyProperties(opts WindowOptions) error {
	xu := p.conn.XUtil
	id := p.win.Id

	if err := ewmh.WmNameSet(xu, id, opts.Title); err != nil {
		return fmt.Errorf("failed to set _NET_WM_NAME: %w", err)
	}
	if err := icccm.WmNameSet(xu, id, opts.Title); err != nil {
		return fmt.Errorf("failed to set WM_NAME: %w", err)
	}
	if opts.Class != "" {
		if err := icccm.WmClassSet(xu, id, &icccm.WmClass{Instance: opts.Class, Class: opts.Class}); err != nil {
			return fmt.Errorf("failed to set WM_CLASS: %w", err)
		}
	}
	if !opts.Decorations {
		hints := &motif.Hints{
			Flags:      motif.HintDecorations,
			Decoration: motif.DecorationNone,
		}
		if err := motif.WmHintsSet(xu, id, hints); err != nil {
			return fmt.Errorf("failed to set _MOTIF_WM_HINTS: %w", err)
		}
	}

	var states []string
	if opts.SkipTaskbar {
		states = append(states, "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER")
	}
	if opts.Fullscreen {
		states = append(states, "_NET_WM_STATE_FULLSCREEN")
	}
	if len(states) > 0 {
		if err := ewmh.WmStateSet(xu, id, states); err != nil {
			return fmt.Errorf("failed to set _NET_WM_STATE: %w", err)
		}
	}
	return nil
}

// ID returns the X11 window id.
func (p *ProjectorWindow) ID() uint32 {
	return uint32(p.win.Id)
}

// SetPosition moves the window's top-left corner to (x, y).
func (p *ProjectorWindow) SetPosition(x, y int) error {
	req := p.noteRequest(func(g *Geometry) { g.X, g.Y = x, y })

	if err := p.setNormalHints(req); err != nil {
		return err
	}
	err := xproto.ConfigureWindowChecked(p.conn.XUtil.Conn(), p.win.Id,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(int32(x)), uint32(int32(y))}).Check()
	if err != nil {
		return fmt.Errorf("failed to move window: %w", err)
	}
	return nil
}

// SetSize resizes the window.
func (p *ProjectorWindow) SetSize(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("invalid window size %dx%d", width, height)
	}

	req := p.noteRequest(func(g *Geometry) { g.Width, g.Height = width, height })

	if err := p.setNormalHints(req); err != nil {
		return err
	}
	err := xproto.ConfigureWindowChecked(p.conn.XUtil.Conn(), p.win.Id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)}).Check()
	if err != nil {
		return fmt.Errorf("failed to resize window: %w", err)
	}
	return nil
}

func (p *ProjectorWindow) noteRequest(apply func(*Geometry)) Geometry {
	p.mu.Lock()
	defer p.mu.Unlock()
	apply(&p.requested)
	p.pending = true
	return p.requested
}

// User-specified position and size keep window managers from placing the
// window themselves when it is mapped.
func (p *ProjectorWindow) setNormalHints(g Geometry) error {
	hints := &icccm.NormalHints{
		Flags:  icccm.SizeHintUSPosition | icccm.SizeHintUSSize | icccm.SizeHintPPosition | icccm.SizeHintPSize,
		X:      g.X,
		Y:      g.Y,
		Width:  uint(g.Width),
		Height: uint(g.Height),
	}
	if err := icccm.WmNormalHintsSet(p.conn.XUtil, p.win.Id, hints); err != nil {
		return fmt.Errorf("failed to set WM_NORMAL_HINTS: %w", err)
	}
	return nil
}

// WaitConfigured blocks until a ConfigureNotify newer than the last move or
// resize reports a size equal to target, or timeout elapses. It returns
// whether the geometry was confirmed.
func (p *ProjectorWindow) WaitConfigured(target Geometry, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if p.confirmed(target) {
			return true
		}
		select {
		case <-p.configured:
		case <-timer.C:
			return p.confirmed(target)
		}
	}
}

// Show maps the window, raises it and asks the window manager to focus it.
func (p *ProjectorWindow) Show() error {
	conn := p.conn.XUtil.Conn()
	if err := xproto.MapWindowChecked(conn, p.win.Id).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}
	if err := xproto.ConfigureWindowChecked(conn, p.win.Id,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check(); err != nil {
		return fmt.Errorf("failed to raise window: %w", err)
	}
	// Not every window manager honours _NET_ACTIVE_WINDOW.
	_ = p.conn.activate(p.win.Id)
	return nil
}

// Close destroys the window. It does not invoke the onClosed callback.
func (p *ProjectorWindow) Close() error {
	if !p.markClosed() {
		return nil
	}
	p.win.Detach()
	if err := xproto.DestroyWindowChecked(p.conn.XUtil.Conn(), p.win.Id).Check(); err != nil {
		return fmt.Errorf("failed to destroy window: %w", err)
	}
	return nil
}

func (p *ProjectorWindow) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	return true
}

// notifyClosed must not block the event loop: the callback may need locks
// held by a goroutine that is itself waiting on X replies.
func (p *ProjectorWindow) notifyClosed() {
	if p.onClosed != nil {
		go p.onClosed()
	}
}

func (p *ProjectorWindow) recordGeometry(g Geometry) {
	p.mu.Lock()
	p.reported = g
	p.pending = false
	p.mu.Unlock()

	select {
	case p.configured <- struct{}{}:
	default:
	}
}

// Only size is compared: ConfigureNotify coordinates are relative to the
// window manager frame once the window is reparented.
func (p *ProjectorWindow) confirmed(target Geometry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.pending && p.reported.Width == target.Width && p.reported.Height == target.Height
}

// activate sends _NET_ACTIVE_WINDOW to the root window. The message is
// built by hand because the ewmh request helpers mis-type their data on
// this xgbutil version.
func (c *Connection) activate(win xproto.Window) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
