// Package app is the command surface shared by every transport: the IPC
// socket, the HTTP bridge, MCP tools and the TUI all dispatch here.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/fetch"
	"github.com/1broseidon/presenter/internal/platform"
	"github.com/1broseidon/presenter/internal/projector"
)

// Command names as exposed to the front-end.
const (
	CmdGetAvailableMonitors = "get_available_monitors"
	CmdOpenProjector        = "open_projector_window"
	CmdCloseProjector       = "close_projector_window"
	CmdUpdateProjector      = "update_projector"
	CmdFetchCanvaContent    = "fetch_canva_content"
	CmdGetStatus            = "get_status"
	CmdBroadcastState       = "broadcast_state"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidArgs    = errors.New("invalid arguments")
)

// OpenArgs selects the monitor to open the projector on. A nil index leaves
// placement to the window system.
type OpenArgs struct {
	MonitorIndex *int `json:"monitorIndex"`
}

type UpdateArgs struct {
	SlideData *string `json:"slideData"`
}

type FetchArgs struct {
	URL *string `json:"url"`
}

type BroadcastArgs struct {
	State json.RawMessage `json:"state"`
}

// Status summarizes daemon state.
type Status struct {
	DaemonRunning bool   `json:"daemon_running"`
	ProjectorOpen bool   `json:"projector_open"`
	Monitors      int    `json:"monitors"`
	FetchProfile  string `json:"fetch_profile"`
	RemoteEnabled bool   `json:"remote_enabled"`
	RemoteClients int    `json:"remote_clients"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StateBroadcaster publishes presentation state to remote controllers.
type StateBroadcaster interface {
	BroadcastState(state json.RawMessage) int
	ClientCount() int
}

// Service implements every daemon command.
type Service struct {
	backend   platform.Backend
	projector *projector.Controller
	logger    *slog.Logger
	started   time.Time

	mu      sync.RWMutex
	fetcher *fetch.Fetcher
	remote  StateBroadcaster
}

// NewService wires the command surface.
func NewService(backend platform.Backend, ctrl *projector.Controller, fetcher *fetch.Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:   backend,
		projector: ctrl,
		fetcher:   fetcher,
		logger:    logger,
		started:   time.Now(),
	}
}

// SetStateBroadcaster attaches the remote control server.
func (s *Service) SetStateBroadcaster(b StateBroadcaster) {
	s.mu.Lock()
	s.remote = b
	s.mu.Unlock()
}

// ApplyConfig swaps in settings that can change without a restart: the
// fetch profile and the options for the next projector window.
func (s *Service) ApplyConfig(cfg *config.Config) error {
	profile, err := fetch.ProfileFromConfig(cfg.Fetch, "")
	if err != nil {
		return err
	}
	f := fetch.New(profile, fetch.WithTimeout(cfg.Fetch.Timeout()))

	s.mu.Lock()
	s.fetcher = f
	s.mu.Unlock()

	s.projector.SetOptions(projector.OptionsFromConfig(cfg.Projector))
	s.logger.Info("configuration applied", "fetch_profile", profile.Name)
	return nil
}

// Monitors returns the current monitor list.
func (s *Service) Monitors() ([]platform.Monitor, error) {
	monitors, err := s.backend.Monitors()
	if err != nil {
		return nil, fmt.Errorf("failed to query monitors: %w", err)
	}
	return monitors, nil
}

// AvailableMonitors returns one label per monitor in enumeration order.
func (s *Service) AvailableMonitors() ([]string, error) {
	monitors, err := s.Monitors()
	if err != nil {
		return nil, err
	}
	return projector.Labels(monitors), nil
}

func (s *Service) OpenProjector(index *int) error {
	return s.projector.Open(index)
}

func (s *Service) CloseProjector() error {
	return s.projector.Close()
}

func (s *Service) UpdateProjector(payload string) error {
	return s.projector.Update(payload)
}

// FetchContent fetches url with the active header profile.
func (s *Service) FetchContent(ctx context.Context, url string) (string, error) {
	s.mu.RLock()
	f := s.fetcher
	s.mu.RUnlock()
	if f == nil {
		return "", errors.New("fetcher not configured")
	}

	s.logger.Debug("fetching content", "url", url, "profile", f.Profile().Name)
	return f.Fetch(ctx, url)
}

// BroadcastState forwards the control window's presentation state to
// connected remotes. Without a remote server it is a no-op.
func (s *Service) BroadcastState(state json.RawMessage) error {
	s.mu.RLock()
	remote := s.remote
	s.mu.RUnlock()
	if remote == nil {
		return nil
	}
	n := remote.BroadcastState(state)
	s.logger.Debug("state broadcast", "clients", n)
	return nil
}

// Status reports daemon state.
func (s *Service) Status() Status {
	st := Status{
		DaemonRunning: true,
		ProjectorOpen: s.projector.IsOpen(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if monitors, err := s.backend.Monitors(); err == nil {
		st.Monitors = len(monitors)
	}

	s.mu.RLock()
	if s.fetcher != nil {
		st.FetchProfile = s.fetcher.Profile().Name
	}
	if s.remote != nil {
		st.RemoteEnabled = true
		st.RemoteClients = s.remote.ClientCount()
	}
	s.mu.RUnlock()
	return st
}

// Invoke dispatches a named command with JSON arguments. Malformed or
// missing arguments wrap ErrInvalidArgs; unknown names wrap
// ErrUnknownCommand.
func (s *Service) Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	switch name {
	case CmdGetAvailableMonitors:
		return s.AvailableMonitors()

	case CmdOpenProjector:
		var args OpenArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return nil, s.OpenProjector(args.MonitorIndex)

	case CmdCloseProjector:
		return nil, s.CloseProjector()

	case CmdUpdateProjector:
		var args UpdateArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if args.SlideData == nil {
			return nil, fmt.Errorf("%w: slideData is required", ErrInvalidArgs)
		}
		return nil, s.UpdateProjector(*args.SlideData)

	case CmdFetchCanvaContent:
		var args FetchArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if args.URL == nil {
			return nil, fmt.Errorf("%w: url is required", ErrInvalidArgs)
		}
		return s.FetchContent(ctx, *args.URL)

	case CmdGetStatus:
		return s.Status(), nil

	case CmdBroadcastState:
		var args BroadcastArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return nil, s.BroadcastState(args.State)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}
