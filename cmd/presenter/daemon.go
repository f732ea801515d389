package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/presenter/internal/app"
	"github.com/1broseidon/presenter/internal/bridge"
	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/daemon"
	"github.com/1broseidon/presenter/internal/events"
	"github.com/1broseidon/presenter/internal/fetch"
	"github.com/1broseidon/presenter/internal/hotkeys"
	"github.com/1broseidon/presenter/internal/httpserver"
	"github.com/1broseidon/presenter/internal/ipc"
	"github.com/1broseidon/presenter/internal/logging"
	"github.com/1broseidon/presenter/internal/platform"
	"github.com/1broseidon/presenter/internal/projector"
	"github.com/1broseidon/presenter/internal/remote"
)

const shutdownTimeout = 5 * time.Second

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	display := fs.String("display", "", "X display to connect to (default: $DISPLAY)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: presenter daemon [--display NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the presenter daemon in the foreground. It owns the X11")
		fmt.Fprintln(os.Stderr, "connection and serves IPC, the HTTP bridge and the remote control.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	// Starting would unlink the live daemon's socket.
	if ipc.NewClient().Ping() == nil {
		log.Fatalf("presenter daemon is already running")
	}

	res, err := config.LoadWithSources()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := res.Config

	logger := logging.New(os.Stderr, cfg.Logging.Level)
	slog.SetDefault(logger.Logger)
	if res.File != "" {
		logger.Info("loaded config", "file", res.File)
	}
	if res.EnvFile != "" {
		logger.Info("loaded env overrides", "file", res.EnvFile)
	}

	backend, err := platform.NewLinuxBackendFromDisplay(*display)
	if err != nil {
		log.Fatalf("Failed to create platform backend: %v", err)
	}
	defer backend.Disconnect()

	monitors, err := backend.Monitors()
	if err != nil {
		logger.Warn("initial monitor query failed", "error", err)
	} else {
		for _, label := range projector.Labels(monitors) {
			logger.Info("monitor detected", "label", label)
		}
	}

	bus := events.NewBus(logger.With("component", "events"))
	defer bus.Close()

	ctrl := projector.NewController(backend, bus,
		projector.OptionsFromConfig(cfg.Projector),
		logger.With("component", "projector"))

	profile, err := fetch.ProfileFromConfig(cfg.Fetch, "")
	if err != nil {
		log.Fatalf("Failed to resolve fetch profile: %v", err)
	}
	fetcher := fetch.New(profile, fetch.WithTimeout(cfg.Fetch.Timeout()))

	svc := app.NewService(backend, ctrl, fetcher, logger.With("component", "service"))

	var servers []*httpserver.Server

	if cfg.Remote.Enabled {
		rs := remote.New(bus, cfg.Remote, logger.With("component", "remote"))
		defer rs.Close()
		svc.SetStateBroadcaster(rs)

		srv, err := rs.Listen(cfg.Remote.Listen)
		if err != nil {
			log.Fatalf("Failed to start remote control server: %v", err)
		}
		servers = append(servers, srv)
	}

	if cfg.Bridge.IsEnabled() {
		br := bridge.New(svc, bus, cfg.Bridge, logger.With("component", "bridge"))
		srv, err := br.Listen(cfg.Bridge.Listen)
		if err != nil {
			log.Fatalf("Failed to start bridge: %v", err)
		}
		servers = append(servers, srv)
	}

	if len(cfg.Hotkeys) > 0 {
		hotkeyLogger := logger.With("component", "hotkeys")
		handler, err := hotkeys.NewHandler(backend)
		if err != nil {
			hotkeyLogger.Warn("global hotkeys unavailable", "error", err)
		} else {
			hotkeys.BindAll(handler, cfg.Hotkeys, hotkeys.Actions(svc, bus, hotkeyLogger), hotkeyLogger)
		}
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if interval := cfg.Monitors.PollInterval(); interval > 0 {
		watcher := daemon.NewMonitorWatcher(daemon.WatcherConfig{
			Interval: interval,
			Logger:   logger.With("component", "monitors"),
		}, backend.Monitors, bus)
		go watcher.Run(watchCtx)
	}

	reloadChan := make(chan *config.Config, 1)

	ipcServer, err := ipc.NewServer(svc, reloadChan, logger.With("component", "ipc"))
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	applyConfig := func(newCfg *config.Config) {
		if err := svc.ApplyConfig(newCfg); err != nil {
			logger.Error("config reload failed", "error", err)
			return
		}
		if err := logger.SetLevel(newCfg.Logging.Level); err != nil {
			logger.Warn("invalid log level in reloaded config", "error", err)
		}
		if !maps.Equal(newCfg.Hotkeys, cfg.Hotkeys) || newCfg.Monitors != cfg.Monitors {
			logger.Warn("hotkey and monitor polling changes take effect after a daemon restart")
		}
		if newCfg.Bridge.Listen != cfg.Bridge.Listen || newCfg.Remote.Listen != cfg.Remote.Listen ||
			newCfg.Remote.Enabled != cfg.Remote.Enabled || newCfg.Bridge.IsEnabled() != cfg.Bridge.IsEnabled() {
			logger.Warn("listener changes take effect after a daemon restart")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					newCfg, err := config.Load()
					if err != nil {
						logger.Error("config reload failed", "error", err)
						continue
					}
					applyConfig(newCfg)

				case os.Interrupt, syscall.SIGTERM:
					logger.Info("shutting down presenter daemon")
					backend.Quit()
					return
				}

			case newCfg := <-reloadChan:
				applyConfig(newCfg)
			}
		}
	}()

	logger.Info("entering event loop")
	backend.EventLoop()
	watchCancel()

	if err := ctrl.Close(); err != nil {
		logger.Warn("failed to close projector window", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("server shutdown failed", "addr", srv.Addr(), "error", err)
		}
	}
	return 0
}
