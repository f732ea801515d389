package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectorLabel is the well-known identifier the front-end pairs with.
	ProjectorLabel = "projector"
	// MainLabel addresses the control window's event stream.
	MainLabel = "main"

	DefaultProjectorTitle   = "Church Presenter - Projector"
	DefaultProjectorClass   = "presenter-projector"
	DefaultSettleTimeoutMs  = 50
	MaxSettleTimeoutMs      = 5000
	DefaultBridgeListen     = "127.0.0.1:3776"
	DefaultRemoteListen     = ":3777"
	DefaultFetchProfileName = "canva"

	// Chrome 120 on Linux; Canva rejects non-browser agents.
	DefaultCanvaUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ProjectorConfig configures the secondary output window.
type ProjectorConfig struct {
	Title string `yaml:"title"`
	Class string `yaml:"class"`
	// SettleTimeoutMs bounds how long Open waits for the window manager to
	// acknowledge a move before showing the window anyway.
	SettleTimeoutMs int `yaml:"settle_timeout_ms"`
	DefaultWidth    int `yaml:"default_width"`
	DefaultHeight   int `yaml:"default_height"`
}

// SettleTimeout returns the settle bound as a duration.
func (p ProjectorConfig) SettleTimeout() time.Duration {
	return time.Duration(p.SettleTimeoutMs) * time.Millisecond
}

// BridgeConfig configures the HTTP/WebSocket bridge used by the web front-end.
type BridgeConfig struct {
	// Enabled defaults to true when unset.
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Listen    string `yaml:"listen"`
	StaticDir string `yaml:"static_dir,omitempty"`
}

// IsEnabled reports whether the bridge should be started.
func (b BridgeConfig) IsEnabled() bool {
	if b.Enabled == nil {
		return true
	}
	return *b.Enabled
}

// RemoteConfig configures the remote control server.
type RemoteConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	StaticDir string `yaml:"static_dir,omitempty"`
}

// ProfileConfig is a named header override profile for outbound fetches.
type ProfileConfig struct {
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

// FetchConfig configures the content fetch proxy.
type FetchConfig struct {
	DefaultProfile string `yaml:"default_profile"`
	// TimeoutSeconds of 0 means no client timeout.
	TimeoutSeconds int                      `yaml:"timeout_seconds,omitempty"`
	Profiles       map[string]ProfileConfig `yaml:"profiles"`
}

// Timeout returns the client timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Hotkey actions. Control actions are forwarded to the control window as
// the matching remote command.
const (
	HotkeyCloseProjector = "close_projector"
	HotkeyOpenProjector  = "open_projector"
)

// HotkeyControlActions maps hotkey action names to remote commands.
var HotkeyControlActions = map[string]string{
	"stage_next": "stage-next",
	"stage_prev": "stage-prev",
	"go_live":    "go-live",
	"clear":      "clear",
	"next_stack": "next-stack",
	"prev_stack": "prev-stack",
}

// IsHotkeyAction reports whether action can be bound in hotkeys.
func IsHotkeyAction(action string) bool {
	if action == HotkeyCloseProjector || action == HotkeyOpenProjector {
		return true
	}
	_, ok := HotkeyControlActions[action]
	return ok
}

// MonitorsConfig configures monitor hot-plug detection.
type MonitorsConfig struct {
	// PollIntervalSeconds of 0 disables polling.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// PollInterval returns the polling interval as a duration.
func (m MonitorsConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

// LoggingConfig configures daemon logging.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `yaml:"level"`
}

// Config is the effective presenter configuration.
type Config struct {
	Projector ProjectorConfig `yaml:"projector"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Remote    RemoteConfig    `yaml:"remote"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Monitors  MonitorsConfig  `yaml:"monitors"`
	// Hotkeys maps an action to a global key sequence such as "Mod4-Shift-p".
	Hotkeys map[string]string `yaml:"hotkeys,omitempty"`
	Logging LoggingConfig     `yaml:"logging"`
}

// ValidationError points at the offending YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuiltinProfiles returns the header profiles shipped with presenter.
func BuiltinProfiles() map[string]ProfileConfig {
	return map[string]ProfileConfig{
		DefaultFetchProfileName: {
			UserAgent: DefaultCanvaUserAgent,
			Headers: map[string]string{
				"Referer": "https://www.canva.com/",
				"Origin":  "https://www.canva.com",
			},
		},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Projector: ProjectorConfig{
			Title:           DefaultProjectorTitle,
			Class:           DefaultProjectorClass,
			SettleTimeoutMs: DefaultSettleTimeoutMs,
			DefaultWidth:    800,
			DefaultHeight:   600,
		},
		Bridge: BridgeConfig{
			Listen: DefaultBridgeListen,
		},
		Remote: RemoteConfig{
			Enabled: false,
			Listen:  DefaultRemoteListen,
		},
		Fetch: FetchConfig{
			DefaultProfile: DefaultFetchProfileName,
			Profiles:       BuiltinProfiles(),
		},
		Monitors: MonitorsConfig{
			PollIntervalSeconds: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Projector.Title) == "" {
		return &ValidationError{Path: "projector.title", Err: fmt.Errorf("title is required")}
	}
	if c.Projector.SettleTimeoutMs < 0 || c.Projector.SettleTimeoutMs > MaxSettleTimeoutMs {
		return &ValidationError{Path: "projector.settle_timeout_ms", Err: fmt.Errorf("settle_timeout_ms must be between 0 and %d", MaxSettleTimeoutMs)}
	}
	if c.Projector.DefaultWidth < 1 || c.Projector.DefaultHeight < 1 {
		return &ValidationError{Path: "projector", Err: fmt.Errorf("default_width and default_height must be >= 1")}
	}
	if c.Bridge.IsEnabled() {
		if err := validateListen(c.Bridge.Listen); err != nil {
			return &ValidationError{Path: "bridge.listen", Err: err}
		}
	}
	if c.Remote.Enabled {
		if err := validateListen(c.Remote.Listen); err != nil {
			return &ValidationError{Path: "remote.listen", Err: err}
		}
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return &ValidationError{Path: "fetch.timeout_seconds", Err: fmt.Errorf("timeout_seconds must be >= 0")}
	}
	for name, p := range c.Fetch.Profiles {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: "fetch.profiles", Err: fmt.Errorf("profile name must not be empty")}
		}
		if strings.TrimSpace(p.UserAgent) == "" {
			return &ValidationError{Path: "fetch.profiles." + name + ".user_agent", Err: fmt.Errorf("user_agent is required")}
		}
	}
	if _, ok := c.Fetch.Profiles[c.Fetch.DefaultProfile]; !ok {
		return &ValidationError{Path: "fetch.default_profile", Err: fmt.Errorf("unknown profile %q", c.Fetch.DefaultProfile)}
	}
	if c.Monitors.PollIntervalSeconds < 0 {
		return &ValidationError{Path: "monitors.poll_interval_seconds", Err: fmt.Errorf("poll_interval_seconds must be >= 0")}
	}
	for action, keys := range c.Hotkeys {
		if !IsHotkeyAction(action) {
			return &ValidationError{Path: "hotkeys." + action, Err: fmt.Errorf("unknown hotkey action %q", action)}
		}
		if strings.TrimSpace(keys) == "" {
			return &ValidationError{Path: "hotkeys." + action, Err: fmt.Errorf("key sequence is required")}
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	return nil
}

func validateListen(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
