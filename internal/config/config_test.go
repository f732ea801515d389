package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if got := cfg.Projector.SettleTimeout(); got != 50*time.Millisecond {
		t.Fatalf("settle timeout = %v, want 50ms", got)
	}
	if !cfg.Bridge.IsEnabled() {
		t.Fatalf("expected bridge enabled by default")
	}
	if cfg.Remote.Enabled {
		t.Fatalf("expected remote disabled by default")
	}
}

func TestBuiltinCanvaProfile(t *testing.T) {
	p, ok := BuiltinProfiles()[DefaultFetchProfileName]
	if !ok {
		t.Fatalf("missing builtin %q profile", DefaultFetchProfileName)
	}
	if p.Headers["Referer"] != "https://www.canva.com/" {
		t.Fatalf("Referer = %q", p.Headers["Referer"])
	}
	if p.Headers["Origin"] != "https://www.canva.com" {
		t.Fatalf("Origin = %q", p.Headers["Origin"])
	}
	if !strings.Contains(p.UserAgent, "Chrome/120.0.0.0") {
		t.Fatalf("unexpected user agent %q", p.UserAgent)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvFileVar, "")
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file source, got %q", res.File)
	}
	if res.Config.Projector.Title != DefaultProjectorTitle {
		t.Fatalf("title = %q, want default", res.Config.Projector.Title)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "# empty\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Fetch.DefaultProfile != DefaultFetchProfileName {
		t.Fatalf("default_profile = %q", res.Config.Fetch.DefaultProfile)
	}
}

func TestLoadFromPath_MergesOverDefaults(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"projector:",
		"  settle_timeout_ms: 120",
		"remote:",
		"  enabled: true",
		"  listen: \"127.0.0.1:4000\"",
		"fetch:",
		"  profiles:",
		"    plain:",
		"      user_agent: \"curl/8\"",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Projector.SettleTimeoutMs != 120 {
		t.Fatalf("settle_timeout_ms = %d, want 120", cfg.Projector.SettleTimeoutMs)
	}
	if cfg.Projector.Title != DefaultProjectorTitle {
		t.Fatalf("expected untouched title to keep default, got %q", cfg.Projector.Title)
	}
	if !cfg.Remote.Enabled || cfg.Remote.Listen != "127.0.0.1:4000" {
		t.Fatalf("unexpected remote config: %+v", cfg.Remote)
	}
	if _, ok := cfg.Fetch.Profiles[DefaultFetchProfileName]; !ok {
		t.Fatalf("expected builtin profile to survive merge")
	}
	if cfg.Fetch.Profiles["plain"].UserAgent != "curl/8" {
		t.Fatalf("expected plain profile, got %+v", cfg.Fetch.Profiles)
	}
}

func TestLoadFromPath_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "projector:\n  setle_timeout_ms: 10\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoadFromPath_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantPath string
	}{
		{"negative settle", "projector:\n  settle_timeout_ms: -1\n", "projector.settle_timeout_ms"},
		{"huge settle", "projector:\n  settle_timeout_ms: 60000\n", "projector.settle_timeout_ms"},
		{"bad bridge listen", "bridge:\n  listen: \"nope\"\n", "bridge.listen"},
		{"unknown default profile", "fetch:\n  default_profile: missing\n", "fetch.default_profile"},
		{"profile without agent", "fetch:\n  profiles:\n    x:\n      headers: {A: b}\n", "fetch.profiles.x.user_agent"},
		{"bad log level", "logging:\n  level: loud\n", "logging.level"},
		{"negative poll", "monitors:\n  poll_interval_seconds: -1\n", "monitors.poll_interval_seconds"},
		{"unknown hotkey", "hotkeys:\n  reboot: Mod4-r\n", "hotkeys.reboot"},
		{"empty hotkey", "hotkeys:\n  go_live: \"\"\n", "hotkeys.go_live"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromPath(writeConfig(t, tt.body))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.wantPath {
				t.Fatalf("path = %q, want %q", verr.Path, tt.wantPath)
			}
		})
	}
}

func TestLoadFromPath_DisabledBridgeSkipsListenValidation(t *testing.T) {
	path := writeConfig(t, "bridge:\n  enabled: false\n  listen: \"\"\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Bridge.IsEnabled() {
		t.Fatalf("expected bridge disabled")
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	t.Setenv(EnvBridgeListen, "127.0.0.1:9999")
	t.Setenv(EnvLogLevel, "DEBUG")

	res, err := LoadFromPath(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Bridge.Listen != "127.0.0.1:9999" {
		t.Fatalf("bridge.listen = %q", res.Config.Bridge.Listen)
	}
	if res.Config.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q", res.Config.Logging.Level)
	}
}

func TestLoadFromPath_DotenvFile(t *testing.T) {
	prev, had := os.LookupEnv(EnvRemoteListen)
	os.Unsetenv(EnvRemoteListen)
	t.Cleanup(func() {
		if had {
			os.Setenv(EnvRemoteListen, prev)
		} else {
			os.Unsetenv(EnvRemoteListen)
		}
	})

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte(EnvRemoteListen+"=127.0.0.1:5555\n"), 0644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(EnvFileVar, envPath)

	res, err := LoadFromPath(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.EnvFile != envPath {
		t.Fatalf("EnvFile = %q, want %q", res.EnvFile, envPath)
	}
	if res.Config.Remote.Listen != "127.0.0.1:5555" {
		t.Fatalf("remote.listen = %q", res.Config.Remote.Listen)
	}
}

func TestSaveTo_RoundTripsThroughLoader(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Projector.SettleTimeoutMs = 75
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Projector.SettleTimeoutMs != 75 {
		t.Fatalf("settle_timeout_ms = %d, want 75", res.Config.Projector.SettleTimeoutMs)
	}
}

func TestLoadFromPath_Hotkeys(t *testing.T) {
	path := writeConfig(t, "hotkeys:\n  close_projector: Mod4-Shift-p\n  stage_next: Mod4-Right\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Hotkeys[HotkeyCloseProjector] != "Mod4-Shift-p" {
		t.Fatalf("hotkeys = %v", res.Config.Hotkeys)
	}
	if got := HotkeyControlActions["stage_next"]; got != "stage-next" {
		t.Fatalf("stage_next maps to %q", got)
	}
}
