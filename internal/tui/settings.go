package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/fetch"
)

// Settings is the editable config the TUI was started with.
type Settings struct {
	Config *config.Config
	// Path is where edits are written. Empty means the default location.
	Path string
}

var logLevels = []string{"debug", "info", "warn", "error"}

// settingsForm edits the options an operator changes between services.
type settingsForm struct {
	form *huh.Form

	// Form-bound values (strings for huh, converted on submit)
	fSettleMs       string
	fDefaultProfile string
	fRemoteEnabled  bool
	fLogLevel       string
}

// savedMsg reports the outcome of writing settings to disk.
type savedMsg struct {
	cfg      *config.Config
	reloaded bool
	err      error
}

func newSettingsForm(cfg *config.Config, width int) *settingsForm {
	s := &settingsForm{
		fSettleMs:       strconv.Itoa(cfg.Projector.SettleTimeoutMs),
		fDefaultProfile: cfg.Fetch.DefaultProfile,
		fRemoteEnabled:  cfg.Remote.Enabled,
		fLogLevel:       cfg.Logging.Level,
	}

	w := width - 4
	if w < 40 {
		w = 40
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("settle_timeout_ms").
				Title("Settle Timeout (ms)").
				Description("How long to wait for the window manager after a move").
				Validate(validateSettle).
				Value(&s.fSettleMs),

			huh.NewSelect[string]().
				Key("default_profile").
				Title("Fetch Profile").
				Description("Header profile used for content fetches").
				Options(huh.NewOptions(fetch.ProfileNames(cfg.Fetch)...)...).
				Value(&s.fDefaultProfile),

			huh.NewConfirm().
				Key("remote_enabled").
				Title("Remote Control").
				Description("Serve the phone remote (takes effect on daemon restart)").
				Affirmative("On").
				Negative("Off").
				Value(&s.fRemoteEnabled),

			huh.NewSelect[string]().
				Key("log_level").
				Title("Log Level").
				Options(huh.NewOptions(logLevels...)...).
				Value(&s.fLogLevel),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	return s
}

func validateSettle(v string) error {
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("must be a whole number of milliseconds")
	}
	if ms < 0 || ms > config.MaxSettleTimeoutMs {
		return fmt.Errorf("must be between 0 and %d", config.MaxSettleTimeoutMs)
	}
	return nil
}

// apply returns a copy of cfg with the form values set. cfg is not modified.
func (s *settingsForm) apply(cfg *config.Config) (*config.Config, error) {
	next := cloneConfig(cfg)
	if next == nil {
		return nil, fmt.Errorf("failed to copy config")
	}
	if err := validateSettle(s.fSettleMs); err != nil {
		return nil, fmt.Errorf("settle timeout %w", err)
	}
	next.Projector.SettleTimeoutMs, _ = strconv.Atoi(s.fSettleMs)
	next.Fetch.DefaultProfile = s.fDefaultProfile
	next.Remote.Enabled = s.fRemoteEnabled
	next.Logging.Level = s.fLogLevel

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// saveSettings writes cfg and, when the daemon is up, asks it to reload.
func saveSettings(client Client, cfg *config.Config, path string, connected bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if path == "" {
			err = cfg.Save()
		} else {
			err = cfg.SaveTo(path)
		}
		if err != nil {
			return savedMsg{err: err}
		}
		reloaded := connected && client.Reload() == nil
		return savedMsg{cfg: cfg, reloaded: reloaded}
	}
}

func (s *settingsForm) View(width, height int) string {
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Render("Editing Settings") +
		lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("  (esc to cancel)")

	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Padding(1, 2)
	return style.Render(header + "\n\n" + s.form.View())
}

// cloneConfig creates a deep copy of a Config via YAML round-trip.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var clone config.Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return nil
	}
	return &clone
}
