package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/presenter/internal/app"
)

// monitorItem is a list entry for one attached monitor.
type monitorItem struct {
	index int
	label string
}

func (i monitorItem) Title() string       { return i.label }
func (i monitorItem) Description() string { return fmt.Sprintf("index %d", i.index) }
func (i monitorItem) FilterValue() string { return i.label }

// refreshedMsg carries a fresh daemon snapshot.
type refreshedMsg struct {
	status   *app.Status
	monitors []string
	err      error
}

// actionMsg reports the outcome of an open or close request.
type actionMsg struct {
	what string
	err  error
}

// model is the root bubbletea model for the TUI.
type model struct {
	client Client
	list   list.Model

	settings Settings
	editing  *settingsForm

	status    *app.Status
	connected bool
	message   string
	lastErr   string

	width  int
	height int
}

func newModel(client Client, settings Settings) model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Monitors"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	return model{client: client, list: l, settings: settings}
}

func (m model) refresh() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		st, err := client.GetStatus()
		if err != nil {
			return refreshedMsg{err: err}
		}
		labels, err := client.GetMonitors()
		return refreshedMsg{status: st, monitors: labels, err: err}
	}
}

func (m model) open(index *int) tea.Cmd {
	client := m.client
	what := "Projector opened with default placement"
	if index != nil {
		what = fmt.Sprintf("Projector opened on monitor %d", *index+1)
	}
	return func() tea.Msg {
		return actionMsg{what: what, err: client.OpenProjector(index)}
	}
}

func (m model) closeProjector() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return actionMsg{what: "Projector closed", err: client.CloseProjector()}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.refresh()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The settings form captures all input while open.
	if m.editing != nil {
		return m.updateEditing(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, m.contentHeight())
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.connected = false
			m.status = nil
			m.lastErr = msg.err.Error()
			m.list.SetItems(nil)
			return m, nil
		}
		m.connected = true
		m.status = msg.status
		m.lastErr = ""
		items := make([]list.Item, len(msg.monitors))
		for i, label := range msg.monitors {
			items[i] = monitorItem{index: i, label: label}
		}
		m.list.SetItems(items)
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.message = ""
			return m, nil
		}
		m.lastErr = ""
		m.message = msg.what
		return m, m.refresh()

	case savedMsg:
		return m.handleSaved(msg), nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.message = ""
			return m, m.refresh()
		case "enter":
			item, ok := m.list.SelectedItem().(monitorItem)
			if !ok {
				return m, nil
			}
			index := item.index
			return m, m.open(&index)
		case "o":
			return m, m.open(nil)
		case "c":
			return m, m.closeProjector()
		case "s":
			if m.settings.Config == nil {
				m.lastErr = "No config loaded"
				return m, nil
			}
			m.message, m.lastErr = "", ""
			m.editing = newSettingsForm(m.settings.Config, m.width)
			return m, m.editing.form.Init()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) updateEditing(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			m.editing = nil
			m.message = "Settings unchanged"
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, m.contentHeight())
	case savedMsg:
		return m.handleSaved(msg), nil
	}

	form, cmd := m.editing.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.editing.form = f
	}

	switch m.editing.form.State {
	case huh.StateAborted:
		m.editing = nil
		m.message = "Settings unchanged"
		return m, nil
	case huh.StateCompleted:
		return m.submitSettings()
	}
	return m, cmd
}

// submitSettings applies the completed form and starts the save.
func (m model) submitSettings() (tea.Model, tea.Cmd) {
	next, err := m.editing.apply(m.settings.Config)
	m.editing = nil
	if err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	return m, saveSettings(m.client, next, m.settings.Path, m.connected)
}

func (m model) handleSaved(msg savedMsg) model {
	if msg.err != nil {
		m.lastErr = fmt.Sprintf("Save failed: %v", msg.err)
		m.message = ""
		return m
	}
	m.settings.Config = msg.cfg
	m.lastErr = ""
	m.message = "Settings saved"
	if msg.reloaded {
		m.message += ", daemon reloaded"
	}
	return m
}

// contentHeight returns the rows left for the list after the bars.
func (m model) contentHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.status, m.width)
	helpBar := renderHelpBar(m.width)
	messageBar := renderMessageBar(m.message, m.lastErr, m.width)

	content := m.list.View()
	switch {
	case m.editing != nil:
		content = m.editing.View(m.width, m.contentHeight())
	case !m.connected:
		content = renderPlaceholder("Start the daemon with: presenter daemon", m.width, m.contentHeight())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		content,
		messageBar,
		helpBar,
	)
}
