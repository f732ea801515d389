package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/presenter/internal/app"
)

// renderStatusBar renders the daemon connection status bar.
func renderStatusBar(connected bool, st *app.Status, width int) string {
	var status string
	if connected && st != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{dot + " daemon connected"}
		if st.ProjectorOpen {
			parts = append(parts, "projector:open")
		} else {
			parts = append(parts, "projector:closed")
		}
		parts = append(parts, fmt.Sprintf("monitors:%d", st.Monitors))
		if st.RemoteEnabled {
			parts = append(parts, fmt.Sprintf("remotes:%d", st.RemoteClients))
		}
		status = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		status = dot + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(status)
}

func renderMessageBar(message, errText string, width int) string {
	style := lipgloss.NewStyle().Width(width).Padding(0, 1)
	switch {
	case errText != "":
		return style.Foreground(lipgloss.Color("196")).Bold(true).Render(errText)
	case message != "":
		return style.Foreground(lipgloss.Color("42")).Render(message)
	default:
		return style.Render("")
	}
}

// renderHelpBar renders the bottom keybinding bar.
func renderHelpBar(width int) string {
	help := "enter: open on monitor  o: open (default placement)  c: close  s: settings  r: refresh  q: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}

func renderPlaceholder(msg string, width, height int) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Foreground(lipgloss.Color("241")).
		Align(lipgloss.Center, lipgloss.Center)
	return style.Render(msg)
}
