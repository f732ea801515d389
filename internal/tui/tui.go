// Package tui is an interactive terminal front-end for the presenter daemon.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/presenter/internal/app"
)

// Client is the daemon surface the TUI drives. *ipc.Client satisfies it.
type Client interface {
	GetStatus() (*app.Status, error)
	GetMonitors() ([]string, error)
	OpenProjector(index *int) error
	CloseProjector() error
	Reload() error
}

// Run starts the TUI and blocks until the user quits. settings.Config may be
// nil, in which case the settings form is unavailable.
func Run(client Client, settings Settings) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(client, settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
