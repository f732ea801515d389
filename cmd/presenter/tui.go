package main

import (
	"fmt"
	"os"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/ipc"
	"github.com/1broseidon/presenter/internal/tui"
)

func runTUI(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: presenter tui")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive monitor picker for the projector window.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓  Navigate monitors")
		fmt.Fprintln(os.Stderr, "  Enter     Open the projector on the selected monitor")
		fmt.Fprintln(os.Stderr, "  o         Open the projector with window manager placement")
		fmt.Fprintln(os.Stderr, "  c         Close the projector")
		fmt.Fprintln(os.Stderr, "  s         Edit settings (saves the config and reloads the daemon)")
		fmt.Fprintln(os.Stderr, "  r         Refresh monitors and status")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C Quit")
		return 0
	}
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "tui takes no arguments")
		return 2
	}

	var settings tui.Settings
	if res, err := config.LoadWithSources(); err != nil {
		fmt.Fprintf(os.Stderr, "settings unavailable: %v\n", err)
	} else {
		settings = tui.Settings{Config: res.Config, Path: res.File}
	}

	if err := tui.Run(ipc.NewClient(), settings); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
