package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/presenter/internal/ipc"
	"github.com/1broseidon/presenter/internal/palette"
)

func runPalette(args []string) int {
	fs := flag.NewFlagSet("palette", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	backendName := fs.String("backend", "auto", "Launcher: auto, rofi, fuzzel, wofi, dmenu")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: presenter palette [--backend NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Pick the projector monitor from a launcher menu. Bind it to a")
		fmt.Fprintln(os.Stderr, "desktop shortcut for quick access during a service.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return 2
	}

	backend, err := palette.NewBackend(*backendName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := palette.Run(client, backend, status.ProjectorOpen); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
