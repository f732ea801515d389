// Package palette shows a launcher menu (rofi, fuzzel, wofi or dmenu) for
// picking the projector monitor from a desktop hotkey.
package palette

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrCancelled is returned when the user closes the palette without selecting an item.
var ErrCancelled = errors.New("palette cancelled")

type backendKind int

const (
	kindRofi backendKind = iota
	kindFuzzel
	kindWofi
	kindDmenu
)

// Item is a single selectable entry in a palette menu.
type Item struct {
	Label  string
	Action string
	// Monitor is the monitor index for ActionOpenOn.
	Monitor int
	// IsActive highlights the row where the backend supports it.
	IsActive bool
}

// runFunc runs command with stdin and returns its stdout.
type runFunc func(command string, args []string, stdin string) (string, error)

// Backend is a dmenu-style launcher.
type Backend struct {
	command string
	kind    backendKind
	run     runFunc
}

// AutoDetect selects the first available backend in priority order.
func AutoDetect() (*Backend, error) {
	name, err := DetectBackend()
	if err != nil {
		return nil, err
	}
	return NewBackend(name)
}

// NewBackend creates a backend by name.
//
// Supported names: auto, rofi, fuzzel, wofi, dmenu.
func NewBackend(name string) (*Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return AutoDetect()
	}

	kind, ok := map[string]backendKind{
		"rofi":   kindRofi,
		"fuzzel": kindFuzzel,
		"wofi":   kindWofi,
		"dmenu":  kindDmenu,
	}[name]
	if !ok {
		return nil, fmt.Errorf("unknown palette backend: %q (expected: auto, rofi, fuzzel, wofi, dmenu)", name)
	}
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("palette backend %q not found in PATH", name)
	}
	return &Backend{command: name, kind: kind, run: execRun}, nil
}

// Command returns the launcher executable name.
func (b *Backend) Command() string {
	return b.command
}

// indexOutput reports whether the launcher prints the selected row index
// rather than its text.
func (b *Backend) indexOutput() bool {
	return b.kind == kindRofi || b.kind == kindFuzzel
}

// Show displays items and returns the one selected.
func (b *Backend) Show(prompt string, items []Item) (Item, error) {
	if len(items) == 0 {
		return Item{}, fmt.Errorf("palette: no items to show")
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = sanitizeLabel(item.Label)
	}

	out, err := b.run(b.command, b.buildArgs(prompt, items), strings.Join(lines, "\n")+"\n")
	selection := strings.TrimSpace(out)
	if err != nil {
		if selection == "" && isCancelExit(err) {
			return Item{}, ErrCancelled
		}
		return Item{}, err
	}
	if selection == "" {
		return Item{}, ErrCancelled
	}
	return b.parseSelection(selection, lines, items)
}

func (b *Backend) buildArgs(prompt string, items []Item) []string {
	var args []string

	switch b.kind {
	case kindRofi:
		args = []string{"-dmenu", "-i", "-format", "i", "-no-custom"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
		var active []string
		for i, item := range items {
			if item.IsActive {
				active = append(active, strconv.Itoa(i))
			}
		}
		if len(active) > 0 {
			args = append(args, "-a", strings.Join(active, ","))
		}

	case kindFuzzel:
		args = []string{"--dmenu", "--index"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}

	case kindWofi:
		args = []string{"--dmenu"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}

	case kindDmenu:
		args = []string{"-i"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
	}
	return args
}

func (b *Backend) parseSelection(selection string, lines []string, items []Item) (Item, error) {
	if b.indexOutput() {
		i, err := strconv.Atoi(selection)
		if err != nil || i < 0 || i >= len(items) {
			return Item{}, fmt.Errorf("%s returned invalid selection %q", b.command, selection)
		}
		return items[i], nil
	}
	for i, line := range lines {
		if line == selection {
			return items[i], nil
		}
	}
	return Item{}, fmt.Errorf("%s returned unknown selection %q", b.command, selection)
}

func sanitizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isCancelExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	code := exitErr.ExitCode()
	return code == 1 || code == 130
}

func execRun(command string, args []string, stdin string) (string, error) {
	cmd := exec.Command(command, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && isCancelExit(err) {
			return string(out), err
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return string(out), fmt.Errorf("%s failed: %s", command, msg)
		}
		return string(out), fmt.Errorf("%s failed: %w", command, err)
	}
	return string(out), nil
}
