package palette

import (
	"fmt"
	"os/exec"
	"strings"
)

// detectOrder is the launcher priority used by AutoDetect.
var detectOrder = []string{"rofi", "fuzzel", "wofi", "dmenu"}

// DetectBackend returns the first launcher found in PATH.
func DetectBackend() (string, error) {
	for _, name := range detectOrder {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no palette backend found in PATH (looked for: %s)", strings.Join(detectOrder, ", "))
}
