// Package runtimepath locates the per-user runtime directory holding the
// daemon's IPC socket.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SocketEnv overrides the socket location entirely.
	SocketEnv = "PRESENTER_SOCKET"

	socketName = "presenter.sock"
)

// Dir returns the first usable runtime directory:
// $XDG_RUNTIME_DIR, then /run/user/<uid>, then /tmp/presenter-runtime-<uid>
// (created with mode 0700).
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return dir, nil
	}

	uid := os.Getuid()
	if dir := fmt.Sprintf("/run/user/%d", uid); isDir(dir) {
		return dir, nil
	}

	fallback := filepath.Join(os.TempDir(), fmt.Sprintf("presenter-runtime-%d", uid))
	if err := os.MkdirAll(fallback, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return fallback, nil
}

// SocketPath returns $PRESENTER_SOCKET when set, otherwise presenter.sock
// inside Dir.
func SocketPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(SocketEnv)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, socketName), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
