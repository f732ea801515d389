// Package hotkeys binds global key sequences to projector and presentation
// control actions.
package hotkeys

import (
	"log/slog"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/remote"
)

// Projector is the subset of the command service hotkeys drive.
type Projector interface {
	OpenProjector(index *int) error
	CloseProjector() error
}

// Emitter publishes a named event to a window label.
type Emitter interface {
	Emit(label, name string, payload any) (int, error)
}

// Actions returns a callback for every bindable action. Control actions
// reach the control window as the same events a remote would send.
func Actions(p Projector, emitter Emitter, logger *slog.Logger) map[string]func() {
	if logger == nil {
		logger = slog.Default()
	}

	actions := map[string]func(){
		config.HotkeyCloseProjector: func() {
			if err := p.CloseProjector(); err != nil {
				logger.Warn("hotkey close failed", "error", err)
			}
		},
		config.HotkeyOpenProjector: func() {
			if err := p.OpenProjector(nil); err != nil {
				logger.Warn("hotkey open failed", "error", err)
			}
		},
	}
	for action, command := range config.HotkeyControlActions {
		event := remote.EventName(command)
		actions[action] = func() {
			if _, err := emitter.Emit(config.MainLabel, event, nil); err != nil {
				logger.Warn("hotkey event dropped", "event", event, "error", err)
			}
		}
	}
	return actions
}
