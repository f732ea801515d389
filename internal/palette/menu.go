package palette

import (
	"errors"
	"fmt"
)

// Menu actions.
const (
	ActionOpenOn      = "open-on"
	ActionOpenDefault = "open-default"
	ActionClose       = "close"
)

// Client is the daemon surface the palette drives. *ipc.Client satisfies it.
type Client interface {
	GetMonitors() ([]string, error)
	OpenProjector(index *int) error
	CloseProjector() error
}

// MonitorMenu builds one row per monitor label followed by the default
// placement and close rows.
func MonitorMenu(labels []string, projectorOpen bool) []Item {
	items := make([]Item, 0, len(labels)+2)
	for i, label := range labels {
		items = append(items, Item{Label: label, Action: ActionOpenOn, Monitor: i})
	}
	items = append(items, Item{Label: "Open with default placement", Action: ActionOpenDefault})
	items = append(items, Item{Label: "Close projector", Action: ActionClose, IsActive: projectorOpen})
	return items
}

// Run shows the monitor menu and applies the selection. A cancelled menu
// is not an error.
func Run(client Client, backend *Backend, projectorOpen bool) error {
	labels, err := client.GetMonitors()
	if err != nil {
		return err
	}

	item, err := backend.Show("Projector", MonitorMenu(labels, projectorOpen))
	if errors.Is(err, ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}
	return apply(client, item)
}

func apply(client Client, item Item) error {
	switch item.Action {
	case ActionOpenOn:
		index := item.Monitor
		return client.OpenProjector(&index)
	case ActionOpenDefault:
		return client.OpenProjector(nil)
	case ActionClose:
		return client.CloseProjector()
	default:
		return fmt.Errorf("unknown palette action %q", item.Action)
	}
}
