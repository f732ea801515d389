package projector

import (
	"fmt"

	"github.com/1broseidon/presenter/internal/platform"
)

// Labels formats one human-readable line per monitor, numbered from 1 in
// enumeration order.
func Labels(monitors []platform.Monitor) []string {
	labels := make([]string, 0, len(monitors))
	for i, m := range monitors {
		labels = append(labels, fmt.Sprintf("Monitor %d - %dx%d", i+1, m.Bounds.Width, m.Bounds.Height))
	}
	return labels
}
