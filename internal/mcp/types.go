package mcp

import "github.com/1broseidon/presenter/internal/app"

// EmptyInput is the input for tools that take no arguments.
type EmptyInput struct{}

// MonitorsOutput is the output for the get_available_monitors tool.
type MonitorsOutput struct {
	Monitors []string `json:"monitors" jsonschema:"One label per monitor in enumeration order, e.g. Monitor 1 - 1920x1080"`
}

// OpenProjectorInput is the input for the open_projector_window tool.
type OpenProjectorInput struct {
	MonitorIndex *int `json:"monitor_index,omitempty" jsonschema:"Zero-based monitor index from get_available_monitors. Omit to let the window manager place the window."`
}

// UpdateProjectorInput is the input for the update_projector tool.
type UpdateProjectorInput struct {
	SlideData string `json:"slide_data" jsonschema:"Opaque slide payload forwarded unchanged to the projector view"`
}

// FetchContentInput is the input for the fetch_canva_content tool.
type FetchContentInput struct {
	URL string `json:"url" jsonschema:"Absolute http or https URL to fetch"`
}

// FetchContentOutput is the output for the fetch_canva_content tool.
type FetchContentOutput struct {
	Body string `json:"body"`
}

// StatusOutput is the output for the get_status tool.
type StatusOutput = app.Status
