package ipc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload         CommandType = "RELOAD"
	CommandPing           CommandType = "PING"
	CommandGetStatus      CommandType = "GET_STATUS"
	CommandListMonitors   CommandType = "LIST_MONITORS"
	CommandGetMonitors    CommandType = "GET_AVAILABLE_MONITORS"
	CommandOpenProjector  CommandType = "OPEN_PROJECTOR_WINDOW"
	CommandCloseProjector CommandType = "CLOSE_PROJECTOR_WINDOW"
	CommandUpdate         CommandType = "UPDATE_PROJECTOR"
	CommandFetchContent   CommandType = "FETCH_CANVA_CONTENT"
	CommandBroadcastState CommandType = "BROADCAST_STATE"
)

// AppCommand returns the front-end command name an IPC command maps onto.
func (c CommandType) AppCommand() string {
	return strings.ToLower(string(c))
}

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Label  string `json:"label"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MonitorsData represents the data returned by LIST_MONITORS
type MonitorsData struct {
	Monitors []MonitorInfo `json:"monitors"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
