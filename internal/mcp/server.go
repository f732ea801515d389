// Package mcp exposes the presenter daemon as MCP tools over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/presenter/internal/app"
)

const (
	ServerName    = "presenter"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools call. *ipc.Client
// satisfies it.
type Daemon interface {
	GetMonitors() ([]string, error)
	OpenProjector(index *int) error
	CloseProjector() error
	UpdateProjector(payload string) error
	FetchContent(url string) (string, error)
	GetStatus() (*app.Status, error)
}

// Server is the MCP server for presenter.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates an MCP server forwarding to daemon.
func NewServer(daemon Daemon) *Server {
	s := &Server{
		mcpServer: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
		daemon: daemon,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        app.CmdGetAvailableMonitors,
		Description: "List attached monitors as human-readable labels. The position in the list is the monitor index accepted by open_projector_window.",
	}, s.handleGetMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        app.CmdOpenProjector,
		Description: "Open the borderless projector window and show it full-size on the given monitor. If the window is already open it is moved to that monitor. An omitted or out-of-range index leaves placement to the window manager.",
	}, s.handleOpenProjector)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        app.CmdCloseProjector,
		Description: "Close the projector window. Succeeds when no window is open.",
	}, s.handleCloseProjector)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        app.CmdUpdateProjector,
		Description: "Send a slide payload to the projector view. Dropped with a warning when the projector window is not open.",
	}, s.handleUpdateProjector)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        app.CmdFetchCanvaContent,
		Description: "Fetch a URL with the daemon's browser header profile and return the response body as text, whatever the HTTP status.",
	}, s.handleFetchContent)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        app.CmdGetStatus,
		Description: "Report daemon status: projector state, monitor count, fetch profile and remote clients.",
	}, s.handleGetStatus)
}
