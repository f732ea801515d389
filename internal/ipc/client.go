package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/presenter/internal/app"
	"github.com/1broseidon/presenter/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath   string
	timeout      time.Duration
	fetchTimeout time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the daemon listening on socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath:   socketPath,
		timeout:      5 * time.Second,
		fetchTimeout: 60 * time.Second,
	}
}

func (c *Client) sendRequest(req *Request) (*Response, error) {
	return c.sendRequestTimeout(req, c.timeout)
}

// sendRequestTimeout sends a request and waits up to timeout for the response
func (c *Client) sendRequestTimeout(req *Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

func (c *Client) simple(cmd CommandType, payload any) (*Response, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return c.sendRequest(req)
}

// Ping checks that the daemon is reachable.
func (c *Client) Ping() error {
	_, err := c.simple(CommandPing, nil)
	return err
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	_, err := c.simple(CommandReload, nil)
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*app.Status, error) {
	resp, err := c.simple(CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}

	var status app.Status
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

// GetMonitors returns the monitor labels shown to the operator.
func (c *Client) GetMonitors() ([]string, error) {
	resp, err := c.simple(CommandGetMonitors, nil)
	if err != nil {
		return nil, err
	}

	var labels []string
	if err := json.Unmarshal(resp.Data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse monitors data: %w", err)
	}
	return labels, nil
}

// ListMonitors retrieves monitor geometry along with labels.
func (c *Client) ListMonitors() (*MonitorsData, error) {
	resp, err := c.simple(CommandListMonitors, nil)
	if err != nil {
		return nil, err
	}

	var monitors MonitorsData
	if err := json.Unmarshal(resp.Data, &monitors); err != nil {
		return nil, fmt.Errorf("failed to parse monitors data: %w", err)
	}
	return &monitors, nil
}

// OpenProjector opens the projector window, on monitor index when non-nil.
func (c *Client) OpenProjector(index *int) error {
	_, err := c.simple(CommandOpenProjector, app.OpenArgs{MonitorIndex: index})
	return err
}

// CloseProjector closes the projector window if open.
func (c *Client) CloseProjector() error {
	_, err := c.simple(CommandCloseProjector, nil)
	return err
}

// UpdateProjector relays a slide payload to the projector view.
func (c *Client) UpdateProjector(payload string) error {
	_, err := c.simple(CommandUpdate, app.UpdateArgs{SlideData: &payload})
	return err
}

// FetchContent has the daemon fetch url with its active header profile.
func (c *Client) FetchContent(url string) (string, error) {
	payload, err := json.Marshal(app.FetchArgs{URL: &url})
	if err != nil {
		return "", fmt.Errorf("failed to marshal fetch payload: %w", err)
	}
	resp, err := c.sendRequestTimeout(&Request{Command: CommandFetchContent, Payload: payload}, c.fetchTimeout)
	if err != nil {
		return "", err
	}

	var body string
	if err := json.Unmarshal(resp.Data, &body); err != nil {
		return "", fmt.Errorf("failed to parse fetch result: %w", err)
	}
	return body, nil
}

// BroadcastState publishes presentation state to remote controllers.
func (c *Client) BroadcastState(state json.RawMessage) error {
	_, err := c.simple(CommandBroadcastState, app.BroadcastArgs{State: state})
	return err
}
