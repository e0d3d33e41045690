package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests root-wide monitoring.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Lookout.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests an end to root-wide monitoring.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Lookout.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves daemon runtime information.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Lookout.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProjectStart requests monitoring for one project.
func (c *Client) ProjectStart(projectPath string) (*ProjectStartResponse, error) {
	var resp ProjectStartResponse
	req := ProjectStartRequest{ProjectPath: projectPath}
	if err := c.client.Call("Lookout.ProjectStart", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProjectStop ends monitoring for one project.
func (c *Client) ProjectStop(projectPath string) (*ProjectStopResponse, error) {
	var resp ProjectStopResponse
	req := ProjectStopRequest{ProjectPath: projectPath}
	if err := c.client.Call("Lookout.ProjectStop", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProjectList returns all monitored projects.
func (c *Client) ProjectList() (*ProjectListResponse, error) {
	var resp ProjectListResponse
	if err := c.client.Call("Lookout.ProjectList", ProjectListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionList returns the sessions of one project.
func (c *Client) SessionList(projectPath string) (*SessionListResponse, error) {
	var resp SessionListResponse
	req := SessionListRequest{ProjectPath: projectPath}
	if err := c.client.Call("Lookout.SessionList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionContext returns the recent lines of one session.
func (c *Client) SessionContext(projectPath, sessionID string) (*SessionContextResponse, error) {
	var resp SessionContextResponse
	req := SessionContextRequest{ProjectPath: projectPath, SessionID: sessionID}
	if err := c.client.Call("Lookout.SessionContext", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats retrieves throughput counters.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.client.Call("Lookout.Stats", StatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsReset zeroes the throughput counters.
func (c *Client) StatsReset() (*StatsResetResponse, error) {
	var resp StatsResetResponse
	if err := c.client.Call("Lookout.StatsReset", StatsResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns daemon log lines from an offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Lookout.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Lookout.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
