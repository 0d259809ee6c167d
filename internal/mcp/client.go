package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"maestro/internal/logging"
)

// protocolVersion is the MCP revision this client speaks.
const protocolVersion = "2024-11-05"

const callTimeout = 30 * time.Second

// ServerConfig describes one MCP server process.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     []string
}

// ToolSchema is an MCP tool definition as listed by the server.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Client talks to one MCP server over its stdin/stdout.
type Client struct {
	config  ServerConfig
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	ids     idGenerator
	pending map[int64]chan *response
	mu      sync.Mutex
	writeMu sync.Mutex
	logger  logging.Logger
	closed  chan struct{}
}

// Connect launches the server process and performs the initialize
// handshake.
func Connect(ctx context.Context, config ServerConfig) (*Client, error) {
	cmd := exec.Command(config.Command, config.Args...)
	if len(config.Env) > 0 {
		cmd.Env = config.Env
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp %s: stdin pipe: %w", config.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp %s: stdout pipe: %w", config.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp %s: start: %w", config.Name, err)
	}

	c := &Client{
		config:  config,
		cmd:     cmd,
		stdin:   stdin,
		pending: make(map[int64]chan *response),
		logger:  logging.NewComponentLogger("mcp-" + config.Name),
		closed:  make(chan struct{}),
	}
	go c.readLoop(stdout)

	if _, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      map[string]any{"name": "maestro", "version": "1.0"},
		"capabilities":    map[string]any{},
	}); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("mcp %s: initialize: %w", config.Name, err)
	}
	c.notify("notifications/initialized", nil)
	return c, nil
}

// readLoop dispatches responses to their pending callers. Notifications
// from the server are logged and dropped.
func (c *Client) readLoop(stdout io.Reader) {
	defer close(c.closed)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil || resp.ID == 0 {
			c.logger.Debug("dropping non-response line from server")
			continue
		}
		c.mu.Lock()
		waiter, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			waiter <- &resp
		}
	}
}

func (c *Client) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.stdin.Write(append(data, '\n'))
	return err
}

func (c *Client) notify(method string, params map[string]any) {
	if err := c.send(&request{JSONRPC: jsonRPCVersion, Method: method, Params: params}); err != nil {
		c.logger.Debug("notify %s failed: %v", method, err)
	}
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	reqID := c.ids.next()
	waiter := make(chan *response, 1)
	c.mu.Lock()
	c.pending[reqID] = waiter
	c.mu.Unlock()

	if err := c.send(newRequest(reqID, method, params)); err != nil {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return nil, err
	}

	timer := time.NewTimer(callTimeout)
	defer timer.Stop()
	select {
	case resp := <-waiter:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("mcp %s: %s timed out", c.config.Name, method)
	case <-c.closed:
		return nil, fmt.Errorf("mcp %s: server closed the connection", c.config.Name)
	}
}

// ListTools returns the tools the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]ToolSchema, error) {
	result, err := c.call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Tools []ToolSchema `json:"tools"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("decode tools/list: %w", err)
	}
	return payload.Tools, nil
}

// CallTool invokes one tool and flattens its text content.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", err
	}
	var payload struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return "", fmt.Errorf("decode tools/call: %w", err)
	}
	var text string
	for _, content := range payload.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	if payload.IsError {
		return "", fmt.Errorf("tool %s: %s", name, text)
	}
	return text, nil
}

// Close shuts the server process down.
func (c *Client) Close() error {
	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return c.cmd.Wait()
}
