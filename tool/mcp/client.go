package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mkarasev/daytrip/pkg/logging"
)

// ErrClientClosed is returned when the MCP client has been closed.
var ErrClientClosed = errors.New("mcp client closed")

// Config describes how to connect to an MCP server. Exactly one of Endpoint
// or Command must be set: Endpoint selects the streamable HTTP transport,
// Command the stdio transport.
type Config struct {
	Endpoint string
	Command  string
	Args     []string
	Env      []string
}

// Client wraps the official MCP Go SDK client and session.
type Client struct {
	sdkClient *sdkmcp.Client
	session   *sdkmcp.ClientSession

	closeOnce sync.Once
	closeErr  error
}

// Connect establishes a session with the MCP server described by cfg and
// performs the initialization handshake.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	client := &Client{}
	impl := &sdkmcp.Implementation{Name: "daytrip", Version: "0.1.0"}
	client.sdkClient = sdkmcp.NewClient(impl, nil)

	var transport sdkmcp.Transport
	switch {
	case strings.TrimSpace(cfg.Endpoint) != "":
		transport = &sdkmcp.StreamableClientTransport{Endpoint: cfg.Endpoint}
	case strings.TrimSpace(cfg.Command) != "":
		cmd := exec.Command(cfg.Command, cfg.Args...)
		if len(cfg.Env) > 0 {
			cmd.Env = append(os.Environ(), cfg.Env...)
		}
		transport = &sdkmcp.CommandTransport{Command: cmd}
	default:
		return nil, errors.New("mcp: either endpoint or command is required")
	}

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session

	logging.WithComponent("mcp").Debug("connected to mcp server")
	return client, nil
}

// Close terminates the MCP client and underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
	})
	return c.closeErr
}

// ListAllTools returns the full set of tools exposed by the MCP server,
// following pagination cursors until exhausted.
func (c *Client) ListAllTools(ctx context.Context) ([]*sdkmcp.Tool, error) {
	if c.session == nil {
		return nil, ErrClientClosed
	}

	var (
		cursor string
		tools  []*sdkmcp.Tool
	)
	for {
		params := &sdkmcp.ListToolsParams{}
		if cursor != "" {
			params.Cursor = cursor
		}
		res, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return tools, nil
}

// CallTool invokes a remote MCP tool and returns the textual response.
// Server-reported tool errors come back as data, matching the in-band error
// contract local tools follow.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", ErrClientClosed
	}

	result, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	text := normalizeContent(result.Content)
	if result.IsError {
		if text == "" {
			text = "tool returned error without message"
		}
		return fmt.Sprintf(`{"success":false,"error":%q}`, text), nil
	}
	return text, nil
}

func normalizeContent(content []sdkmcp.Content) string {
	if len(content) == 0 {
		return ""
	}
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdkmcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := c.MarshalJSON(); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
