package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/richinex/govsummary/mcp"
)

const (
	// PostTool is the ssky MCP tool that creates a post.
	PostTool = "ssky_post"

	// DefaultSskyImage is the container image of the ssky MCP server.
	DefaultSskyImage = "ghcr.io/simpleskyclient/ssky-mcp"
)

// ErrMissingUser is returned when no ssky credentials are configured.
var ErrMissingUser = errors.New("SSKY_USER is not set (format: handle:app-password)")

// ToolSession is the part of an MCP session the publisher needs.
type ToolSession interface {
	ListTools(ctx context.Context) ([]mcp.ToolInfo, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (string, error)
	Close() error
}

// Connector opens a session to the ssky MCP server.
type Connector func(ctx context.Context) (ToolSession, error)

// SskyServer returns the docker invocation of the ssky MCP server.
func SskyServer(user, image string) mcp.ServerConfig {
	if image == "" {
		image = DefaultSskyImage
	}
	return mcp.ServerConfig{
		Command: "docker",
		Args:    []string{"run", "-i", "--rm", "-e", "SSKY_USER=" + user, image},
	}
}

// BlueskyPublisher posts through the ssky MCP server.
type BlueskyPublisher struct {
	user    string
	connect Connector
	logger  *slog.Logger
}

// NewBlueskyPublisher creates a publisher that starts server for every post.
func NewBlueskyPublisher(user string, server mcp.ServerConfig) *BlueskyPublisher {
	return &BlueskyPublisher{
		user: user,
		connect: func(ctx context.Context) (ToolSession, error) {
			return server.Connect(ctx)
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithConnector replaces how sessions are opened.
func (p *BlueskyPublisher) WithConnector(connect Connector) *BlueskyPublisher {
	p.connect = connect
	return p
}

// WithLogger sets the logger.
func (p *BlueskyPublisher) WithLogger(logger *slog.Logger) *BlueskyPublisher {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Name returns "bluesky".
func (p *BlueskyPublisher) Name() string { return "bluesky" }

// Publish posts the message. A reply mentioning an error or a failure
// counts as a failed post.
func (p *BlueskyPublisher) Publish(ctx context.Context, text, source string) Result {
	if p.user == "" {
		return failed(p.Name(), ErrMissingUser)
	}
	message := Message(text, source)

	session, err := p.connect(ctx)
	if err != nil {
		return failed(p.Name(), fmt.Errorf("failed to connect to ssky: %w", err))
	}
	defer session.Close()

	tools, err := session.ListTools(ctx)
	if err != nil {
		return failed(p.Name(), err)
	}
	if !hasTool(tools, PostTool) {
		return failed(p.Name(), fmt.Errorf("%s tool not found", PostTool))
	}

	p.logger.Info("posting to bluesky", "chars", len([]rune(message)))
	reply, err := session.CallTool(ctx, PostTool, map[string]any{
		"message":       message,
		"dry_run":       false,
		"output_format": "text",
	})
	if err != nil {
		return failed(p.Name(), err)
	}

	lower := strings.ToLower(reply)
	if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
		return failed(p.Name(), errors.New(reply))
	}
	return Result{Success: true, Response: reply}
}

func hasTool(tools []mcp.ToolInfo, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

var _ Publisher = (*BlueskyPublisher)(nil)
