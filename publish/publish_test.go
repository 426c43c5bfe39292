package publish

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/richinex/govsummary/mcp"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"https://www.example.go.jp/council/index.html", "summary\nhttps://www.example.go.jp/council/index.html"},
		{"http://example.go.jp/a.pdf", "summary\nhttp://example.go.jp/a.pdf"},
		{"/home/user/report.pdf", "summary"},
		{"file:///tmp/report.pdf", "summary"},
		{"", "summary"},
	}
	for _, tt := range tests {
		if got := Message("summary", tt.source); got != tt.want {
			t.Errorf("Message(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestStdoutPublisher(t *testing.T) {
	var buf bytes.Buffer
	result := NewStdoutPublisher(&buf).Publish(context.Background(), "要約", "https://example.go.jp/")
	if !result.Success || result.Err != nil {
		t.Fatalf("expected success, got %+v", result)
	}
	if buf.String() != "要約\nhttps://example.go.jp/\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestSskyServer(t *testing.T) {
	server := SskyServer("me.bsky.social:pw", "")
	want := []string{"run", "-i", "--rm", "-e", "SSKY_USER=me.bsky.social:pw", DefaultSskyImage}
	if server.Command != "docker" {
		t.Errorf("expected docker, got %s", server.Command)
	}
	if diff := cmp.Diff(want, server.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

type postInput struct {
	Message      string `json:"message"`
	DryRun       bool   `json:"dry_run"`
	OutputFormat string `json:"output_format"`
}

// fakeSsky is an in-memory ssky MCP server recording posts.
type fakeSsky struct {
	mu    sync.Mutex
	posts []postInput
	reply string
}

func (f *fakeSsky) connector(t *testing.T, withTool bool) Connector {
	return func(ctx context.Context) (ToolSession, error) {
		server := gomcp.NewServer(&gomcp.Implementation{Name: "ssky", Version: "v0.0.1"}, nil)
		if withTool {
			gomcp.AddTool(server, &gomcp.Tool{Name: PostTool, Description: "Post to Bluesky."},
				func(_ context.Context, _ *gomcp.CallToolRequest, in postInput) (*gomcp.CallToolResult, any, error) {
					f.mu.Lock()
					f.posts = append(f.posts, in)
					f.mu.Unlock()
					return &gomcp.CallToolResult{Content: []gomcp.Content{&gomcp.TextContent{Text: f.reply}}}, nil, nil
				})
		} else {
			gomcp.AddTool(server, &gomcp.Tool{Name: "ssky_get"},
				func(_ context.Context, _ *gomcp.CallToolRequest, _ postInput) (*gomcp.CallToolResult, any, error) {
					return &gomcp.CallToolResult{}, nil, nil
				})
		}
		serverTransport, clientTransport := gomcp.NewInMemoryTransports()
		go func() {
			_ = server.Run(context.Background(), serverTransport)
		}()
		return mcp.Connect(ctx, clientTransport)
	}
}

func TestBlueskyPublish(t *testing.T) {
	ssky := &fakeSsky{reply: "at://did:plc:abc/app.bsky.feed.post/3k"}
	p := NewBlueskyPublisher("me:pw", SskyServer("me:pw", "")).WithConnector(ssky.connector(t, true))

	result := p.Publish(context.Background(), "会議の要約", "https://www.example.go.jp/dai5/")
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if result.Response != ssky.reply {
		t.Errorf("expected tool reply as response, got %q", result.Response)
	}

	want := []postInput{{Message: "会議の要約\nhttps://www.example.go.jp/dai5/", DryRun: false, OutputFormat: "text"}}
	if diff := cmp.Diff(want, ssky.posts); diff != "" {
		t.Errorf("posts mismatch (-want +got):\n%s", diff)
	}
}

func TestBlueskyPublishFailures(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		reply    string
		withTool bool
		connErr  error
		want     string
	}{
		{name: "missing user", user: "", withTool: true, want: "SSKY_USER"},
		{name: "tool missing", user: "me:pw", withTool: false, want: "ssky_post tool not found"},
		{name: "error reply", user: "me:pw", reply: "Error: invalid credentials", withTool: true, want: "invalid credentials"},
		{name: "connect failure", user: "me:pw", connErr: errors.New("docker not found"), want: "docker not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ssky := &fakeSsky{reply: tt.reply}
			connect := ssky.connector(t, tt.withTool)
			if tt.connErr != nil {
				connect = func(context.Context) (ToolSession, error) { return nil, tt.connErr }
			}
			p := NewBlueskyPublisher(tt.user, SskyServer(tt.user, "")).WithConnector(connect)

			result := p.Publish(context.Background(), "text", "/local/file.pdf")
			if result.Success {
				t.Fatal("expected failure")
			}
			var pubErr *PublishError
			if !errors.As(result.Err, &pubErr) || pubErr.Publisher != "bluesky" {
				t.Fatalf("expected PublishError, got %v", result.Err)
			}
			if !strings.Contains(result.Err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, result.Err.Error())
			}
		})
	}
}

func TestBlueskyMissingUserIsErrMissingUser(t *testing.T) {
	result := NewBlueskyPublisher("", SskyServer("", "")).Publish(context.Background(), "text", "")
	if !errors.Is(result.Err, ErrMissingUser) {
		t.Errorf("expected ErrMissingUser, got %v", result.Err)
	}
}
