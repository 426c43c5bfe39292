// Package publish delivers finished summaries.
//
// Information Hiding:
// - Message formatting per destination
// - MCP session lifecycle for posting
// - Classification of tool replies into success or failure
package publish

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Result is the outcome of one publish attempt. Err is set iff Success is
// false.
type Result struct {
	Success  bool
	Response string
	Err      error
}

// Publisher delivers text taken from source. A failure is reported in the
// Result and never panics or aborts the caller.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, text, source string) Result
}

// PublishError describes a failed publish.
type PublishError struct {
	Publisher string
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Publisher, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

func failed(publisher string, err error) Result {
	return Result{Err: &PublishError{Publisher: publisher, Err: err}}
}

// Message joins the summary and the source. The source is appended only
// when it is a web URL.
func Message(text, source string) string {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return text + "\n" + source
	}
	return text
}

// StdoutPublisher writes the message to a writer. It is used for dry runs.
type StdoutPublisher struct {
	w io.Writer
}

// NewStdoutPublisher creates a publisher writing to w.
func NewStdoutPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

// Name returns "stdout".
func (p *StdoutPublisher) Name() string { return "stdout" }

// Publish writes the message followed by a newline.
func (p *StdoutPublisher) Publish(ctx context.Context, text, source string) Result {
	if err := ctx.Err(); err != nil {
		return failed(p.Name(), err)
	}
	message := Message(text, source)
	if _, err := fmt.Fprintln(p.w, message); err != nil {
		return failed(p.Name(), err)
	}
	return Result{Success: true, Response: fmt.Sprintf("wrote %d characters", len([]rune(message)))}
}

var _ Publisher = (*StdoutPublisher)(nil)
