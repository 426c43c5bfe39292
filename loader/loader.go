// Package loader turns document references into text.
//
// A reference is an http(s) URL, a file:// URL or a local path. HTML is
// reduced to its main content as markdown; PDF is split into per-page text.
package loader

import (
	"context"
	"fmt"
)

// PageLoader loads a document as a list of page texts.
type PageLoader interface {
	LoadPages(ctx context.Context, ref string) ([]string, error)
}

// TextLoader loads a document as one text.
type TextLoader interface {
	LoadText(ctx context.Context, ref string) (string, error)
}

// Loader loads documents either way.
type Loader interface {
	PageLoader
	TextLoader
}

// LinkLoader enumerates the hyperlinks of an HTML page.
type LinkLoader interface {
	Links(ctx context.Context, ref string) ([]Link, error)
}

// Link is an anchor found on a page, with its URL resolved against the page.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// LoadError reports a reference that could not be fetched or parsed.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadErr(ref string, err error) error {
	if _, ok := err.(*LoadError); ok {
		return err
	}
	return &LoadError{Ref: ref, Err: err}
}
