package loader

import (
	"context"
	"strings"
)

// Documents is the default Loader. It fetches a reference once and decides
// by content whether it is a PDF or an HTML page.
type Documents struct {
	fetcher *Fetcher
}

// NewDocuments creates a loader backed by fetcher.
func NewDocuments(fetcher *Fetcher) *Documents {
	return &Documents{fetcher: fetcher}
}

// LoadPages returns one entry per PDF page, or a single entry holding the
// markdown of an HTML page.
func (d *Documents) LoadPages(ctx context.Context, ref string) ([]string, error) {
	body, err := d.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	if IsPDF(body) {
		pages, err := PDFPages(body)
		if err != nil {
			return nil, loadErr(ref, err)
		}
		return pages, nil
	}

	text, err := HTMLToMarkdown(body, ref)
	if err != nil {
		return nil, loadErr(ref, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, loadErr(ref, errNoText)
	}
	return []string{text}, nil
}

// LoadText returns the whole document as one text, pages separated by a
// blank line.
func (d *Documents) LoadText(ctx context.Context, ref string) (string, error) {
	pages, err := d.LoadPages(ctx, ref)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\n"), nil
}

// Links returns the anchors of an HTML page.
func (d *Documents) Links(ctx context.Context, ref string) ([]Link, error) {
	body, err := d.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	links, err := ExtractLinks(body, ref)
	if err != nil {
		return nil, loadErr(ref, err)
	}
	return links, nil
}
