package subagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/loader"
	"github.com/richinex/govsummary/model"
)

// ParsingErrorSentinel is what the model answers when a page has no usable
// main content.
const ParsingErrorSentinel = "[HTML_PARSING_ERROR]"

// ErrNoMainContent is returned when a meeting page yields no main content.
var ErrNoMainContent = errors.New("no main content")

const (
	taskMainContent   = "## Task: extract the main content"
	taskClassifyLinks = "## Task: classify page links"
	taskEmbedded      = "## Task: extract embedded agenda and minutes"
)

// Discovery is what a meeting page contributes to planning.
type Discovery struct {
	PageURL         string
	MainContent     string
	Documents       []model.DiscoveredDocument
	EmbeddedAgenda  string
	EmbeddedMinutes string
}

type linkVerdict struct {
	Index    int    `json:"index" jsonschema:"description=Number of the link in the list (1-based)"`
	Related  bool   `json:"related" jsonschema:"description=True if the link is a meeting document worth summarizing"`
	Category string `json:"category" jsonschema:"enum=agenda,enum=minutes,enum=executive_summary,enum=material,enum=reference,enum=participants,enum=seating,enum=other"`
	Name     string `json:"name" jsonschema:"description=Document name as shown on the page"`
}

type linkVerdicts struct {
	Links []linkVerdict `json:"links"`
}

type embeddedSections struct {
	Agenda  string `json:"agenda_content" jsonschema:"description=Agenda section in markdown or an empty string"`
	Minutes string `json:"minutes_content" jsonschema:"description=Minutes section in markdown or an empty string"`
}

// Discoverer reads a meeting page and finds its related documents.
type Discoverer struct {
	client *llm.Client
	text   loader.TextLoader
	links  loader.LinkLoader
	logger *slog.Logger
}

// NewDiscoverer creates a discoverer reading pages through text and links.
func NewDiscoverer(client *llm.Client, text loader.TextLoader, links loader.LinkLoader) *Discoverer {
	return &Discoverer{client: client, text: text, links: links, logger: discardLogger()}
}

// WithLogger sets the logger.
func (d *Discoverer) WithLogger(logger *slog.Logger) *Discoverer {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Discover extracts the main content of pageURL, the documents it links to
// and any agenda or minutes written inline. It returns ErrNoMainContent when
// the page has nothing to summarize.
func (d *Discoverer) Discover(ctx context.Context, pageURL string) (Discovery, error) {
	result := Discovery{PageURL: pageURL, Documents: []model.DiscoveredDocument{}}

	markdown, err := d.text.LoadText(ctx, pageURL)
	if err != nil {
		return result, err
	}
	d.logger.Info("page loaded", "url", pageURL, "chars", len([]rune(markdown)))

	mainContent, err := d.client.Generate(ctx, fmt.Sprintf(mainContentPrompt, pageURL, markdown))
	if err != nil {
		return result, fmt.Errorf("failed to extract main content: %w", err)
	}
	mainContent = strings.TrimSpace(mainContent)
	if mainContent == "" || strings.Contains(mainContent, ParsingErrorSentinel) {
		return result, ErrNoMainContent
	}
	result.MainContent = mainContent

	links, err := d.links.Links(ctx, pageURL)
	if err != nil {
		return result, err
	}
	result.Documents, err = d.classify(ctx, pageURL, mainContent, links)
	if err != nil {
		return result, err
	}

	sections, err := llm.GenerateStructured[embeddedSections](ctx, d.client, "embedded_sections", fmt.Sprintf(embeddedPrompt, mainContent), nil)
	if err != nil {
		d.logger.Warn("embedded agenda/minutes extraction failed", "error", err)
	} else {
		result.EmbeddedAgenda = strings.TrimSpace(sections.Agenda)
		result.EmbeddedMinutes = strings.TrimSpace(sections.Minutes)
	}

	d.logger.Info("discovery completed",
		"documents", len(result.Documents),
		"embedded_agenda", result.EmbeddedAgenda != "",
		"embedded_minutes", result.EmbeddedMinutes != "",
	)
	return result, nil
}

// classify asks the model which links are meeting documents. The result
// follows link order.
func (d *Discoverer) classify(ctx context.Context, pageURL, mainContent string, links []loader.Link) ([]model.DiscoveredDocument, error) {
	if len(links) == 0 {
		return []model.DiscoveredDocument{}, nil
	}

	var list strings.Builder
	for i, l := range links {
		fmt.Fprintf(&list, "%d. [%s](%s)\n", i+1, l.Text, l.URL)
	}

	validate := func(v linkVerdicts) error {
		for _, l := range v.Links {
			if l.Index < 1 || l.Index > len(links) {
				return fmt.Errorf("link index %d out of range 1-%d", l.Index, len(links))
			}
		}
		return nil
	}

	prompt := fmt.Sprintf(classifyLinksPrompt, pageURL, mainContent, list.String())
	verdicts, err := llm.GenerateStructured(ctx, d.client, "link_classification", prompt, validate)
	if err != nil {
		return nil, fmt.Errorf("failed to classify links: %w", err)
	}

	related := make(map[int]linkVerdict, len(verdicts.Links))
	for _, v := range verdicts.Links {
		if v.Related {
			related[v.Index-1] = v
		}
	}

	docs := make([]model.DiscoveredDocument, 0, len(related))
	for i, l := range links {
		v, ok := related[i]
		if !ok || l.URL == pageURL {
			continue
		}
		docs = append(docs, model.DiscoveredDocument{
			URL:      l.URL,
			Name:     firstNonEmpty(v.Name, l.Text, titleFromRef(l.URL)),
			Category: model.ParseCategory(v.Category),
		})
	}
	return docs, nil
}

const mainContentPrompt = taskMainContent + `
You extract the main content from the markdown of a government web page.
Remove headers, footers, navigation, breadcrumbs, banners and "back to top"
links. Keep meeting information, reports, agenda items, minutes, decisions,
document lists with their links, dates, places and attendees.

Output the main content as markdown, keeping headings, lists, tables and
links. If the page has no main content, output exactly ` + ParsingErrorSentinel + `.

Page URL: %s

# Markdown
%s`

const classifyLinksPrompt = taskClassifyLinks + `
You decide which links on a government meeting page point to documents that
belong to the meeting: minutes, reports, handouts, reference material,
member lists, summaries of conclusions. Links that are navigation, site maps,
privacy policies, videos or archive services are not related.

For every link give its number, whether it is related, a category and its
document name. Categories:
agenda, minutes, executive_summary, material, reference, participants,
seating, other.

Page URL: %s

# Main content
%s

# Links
%s`

const embeddedPrompt = taskEmbedded + `
You look for an agenda section (議事次第, 議事日程, 議題) and a minutes
section (議事録, 議事要旨, 議事概要) written directly in the page content
below. Copy each section including its heading as markdown. A bare link
("the agenda is here"), a list of handouts, an invitation with only date and
place, a roster or a seating chart does not count. Use an empty string for a
section that is not present.

# Main content
%s`
