package loader

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// HTMLToMarkdown reduces an HTML page to its main content as markdown.
// When readability finds no article the whole body is converted instead.
func HTMLToMarkdown(body []byte, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}

	content := string(body)
	title := ""
	parser := readability.NewParser()
	if article, err := parser.Parse(bytes.NewReader(body), base); err == nil && strings.TrimSpace(article.Content) != "" {
		content = article.Content
		title = strings.TrimSpace(article.Title)
	}

	domain := ""
	if base.Host != "" {
		domain = base.Scheme + "://" + base.Host
	}
	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(content)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)

	if title != "" && !strings.Contains(markdown, title) {
		markdown = "# " + title + "\n\n" + markdown
	}
	return markdown, nil
}

// ExtractLinks returns every followable anchor in the page, resolved against
// pageURL, deduplicated in document order.
func ExtractLinks(body []byte, pageURL string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	seen := make(map[string]bool)
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		switch resolved.Scheme {
		case "http", "https", "file", "":
		default:
			return
		}
		resolved.Fragment = ""
		abs := resolved.String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, Link{
			URL:  abs,
			Text: strings.Join(strings.Fields(s.Text()), " "),
		})
	})
	return links, nil
}
