package strategy

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripTags flattens an HTML fragment to its text content. Returns the
// input unchanged when it does not parse.
func stripTags(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(doc.Text())
}

// cleanPageText extracts readable text from a full page, with script, style,
// and chrome elements removed. Used to prepare LLM extraction input.
func cleanPageText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, noscript, svg").Remove()

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return strings.TrimSpace(doc.Text())
	}

	text := body.Text()
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}

// hostOf extracts the hostname from a URL, or returns the input when it
// does not parse. Used as a rate-limit bucket key.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

// absoluteURL resolves href against the page URL. Already-absolute links
// pass through.
func absoluteURL(pageURL, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
