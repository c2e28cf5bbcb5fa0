// internal/common/http/body.go
package http

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"research-assistant/internal/normalizer"
)

// noiseSelectors are removed from HTML replies before conversion.
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "footer", "header",
	"iframe", "svg", "canvas",
	"form", "button", "input", "select", "textarea",
}

// DecodeBody turns a webhook reply into the value the normalizer sees.
// HTML becomes a markdown string, any body that parses as JSON is decoded
// with member order kept, and everything else is the raw text.
func DecodeBody(resp *Response) normalizer.Value {
	if resp == nil {
		return normalizer.Undefined()
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		if md, err := HTMLToMarkdown(string(resp.Body)); err == nil {
			return normalizer.String(md)
		}
		return normalizer.String(string(resp.Body))
	}

	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) == 0 {
		return normalizer.String("")
	}
	if v, err := normalizer.Decode(trimmed); err == nil {
		return v
	}
	return normalizer.String(string(resp.Body))
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// HTMLToMarkdown keeps the main content of an HTML document as markdown.
func HTMLToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	content := doc.Selection
	for _, tag := range []string{"main", "article", "body"} {
		if sel := doc.Find(tag); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
