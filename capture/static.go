package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/designaudit/design"
)

// maxStaticBody caps the bytes read from a fetched document.
const maxStaticBody = 10 << 20

var skippedTags = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true, "template": true,
}

// StaticConfig configures the HTTP-only capturer.
type StaticConfig struct {
	Client    *http.Client
	UserAgent string
	Logger    *slog.Logger
}

// Static captures pages without a browser. Elements carry inline styles only,
// geometry is zero and there is no screenshot.
type Static struct {
	client *http.Client
	ua     string
	logger *slog.Logger
}

// NewStatic creates a Static capturer.
func NewStatic(cfg StaticConfig) *Static {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "designaudit/1.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Static{client: cfg.Client, ua: cfg.UserAgent, logger: cfg.Logger}
}

// Capture fetches url and snapshots its markup.
func (s *Static) Capture(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", design.ErrCaptureFailed, err)
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", design.ErrCaptureFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: fetch: status %d", design.ErrCaptureFailed, resp.StatusCode)
	}

	raws, err := ParseHTML(io.LimitReader(resp.Body, maxStaticBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", design.ErrCaptureFailed, err)
	}

	s.logger.Info("capture: static page captured", "url", url, "elements", len(raws))
	return newPage(url, Records(raws), nil), nil
}

// ParseHTML walks a document and returns one RawElement per visible element
// in document order.
func ParseHTML(r io.Reader) ([]RawElement, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("capture: parse html: %w", err)
	}

	labelled := labelTargets(doc)
	var out []RawElement

	var walk func(n *html.Node, inTable, inLabel bool)
	walk = func(n *html.Node, inTable, inLabel bool) {
		if n.Type == html.ElementNode {
			if skippedTags[n.Data] || hidden(n) {
				return
			}
			out = append(out, rawFromNode(n, inTable, inLabel, labelled))
			if n.Data == "table" {
				inTable = true
			}
			if n.Data == "label" {
				inLabel = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inTable, inLabel)
		}
	}
	walk(doc, false, false)

	if out == nil {
		out = []RawElement{}
	}
	return out, nil
}

func rawFromNode(n *html.Node, inTable, inLabel bool, labelled map[string]int) RawElement {
	style := parseInlineStyle(attr(n, "style"))
	width := style["width"]
	if width == "" {
		if w := strings.TrimSpace(attr(n, "width")); w != "" && !strings.HasSuffix(w, "%") {
			width = w + "px"
		}
	}

	id := attr(n, "id")
	labels := 0
	if n.Data == "input" || n.Data == "textarea" || n.Data == "select" {
		if id != "" {
			labels = labelled[id]
		}
		if inLabel {
			labels++
		}
	}

	return RawElement{
		Tag:       n.Data,
		ID:        id,
		ClassName: attr(n, "class"),
		Text:      textContent(n),
		Href:      attr(n, "href"),
		Src:       attr(n, "src"),
		Alt:       attr(n, "alt"),
		Type:      strings.ToLower(attr(n, "type")),
		Role:      attr(n, "role"),
		AriaLabel: attr(n, "aria-label"),
		Labels:    labels,
		InTable:   inTable || n.Data == "table",
		Styles: RawStyles{
			Color:           style["color"],
			BackgroundColor: style["background-color"],
			FontSize:        style["font-size"],
			FontFamily:      style["font-family"],
			LineHeight:      style["line-height"],
			Display:         style["display"],
			Position:        style["position"],
			Padding:         style["padding"],
			Margin:          style["margin"],
			Width:           width,
		},
	}
}

// labelTargets counts <label for=...> references per element id.
func labelTargets(doc *html.Node) map[string]int {
	out := map[string]int{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "label" {
			if f := attr(n, "for"); f != "" {
				out[f]++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// hidden reports elements a browser would not render.
func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "hidden" {
			return true
		}
	}
	if n.Data == "input" && strings.EqualFold(strings.TrimSpace(attr(n, "type")), "hidden") {
		return true
	}
	st := parseInlineStyle(attr(n, "style"))
	return st["display"] == "none" || st["visibility"] == "hidden"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// parseInlineStyle splits a style attribute into lowercased property names.
func parseInlineStyle(s string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(s, ";") {
		name, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important"))
		if name != "" {
			out[name] = val
		}
	}
	return out
}

// textContent concatenates descendant text, skipping non-rendered subtrees.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if skippedTags[n.Data] || hidden(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
