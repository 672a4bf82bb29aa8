package tools

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// maxPageChars bounds the extracted text handed back to the model.
const maxPageChars = 8000

const truncationMarker = "\n... [Conteúdo truncado devido ao tamanho]"

// skippedElements are stripped entirely: they carry navigation chrome, not
// page content.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"header":   true,
	"footer":   true,
	"nav":      true,
	"aside":    true,
	"noscript": true,
}

// BrowseURLTool fetches a web page and extracts its visible text.
type BrowseURLTool struct {
	client *http.Client
}

// NewBrowseURLTool creates the browse tool.
func NewBrowseURLTool() *BrowseURLTool {
	return &BrowseURLTool{client: newHTTPClient()}
}

func (t *BrowseURLTool) Name() string {
	return "browse_url"
}

func (t *BrowseURLTool) Description() string {
	return "Use para abrir links de páginas web e obter um contexto maior do conteúdo."
}

func (t *BrowseURLTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"url": stringSchema("A URL da página a ser navegada."),
	}, []string{"url"})
}

func (t *BrowseURLTool) Required() []string {
	return []string{"url"}
}

func (t *BrowseURLTool) Execute(ctx context.Context, args map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args["url"], nil)
	if err != nil {
		return "", errors.Wrap(err, "invalid url")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "page fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("page returned status %d", resp.StatusCode)
	}

	text, err := extractVisibleText(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse page")
	}

	if len(text) > maxPageChars {
		text = text[:maxPageChars] + truncationMarker
	}
	return text, nil
}

// extractVisibleText walks the HTML tree collecting text nodes, skipping
// non-content elements and collapsing runs of whitespace.
func extractVisibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if line := strings.Join(strings.Fields(n.Data), " "); line != "" {
				lines = append(lines, line)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}
