// Package sample turns writing samples in various shapes (raw text, PDF,
// HTML, a URL) into plain text suitable for style analysis.
package sample

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Kind identifies the shape of a writing sample.
type Kind string

const (
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
	KindURL  Kind = "url"
)

const (
	maxFetchSize = 5 << 20 // 5 MiB cap on fetched documents
	fetchTimeout = 15 * time.Second
)

// Input is one writing sample. Content carries the sample body: plain text,
// an HTML document, or a base64-encoded PDF. For KindURL the URL field is
// fetched instead.
type Input struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Loader extracts plain text from sample inputs.
type Loader struct {
	client *http.Client
}

// NewLoader returns a Loader with a default HTTP client for URL samples.
func NewLoader() *Loader {
	return &Loader{client: &http.Client{Timeout: fetchTimeout}}
}

// NewLoaderWithClient returns a Loader using the given HTTP client.
func NewLoaderWithClient(client *http.Client) *Loader {
	return &Loader{client: client}
}

// Load extracts the plain text of one sample input.
func (l *Loader) Load(ctx context.Context, in Input) (string, error) {
	switch in.Kind {
	case KindText, "":
		return in.Content, nil
	case KindPDF:
		return extractPDF(in.Content)
	case KindHTML:
		return extractHTML(strings.NewReader(in.Content))
	case KindURL:
		return l.fetch(ctx, in.URL)
	default:
		return "", fmt.Errorf("unknown sample kind %q", in.Kind)
	}
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("url sample has no url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "text/html") || looksLikeHTML(body) {
		return extractHTML(bytes.NewReader(body))
	}
	return string(body), nil
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// extractPDF decodes a base64 PDF and concatenates the plain text of its
// pages. Pages that fail extraction are skipped.
func extractPDF(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("decoding pdf sample: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("opening pdf sample: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text in pdf sample")
	}
	return normalize(b.String()), nil
}

// extractHTML walks the document tree collecting text nodes, skipping
// non-content elements.
func extractHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html sample: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text in html sample")
	}
	return normalize(b.String()), nil
}

// normalize collapses runs of whitespace within lines and drops blank lines.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
