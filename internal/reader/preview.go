package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024
	DefaultExcerptRunes  = 1200

	defaultUserAgent = "FactFlow-SourcePreview/1.0 (+https://factflow.app)"
)

// Previewer fetches a fact's source page and extracts a readable excerpt.
type Previewer struct {
	client        *http.Client
	userAgent     string
	bodyByteLimit int64
	excerptRunes  int
}

type Option func(*Previewer)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Previewer) { p.client = client }
}

func WithUserAgent(userAgent string) Option {
	return func(p *Previewer) {
		if trimmed := strings.TrimSpace(userAgent); trimmed != "" {
			p.userAgent = trimmed
		}
	}
}

func WithExcerptRunes(n int) Option {
	return func(p *Previewer) {
		if n > 0 {
			p.excerptRunes = n
		}
	}
}

func NewPreviewer(opts ...Option) *Previewer {
	p := &Previewer{
		client:        &http.Client{Timeout: DefaultFetchTimeout},
		userAgent:     defaultUserAgent,
		bodyByteLimit: DefaultBodyByteLimit,
		excerptRunes:  DefaultExcerptRunes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Excerpt fetches the source page and returns a cleaned, clipped excerpt.
// fallback fills in when the page yields no readable text, typically the
// fact content itself.
func (p *Previewer) Excerpt(ctx context.Context, sourceURL, fallback string) (string, bool, error) {
	text, err := p.Fetch(ctx, sourceURL, fallback)
	if err != nil {
		return "", false, err
	}
	excerpt, truncated := TruncateText(text, p.excerptRunes)
	return excerpt, truncated, nil
}

// Fetch retrieves the source page and extracts its full readable text.
func (p *Previewer) Fetch(ctx context.Context, sourceURL, fallback string) (string, error) {
	page := strings.TrimSpace(sourceURL)
	if page == "" {
		return "", fmt.Errorf("source URL is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.bodyByteLimit))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "text/plain") {
		return CleanText(string(body)), nil
	}

	pageURL, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		text = strings.TrimSpace(fallback)
	}
	if text == "" {
		return "", fmt.Errorf("reader extracted empty content")
	}

	return text, nil
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// TruncateText clips text to maxChars runes and appends a single ellipsis rune when truncated.
func TruncateText(raw string, maxChars int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if maxChars <= 0 {
		return trimmed, false
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed, false
	}
	if maxChars == 1 {
		return "…", true
	}

	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	if clipped == "" {
		return "…", true
	}

	return clipped + "…", true
}
