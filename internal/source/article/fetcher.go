// Package article fetches article bodies for enrichment. Results are
// best-effort: any failure yields an empty body and the caller falls back
// to the entry's listing description.
package article

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

type Config struct {
	Timeout      time.Duration
	MaxBodyChars int
	UserAgent    string
}

type Fetcher struct {
	httpClient   *http.Client
	maxBodyChars int
	userAgent    string
	logger       *slog.Logger
}

func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxBodyChars: cfg.MaxBodyChars,
		userAgent:    cfg.UserAgent,
		logger:       logger.With("source", "article"),
	}
}

// Fetch returns the visible text of the page at url, whitespace-collapsed
// and capped at MaxBodyChars characters.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	text, err := visibleText(resp, f.maxBodyChars)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

// visibleText streams the response through the tokenizer collecting text
// outside script/style, stopping as soon as the cap is reached.
func visibleText(resp *http.Response, maxChars int) (string, error) {
	z := html.NewTokenizer(resp.Body)

	var (
		b      strings.Builder
		count  int
		skip   string // open script/style tag we are inside of
		wantWS bool
	)

	for count < maxChars {
		switch z.Next() {
		case html.ErrorToken:
			return b.String(), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip = tag
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == skip {
				skip = ""
			}
		case html.TextToken:
			if skip != "" {
				continue
			}
			for _, field := range strings.Fields(string(z.Text())) {
				if wantWS {
					b.WriteByte(' ')
					count++
				}
				for _, r := range field {
					if count >= maxChars {
						break
					}
					b.WriteRune(r)
					count++
				}
				wantWS = true
				if count >= maxChars {
					break
				}
			}
		}
	}
	return b.String(), nil
}
