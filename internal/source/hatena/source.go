// Package hatena fetches one day's ranked listing page and streams it
// through the extractor.
package hatena

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkusaka/hinichi/internal/domain"
	"github.com/mkusaka/hinichi/internal/extractor"
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type Source struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		logger:    logger.With("source", "hatena"),
	}
}

// FetchDaily retrieves the listing for (category, date). A non-OK status or
// transport failure is an error; an OK page with no listing blocks returns
// an empty slice and nil, so the caller can tell "unreachable" from "no
// entries yet". The body is never buffered whole: the extractor consumes
// the stream directly.
func (s *Source) FetchDaily(ctx context.Context, category, date string) ([]domain.Entry, error) {
	url := fmt.Sprintf("%s/%s/%s", s.baseURL, category, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	entries, err := extractor.Extract(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("extract listing: %w", err)
	}

	s.logger.Debug("fetched daily listing",
		"category", category,
		"date", date,
		"entries", len(entries),
	)

	return entries, nil
}
