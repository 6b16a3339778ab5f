// Package ai generates the daily overview through an OpenAI-compatible
// chat-completions endpoint. The model's answer is strictly validated;
// callers fall back to Fallback on any failure, which never fails.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkusaka/hinichi/internal/domain"
)

// Item is one listing entry prepared for summarization.
type Item struct {
	Title   string
	URL     string
	Users   int
	Excerpt string
}

type Summarizer interface {
	Summarize(ctx context.Context, displayDate string, items []Item) (*domain.Summary, error)
}

type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI not configured: missing API key")
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

const systemPrompt = `You summarize a day's ranked tech-news listing for Japanese readers.
Respond with ONLY a JSON object, no markdown fences, of the shape:
{"overview": "<2-3 sentence overview of the day>", "articles": [{"title": "...", "url": "...", "summary": "<1 sentence>"}]}
Include one articles element per input article, in the given order.`

func buildPrompt(displayDate string, items []Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ranked articles for %s:\n\n", displayDate)
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. %s (%d users)\nURL: %s\n", i+1, it.Title, it.Users, it.URL)
		if it.Excerpt != "" {
			fmt.Fprintf(&sb, "Excerpt: %s\n", it.Excerpt)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Summarize(ctx context.Context, displayDate string, items []Item) (*domain.Summary, error) {
	body, _ := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(displayDate, items)},
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ai API %d: %s", resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("empty ai response")
	}

	return ParseSummary(cr.Choices[0].Message.Content)
}

// ParseSummary unmarshals and validates the model output against the
// summary schema.
func ParseSummary(text string) (*domain.Summary, error) {
	var s domain.Summary
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &s); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks a summary against the schema. Also used on cached
// ai-summary payloads before they are served.
func Validate(s *domain.Summary) error {
	if s == nil {
		return fmt.Errorf("invalid summary: nil")
	}
	if strings.TrimSpace(s.Overview) == "" {
		return fmt.Errorf("invalid summary: empty overview")
	}
	for i, a := range s.Articles {
		if a.Title == "" || a.URL == "" || a.Summary == "" {
			return fmt.Errorf("invalid summary: incomplete article at index %d", i)
		}
	}
	return nil
}

const fallbackExcerptChars = 160

// Fallback builds a deterministic summary from the listing itself. It is
// the answer of last resort and cannot fail.
func Fallback(displayDate string, entries []domain.Entry) *domain.Summary {
	s := &domain.Summary{
		Overview: fmt.Sprintf("%s の人気記事 %d 件のまとめです。", displayDate, len(entries)),
		Articles: make([]domain.ArticleSummary, 0, len(entries)),
	}
	for _, e := range entries {
		summary := truncateRunes(strings.TrimSpace(e.Description), fallbackExcerptChars)
		if summary == "" {
			summary = e.Title
		}
		s.Articles = append(s.Articles, domain.ArticleSummary{
			Title:   e.Title,
			URL:     e.URL,
			Summary: summary,
		})
	}
	return s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
