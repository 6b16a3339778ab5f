package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkusaka/hinichi/internal/domain"
)

func TestParseSummary(t *testing.T) {
	s, err := ParseSummary(`{"overview":"A busy day.","articles":[{"title":"T","url":"https://example.com","summary":"S"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "A busy day.", s.Overview)
	require.Len(t, s.Articles, 1)
	assert.Equal(t, "T", s.Articles[0].Title)
}

func TestParseSummary_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":          `here is your summary!`,
		"empty overview":    `{"overview":"  ","articles":[]}`,
		"article no url":    `{"overview":"x","articles":[{"title":"T","url":"","summary":"S"}]}`,
		"article no title":  `{"overview":"x","articles":[{"title":"","url":"u","summary":"S"}]}`,
		"article no digest": `{"overview":"x","articles":[{"title":"T","url":"u","summary":""}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSummary(in)
			assert.Error(t, err)
		})
	}
}

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"overview\":\"Quiet day.\",\"articles\":[{\"title\":\"T\",\"url\":\"https://example.com\",\"summary\":\"S\"}]}"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Model: "test-model", APIKey: "test-key", Timeout: 5 * time.Second})
	require.NoError(t, err)

	s, err := c.Summarize(context.Background(), "2026/02/10", []Item{{Title: "T", URL: "https://example.com", Users: 100}})
	require.NoError(t, err)
	assert.Equal(t, "Quiet day.", s.Overview)
}

func TestSummarize_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Model: "m", APIKey: "k", Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), "2026/02/10", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://api.openai.com/v1", Model: "m"})
	assert.Error(t, err)
}

func TestFallback_Deterministic(t *testing.T) {
	entries := []domain.Entry{
		{Title: "First", URL: "https://example.com/1", Description: "A description."},
		{Title: "Second", URL: "https://example.com/2", Description: strings.Repeat("あ", 200)},
		{Title: "Bare", URL: "https://example.com/3"},
	}

	a := Fallback("2026/02/10", entries)
	b := Fallback("2026/02/10", entries)
	assert.Equal(t, a, b)

	require.NoError(t, Validate(a))
	require.Len(t, a.Articles, 3)
	assert.Equal(t, "A description.", a.Articles[0].Summary)
	assert.Equal(t, strings.Repeat("あ", fallbackExcerptChars)+"…", a.Articles[1].Summary)
	assert.Equal(t, "Bare", a.Articles[2].Summary, "missing description falls back to the title")
	assert.Contains(t, a.Overview, "2026/02/10")
}
