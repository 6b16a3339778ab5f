package article

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFetcher(t *testing.T, maxChars int) *Fetcher {
	t.Helper()
	return NewFetcher(Config{Timeout: 5 * time.Second, MaxBodyChars: maxChars, UserAgent: "test"}, testLogger())
}

func TestFetch_ExtractsVisibleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><style>p { color: red }</style>
<script>var hidden = true;</script></head>
<body><h1>Heading</h1><p>First   paragraph.</p><p>Second paragraph.</p></body></html>`))
	}))
	defer srv.Close()

	text, err := newFetcher(t, 3000).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Heading First paragraph. Second paragraph.", text)
}

func TestFetch_CapsLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<body><p>aaaa bbbb cccc dddd</p></body>"))
	}))
	defer srv.Close()

	text, err := newFetcher(t, 10).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "aaaa bbbb ", text)
	assert.LessOrEqual(t, len([]rune(text)), 10)
}

func TestFetch_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newFetcher(t, 3000).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}
