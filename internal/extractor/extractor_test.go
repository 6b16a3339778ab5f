package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingBlock = `
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title">
    <a href="https://example.com/post-1">Understanding Go Schedulers</a>
  </h3>
  <span class="entrylist-contents-users"><a><span>1234 users</span></a></span>
  <p class="entrylist-contents-domain"><a>example.com</a></p>
  <p class="entrylist-contents-description">A deep dive into goroutine scheduling.</p>
  <li class="entrylist-contents-date">テクノロジー 2026/02/10 14:30</li>
  <ul class="entrylist-contents-tags">
    <li><a>go</a></li>
    <li><a>  runtime </a></li>
    <li><a>   </a></li>
  </ul>
  <img class="entrylist-contents-thumb" src="https://cdn.example.com/a.jpg">
</div>`

func TestExtract_SingleEntry(t *testing.T) {
	entries, err := Extract(strings.NewReader(listingBlock))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "Understanding Go Schedulers", e.Title)
	assert.Equal(t, "https://example.com/post-1", e.URL)
	assert.Equal(t, 1234, e.Users)
	assert.Equal(t, "example.com", e.Domain)
	assert.Equal(t, "A deep dive into goroutine scheduling.", e.Description)
	assert.Equal(t, "テクノロジー", e.Category)
	assert.Equal(t, "2026/02/10 14:30", e.Date)
	assert.Equal(t, []string{"go", "runtime"}, e.Tags)
	assert.Equal(t, "https://cdn.example.com/a.jpg", e.Thumbnail)
}

func TestExtract_MultipleEntriesInOrder(t *testing.T) {
	doc := `
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a href="https://example.com/1">First</a></h3>
</div>
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a href="https://example.com/2">Second</a></h3>
</div>`

	entries, err := Extract(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "First", entries[0].Title)
	assert.Equal(t, "Second", entries[1].Title)
}

func TestExtract_DiscardsEntriesWithoutTitleOrURL(t *testing.T) {
	doc := `
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a href="https://example.com/1">   </a></h3>
</div>
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a>No href here</a></h3>
</div>
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a href="https://example.com/3">Kept</a></h3>
</div>`

	entries, err := Extract(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Kept", entries[0].Title)
}

func TestExtract_UnterminatedBlockFinalizedAtEOF(t *testing.T) {
	doc := `
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a href="https://example.com/open">Still open`

	entries, err := Extract(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Still open", entries[0].Title)
	assert.Equal(t, "https://example.com/open", entries[0].URL)
}

func TestExtract_TitleSplitAcrossTextFragments(t *testing.T) {
	doc := `
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a href="https://example.com/amp">Tom &amp; Jerry</a></h3>
</div>`

	entries, err := Extract(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Tom & Jerry", entries[0].Title)
}

func TestExtract_LastThumbnailWins(t *testing.T) {
	doc := `
<div class="entrylist-contents">
  <h3 class="entrylist-contents-title"><a href="https://example.com/t">T</a></h3>
  <img class="entrylist-contents-thumb" src="https://cdn.example.com/first.jpg">
  <img class="entrylist-contents-thumb" src="https://cdn.example.com/second.jpg">
</div>`

	entries, err := Extract(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://cdn.example.com/second.jpg", entries[0].Thumbnail)
}

func TestFirstDigitRun(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"123 users", 123},
		{"  42\n", 42},
		{"no digits at all", 0},
		{"", 0},
		{"v2 then 300", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, firstDigitRun(tt.in), "input %q", tt.in)
	}
}

func TestSplitDateCategory(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		category string
		date     string
	}{
		{"category and date", "テクノロジー 2026/02/10 14:30", "テクノロジー", "2026/02/10 14:30"},
		{"multi word category", "世の中 総合 2026/02/10 09:00", "世の中 総合", "2026/02/10 09:00"},
		{"date only", "  2026/02/10 14:30 ", "", "2026/02/10 14:30"},
		{"no date pattern", "ただのテキスト", "", "ただのテキスト"},
		{"time missing", "テクノロジー 2026/02/10", "", "テクノロジー 2026/02/10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, date := splitDateCategory(tt.in)
			assert.Equal(t, tt.category, cat)
			assert.Equal(t, tt.date, date)
		})
	}
}

// The split heuristic trusts that nothing trails the time token. A trailing
// annotation shifts the window and silently misparses the category; this is
// a known limitation of the upstream text shape, pinned here.
func TestSplitDateCategory_TrailingAnnotationMisparses(t *testing.T) {
	cat, date := splitDateCategory("テクノロジー 2026/02/10 14:30 注釈")
	assert.Equal(t, "", cat)
	assert.Equal(t, "テクノロジー 2026/02/10 14:30 注釈", date)
}
