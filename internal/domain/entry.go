package domain

// Entry is one row of the daily ranked listing. Fields other than Title and
// URL are best-effort: the extractor leaves them empty or zero when the
// source markup does not provide them.
type Entry struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Users       int      `json:"users"`
	Domain      string   `json:"domain,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Date        string   `json:"date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

// ArticleBody is the fetched body text for one entry, capped in length.
// An empty Text means the fetch failed and the entry description stands in.
type ArticleBody struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Summary is the AI-generated overview of one day's listing.
type Summary struct {
	Overview string           `json:"overview"`
	Articles []ArticleSummary `json:"articles"`
}

type ArticleSummary struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}
