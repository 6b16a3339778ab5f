package domain

// Status classifies the outcome of resolving one request.
type Status string

const (
	// StatusOK means entries were found for the resolved date.
	StatusOK Status = "ok"
	// StatusNotFound means the upstream answered but every probed date was
	// empty. Reported against the originally requested date.
	StatusNotFound Status = "not_found"
	// StatusUpstreamError means no probed date produced a usable response.
	StatusUpstreamError Status = "upstream_error"
)

// Result is the resolved payload for one (category, date) request.
// ResolvedDate may be earlier than RequestedDate when lookback found data
// on a previous day; all cache coordinates use ResolvedDate.
type Result struct {
	Status        Status   `json:"status"`
	Category      string   `json:"category"`
	RequestedDate string   `json:"requested_date"`
	ResolvedDate  string   `json:"resolved_date"`
	Entries       []Entry  `json:"entries"`
	Summary       *Summary `json:"summary,omitempty"`
	FromCache     bool     `json:"from_cache"`
}
