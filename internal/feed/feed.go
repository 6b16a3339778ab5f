// Package feed turns resolved listings into the served representations:
// rss, atom, json, and a minimal html page.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/feeds"

	"github.com/mkusaka/hinichi/internal/cache"
	"github.com/mkusaka/hinichi/internal/dates"
	"github.com/mkusaka/hinichi/internal/domain"
)

const (
	FormatRSS  = "rss"
	FormatAtom = "atom"
	FormatJSON = "json"
	FormatHTML = "html"
)

type Renderer struct {
	baseURL string
	tmpl    *template.Template
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{
		baseURL: baseURL,
		tmpl:    template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// Render formats one resolved result. Failure outcomes become short plain
// bodies with the matching HTTP status; the unknown-format error is the
// only way rendering itself can fail.
func (r *Renderer) Render(format string, result *domain.Result) (*cache.CachedResponse, error) {
	switch result.Status {
	case domain.StatusNotFound:
		body := fmt.Sprintf("no entries for %s/%s\n", result.Category, result.RequestedDate)
		return &cache.CachedResponse{Status: http.StatusNotFound, ContentType: "text/plain; charset=utf-8", Body: []byte(body)}, nil
	case domain.StatusUpstreamError:
		return &cache.CachedResponse{Status: http.StatusBadGateway, ContentType: "text/plain; charset=utf-8", Body: []byte("upstream unavailable\n")}, nil
	}

	switch format {
	case FormatRSS, "":
		return r.renderFeed(result, func(f *feeds.Feed) (string, error) { return f.ToRss() }, "application/rss+xml; charset=utf-8")
	case FormatAtom:
		return r.renderFeed(result, func(f *feeds.Feed) (string, error) { return f.ToAtom() }, "application/atom+xml; charset=utf-8")
	case FormatJSON:
		body, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		return &cache.CachedResponse{Status: http.StatusOK, ContentType: "application/json; charset=utf-8", Body: body}, nil
	case FormatHTML:
		var buf bytes.Buffer
		if err := r.tmpl.Execute(&buf, pageData{Result: result, Display: dates.Display(result.ResolvedDate)}); err != nil {
			return nil, fmt.Errorf("execute page template: %w", err)
		}
		return &cache.CachedResponse{Status: http.StatusOK, ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func (r *Renderer) renderFeed(result *domain.Result, encode func(*feeds.Feed) (string, error), contentType string) (*cache.CachedResponse, error) {
	display := dates.Display(result.ResolvedDate)
	created, _ := time.Parse("20060102", result.ResolvedDate)

	f := &feeds.Feed{
		Title:       fmt.Sprintf("hinichi: %s %s", result.Category, display),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/%s/%s", r.baseURL, result.Category, result.ResolvedDate)},
		Description: fmt.Sprintf("%s の人気エントリー (%s)", display, result.Category),
		Created:     created,
	}
	if result.Summary != nil {
		f.Description = result.Summary.Overview
	}

	summaries := map[string]string{}
	if result.Summary != nil {
		for _, a := range result.Summary.Articles {
			summaries[a.URL] = a.Summary
		}
	}

	for _, e := range result.Entries {
		desc := e.Description
		if s, ok := summaries[e.URL]; ok && s != "" {
			desc = s
		}
		f.Items = append(f.Items, &feeds.Item{
			Title:       fmt.Sprintf("%s (%d users)", e.Title, e.Users),
			Link:        &feeds.Link{Href: e.URL},
			Description: desc,
			Created:     created,
			Id:          e.URL,
		})
	}

	out, err := encode(f)
	if err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	return &cache.CachedResponse{Status: http.StatusOK, ContentType: contentType, Body: []byte(out)}, nil
}

type pageData struct {
	Result  *domain.Result
	Display string
}

const pageTemplate = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Result.Category}} {{.Display}} - hinichi</title>
</head>
<body>
<h1>{{.Display}} の人気エントリー ({{.Result.Category}})</h1>
{{- if .Result.Summary}}
<section>
<h2>まとめ</h2>
<p>{{.Result.Summary.Overview}}</p>
</section>
{{- end}}
<ol>
{{- range .Result.Entries}}
<li>
<a href="{{.URL}}">{{.Title}}</a> <span>{{.Users}} users</span>
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
</li>
{{- end}}
</ol>
</body>
</html>
`
