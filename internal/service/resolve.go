package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/mkusaka/hinichi/internal/ai"
	"github.com/mkusaka/hinichi/internal/cache"
	"github.com/mkusaka/hinichi/internal/config"
	"github.com/mkusaka/hinichi/internal/dates"
	"github.com/mkusaka/hinichi/internal/domain"
)

// Request carries everything that shapes one resolution. An empty Date
// selects the default date and permits lookback retry; an explicit Date
// pins resolution to exactly that day.
type Request struct {
	Category    string
	Date        string
	Format      string
	WithSummary bool
	Revalidate  bool
}

// Response is the rendered answer for one request.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	FromCache   bool
}

const asyncWriteTimeout = 15 * time.Second

// ResolveService is the per-request resolution pipeline: cache checks,
// date-lookback upstream retry, tier persistence, optional enrichment, and
// final rendering. It holds no per-request state.
type ResolveService struct {
	source     Source
	articles   ArticleFetcher
	summarizer Summarizer
	renderer   Renderer
	store      DataStore
	responses  ResponseCache
	publisher  Publisher
	logger     *slog.Logger
	cfg        config.CacheConfig
	maxItems   int

	now   func() time.Time
	async func(fn func(ctx context.Context))
}

func NewResolveService(
	source Source,
	articles ArticleFetcher,
	summarizer Summarizer,
	renderer Renderer,
	store DataStore,
	responses ResponseCache,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.CacheConfig,
	maxItems int,
) *ResolveService {
	s := &ResolveService{
		source:     source,
		articles:   articles,
		summarizer: summarizer,
		renderer:   renderer,
		store:      store,
		responses:  responses,
		publisher:  publisher,
		logger:     logger.With("component", "resolve"),
		cfg:        cfg,
		maxItems:   maxItems,
		now:        time.Now,
	}
	// Advisory writes are scheduled off the request path and may outlive
	// the response; they get their own bounded lifetime.
	s.async = func(fn func(ctx context.Context)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
			defer cancel()
			fn(ctx)
		}()
	}
	return s
}

// Resolve runs the full pipeline for one request.
func (s *ResolveService) Resolve(ctx context.Context, req Request) (*Response, error) {
	requested := req.Date
	allowRetry := requested == ""
	if allowRetry {
		requested = dates.DefaultDate(s.now())
	}

	if !req.Revalidate {
		if resp := s.matchResponse(ctx, req, requested); resp != nil {
			return resp, nil
		}
	}

	candidates := dates.CandidateDates(requested, allowRetry, s.cfg.LookbackDays)

	entries, resolved, fromTier, status := s.resolveEntries(ctx, req, candidates)
	if status != domain.StatusOK {
		// Failure outcomes reference the date the caller asked about and
		// are never cached.
		result := &domain.Result{
			Status:        status,
			Category:      req.Category,
			RequestedDate: requested,
			ResolvedDate:  requested,
		}
		return s.render(req, result)
	}

	// The resolved date may already be cached under its own key by a
	// request that asked for it directly.
	if resolved != requested && !req.Revalidate {
		if resp := s.matchResponse(ctx, req, resolved); resp != nil {
			return resp, nil
		}
	}

	if req.Revalidate {
		s.purge(ctx, req, resolved)
	}

	if !fromTier || req.Revalidate {
		s.persistData(cache.KindEntries, req.Category, resolved, entries)
	}
	if !fromTier && s.publisher != nil {
		category, date, count := req.Category, resolved, len(entries)
		s.async(func(ctx context.Context) {
			if err := s.publisher.Publish(ctx, category, date, count); err != nil {
				s.logger.Warn("publish resolution event failed", "category", category, "date", date, "error", err)
			}
		})
	}

	result := &domain.Result{
		Status:        domain.StatusOK,
		Category:      req.Category,
		RequestedDate: requested,
		ResolvedDate:  resolved,
		Entries:       entries,
		FromCache:     fromTier,
	}

	if req.WithSummary {
		result.Summary = s.summarize(ctx, req, resolved, entries)
	}

	resp, err := s.render(req, result)
	if err != nil {
		return nil, err
	}

	if s.responses != nil {
		key := s.responseKey(req, resolved)
		stored := &cache.CachedResponse{Status: resp.Status, ContentType: resp.ContentType, Body: resp.Body}
		s.async(func(ctx context.Context) {
			if err := s.responses.Put(ctx, key, stored, s.cfg.TTL); err != nil {
				s.logger.Warn("persist full response failed", "key", key, "error", err)
			}
		})
	}

	return resp, nil
}

// resolveEntries finds the entries and the date they belong to: first by
// probing the entries tier across the candidate dates, then by fetching
// upstream date by date until one yields a non-empty listing.
func (s *ResolveService) resolveEntries(ctx context.Context, req Request, candidates []string) ([]domain.Entry, string, bool, domain.Status) {
	if !req.Revalidate {
		for _, d := range candidates {
			var entries []domain.Entry
			found, err := s.store.Get(ctx, cache.KindEntries, req.Category, d, &entries)
			if err != nil {
				s.logger.Warn("entry tier read failed", "category", req.Category, "date", d, "error", err)
				continue
			}
			if found && len(entries) > 0 {
				return entries, d, true, domain.StatusOK
			}
		}
	}

	var reachable bool
	for _, d := range candidates {
		entries, err := s.source.FetchDaily(ctx, req.Category, d)
		if err != nil {
			s.logger.Warn("upstream fetch failed", "category", req.Category, "date", d, "error", err)
			continue
		}
		reachable = true
		if len(entries) == 0 {
			continue
		}
		return entries, d, false, domain.StatusOK
	}

	if reachable {
		return nil, "", false, domain.StatusNotFound
	}
	return nil, "", false, domain.StatusUpstreamError
}

// summarize produces the summary for the resolved listing, reusing the
// articles and ai-summary tiers when possible. It always returns a usable
// summary: enrichment failures degrade, they never propagate.
func (s *ResolveService) summarize(ctx context.Context, req Request, resolved string, entries []domain.Entry) *domain.Summary {
	top := entries
	if len(top) > s.maxItems {
		top = top[:s.maxItems]
	}
	display := dates.Display(resolved)

	if !req.Revalidate {
		var cached domain.Summary
		found, err := s.store.Get(ctx, cache.KindSummary, req.Category, resolved, &cached)
		if err != nil {
			s.logger.Warn("summary tier read failed", "category", req.Category, "date", resolved, "error", err)
		} else if found {
			if ai.Validate(&cached) == nil {
				return &cached
			}
			// Schema-invalid cached summary: self-heal and regenerate.
			if err := s.store.Delete(ctx, cache.KindSummary, req.Category, resolved); err != nil {
				s.logger.Warn("summary tier delete failed", "category", req.Category, "date", resolved, "error", err)
			}
		}
	}

	bodies := s.resolveBodies(ctx, req, resolved, top)

	if s.summarizer == nil {
		return ai.Fallback(display, top)
	}

	items := make([]ai.Item, len(top))
	for i, e := range top {
		excerpt := bodies[i].Text
		if excerpt == "" {
			excerpt = e.Description
		}
		items[i] = ai.Item{Title: e.Title, URL: e.URL, Users: e.Users, Excerpt: excerpt}
	}

	summary, err := s.summarizer.Summarize(ctx, display, items)
	if err != nil {
		s.logger.Warn("summary generation failed, using fallback", "category", req.Category, "date", resolved, "error", err)
		return ai.Fallback(display, top)
	}

	// Only schema-valid model output is persisted; the fallback is cheap
	// to recompute and must not stick for a full TTL.
	s.persistData(cache.KindSummary, req.Category, resolved, summary)
	return summary
}

// resolveBodies returns one ArticleBody per entry of top, from the articles
// tier or by fanning out fetches with per-item isolation.
func (s *ResolveService) resolveBodies(ctx context.Context, req Request, resolved string, top []domain.Entry) []domain.ArticleBody {
	if !req.Revalidate {
		var cached []domain.ArticleBody
		found, err := s.store.Get(ctx, cache.KindArticle, req.Category, resolved, &cached)
		if err != nil {
			s.logger.Warn("article tier read failed", "category", req.Category, "date", resolved, "error", err)
		} else if found && len(cached) == len(top) {
			return cached
		}
	}

	bodies := make([]domain.ArticleBody, len(top))
	var wg sync.WaitGroup
	for i, e := range top {
		bodies[i] = domain.ArticleBody{URL: e.URL}
		if s.articles == nil {
			continue
		}
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			text, err := s.articles.Fetch(ctx, url)
			if err != nil {
				// Per-item degradation: the entry's description stands in.
				s.logger.Debug("article fetch failed", "url", url, "error", err)
				return
			}
			bodies[i].Text = text
		}(i, e.URL)
	}
	wg.Wait()

	if s.articles != nil {
		s.persistData(cache.KindArticle, req.Category, resolved, bodies)
	}
	return bodies
}

// purge drops every tier and the full-response entry for the resolved date
// before a forced recomputation. Best-effort: a failed delete only means a
// stale record ages out by TTL.
func (s *ResolveService) purge(ctx context.Context, req Request, resolved string) {
	for _, kind := range []cache.Kind{cache.KindEntries, cache.KindArticle, cache.KindSummary} {
		if err := s.store.Delete(ctx, kind, req.Category, resolved); err != nil {
			s.logger.Warn("tier purge failed", "kind", kind, "category", req.Category, "date", resolved, "error", err)
		}
	}
	if s.responses != nil {
		if err := s.responses.Delete(ctx, s.responseKey(req, resolved)); err != nil {
			s.logger.Warn("full response purge failed", "category", req.Category, "date", resolved, "error", err)
		}
	}
}

func (s *ResolveService) matchResponse(ctx context.Context, req Request, date string) *Response {
	if s.responses == nil {
		return nil
	}
	cached, err := s.responses.Match(ctx, s.responseKey(req, date))
	if err != nil {
		s.logger.Warn("full response read failed", "category", req.Category, "date", date, "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}
	return &Response{Status: cached.Status, ContentType: cached.ContentType, Body: cached.Body, FromCache: true}
}

func (s *ResolveService) render(req Request, result *domain.Result) (*Response, error) {
	rendered, err := s.renderer.Render(req.Format, result)
	if err != nil {
		return nil, fmt.Errorf("render result: %w", err)
	}
	return &Response{
		Status:      rendered.Status,
		ContentType: rendered.ContentType,
		Body:        rendered.Body,
		FromCache:   result.FromCache,
	}, nil
}

func (s *ResolveService) persistData(kind cache.Kind, category, date string, v any) {
	s.async(func(ctx context.Context) {
		if err := s.store.Put(ctx, kind, category, date, v, s.cfg.TTL); err != nil {
			s.logger.Warn("tier write failed", "kind", kind, "category", category, "date", date, "error", err)
		}
	})
}

// responseKey is the full-response cache key: every request-shaping
// parameter participates, so rss-with-summary never collides with json.
func (s *ResolveService) responseKey(req Request, date string) string {
	q := url.Values{}
	q.Set("category", req.Category)
	q.Set("date", date)
	q.Set("format", req.Format)
	if req.WithSummary {
		q.Set("summary", "1")
	} else {
		q.Set("summary", "0")
	}
	q.Set("v", fmt.Sprintf("%d", s.cfg.Version))
	return "https://cache.hinichi.internal/resp?" + q.Encode()
}
