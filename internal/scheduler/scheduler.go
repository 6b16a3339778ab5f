package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkusaka/hinichi/internal/service"
)

// Resolver defines the interface for prewarm resolutions.
type Resolver interface {
	Resolve(ctx context.Context, req service.Request) (*service.Response, error)
}

// Scheduler keeps the default-date listings of the configured categories
// warm so the first reader of the day never pays the upstream round trip.
type Scheduler struct {
	resolver   Resolver
	categories []string
	interval   time.Duration
	logger     *slog.Logger
}

func NewScheduler(resolver Resolver, categories []string, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		resolver:   resolver,
		categories: categories,
		interval:   interval,
		logger:     logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("prewarm scheduler started", "interval", s.interval, "categories", s.categories)

	s.runPrewarm(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("prewarm scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runPrewarm(ctx)
		}
	}
}

func (s *Scheduler) runPrewarm(ctx context.Context) {
	prewarmCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	for _, category := range s.categories {
		resp, err := s.resolver.Resolve(prewarmCtx, service.Request{Category: category, WithSummary: true})
		if err != nil {
			s.logger.Error("prewarm failed", "category", category, "error", err)
			continue
		}
		s.logger.Info("prewarmed", "category", category, "status", resp.Status, "from_cache", resp.FromCache)
	}
}
