package scraper

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/models"
	"golang.org/x/sync/semaphore"
)

// Scraper runs the acquire -> fetch -> use -> release pipeline. Every call
// gets its own browser; the number alive at once is capped by MaxSessions.
// It is safe for concurrent use.
type Scraper struct {
	launcher    Launcher
	fetcher     *Fetcher
	slots       *semaphore.Weighted
	maxSessions int
	active      atomic.Int32
	closed      atomic.Bool
}

// New creates a Scraper on top of the given Launcher.
func New(l Launcher, browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Scraper {
	maxSessions := browserCfg.MaxSessions
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Scraper{
		launcher:    l,
		fetcher:     NewFetcher(scraperCfg),
		slots:       semaphore.NewWeighted(int64(maxSessions)),
		maxSessions: maxSessions,
	}
}

// WithDocument fetches url in a fresh browser session and hands the
// rendered HTML to use. The session is released exactly once after use
// returns, whether the fetch succeeded, failed, or use returned an error or
// panicked.
//
// Lifecycle:
//
//  1. Slot        – wait for a free session slot (honours ctx)
//  2. Acquire     – launch an isolated browser
//  3. DEFER       – release the browser, then the slot
//  4. Fetch       – new page, navigate, wait for load, serialize
//  5. Use         – caller formats or extracts while the session is still held
func (s *Scraper) WithDocument(ctx context.Context, url string, use func(doc string) error) error {
	if s.closed.Load() {
		return models.NewScrapeError(models.ErrCodeLaunch, "scraper is shutting down", nil)
	}

	// ── 1. Slot ─────────────────────────────────────────────────────
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return models.NewScrapeError(models.ErrCodeLaunch, "no browser slot available", err)
	}
	defer s.slots.Release(1)

	// ── 2. Acquire ──────────────────────────────────────────────────
	session, err := s.launcher.Acquire(ctx)
	if err != nil {
		return err
	}
	s.active.Add(1)

	// ── 3. CRITICAL DEFER: the browser never outlives the request ──
	defer func() {
		s.active.Add(-1)
		if relErr := session.Release(); relErr != nil {
			slog.Warn("cleanup: browser release reported an error",
				"url", url,
				"error", relErr,
			)
		}
	}()

	// ── 4. Fetch ────────────────────────────────────────────────────
	doc, err := s.fetcher.Fetch(ctx, session, url)
	if err != nil {
		return err
	}

	// ── 5. Use ──────────────────────────────────────────────────────
	return use(doc)
}

// Stats returns a snapshot of session utilisation.
func (s *Scraper) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    s.maxSessions,
		ActiveSessions: int(s.active.Load()),
	}
}

// Close rejects new work and waits until every in-flight session has been
// released or ctx is done.
func (s *Scraper) Close(ctx context.Context) error {
	s.closed.Store(true)
	slog.Info("scraper shutting down: waiting for in-flight sessions",
		"active", s.active.Load(),
	)
	if err := s.slots.Acquire(ctx, int64(s.maxSessions)); err != nil {
		return err
	}
	slog.Info("scraper shutdown complete")
	return nil
}
