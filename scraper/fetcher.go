package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/models"
)

// Fetcher turns a URL into rendered HTML using a caller-owned Session.
type Fetcher struct {
	navTimeout time.Duration
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg config.ScraperConfig) *Fetcher {
	return &Fetcher{navTimeout: cfg.NavigationTimeout}
}

// Fetch opens a page in session, navigates to url, waits for the load event
// and returns the serialized DOM.
//
// The URL is handed to the browser untouched; a malformed value shows up as
// a navigation failure. The session is never released here.
func (f *Fetcher) Fetch(ctx context.Context, session Session, url string) (string, error) {
	if url == "" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "url is empty", nil)
	}

	if f.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.navTimeout)
		defer cancel()
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		var se *models.ScrapeError
		if errors.As(err, &se) {
			return "", se
		}
		return "", models.NewScrapeError(models.ErrCodePageCreation, "failed to create page", err)
	}

	if err := page.Navigate(ctx, url); err != nil {
		return "", categorizeError(err, "navigation to target URL failed")
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can log them with a stable code.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
