package scraper

import "context"

// Launcher starts isolated browser instances. Every Session it returns is
// owned by exactly one request.
type Launcher interface {
	// Acquire starts a browser. On error nothing is left running.
	Acquire(ctx context.Context) (Session, error)
}

// Session is one running browser instance.
type Session interface {
	// NewPage opens a tab in the instance.
	NewPage(ctx context.Context) (Page, error)

	// Release terminates the instance and all of its pages. Calls after the
	// first are no-ops.
	Release() error
}

// Page is a single tab.
type Page interface {
	// Navigate loads url and returns once the load event has fired.
	Navigate(ctx context.Context, url string) error

	// HTML serializes the current DOM.
	HTML(ctx context.Context) (string, error)
}
