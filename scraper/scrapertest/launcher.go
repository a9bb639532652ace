// Package scrapertest provides an in-memory scraper.Launcher for tests that
// must observe session acquisition and release without starting a browser.
package scrapertest

import (
	"context"
	"sync"

	"github.com/use-agent/pagegrab/scraper"
)

// Launcher is a spy scraper.Launcher. Its zero value serves an empty
// document; set the exported fields to script failures.
type Launcher struct {
	// HTML is returned by every page's HTML call.
	HTML string

	// LaunchErr, PageErr, NavErr and HTMLErr fail the matching step.
	LaunchErr error
	PageErr   error
	NavErr    error
	HTMLErr   error

	// HangNavigation makes Navigate block until its context is done.
	HangNavigation bool

	mu       sync.Mutex
	sessions []*Session
	attempts int
	urls     []string
}

// Acquire records the attempt and returns a new Session, or LaunchErr.
func (l *Launcher) Acquire(ctx context.Context) (scraper.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	s := &Session{launcher: l}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Attempts is the number of Acquire calls, successful or not.
func (l *Launcher) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Sessions returns every session handed out so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// URLs returns every URL passed to Navigate, in call order.
func (l *Launcher) URLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}

func (l *Launcher) recordURL(url string) {
	l.mu.Lock()
	l.urls = append(l.urls, url)
	l.mu.Unlock()
}

// Session is a spy scraper.Session.
type Session struct {
	launcher *Launcher

	mu       sync.Mutex
	releases int
	pages    int
}

// NewPage returns a page or the launcher's PageErr.
func (s *Session) NewPage(ctx context.Context) (scraper.Page, error) {
	if s.launcher.PageErr != nil {
		return nil, s.launcher.PageErr
	}
	s.mu.Lock()
	s.pages++
	s.mu.Unlock()
	return &page{launcher: s.launcher}, nil
}

// Release counts the call.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	return nil
}

// Pages is the number of pages opened in this session.
func (s *Session) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// Releases is the number of Release calls on this session.
func (s *Session) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

type page struct {
	launcher *Launcher
}

func (p *page) Navigate(ctx context.Context, url string) error {
	p.launcher.recordURL(url)
	if p.launcher.HangNavigation {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.launcher.NavErr
}

func (p *page) HTML(ctx context.Context) (string, error) {
	if p.launcher.HTMLErr != nil {
		return "", p.launcher.HTMLErr
	}
	return p.launcher.HTML, nil
}
