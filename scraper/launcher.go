package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/models"
	"github.com/ysmood/gson"
)

// RodLauncher launches one Chromium process per Acquire via go-rod.
type RodLauncher struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
}

// NewRodLauncher creates a RodLauncher. No browser is started until Acquire.
func NewRodLauncher(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *RodLauncher {
	return &RodLauncher{browserCfg: browserCfg, scraperCfg: scraperCfg}
}

// newLauncher builds the Chromium command line.
//
// NoSandbox is a hosting trade-off: containers and most PaaS runtimes lack
// the user namespaces Chromium's sandbox needs, so the browser would not
// start at all with it enabled.
func (r *RodLauncher) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(r.browserCfg.Headless).
		NoSandbox(r.browserCfg.NoSandbox)

	if r.browserCfg.BrowserBin != "" {
		l = l.Bin(r.browserCfg.BrowserBin)
	}
	if r.browserCfg.Proxy != "" {
		l = l.Proxy(r.browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// Acquire starts a fresh browser process and connects to it over CDP.
func (r *RodLauncher) Acquire(ctx context.Context) (Session, error) {
	launchCtx := ctx
	if r.browserCfg.LaunchTimeout > 0 {
		var cancel context.CancelFunc
		launchCtx, cancel = context.WithTimeout(ctx, r.browserCfg.LaunchTimeout)
		defer cancel()
	}

	l := r.newLauncher().Context(launchCtx)
	controlURL, err := l.Launch()
	if err != nil {
		discardProcess(l)
		return nil, models.NewScrapeError(
			models.ErrCodeLaunch,
			"failed to launch browser",
			err,
		)
	}

	// The browser object is not bound to the request context so that
	// Release can still close it after the request has been cancelled.
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		discardProcess(l)
		return nil, models.NewScrapeError(
			models.ErrCodeLaunch,
			"failed to connect to browser",
			err,
		)
	}
	slog.Debug("browser launched", "pid", l.PID())

	return &rodSession{
		launcher:   l,
		browser:    browser,
		browserCfg: r.browserCfg,
		blocked:    r.scraperCfg.BlockedResourceTypes,
	}, nil
}

// browserProcess is the part of *launcher.Launcher that tears a process down.
type browserProcess interface {
	PID() int
	Kill()
	Cleanup()
}

// discardProcess kills a half-started browser and removes its user-data
// dir. Cleanup waits for the process to exit, so it only runs when a
// process was actually started.
func discardProcess(p browserProcess) {
	if p.PID() == 0 {
		return
	}
	p.Kill()
	p.Cleanup()
}

// rodSession owns one launched Chromium process.
type rodSession struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	browserCfg config.BrowserConfig
	blocked    []string

	mu      sync.Mutex
	routers []*rod.HijackRouter

	once       sync.Once
	releaseErr error
}

// NewPage opens a tab with the stealth profile, extra headers and resource
// blocking applied before any navigation happens.
func (s *rodSession) NewPage(ctx context.Context) (Page, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodePageCreation,
			"failed to create page",
			err,
		)
	}

	if s.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if len(s.browserCfg.ExtraHeaders) > 0 {
		if hdrErr := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(s.browserCfg.ExtraHeaders),
		}).Call(page); hdrErr != nil {
			slog.Warn("failed to set extra headers", "error", hdrErr)
		}
	}

	if router := setupHijack(page, s.blocked); router != nil {
		s.mu.Lock()
		s.routers = append(s.routers, router)
		s.mu.Unlock()
	}

	return &rodPage{page: page}, nil
}

// Release closes the browser, kills the process tree and removes the
// temporary profile directory. Only the first call does any work.
func (s *rodSession) Release() error {
	s.once.Do(func() {
		s.mu.Lock()
		routers := s.routers
		s.routers = nil
		s.mu.Unlock()
		for _, router := range routers {
			_ = router.Stop()
		}

		closeErr := s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()

		if closeErr != nil {
			s.releaseErr = fmt.Errorf("browser close: %w", closeErr)
		}
	})
	return s.releaseErr
}

// rodPage adapts *rod.Page to Page.
type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
