package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagegrab/api"
	"github.com/use-agent/pagegrab/cleaner"
	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/scraper"
	"github.com/use-agent/pagegrab/scraper/scrapertest"
)

const (
	msgURLMissing      = "URL parameter is missing."
	msgScrapeFailed    = "Failed to scrape the page. Please try again later."
	msgExtractInvalid  = "HTML content and a list of selectors are required."
	msgExtractURLInput = "URL and selector are required."
	msgExtractFailed   = "Failed to extract data. Please try again later."
)

type testServer struct {
	handler  http.Handler
	launcher *scrapertest.Launcher
	scraper  *scraper.Scraper
}

func newTestServer(t *testing.T, l *scrapertest.Launcher, shape string, opts ...cleaner.FormatterOption) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "test"},
		Browser: config.BrowserConfig{MaxSessions: 2},
		Scraper: config.ScraperConfig{NavigationTimeout: 50 * time.Millisecond},
		Extract: config.ExtractConfig{Shape: shape},
	}
	sc := scraper.New(l, cfg.Browser, cfg.Scraper)
	cl := cleaner.NewCleaner(cleaner.NewFormatter(opts...))
	r := api.NewRouter(sc, cl, cleaner.NewExtractor(), cfg, time.Now())
	return &testServer{handler: r, launcher: l, scraper: sc}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func scrapePath(target string) string {
	return "/scrape?url=" + url.QueryEscape(target)
}

func assertReleasedOnce(t *testing.T, l *scrapertest.Launcher) {
	t.Helper()
	sessions := l.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Releases())
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, &scrapertest.Launcher{}, config.ExtractShapeHTML)

	w := s.do(http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello World!", w.Body.String())
}

func TestScrape_Success(t *testing.T) {
	l := &scrapertest.Launcher{HTML: "<html><body><h1>Hi</h1></body></html>"}
	s := newTestServer(t, l, config.ExtractShapeHTML)

	w := s.do(http.MethodGet, scrapePath("https://example.com"), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Body.String(), "<h1>Hi</h1>")
	assert.Equal(t, []string{"https://example.com"}, l.URLs())
	assertReleasedOnce(t, l)
}

func TestScrape_FormattingFailureStillSucceeds(t *testing.T) {
	raw := "<html><body><h1>Hi</h1></body></html>"
	l := &scrapertest.Launcher{HTML: raw}
	s := newTestServer(t, l, config.ExtractShapeHTML, cleaner.WithMaxTokenBuf(4))

	w := s.do(http.MethodGet, scrapePath("https://example.com"), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, raw, w.Body.String())
	assertReleasedOnce(t, l)
}

func TestScrape_Markdown(t *testing.T) {
	l := &scrapertest.Launcher{HTML: "<html><body><h1>Hi</h1></body></html>"}
	s := newTestServer(t, l, config.ExtractShapeHTML)

	w := s.do(http.MethodGet, scrapePath("https://example.com")+"&output_format=markdown", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# Hi", strings.TrimSpace(w.Body.String()))
}

func TestScrape_RejectsBeforeAcquiring(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing url", "/scrape"},
		{"empty url", "/scrape?url="},
		{"not a url", "/scrape?url=not-a-url"},
		{"local file", scrapePath("file:///etc/passwd")},
		{"javascript", scrapePath("javascript:alert(1)")},
		{"ftp", scrapePath("ftp://example.com/file")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &scrapertest.Launcher{}
			s := newTestServer(t, l, config.ExtractShapeHTML)

			w := s.do(http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, msgURLMissing, w.Body.String())
			assert.Equal(t, 0, l.Attempts())
		})
	}
}

func TestScrape_Failures(t *testing.T) {
	tests := []struct {
		name     string
		launcher *scrapertest.Launcher
	}{
		{"navigation timeout", &scrapertest.Launcher{HangNavigation: true}},
		{"navigation error", &scrapertest.Launcher{NavErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}},
		{"page creation error", &scrapertest.Launcher{PageErr: errors.New("tab crashed")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.launcher, config.ExtractShapeHTML)

			w := s.do(http.MethodGet, scrapePath("https://slow.example"), "")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, msgScrapeFailed, w.Body.String())
			assertReleasedOnce(t, tt.launcher)
		})
	}
}

func TestScrape_LaunchFailure(t *testing.T) {
	l := &scrapertest.Launcher{
		LaunchErr: models.NewScrapeError(models.ErrCodeLaunch, "failed to launch browser", errors.New("no chrome")),
	}
	s := newTestServer(t, l, config.ExtractShapeHTML)

	w := s.do(http.MethodGet, scrapePath("https://example.com"), "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgScrapeFailed, w.Body.String())
	assert.NotContains(t, w.Body.String(), "chrome")
}

func TestExtractHTML_Success(t *testing.T) {
	l := &scrapertest.Launcher{}
	s := newTestServer(t, l, config.ExtractShapeHTML)

	w := s.do(http.MethodPost, "/extract", `{"html":"<ul><li>a</li><li>b</li></ul>","selectors":["li"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"extractedData":{"li":["a","b"]}}`, w.Body.String())
	assert.Equal(t, 0, l.Attempts())
}

func TestExtractHTML_PreservesSelectorOrder(t *testing.T) {
	s := newTestServer(t, &scrapertest.Launcher{}, config.ExtractShapeHTML)

	w := s.do(http.MethodPost, "/extract", `{"html":"<h1>T</h1><p>x</p>","selectors":["p","h1","table"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, `{"p":["x"],"h1":["T"],"table":[]}`, string(raw["extractedData"]))
}

func TestExtractHTML_BadRequests(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"html":"<p>x</p>"}`,
		`{"selectors":["p"]}`,
		`{"html":"<p>x</p>","selectors":[]}`,
		`{"html":"<p>x</p>","selectors":[""]}`,
		`{"html":"<p>x</p>","selectors":"p"}`,
		`not json`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			l := &scrapertest.Launcher{}
			s := newTestServer(t, l, config.ExtractShapeHTML)

			w := s.do(http.MethodPost, "/extract", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, msgExtractInvalid, w.Body.String())
			assert.Equal(t, 0, l.Attempts())
		})
	}
}

func TestExtractHTML_InvalidSelector(t *testing.T) {
	s := newTestServer(t, &scrapertest.Launcher{}, config.ExtractShapeHTML)

	w := s.do(http.MethodPost, "/extract", `{"html":"<p>x</p>","selectors":["p[["]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgExtractFailed, w.Body.String())
}

func TestExtractURL_Success(t *testing.T) {
	l := &scrapertest.Launcher{HTML: `<html><body><p class="x"><b>1</b></p><p class="x">2</p></body></html>`}
	s := newTestServer(t, l, config.ExtractShapeURL)

	w := s.do(http.MethodPost, "/extract", `{"url":"https://example.com","selector":".x"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "<b>1</b>\n2", w.Body.String())
	assertReleasedOnce(t, l)
}

func TestExtractURL_BadRequests(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"url":"https://example.com"}`,
		`{"selector":"p"}`,
		`{"url":"not-a-url","selector":"p"}`,
		`{"url":"file:///etc/passwd","selector":"p"}`,
		`{"url":"javascript:alert(1)","selector":"p"}`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			l := &scrapertest.Launcher{}
			s := newTestServer(t, l, config.ExtractShapeURL)

			w := s.do(http.MethodPost, "/extract", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, msgExtractURLInput, w.Body.String())
			assert.Equal(t, 0, l.Attempts())
		})
	}
}

func TestExtractURL_FailuresReleaseSession(t *testing.T) {
	tests := []struct {
		name     string
		launcher *scrapertest.Launcher
		body     string
	}{
		{"navigation timeout", &scrapertest.Launcher{HangNavigation: true}, `{"url":"https://example.com","selector":"p"}`},
		{"invalid selector", &scrapertest.Launcher{HTML: "<p>x</p>"}, `{"url":"https://example.com","selector":"p[["}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.launcher, config.ExtractShapeURL)

			w := s.do(http.MethodPost, "/extract", tt.body)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, msgExtractFailed, w.Body.String())
			assertReleasedOnce(t, tt.launcher)
		})
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &scrapertest.Launcher{}, config.ExtractShapeHTML)

	w := s.do(http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 2, resp.SessionStats.MaxSessions)
	assert.Equal(t, 0, resp.SessionStats.ActiveSessions)
	assert.NotEmpty(t, resp.Version)
}

// holdSessions keeps n sessions busy until the returned func is called.
func holdSessions(t *testing.T, sc *scraper.Scraper, n int) func() {
	t.Helper()
	hold := make(chan struct{})
	var entered, done sync.WaitGroup
	entered.Add(n)
	done.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer done.Done()
			_ = sc.WithDocument(context.Background(), "https://example.com", func(string) error {
				entered.Done()
				<-hold
				return nil
			})
		}()
	}
	entered.Wait()
	return func() {
		close(hold)
		done.Wait()
	}
}

func TestHealth_DegradesAboveEightyPercent(t *testing.T) {
	tests := []struct {
		max, active int
		want        string
	}{
		{max: 2, active: 1, want: "healthy"},
		{max: 2, active: 2, want: "degraded"},
		{max: 5, active: 4, want: "healthy"},
		{max: 5, active: 5, want: "degraded"},
		{max: 10, active: 9, want: "degraded"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.active, tt.max), func(t *testing.T) {
			cfg := &config.Config{
				Server:  config.ServerConfig{Mode: "test"},
				Browser: config.BrowserConfig{MaxSessions: tt.max},
				Scraper: config.ScraperConfig{NavigationTimeout: time.Second},
			}
			sc := scraper.New(&scrapertest.Launcher{HTML: "<p>x</p>"}, cfg.Browser, cfg.Scraper)
			r := api.NewRouter(sc, cleaner.NewCleaner(nil), cleaner.NewExtractor(), cfg, time.Now())

			release := holdSessions(t, sc, tt.active)
			defer release()

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.active, resp.SessionStats.ActiveSessions)
		})
	}
}
