package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.NoSandbox)
	assert.True(t, cfg.Browser.Stealth)
	assert.Equal(t, 4, cfg.Browser.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.Scraper.NavigationTimeout)
	assert.Empty(t, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, ExtractShapeHTML, cfg.Extract.Shape)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PAGEGRAB_NO_SANDBOX", "false")
	t.Setenv("PAGEGRAB_NAV_TIMEOUT", "5s")
	t.Setenv("PAGEGRAB_BLOCKED_RESOURCES", "Image, Font ,")
	t.Setenv("PAGEGRAB_EXTRACT_SHAPE", "url")
	t.Setenv("PAGEGRAB_EXTRA_HEADERS", "Accept-Language=de-DE, X-Test = 1,broken")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Browser.NoSandbox)
	assert.Equal(t, 5*time.Second, cfg.Scraper.NavigationTimeout)
	assert.Equal(t, []string{"Image", "Font"}, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, ExtractShapeURL, cfg.Extract.Shape)
	assert.Equal(t, map[string]string{"Accept-Language": "de-DE", "X-Test": "1"}, cfg.Browser.ExtraHeaders)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("PAGEGRAB_HEADLESS", "maybe")
	t.Setenv("PAGEGRAB_EXTRACT_SHAPE", "both")

	cfg := Load()

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, ExtractShapeHTML, cfg.Extract.Shape)
}
