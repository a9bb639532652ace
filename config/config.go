package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Extract request shapes accepted by POST /extract. Exactly one is active
// per deployment.
const (
	ExtractShapeHTML = "html" // {html, selectors} -> text content per selector
	ExtractShapeURL  = "url"  // {url, selector}   -> inner HTML, fetched in-process
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Browser BrowserConfig
	Scraper ScraperConfig
	Extract ExtractConfig
	Log     LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3001
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownTimeout bounds how long in-flight requests may drain.
	ShutdownTimeout time.Duration // default: 5s
}

// BrowserConfig controls how a per-request browser is launched.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's OS sandbox. Containers and most PaaS hosts
	// lack the kernel features the sandbox needs.
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to Chromium as --proxy-server.
	Proxy string

	// Stealth injects the stealth profile into every new page.
	Stealth bool // default: true

	// MaxSessions caps the number of browsers alive at the same time.
	MaxSessions int // default: 4

	// LaunchTimeout bounds process start + CDP connect.
	LaunchTimeout time.Duration // default: 30s

	// ExtraHeaders are sent with every request the page makes.
	ExtraHeaders map[string]string
}

// ScraperConfig controls navigation behaviour.
type ScraperConfig struct {
	// NavigationTimeout is the max time for navigate + load + serialize.
	NavigationTimeout time.Duration // default: 30s

	// BlockedResourceTypes lists sub-resource types the page must not load,
	// e.g. ["Image", "Font"]. default: none
	BlockedResourceTypes []string
}

// ExtractConfig controls POST /extract.
type ExtractConfig struct {
	// Shape is ExtractShapeHTML or ExtractShapeURL.
	Shape string // default: "html"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	shape := envOr("PAGEGRAB_EXTRACT_SHAPE", ExtractShapeHTML)
	if shape != ExtractShapeURL {
		shape = ExtractShapeHTML
	}

	return &Config{
		Server: ServerConfig{
			Host:            envOr("PAGEGRAB_HOST", "0.0.0.0"),
			Port:            envIntOr("PORT", 3001),
			Mode:            envOr("PAGEGRAB_MODE", "release"),
			ShutdownTimeout: envDurationOr("PAGEGRAB_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("PAGEGRAB_HEADLESS", true),
			NoSandbox:     envBoolOr("PAGEGRAB_NO_SANDBOX", true),
			BrowserBin:    os.Getenv("PAGEGRAB_BROWSER_BIN"),
			Proxy:         os.Getenv("PAGEGRAB_PROXY"),
			Stealth:       envBoolOr("PAGEGRAB_STEALTH", true),
			MaxSessions:   envIntOr("PAGEGRAB_MAX_SESSIONS", 4),
			LaunchTimeout: envDurationOr("PAGEGRAB_LAUNCH_TIMEOUT", 30*time.Second),
			ExtraHeaders:  envMapOr("PAGEGRAB_EXTRA_HEADERS", nil),
		},
		Scraper: ScraperConfig{
			NavigationTimeout:    envDurationOr("PAGEGRAB_NAV_TIMEOUT", 30*time.Second),
			BlockedResourceTypes: envSliceOr("PAGEGRAB_BLOCKED_RESOURCES", nil),
		},
		Extract: ExtractConfig{
			Shape: shape,
		},
		Log: LogConfig{
			Level:  envOr("PAGEGRAB_LOG_LEVEL", "info"),
			Format: envOr("PAGEGRAB_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

// envMapOr parses "Key=Value,Key2=Value2". Malformed pairs are skipped.
func envMapOr(key string, fallback map[string]string) map[string]string {
	pairs := envSliceOr(key, nil)
	if len(pairs) == 0 {
		return fallback
	}
	result := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		result[k] = strings.TrimSpace(v)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
