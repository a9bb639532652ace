package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:3001", "pagegrab base URL")
	runs        = flag.Int("runs", 3, "Number of requests per URL and format")
	concurrency = flag.Int("concurrency", 2, "Requests in flight at once")
	formats     = flag.String("formats", "html,markdown,text", "Comma-separated output formats")
	output      = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

type healthResponse struct {
	Status       string `json:"status"`
	SessionStats struct {
		MaxSessions    int `json:"max_sessions"`
		ActiveSessions int `json:"active_sessions"`
	} `json:"session_stats"`
}

// --- Benchmark result types ---

type runResult struct {
	Run           int    `json:"run"`
	TotalMs       int64  `json:"total_ms"`
	ServerMs      int64  `json:"server_ms"`
	ContentLength int    `json:"content_length"`
	StatusCode    int    `json:"status_code"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

type caseResult struct {
	URL    string      `json:"url"`
	Label  string      `json:"label"`
	Format string      `json:"format"`
	Runs   []runResult `json:"runs"`
	P50Ms  int64       `json:"p50_ms"`
	MaxMs  int64       `json:"max_ms"`
	AvgLen float64     `json:"avg_content_length"`
}

type benchmarkReport struct {
	Timestamp   string       `json:"timestamp"`
	APIURL      string       `json:"api_url"`
	RunsPerCase int          `json:"runs_per_case"`
	Concurrency int          `json:"concurrency"`
	PeakActive  int          `json:"peak_active_sessions"`
	Results     []caseResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== pagegrab benchmark ===")
	fmt.Printf("API URL:     %s\n", *apiURL)
	fmt.Printf("Runs/case:   %d\n", *runs)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Output:      %s\n", *output)
	fmt.Println()

	client := &http.Client{Timeout: 90 * time.Second}

	h, err := fetchHealth(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}
	fmt.Printf("Server: %s, %d session slots\n\n", h.Status, h.SessionStats.MaxSessions)

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerCase: *runs,
		Concurrency: *concurrency,
	}

	ctx, cancel := context.WithCancel(context.Background())
	peak := watchPeak(ctx, client)

	for _, t := range testURLs {
		for _, format := range strings.Split(*formats, ",") {
			format = strings.TrimSpace(format)
			fmt.Printf("Benchmarking [%s/%s] %s ... ", t.Label, format, t.URL)
			cr := runCase(client, t.URL, format)
			cr.Label = t.Label
			fmt.Printf("p50 %dms  max %dms\n", cr.P50Ms, cr.MaxMs)
			report.Results = append(report.Results, cr)
		}
	}

	cancel()
	report.PeakActive = <-peak

	printTable(report.Results)
	fmt.Printf("\nPeak active sessions observed: %d\n", report.PeakActive)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Detailed results written to %s\n", *output)
}

func fetchHealth(client *http.Client) (*healthResponse, error) {
	resp, err := client.Get(*apiURL + "/health")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

// watchPeak polls /health until ctx is done and reports the highest
// active_sessions value seen.
func watchPeak(ctx context.Context, client *http.Client) <-chan int {
	out := make(chan int, 1)
	go func() {
		peak := 0
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				out <- peak
				return
			case <-ticker.C:
				if h, err := fetchHealth(client); err == nil && h.SessionStats.ActiveSessions > peak {
					peak = h.SessionStats.ActiveSessions
				}
			}
		}
	}()
	return out
}

func runCase(client *http.Client, target, format string) caseResult {
	cr := caseResult{URL: target, Format: format, Runs: make([]runResult, *runs)}

	var g errgroup.Group
	g.SetLimit(*concurrency)
	var mu sync.Mutex
	for i := 0; i < *runs; i++ {
		g.Go(func() error {
			rr := scrapeOnce(client, target, format, i+1)
			mu.Lock()
			cr.Runs[i] = rr
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var latencies []int64
	var totalLen int
	for _, r := range cr.Runs {
		if !r.Success {
			continue
		}
		latencies = append(latencies, r.TotalMs)
		totalLen += r.ContentLength
	}
	if len(latencies) > 0 {
		sort.Slice(latencies, func(a, b int) bool { return latencies[a] < latencies[b] })
		cr.P50Ms = latencies[len(latencies)/2]
		cr.MaxMs = latencies[len(latencies)-1]
		cr.AvgLen = float64(totalLen) / float64(len(latencies))
	}
	return cr
}

func scrapeOnce(client *http.Client, target, format string, run int) runResult {
	rr := runResult{Run: run}

	q := url.Values{}
	q.Set("url", target)
	q.Set("output_format", format)

	start := time.Now()
	resp, err := client.Get(*apiURL + "/scrape?" + q.Encode())
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	rr.TotalMs = time.Since(start).Milliseconds()
	if err != nil {
		rr.Error = fmt.Sprintf("read error: %v", err)
		return rr
	}

	rr.StatusCode = resp.StatusCode
	rr.ContentLength = len(body)
	rr.ServerMs, _ = strconv.ParseInt(resp.Header.Get("X-Elapsed-Ms"), 10, 64)
	rr.Success = resp.StatusCode == http.StatusOK
	if !rr.Success {
		rr.Error = strings.TrimSpace(string(body))
	}
	return rr
}

func printTable(results []caseResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tFormat\tp50\tMax\tContent Len\tOK\n")
	fmt.Fprintf(w, "───\t──────\t───\t───\t───────────\t──\n")

	for _, r := range results {
		ok := 0
		for _, run := range r.Runs {
			if run.Success {
				ok++
			}
		}
		if ok == 0 {
			fmt.Fprintf(w, "%s\t%s\tFAILED\t-\t-\t0/%d\n", truncateURL(r.URL, 40), r.Format, len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%dms\t%dms\t%s\t%d/%d\n",
			truncateURL(r.URL, 40),
			r.Format,
			r.P50Ms,
			r.MaxMs,
			formatInt(int(r.AvgLen)),
			ok, len(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
