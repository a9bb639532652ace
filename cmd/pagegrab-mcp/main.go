package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// extractHTMLRequest mirrors the pagegrab POST /extract body for servers
// running the html shape.
type extractHTMLRequest struct {
	HTML      string   `json:"html"`
	Selectors []string `json:"selectors"`
}

// extractURLRequest mirrors the pagegrab POST /extract body for servers
// running the url shape.
type extractURLRequest struct {
	URL      string `json:"url"`
	Selector string `json:"selector"`
}

func main() {
	apiURL := os.Getenv("PAGEGRAB_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3001"
	}
	apiURL = strings.TrimRight(apiURL, "/")

	s := server.NewMCPServer(
		"pagegrab",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapePageTool := mcp.NewTool("scrape_page",
		mcp.WithDescription("Render a web page in a headless browser and return the resulting HTML after the load event. Use for JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL of the page to render"),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format: 'html' (default, indented), 'markdown', or 'text' (readable text)"),
			mcp.Enum("html", "markdown", "text"),
		),
	)
	s.AddTool(scrapePageTool, handleScrapePage(apiURL))

	extractTool := mcp.NewTool("extract_selectors",
		mcp.WithDescription("Apply CSS selectors and return the matches. Pass 'html' and 'selectors' to query a document you already have, or 'url' and 'selector' to render a page first. The server accepts only the shape it was deployed with."),
		mcp.WithString("html",
			mcp.Description("HTML document to query"),
		),
		mcp.WithArray("selectors",
			mcp.Description("CSS selectors, reported in this order with the text of every match"),
		),
		mcp.WithString("url",
			mcp.Description("Absolute URL of a page to render and query"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector whose matches' inner HTML is returned, one per line"),
		),
	)
	s.AddTool(extractTool, handleExtractSelectors(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends req and returns the response body. Non-200 responses become
// errors carrying the server's message.
func apiDo(client *http.Client, req *http.Request) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s (HTTP %d)", strings.TrimSpace(string(body)), resp.StatusCode)
	}
	return string(body), nil
}

func handleScrapePage(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		q := url.Values{}
		q.Set("url", target)
		if format := request.GetString("output_format", ""); format != "" {
			q.Set("output_format", format)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/scrape?"+q.Encode(), nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}

		body, err := apiDo(client, httpReq)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(body), nil
	}
}

func handleExtractSelectors(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var payload any
		switch {
		case request.GetString("html", "") != "":
			selectors, err := request.RequireStringSlice("selectors")
			if err != nil || len(selectors) == 0 {
				return mcp.NewToolResultError("selectors is required with html"), nil
			}
			payload = extractHTMLRequest{HTML: request.GetString("html", ""), Selectors: selectors}
		case request.GetString("url", "") != "":
			selector := request.GetString("selector", "")
			if selector == "" {
				return mcp.NewToolResultError("selector is required with url"), nil
			}
			payload = extractURLRequest{URL: request.GetString("url", ""), Selector: selector}
		default:
			return mcp.NewToolResultError("either html and selectors or url and selector are required"), nil
		}

		b, err := json.Marshal(payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/extract", bytes.NewReader(b))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")

		body, err := apiDo(client, httpReq)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(body), nil
	}
}
