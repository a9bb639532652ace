package models

// Output formats accepted by GET /scrape.
const (
	OutputHTML     = "html"
	OutputMarkdown = "markdown"
	OutputText     = "text"
)

// ScrapeRequest is bound from the GET /scrape query string.
type ScrapeRequest struct {
	// URL is the target page. Required; must be an absolute http(s) URL so
	// file: and javascript: URLs never reach the browser.
	URL string `form:"url" binding:"required,http_url"`

	// OutputFormat controls the response body.
	// "html" (default): pretty-printed rendered HTML.
	// "markdown": rendered HTML converted to Markdown.
	// "text": readable plain text of the main content.
	// Unknown values are treated as "html".
	OutputFormat string `form:"output_format"`
}

// Defaults applies default values to unset or unknown fields.
func (r *ScrapeRequest) Defaults() {
	switch r.OutputFormat {
	case OutputHTML, OutputMarkdown, OutputText:
	default:
		r.OutputFormat = OutputHTML
	}
}

// HTMLExtractRequest is the POST /extract payload when the caller supplies
// the document itself.
type HTMLExtractRequest struct {
	// HTML is the document to query. Required.
	HTML string `json:"html" binding:"required"`

	// Selectors are CSS selectors, evaluated independently and reported in
	// this order. Required, at least one, none empty.
	Selectors []string `json:"selectors" binding:"required,min=1,dive,required"`
}

// URLExtractRequest is the POST /extract payload when the service fetches
// the page itself.
type URLExtractRequest struct {
	// URL is the target page. Required; must be an absolute http(s) URL so
	// file: and javascript: URLs never reach the browser.
	URL string `json:"url" binding:"required,http_url"`

	// Selector is a single CSS selector. Required.
	Selector string `json:"selector" binding:"required"`
}
