package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be considered valid.
const minContentLength = 50

// ExtractText returns the readable text of a page.
//
// The Mozilla Readability algorithm is tried first. When it fails or finds
// too little content, the text of the whole document body is returned
// instead, so the result is only empty for an empty page.
func ExtractText(rawHTML string, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL, using document text",
			"url", sourceURL, "error", err,
		)
		return documentText(rawHTML)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed, using document text",
			"url", sourceURL, "error", err,
		)
		return documentText(rawHTML)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentLength {
		slog.Debug("readability: extracted content too short, using document text",
			"url", sourceURL, "length", len(text),
		)
		return documentText(rawHTML)
	}
	return text
}

// documentText collapses the visible text of rawHTML, skipping script and
// style contents. Unparseable input is returned as-is.
func documentText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}
