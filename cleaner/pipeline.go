package cleaner

import (
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/pagegrab/models"
)

// Cleaner turns a rendered document into the requested output format.
//
// The converter is created once and reused across all requests (goroutine-safe).
type Cleaner struct {
	formatter   *Formatter
	mdConverter *converter.Converter
}

// NewCleaner initialises the Cleaner with a formatter and a pre-configured
// Markdown converter.
func NewCleaner(f *Formatter) *Cleaner {
	if f == nil {
		f = NewFormatter()
	}
	return &Cleaner{
		formatter:   f,
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Render converts rawHTML to format. It never fails: when a conversion
// cannot be done the unformatted document is returned.
//
//	html     (default) indented HTML
//	markdown html-to-markdown with sourceURL resolving relative links
//	text     readable text, see ExtractText
func (c *Cleaner) Render(rawHTML, sourceURL, format string) string {
	switch format {
	case models.OutputMarkdown:
		// The page URL resolves relative links and image sources.
		md, err := c.mdConverter.ConvertString(rawHTML, converter.WithDomain(sourceURL))
		if err != nil {
			slog.Debug("markdown conversion failed, returning unformatted html",
				"url", sourceURL, "error", err,
			)
			return rawHTML
		}
		return md
	case models.OutputText:
		return ExtractText(rawHTML, sourceURL)
	default:
		return c.formatter.Format(rawHTML)
	}
}
