package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagegrab/cleaner"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/scraper"
)

// Scrape returns a handler for GET /scrape.
//
// Orchestration flow:
//  1. Bind & validate the query string, apply defaults.
//  2. Scraper.WithDocument → rendered HTML, browser released afterwards.
//  3. Cleaner.Render      → html/markdown/text, never fails.
//  4. Respond 200 text/plain.
func Scrape(sc *scraper.Scraper, cl *cleaner.Cleaner) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondBadRequest(c, msgURLMissing, err)
			return
		}
		req.Defaults()

		// ── 2. Scrape + render ──────────────────────────────────────
		start := time.Now()
		var body string
		err := sc.WithDocument(c.Request.Context(), req.URL, func(doc string) error {
			body = cl.Render(doc, req.URL, req.OutputFormat)
			return nil
		})
		if err != nil {
			respondFailure(c, err, msgScrapeFailed, req.URL)
			return
		}

		c.Header("X-Elapsed-Ms", formatMs(time.Since(start)))
		c.String(http.StatusOK, body)
	}
}

func formatMs(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
