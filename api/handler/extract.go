package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagegrab/cleaner"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/scraper"
)

// ExtractHTML returns a handler for POST /extract that queries a document
// supplied in the request body. No browser is involved.
//
// 200 {"extractedData": {selector: [text, ...]}} in selector order.
func ExtractHTML(ex *cleaner.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.HTMLExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, msgExtractInvalid, err)
			return
		}

		data, err := ex.Extract(req.HTML, req.Selectors)
		if err != nil {
			respondFailure(c, err, msgExtractFailed, "")
			return
		}

		c.JSON(http.StatusOK, models.ExtractResponse{ExtractedData: data})
	}
}

// ExtractURL returns a handler for POST /extract that fetches url in a fresh
// browser and returns the inner HTML of every selector match, one per line.
func ExtractURL(sc *scraper.Scraper, ex *cleaner.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.URLExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, msgExtractURLInput, err)
			return
		}

		var matches []string
		err := sc.WithDocument(c.Request.Context(), req.URL, func(doc string) error {
			var err error
			matches, err = ex.ExtractInnerHTML(doc, req.Selector)
			return err
		})
		if err != nil {
			respondFailure(c, err, msgExtractFailed, req.URL)
			return
		}

		c.String(http.StatusOK, strings.Join(matches, "\n"))
	}
}
