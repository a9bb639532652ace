package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagegrab/models"
)

// Client-facing messages. Internal detail never reaches the response body.
const (
	msgURLMissing      = "URL parameter is missing."
	msgScrapeFailed    = "Failed to scrape the page. Please try again later."
	msgExtractInvalid  = "HTML content and a list of selectors are required."
	msgExtractURLInput = "URL and selector are required."
	msgExtractFailed   = "Failed to extract data. Please try again later."
)

// respondBadRequest writes a 400 with a static message. No browser has been
// acquired at this point.
func respondBadRequest(c *gin.Context, message string, err error) {
	slog.Debug("request rejected",
		"path", c.FullPath(),
		"error", err,
	)
	c.String(http.StatusBadRequest, message)
}

// respondFailure logs err with its code and writes a 500 with a static
// message.
func respondFailure(c *gin.Context, err error, message string, url string) {
	slog.Error("request failed",
		"path", c.FullPath(),
		"code", models.CodeOf(err),
		"url", url,
		"error", err,
	)
	c.String(http.StatusInternalServerError, message)
}
