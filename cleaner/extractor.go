package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/pagegrab/models"
)

// Extractor applies CSS selectors to an HTML document.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract runs every selector against rawHTML and collects the text content
// of each match in document order. The result keeps the order of selectors;
// a selector that matches nothing maps to an empty slice.
func (e *Extractor) Extract(rawHTML string, selectors []string) (*models.ExtractionResult, error) {
	if len(selectors) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "no selectors given", nil)
	}

	matchers := make([]cascadia.Selector, len(selectors))
	for i, s := range selectors {
		m, err := compileSelector(s)
		if err != nil {
			return nil, err
		}
		matchers[i] = m
	}

	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	result := models.NewExtractionResult()
	for i, m := range matchers {
		texts := make([]string, 0)
		doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, s.Text())
		})
		result.Set(selectors[i], texts)
	}
	return result, nil
}

// ExtractInnerHTML returns the inner HTML of every element in rawHTML that
// matches selector, in document order.
func (e *Extractor) ExtractInnerHTML(rawHTML string, selector string) ([]string, error) {
	m, err := compileSelector(selector)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0)
	var renderErr error
	doc.FindMatcher(m).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		inner, err := s.Html()
		if err != nil {
			renderErr = err
			return false
		}
		matches = append(matches, inner)
		return true
	})
	if renderErr != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "failed to render match", renderErr)
	}
	return matches, nil
}

func compileSelector(selector string) (cascadia.Selector, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "empty selector", nil)
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "invalid selector "+selector, err)
	}
	return m, nil
}

func parseDocument(rawHTML string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "failed to parse html", err)
	}
	return doc, nil
}
