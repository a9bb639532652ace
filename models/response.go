package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ExtractionResult maps selector -> captured strings. Iteration and JSON
// encoding follow selector insertion order.
type ExtractionResult = orderedmap.OrderedMap[string, []string]

// NewExtractionResult returns an empty ExtractionResult.
func NewExtractionResult() *ExtractionResult {
	return orderedmap.New[string, []string]()
}

// ExtractResponse is the 200 body for POST /extract with an HTML payload.
type ExtractResponse struct {
	ExtractedData *ExtractionResult `json:"extractedData"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	SessionStats SessionStats `json:"session_stats"`
	Version      string       `json:"version"`
}

// SessionStats reports browser session utilisation.
type SessionStats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
}
