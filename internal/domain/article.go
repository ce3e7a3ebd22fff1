package domain

import "time"

// RawArticle is a core entity describing metadata fetched from a source connector.
// Dedup identity is derived from URL, never stored on the article itself.
type RawArticle struct {
	SourceID     string
	Title        string
	URL          string
	Score        *int
	CommentCount *int
	Author       string
	CreatedAt    *time.Time
	SourceName   string
	Meta         map[string]any
}

// RankedResult is one entry of the AI gateway response after validation.
// Index is 1-based and only meaningful against the article slice sent in the same call.
type RankedResult struct {
	Index   int
	Title   string
	Score   float64
	Summary string
	Tags    []string
}

// IntPtr is a small helper for optional numeric article fields.
func IntPtr(v int) *int {
	return &v
}
