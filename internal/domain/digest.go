package domain

import "time"

// UnknownSource marks digest items whose source article could not be resolved.
const UnknownSource = "unknown"

// DigestItem is a ranked, summarized entry ready for delivery.
type DigestItem struct {
	Rank       int
	Title      string
	URL        string
	Score      float64
	Summary    string
	Tags       []string
	SourceName string
}

// Digest is built once per run and shared read-only with every output channel.
type Digest struct {
	GeneratedAt time.Time
	Items       []DigestItem
}
