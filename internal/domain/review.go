package domain

import "time"

// TimestampLayout is the wire and seed-file format of review timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the format of the start/end date filters.
const DateLayout = "2006-01-02"

// Review is immutable once appended to a store.
type Review struct {
	ID        string
	Location  string
	Timestamp time.Time // second precision, UTC
	Body      string
}

// Sentiment is derived from a review body on every read; it is never stored.
type Sentiment struct {
	Compound float64 `json:"compound"` // [-1, 1], ranking key
	Positive float64 `json:"pos"`
	Neutral  float64 `json:"neu"`
	Negative float64 `json:"neg"`
}

type ScoredReview struct {
	Review
	Sentiment Sentiment
}

// FilterSpec is the raw read filter as received from a caller.
// Empty strings mean "not set".
type FilterSpec struct {
	Location  string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
}
