package domain

import "context"

// ReviewStore owns the canonical, append-only sequence of reviews.
// Implementations must be safe for concurrent Append and Snapshot calls.
type ReviewStore interface {
	// Append adds r at the end of the sequence. An empty r.ID is filled by the store.
	Append(ctx context.Context, r Review) (string, error)
	// Snapshot returns an independent copy of all records in insertion order.
	Snapshot(ctx context.Context) ([]Review, error)
	Len(ctx context.Context) (int, error)
}

// SentimentScorer must be a pure function of its input.
type SentimentScorer interface {
	Score(text string) Sentiment
}
