package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/shared"
	"review_analyzer/internal/storage/memory"
)

// ---- fakes ----

// fakeScorer returns a fixed compound per body; unknown bodies score 0.
type fakeScorer struct {
	scores map[string]float64
	calls  atomic.Int64
}

func (f *fakeScorer) Score(text string) domain.Sentiment {
	f.calls.Add(1)
	c := f.scores[text]
	return domain.Sentiment{Compound: c, Positive: max(c, 0), Negative: max(-c, 0), Neutral: 1 - abs(c)}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

type failingStore struct{ err error }

func (f failingStore) Append(context.Context, domain.Review) (string, error) { return "", f.err }
func (f failingStore) Snapshot(context.Context) ([]domain.Review, error)     { return nil, f.err }
func (f failingStore) Len(context.Context) (int, error)                      { return 0, f.err }

var errBoom = errors.New("boom")

// ---- helpers ----

func gate() *app.ValidationGate { return app.NewValidationGate(shared.AllowedLocations) }

func at(s string) time.Time {
	t, err := time.ParseInLocation(domain.TimestampLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func seed(rs ...domain.Review) *memory.Store {
	st := memory.New()
	for _, r := range rs {
		if _, err := st.Append(context.Background(), r); err != nil {
			panic(err)
		}
	}
	return st
}

func ids(rs []domain.ScoredReview) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
