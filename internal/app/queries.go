package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// QueryService filters, scores and ranks the reviews of one store snapshot.
type QueryService struct {
	store   domain.ReviewStore
	scorer  domain.SentimentScorer
	gate    *ValidationGate
	workers int
}

func NewQueryService(st domain.ReviewStore, sc domain.SentimentScorer, g *ValidationGate, workers int) *QueryService {
	if workers <= 0 {
		workers = 1
	}
	return &QueryService{store: st, scorer: sc, gate: g, workers: workers}
}

// dateRange is a parsed FilterSpec date window. Zero values mean unbounded.
type dateRange struct {
	from  time.Time // inclusive
	until time.Time // exclusive: start of the day after endDate
}

func (d dateRange) contains(ts time.Time) bool {
	if !d.from.IsZero() && ts.Before(d.from) {
		return false
	}
	if !d.until.IsZero() && !ts.Before(d.until) {
		return false
	}
	return true
}

func parseDateRange(f domain.FilterSpec) (dateRange, error) {
	var d dateRange
	if f.StartDate != "" {
		t, err := time.ParseInLocation(domain.DateLayout, f.StartDate, time.UTC)
		if err != nil {
			return dateRange{}, fmt.Errorf("%w: start_date %q is not YYYY-MM-DD", domain.ErrInvalidFilter, f.StartDate)
		}
		d.from = t
	}
	if f.EndDate != "" {
		t, err := time.ParseInLocation(domain.DateLayout, f.EndDate, time.UTC)
		if err != nil {
			return dateRange{}, fmt.Errorf("%w: end_date %q is not YYYY-MM-DD", domain.ErrInvalidFilter, f.EndDate)
		}
		// widen to the whole day, 23:59:59 included
		d.until = t.AddDate(0, 0, 1)
	}
	return d, nil
}

// Query returns the reviews matching f, highest compound sentiment first.
// An unknown location yields an empty result rather than an error; bad
// dates fail with domain.ErrInvalidFilter.
func (s *QueryService) Query(ctx context.Context, f domain.FilterSpec) ([]domain.ScoredReview, error) {
	// an unknown location short-circuits before the dates are looked at
	if f.Location != "" && !s.gate.ValidLocation(f.Location) {
		observability.ObserveQuery(0)
		return []domain.ScoredReview{}, nil
	}
	dr, err := parseDateRange(f)
	if err != nil {
		return nil, err
	}

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	kept := make([]domain.Review, 0, len(snap))
	for _, r := range snap {
		if f.Location != "" && r.Location != f.Location {
			continue
		}
		if !dr.contains(r.Timestamp) {
			continue
		}
		kept = append(kept, r)
	}

	out := s.scoreAll(kept)
	Rank(out)
	observability.ObserveQuery(len(out))
	return out, nil
}

// scoreAll scores in parallel; each result lands at its source index so
// the snapshot order survives for the stable sort.
func (s *QueryService) scoreAll(rs []domain.Review) []domain.ScoredReview {
	out := make([]domain.ScoredReview, len(rs))
	if len(rs) == 0 {
		return out
	}
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range rs {
		i := i
		g.Go(func() error {
			out[i] = domain.ScoredReview{Review: rs[i], Sentiment: s.scorer.Score(rs[i].Body)}
			return nil
		})
	}
	_ = g.Wait() // scoring cannot fail
	return out
}

// Rank orders by compound sentiment, descending. Equal scores keep their
// relative order.
func Rank(rs []domain.ScoredReview) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Sentiment.Compound > rs[j].Sentiment.Compound
	})
}
