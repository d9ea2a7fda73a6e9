package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"review_analyzer/internal/domain"
)

// WriteService admits new reviews: validate, stamp, append, score.
type WriteService struct {
	store  domain.ReviewStore
	scorer domain.SentimentScorer
	gate   *ValidationGate
	clock  clockwork.Clock
	newID  func() string
}

func NewWriteService(st domain.ReviewStore, sc domain.SentimentScorer, g *ValidationGate, clock clockwork.Clock) *WriteService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &WriteService{store: st, scorer: sc, gate: g, clock: clock, newID: uuid.NewString}
}

// Submit validates and appends a review, returning it with its sentiment.
// Nothing is stored when validation fails.
func (s *WriteService) Submit(ctx context.Context, location, body string) (domain.ScoredReview, error) {
	in, err := s.gate.ValidateWrite(location, body)
	if err != nil {
		return domain.ScoredReview{}, err
	}

	r := domain.Review{
		ID:        s.newID(),
		Location:  in.Location,
		Timestamp: s.clock.Now().UTC().Truncate(time.Second),
		Body:      in.Body,
	}
	id, err := s.store.Append(ctx, r)
	if err != nil {
		return domain.ScoredReview{}, fmt.Errorf("append review: %w", err)
	}
	r.ID = id

	log.Debug().Str("id", id).Str("location", r.Location).Msg("review appended")
	return domain.ScoredReview{Review: r, Sentiment: s.scorer.Score(r.Body)}, nil
}
