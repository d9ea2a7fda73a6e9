package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type reviewJSON struct {
	ID        string     `json:"id"`
	Location  string     `json:"location"`
	Timestamp string     `json:"timestamp"`
	Body      string     `json:"body"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
}

func (r Review) wire() reviewJSON {
	return reviewJSON{
		ID:        r.ID,
		Location:  r.Location,
		Timestamp: r.Timestamp.UTC().Format(TimestampLayout),
		Body:      r.Body,
	}
}

func (w reviewJSON) review() (Review, error) {
	ts, err := time.ParseInLocation(TimestampLayout, w.Timestamp, time.UTC)
	if err != nil {
		return Review{}, fmt.Errorf("review %q: bad timestamp: %w", w.ID, err)
	}
	return Review{ID: w.ID, Location: w.Location, Timestamp: ts, Body: w.Body}, nil
}

func (r Review) MarshalJSON() ([]byte, error) { return json.Marshal(r.wire()) }

func (r *Review) UnmarshalJSON(b []byte) error {
	var w reviewJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out, err := w.review()
	if err != nil {
		return err
	}
	*r = out
	return nil
}

// ScoredReview needs its own codec: the promoted Review methods would drop the sentiment.

func (s ScoredReview) MarshalJSON() ([]byte, error) {
	w := s.Review.wire()
	sent := s.Sentiment
	w.Sentiment = &sent
	return json.Marshal(w)
}

func (s *ScoredReview) UnmarshalJSON(b []byte) error {
	var w reviewJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	r, err := w.review()
	if err != nil {
		return err
	}
	s.Review = r
	s.Sentiment = Sentiment{}
	if w.Sentiment != nil {
		s.Sentiment = *w.Sentiment
	}
	return nil
}
