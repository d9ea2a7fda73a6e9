package sentiment

import (
	"time"

	"github.com/jonreiter/govader"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// Vader scores text with the VADER lexicon. The analyzer only reads its
// lexicon after construction, so one instance is shared by all callers.
type Vader struct {
	sia *govader.SentimentIntensityAnalyzer
}

func NewVader() *Vader {
	return &Vader{sia: govader.NewSentimentIntensityAnalyzer()}
}

func (v *Vader) Score(text string) domain.Sentiment {
	start := time.Now()
	s := v.sia.PolarityScores(text)
	observability.ObserveScore(time.Since(start))
	return domain.Sentiment{
		Compound: s.Compound,
		Positive: s.Positive,
		Neutral:  s.Neutral,
		Negative: s.Negative,
	}
}
