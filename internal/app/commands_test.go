package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/storage/memory"
)

func TestSubmit_AppendsAndScores(t *testing.T) {
	st := memory.New()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 6, 7, 8, 9, 987_000_000, time.UTC))
	sc := &fakeScorer{scores: map[string]float64{"Lovely brunch": 0.6}}
	w := app.NewWriteService(st, sc, gate(), clock)

	got, err := w.Submit(context.Background(), "San Diego, California", "Lovely brunch")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "San Diego, California", got.Location)
	assert.Equal(t, at("2024-05-06 07:08:09"), got.Timestamp)
	assert.Equal(t, 0.6, got.Sentiment.Compound)

	// visible to an unfiltered read with the same id and body
	q := app.NewQueryService(st, sc, gate(), 2)
	out, err := q.Query(context.Background(), domain.FilterSpec{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, got.ID, out[0].ID)
	assert.Equal(t, got.Body, out[0].Body)
}

func TestSubmit_InvalidLeavesStoreUntouched(t *testing.T) {
	st := memory.New()
	w := app.NewWriteService(st, &fakeScorer{}, gate(), clockwork.NewFakeClock())

	_, err := w.Submit(context.Background(), "Nowhere, Mars", "hi")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = w.Submit(context.Background(), "Denver, Colorado", "   ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	n, _ := st.Len(context.Background())
	assert.Zero(t, n)
}

func TestSubmit_UniqueIDs(t *testing.T) {
	st := memory.New()
	w := app.NewWriteService(st, &fakeScorer{}, gate(), nil)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		r, err := w.Submit(context.Background(), "Fresno, California", "fine")
		require.NoError(t, err)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}

func TestSubmit_StoreError(t *testing.T) {
	w := app.NewWriteService(failingStore{err: errBoom}, &fakeScorer{}, gate(), clockwork.NewFakeClock())
	_, err := w.Submit(context.Background(), "Denver, Colorado", "ok")
	assert.ErrorIs(t, err, errBoom)
}
