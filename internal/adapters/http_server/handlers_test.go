package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "review_analyzer/internal/adapters/http_server"
	"review_analyzer/internal/adapters/sentiment"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/shared"
	"review_analyzer/internal/storage/memory"
)

type problemBody struct {
	Status int    `json:"status"`
	Code   string `json:"code"`
}

type fixture struct {
	store *memory.Store
	srv   http.Handler
	clock *clockwork.FakeClock
}

func newFixture(t *testing.T, opts server.Options, seed ...domain.Review) fixture {
	t.Helper()
	st := memory.New()
	for _, r := range seed {
		_, err := st.Append(context.Background(), r)
		require.NoError(t, err)
	}
	g := app.NewValidationGate(shared.AllowedLocations)
	sc := sentiment.NewVader()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC))

	s := server.New(opts)
	s.MountHandlers(&server.Handlers{
		Q: app.NewQueryService(st, sc, g, 4),
		W: app.NewWriteService(st, sc, g, clock),
	})
	return fixture{store: st, srv: s.Mux(), clock: clock}
}

func (f fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, req)
	return rr
}

func denverSeed() []domain.Review {
	ts := func(s string) time.Time {
		v, _ := time.ParseInLocation(domain.TimestampLayout, s, time.UTC)
		return v
	}
	return []domain.Review{
		{ID: "neg", Location: "Denver, Colorado", Timestamp: ts("2023-06-01 09:30:00"),
			Body: "Awful. The food was terrible and the waiter was rude."},
		{ID: "pos", Location: "Denver, Colorado", Timestamp: ts("2023-01-01 18:00:00"),
			Body: "Fantastic dinner, great service, I love this place!"},
	}
}

func TestListReviews_DenverScenario(t *testing.T) {
	f := newFixture(t, server.Options{}, denverSeed()...)

	q := url.Values{"location": {"Denver, Colorado"}, "start_date": {"2023-01-01"}, "end_date": {"2023-12-31"}}
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/reviews?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "pos", out[0]["id"])
	assert.Equal(t, "neg", out[1]["id"])
	assert.Equal(t, "2023-01-01 18:00:00", out[0]["timestamp"])

	sent, ok := out[0]["sentiment"].(map[string]any)
	require.True(t, ok)
	for _, k := range []string{"compound", "pos", "neu", "neg"} {
		assert.Contains(t, sent, k)
	}
}

func TestListReviews_UnknownLocationEmptyArray(t *testing.T) {
	f := newFixture(t, server.Options{}, denverSeed()...)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/reviews?location=Nowhere%2C+Mars", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestListReviews_BadDate(t *testing.T) {
	f := newFixture(t, server.Options{}, denverSeed()...)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/reviews?start_date=01-01-2023", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var p problemBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "InvalidFilter", p.Code)
}

func TestListReviews_ETag(t *testing.T) {
	f := newFixture(t, server.Options{}, denverSeed()...)

	first := f.do(t, httptest.NewRequest(http.MethodGet, "/reviews", nil))
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, f.do(t, req).Code)
}

func TestCreateReview_Form(t *testing.T) {
	f := newFixture(t, server.Options{})

	form := url.Values{"Location": {"Las Vegas, Nevada"}, "ReviewBody": {"Great buffet and lovely staff"}}
	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(t, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got domain.ScoredReview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Las Vegas, Nevada", got.Location)
	assert.Equal(t, "2024-02-03 04:05:06", got.Timestamp.Format(domain.TimestampLayout))
	assert.Greater(t, got.Sentiment.Compound, 0.0)

	// the new record shows up in an unfiltered read
	list := f.do(t, httptest.NewRequest(http.MethodGet, "/reviews", nil))
	var all []domain.ScoredReview
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, got.ID, all[0].ID)
	assert.Equal(t, got.Body, all[0].Body)
}

func TestCreateReview_JSON(t *testing.T) {
	f := newFixture(t, server.Options{})

	req := httptest.NewRequest(http.MethodPost, "/reviews",
		strings.NewReader(`{"location":"Phoenix, Arizona","body":"It was fine."}`))
	req.Header.Set("Content-Type", "application/json")
	rr := f.do(t, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestCreateReview_InvalidLocation(t *testing.T) {
	f := newFixture(t, server.Options{}, denverSeed()...)

	form := url.Values{"location": {"Nowhere, Mars"}, "body": {"hello"}}
	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(t, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var p problemBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "InvalidInput", p.Code)

	n, _ := f.store.Len(context.Background())
	assert.Equal(t, 2, n)
}

func TestCreateReview_MissingBody(t *testing.T) {
	f := newFixture(t, server.Options{})

	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader("location=Denver%2C+Colorado"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
}

func TestUnsupportedMethod(t *testing.T) {
	f := newFixture(t, server.Options{})

	rr := f.do(t, httptest.NewRequest(http.MethodDelete, "/reviews", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	var p problemBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "UnsupportedOperation", p.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestUnsupportedMethod_AllowFollowsRoute(t *testing.T) {
	f := newFixture(t, server.Options{})

	rr := f.do(t, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET", rr.Header().Get("Allow"))
}

func TestCreateReview_RateLimited(t *testing.T) {
	f := newFixture(t, server.Options{WriteRPS: 0.001, WriteBurst: 1})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader("location=Denver%2C+Colorado&body=ok"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return f.do(t, req).Code
	}
	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// reads are never throttled
	assert.Equal(t, http.StatusOK, f.do(t, httptest.NewRequest(http.MethodGet, "/reviews", nil)).Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, server.Options{})
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

type slowScorer struct{ d time.Duration }

func (s slowScorer) Score(string) domain.Sentiment {
	time.Sleep(s.d)
	return domain.Sentiment{Neutral: 1}
}

func TestTimeout_SlowHandlerGets504(t *testing.T) {
	s := server.New(server.Options{Timeout: 50 * time.Millisecond})
	s.Mount("/slow", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			w.WriteHeader(http.StatusOK)
		}
	}))
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/slow")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

// Writes that outlive the deadline still answer on the serving goroutine, so
// the client sees the stored review rather than a detached timeout.
func TestCreateReview_SlowScoringPastTimeout(t *testing.T) {
	st := memory.New()
	g := app.NewValidationGate(shared.AllowedLocations)
	sc := slowScorer{d: 150 * time.Millisecond}
	s := server.New(server.Options{Timeout: 50 * time.Millisecond})
	s.MountHandlers(&server.Handlers{
		Q: app.NewQueryService(st, sc, g, 2),
		W: app.NewWriteService(st, sc, g, nil),
	})
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	const n = 4
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			resp, err := http.Post(ts.URL+"/reviews", "application/x-www-form-urlencoded",
				strings.NewReader("location=Denver%2C+Colorado&body=slow+but+fine"))
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, http.StatusCreated, <-codes)
	}

	size, err := st.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n, size)
}
