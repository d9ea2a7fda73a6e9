// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
)

const maxWriteBody = 64 << 10

type Handlers struct {
	Q *app.QueryService
	W *app.WriteService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		if allow := s.allowedMethods(r.URL.Path); allow != "" {
			w.Header().Set("Allow", allow)
		}
		writeError(w, r, fmt.Errorf("%w: %s", domain.ErrUnsupportedOperation, r.Method))
	})

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	create := http.Handler(http.HandlerFunc(h.createReview))
	if s.writeRL != nil {
		create = s.writeRL.middleware(create)
	}
	// "/" is an alias of /reviews for older clients
	for _, p := range []string{"/reviews", "/"} {
		s.mux.Get(p, h.listReviews)
		s.mux.Method(http.MethodPost, p, create)
	}
}

// allowedMethods lists the methods registered for path, for the Allow header.
func (s *Server) allowedMethods(path string) string {
	var ms []string
	for _, rt := range s.mux.Routes() {
		if rt.Pattern != path {
			continue
		}
		for m := range rt.Handlers {
			if m != "*" {
				ms = append(ms, m)
			}
		}
	}
	sort.Strings(ms)
	return strings.Join(ms, ", ")
}

func writeProblem(w http.ResponseWriter, status int, title, code, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Code: code, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors to problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidFilter):
		writeProblem(w, http.StatusBadRequest, "Invalid filter", "InvalidFilter", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid input", "InvalidInput", err.Error())
	case errors.Is(err, domain.ErrUnsupportedOperation):
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "UnsupportedOperation", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "Internal", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.FilterSpec{
		Location:  q.Get("location"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	out, err := h.Q.Query(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body := calcETagAndBody(out)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "Internal", "")
		return
	}
	// reads are idempotent against an unchanged store, so the ETag is stable
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}

type createRequest struct {
	Location string `json:"location"`
	Body     string `json:"body"`

	// legacy form field names
	LegacyLocation string `json:"Location"`
	LegacyBody     string `json:"ReviewBody"`
}

func (c createRequest) fields() (string, string) {
	loc, body := c.Location, c.Body
	if loc == "" {
		loc = c.LegacyLocation
	}
	if body == "" {
		body = c.LegacyBody
	}
	return loc, body
}

func decodeCreate(w http.ResponseWriter, r *http.Request) (createRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWriteBody)

	var req createRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return createRequest{}, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return createRequest{}, err
	}
	req.Location = r.PostForm.Get("location")
	req.Body = r.PostForm.Get("body")
	req.LegacyLocation = r.PostForm.Get("Location")
	req.LegacyBody = r.PostForm.Get("ReviewBody")
	return req, nil
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreate(w, r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid input", "InvalidInput", "request body could not be parsed")
		return
	}
	loc, body := req.fields()

	out, err := h.W.Submit(r.Context(), loc, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := json.Marshal(out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if _, err := w.Write(b); err != nil {
		log.Error().Err(err).Msg("failed to write createReview body")
	}
}
