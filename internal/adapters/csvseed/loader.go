package csvseed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_analyzer/internal/domain"
)

// Column names of the seed file. ReviewId is optional.
const (
	colID        = "ReviewId"
	colLocation  = "Location"
	colTimestamp = "Timestamp"
	colBody      = "ReviewBody"
)

type LocationChecker interface {
	ValidLocation(string) bool
}

// RowError points at the offending line of the seed file (1-based, header = 1).
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// Load parses seed rows into reviews. Every returned review satisfies the
// store invariants: allow-listed location, non-empty body, second-precision
// UTC timestamp and a unique id.
func Load(r io.Reader, locs LocationChecker) ([]domain.Review, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range []string{colLocation, colTimestamp, colBody} {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []domain.Review
	seen := map[string]struct{}{}
	line := 1
	for {
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}

		loc := strings.TrimSpace(field(rec, colLocation))
		if !locs.ValidLocation(loc) {
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: location %q", domain.ErrInvalidInput, loc)}
		}
		body := field(rec, colBody)
		if strings.TrimSpace(body) == "" {
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: empty body", domain.ErrInvalidInput)}
		}
		ts, err := time.ParseInLocation(domain.TimestampLayout, strings.TrimSpace(field(rec, colTimestamp)), time.UTC)
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("timestamp: %w", err)}
		}
		id := strings.TrimSpace(field(rec, colID))
		if id == "" {
			id = uuid.NewString()
		}
		if _, dup := seen[id]; dup {
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: %s", domain.ErrDuplicateID, id)}
		}
		seen[id] = struct{}{}

		out = append(out, domain.Review{ID: id, Location: loc, Timestamp: ts, Body: body})
	}
	return out, nil
}

func LoadFile(path string, locs LocationChecker) ([]domain.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, locs)
}

// Seed appends reviews in file order and returns how many were stored.
func Seed(ctx context.Context, st domain.ReviewStore, rs []domain.Review) (int, error) {
	for i, r := range rs {
		if _, err := st.Append(ctx, r); err != nil {
			return i, fmt.Errorf("seed review %d (%s): %w", i, r.ID, err)
		}
	}
	log.Info().Int("reviews", len(rs)).Msg("store seeded")
	return len(rs), nil
}
