package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// errDupEntry is MySQL's ER_DUP_ENTRY.
const errDupEntry = 1062

// Repo is a ReviewStore over a single MySQL table.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createReviewsSQL)
	return err
}

func (r *Repo) Append(ctx context.Context, rv domain.Review) (string, error) {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		rv.Location,
		rv.Timestamp.UTC().Truncate(time.Second),
		rv.Body,
	)
	if err != nil {
		var me *mysqldrv.MySQLError
		if errors.As(err, &me) && me.Number == errDupEntry {
			observability.ObserveAppend("mysql", "duplicate")
			return "", fmt.Errorf("append %s: %w", rv.ID, domain.ErrDuplicateID)
		}
		observability.ObserveAppend("mysql", "error")
		return "", fmt.Errorf("mysql append %s: %w", rv.ID, err)
	}
	observability.ObserveAppend("mysql", "ok")
	return rv.ID, nil
}

// Snapshot reads the table in one statement; InnoDB serves it from a
// consistent read view, so concurrent inserts are either fully in or out.
func (r *Repo) Snapshot(ctx context.Context) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, snapshotSQL)
	if err != nil {
		return nil, fmt.Errorf("mysql snapshot: %w", err)
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.Location, &rv.Timestamp, &rv.Body); err != nil {
			return nil, err
		}
		rv.Timestamp = rv.Timestamp.UTC()
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
