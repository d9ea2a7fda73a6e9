package mysql

// seq gives the canonical append order; id stays the public identifier.
const createReviewsSQL = `
CREATE TABLE IF NOT EXISTS reviews (
  seq        BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  id         VARCHAR(64)     NOT NULL,
  location   VARCHAR(128)    NOT NULL,
  created_at DATETIME        NOT NULL,
  body       TEXT            NOT NULL,
  PRIMARY KEY (seq),
  UNIQUE KEY uq_reviews_id (id),
  KEY ix_reviews_location_created (location, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

const insertReviewSQL = `
INSERT INTO reviews (id, location, created_at, body)
VALUES (?, ?, ?, ?)
`

const snapshotSQL = `
SELECT id, location, created_at, body
FROM reviews
ORDER BY seq
`

const countSQL = `SELECT COUNT(*) FROM reviews`
