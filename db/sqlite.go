// Package db persists detection results. The reference signature
// database is deliberately in-memory only; this store is the result
// sink consumed by reporting.
package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdobak/go-xerrors"

	"setfinder/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	file         TEXT NOT NULL,
	segment      INTEGER NOT NULL,
	start_ms     INTEGER NOT NULL,
	duration_sec REAL NOT NULL,
	title        TEXT NOT NULL,
	artist       TEXT NOT NULL,
	confidence   REAL NOT NULL,
	method       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_file ON results(file);
`

// Client wraps the sqlite results store.
type Client struct {
	conn *sql.DB
}

// NewClient opens (or creates) the results database at path.
func NewClient(path string) (*Client, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, xerrors.New("opening results database", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, xerrors.New("creating results schema", err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SaveResults stores one scan's detection results in a single transaction.
func (c *Client) SaveResults(results []models.DetectionResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := c.conn.Begin()
	if err != nil {
		return xerrors.New("beginning results transaction", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO results
		(file, segment, start_ms, duration_sec, title, artist, confidence, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return xerrors.New("preparing results insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range results {
		if _, err := stmt.Exec(r.File, r.Segment, r.StartMs, r.DurationSec,
			r.Title, r.Artist, r.Confidence, r.Method, now); err != nil {
			tx.Rollback()
			return xerrors.New("inserting result row", err)
		}
	}
	return tx.Commit()
}

// ListResults returns the most recent stored results, newest first,
// optionally filtered by file name.
func (c *Client) ListResults(file string, limit int) ([]models.DetectionResult, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT file, segment, start_ms, duration_sec, title, artist, confidence, method
		FROM results`
	args := []any{}
	if file != "" {
		query += ` WHERE file = ?`
		args = append(args, file)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.conn.Query(query, args...)
	if err != nil {
		return nil, xerrors.New("querying results", err)
	}
	defer rows.Close()

	var results []models.DetectionResult
	for rows.Next() {
		var r models.DetectionResult
		if err := rows.Scan(&r.File, &r.Segment, &r.StartMs, &r.DurationSec,
			&r.Title, &r.Artist, &r.Confidence, &r.Method); err != nil {
			return nil, xerrors.New("scanning result row", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
