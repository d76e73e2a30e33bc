package driver

import (
	"database/sql"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/msgmaxim/onionreq/pkg/onion"
)

// ResultsDB persists aggregated buckets to SQLite so results survive a
// process restart. Every write goes through a single mutex rather than
// relying on sqlite3's own locking, since the aggregator ticker and any
// future backfill job could otherwise interleave writes unpredictably.
type ResultsDB struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenResultsDB opens (creating if necessary) the SQLite database at path
// and ensures its schema exists.
func OpenResultsDB(path string) (*ResultsDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, onion.NewError(onion.KindConfig, "opening sqlite database", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS onion_results (
		timestamp TEXT NOT NULL PRIMARY KEY,
		total INTEGER NOT NULL,
		successful INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, onion.NewError(onion.KindConfig, "creating onion_results table", err)
	}

	return &ResultsDB{db: db}, nil
}

// AddEntry persists one aggregated bucket, keyed by its millisecond
// timestamp. Uses an upsert rather than a plain insert as a margin
// against same-millisecond collisions under short aggregate intervals.
func (r *ResultsDB) AddEntry(bucket AggregatedBucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := strconv.FormatInt(bucket.Time.UnixMilli(), 10)
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO onion_results (timestamp, total, successful) VALUES (?, ?, ?)`,
		ts, bucket.Total, bucket.Successful,
	)
	if err != nil {
		return onion.NewError(onion.KindConfig, "inserting onion_results row", err)
	}
	return nil
}

// GetEntries returns up to bufferLimit persisted buckets ordered oldest
// first. When more rows are stored, the oldest bufferLimit are returned.
func (r *ResultsDB) GetEntries() ([]AggregatedBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(
		`SELECT timestamp, total, successful FROM onion_results ORDER BY timestamp LIMIT ?`,
		bufferLimit,
	)
	if err != nil {
		return nil, onion.NewError(onion.KindConfig, "querying onion_results", err)
	}
	defer rows.Close()

	var out []AggregatedBucket
	for rows.Next() {
		var tsStr string
		var bucket AggregatedBucket
		if err := rows.Scan(&tsStr, &bucket.Total, &bucket.Successful); err != nil {
			return nil, onion.NewError(onion.KindConfig, "scanning onion_results row", err)
		}
		ms, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, onion.NewError(onion.KindConfig, "parsing onion_results timestamp", err)
		}
		bucket.Time = time.UnixMilli(ms)
		out = append(out, bucket)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (r *ResultsDB) Close() error {
	return r.db.Close()
}
