package cache

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/redcube-studio/postforge/pkg/artifact"
	_ "modernc.org/sqlite"
)

// sqliteSchema holds one serialized artifact per (topic, stage) key.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	topic TEXT NOT NULL,
	stage TEXT NOT NULL,
	provenance TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (topic, stage)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_topic ON artifacts(topic);
`

// SQLiteCache stores artifacts in a single SQLite database file. Useful
// when many topics accumulate and directory-per-topic file caches get
// unwieldy.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (creating if needed) the database at path.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite cache path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite cache schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Get(topic, stage string) (*artifact.Artifact, bool, error) {
	var payload []byte
	err := c.db.QueryRow(
		`SELECT payload FROM artifacts WHERE topic = ? AND stage = ?`,
		cleanKey(topic), cleanKey(stage),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %s/%s: %w", topic, stage, err)
	}
	a, err := artifact.Unmarshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s/%s: %w", topic, stage, err)
	}
	return a, true, nil
}

func (c *SQLiteCache) Put(topic, stage string, a *artifact.Artifact) error {
	data, err := a.Marshal()
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", topic, stage, err)
	}
	_, err = c.db.Exec(
		`INSERT INTO artifacts (topic, stage, provenance, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(topic, stage) DO UPDATE SET
		   provenance = excluded.provenance,
		   payload = excluded.payload,
		   created_at = excluded.created_at`,
		cleanKey(topic), cleanKey(stage), string(a.Provenance), data, a.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("write cache entry %s/%s: %w", topic, stage, err)
	}
	return nil
}

func (c *SQLiteCache) Invalidate(topic, stage string) error {
	_, err := c.db.Exec(
		`DELETE FROM artifacts WHERE topic = ? AND stage = ?`,
		cleanKey(topic), cleanKey(stage),
	)
	return err
}

// InvalidateTopic removes every cached stage for a topic.
func (c *SQLiteCache) InvalidateTopic(topic string) error {
	_, err := c.db.Exec(`DELETE FROM artifacts WHERE topic = ?`, cleanKey(topic))
	return err
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
