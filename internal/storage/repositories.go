package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLBackend persists the knowledge base in a relational database for
// deployments that outgrow a flat file. The schema mirrors the JSON
// interchange format; tags and metadata are stored as JSON text columns.
// Works against SQLite and Postgres ($N placeholders are understood by both
// drivers).
type SQLBackend struct {
	db *sql.DB
}

// SQLOptions holds connection pool settings.
type SQLOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         BIGINT PRIMARY KEY,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	source     TEXT NOT NULL DEFAULT 'manual',
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	version    BIGINT NOT NULL DEFAULT 0
)`

// NewSQLBackend opens a SQL backend on the given driver ("sqlite3" or
// "postgres") and DSN, creating the schema if needed.
func NewSQLBackend(driver, dsn string, opts SQLOptions) (*SQLBackend, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if _, err := db.Exec(createEntriesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLBackend{db: db}, nil
}

// Load reads all entries in insertion order.
func (b *SQLBackend) Load(ctx context.Context) ([]KnowledgeEntry, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, question, answer, tags, source, metadata, created_at, updated_at, version
		FROM knowledge_entries ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrCorpusLoad, err)
	}
	defer rows.Close()

	entries := []KnowledgeEntry{}
	for rows.Next() {
		var e KnowledgeEntry
		var tags, metadata string
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &tags, &e.Source,
			&metadata, &e.CreatedAt, &e.UpdatedAt, &e.Version); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrCorpusLoad, err)
		}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return nil, fmt.Errorf("%w: tags of entry %d: %v", ErrCorpusLoad, e.ID, err)
		}
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata of entry %d: %v", ErrCorpusLoad, e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrCorpusLoad, err)
	}
	return entries, nil
}

// Persist upserts the full collection in one transaction. Entries are never
// deleted here: the store is append-only with in-place field updates.
func (b *SQLBackend) Persist(ctx context.Context, entries []KnowledgeEntry) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}

	const upsert = `
		INSERT INTO knowledge_entries
			(id, question, answer, tags, source, metadata, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			question = EXCLUDED.question,
			answer = EXCLUDED.answer,
			tags = EXCLUDED.tags,
			source = EXCLUDED.source,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`

	for _, e := range entries {
		tags, err := json.Marshal(e.Tags)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: marshal tags of entry %d: %v", ErrPersistence, e.ID, err)
		}
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: marshal metadata of entry %d: %v", ErrPersistence, e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, upsert,
			e.ID, e.Question, e.Answer, string(tags), string(e.Source),
			string(metadata), e.CreatedAt, e.UpdatedAt, e.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: upsert entry %d: %v", ErrPersistence, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// Close closes the database connection.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
