package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps every collection in one documents table, one JSON body per row.
//
// Write is delete-all-then-insert-all inside a transaction. That is only safe
// with a single writer process; concurrent admin edits across processes can race.
type SQLiteStore struct {
	db *sqlx.DB
}

type documentRow struct {
	PK   int64  `db:"pk"`
	Body string `db:"body"`
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func createTables(ctx context.Context, db *sqlx.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            pk INTEGER PRIMARY KEY AUTOINCREMENT,
            collection TEXT NOT NULL,
            doc_key TEXT,
            body TEXT NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_key ON documents(collection, doc_key)`,
	}
	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

func (s *SQLiteStore) Collection(name string) Collection {
	return &sqliteCollection{name: name, db: s.db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteCollection struct {
	name string
	db   *sqlx.DB
}

func (c *sqliteCollection) Name() string { return c.name }

// docKey picks the natural identifier used for the secondary index.
func docKey(doc Document) string {
	for _, field := range []string{"id", "reference"} {
		if v, ok := doc[field]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

type queryer interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func (c *sqliteCollection) rows(ctx context.Context, q queryer) ([]documentRow, []Document, error) {
	var rows []documentRow
	if err := q.SelectContext(ctx, &rows, `SELECT pk, body FROM documents WHERE collection = ? ORDER BY pk`, c.name); err != nil {
		return nil, nil, fmt.Errorf("select %s: %w", c.name, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		var doc Document
		if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
			return nil, nil, fmt.Errorf("decode %s/%d: %w", c.name, row.PK, err)
		}
		docs = append(docs, doc)
	}
	return rows, docs, nil
}

func (c *sqliteCollection) insert(ctx context.Context, tx *sqlx.Tx, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (collection, doc_key, body, updated_at) VALUES (?, ?, ?, ?)`,
		c.name, docKey(doc), string(body), time.Now())
	return err
}

func (c *sqliteCollection) replace(ctx context.Context, tx *sqlx.Tx, pk int64, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, doc_key = ?, updated_at = ? WHERE pk = ?`,
		string(body), docKey(doc), time.Now(), pk)
	return err
}

func (c *sqliteCollection) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *sqliteCollection) Read(ctx context.Context) ([]Document, error) {
	_, docs, err := c.rows(ctx, c.db)
	return docs, err
}

func (c *sqliteCollection) Write(ctx context.Context, docs []Document) error {
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, c.name); err != nil {
			return fmt.Errorf("clear %s: %w", c.name, err)
		}
		for _, doc := range docs {
			if err := c.insert(ctx, tx, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *sqliteCollection) Append(ctx context.Context, doc Document) error {
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		return c.insert(ctx, tx, doc)
	})
}

func (c *sqliteCollection) Find(ctx context.Context, pred Predicate) ([]Document, error) {
	docs, err := c.Read(ctx)
	if err != nil {
		return nil, err
	}
	return filter(docs, pred), nil
}

func (c *sqliteCollection) FindOne(ctx context.Context, pred Predicate) (Document, error) {
	docs, err := c.Read(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if pred(doc) {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

func (c *sqliteCollection) Update(ctx context.Context, pred Predicate, patch Patch) (int, error) {
	matched := 0
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		rows, docs, err := c.rows(ctx, tx)
		if err != nil {
			return err
		}
		for i, doc := range docs {
			if !pred(doc) {
				continue
			}
			mergeInto(doc, patch)
			if err := c.replace(ctx, tx, rows[i].PK, doc); err != nil {
				return fmt.Errorf("update %s: %w", c.name, err)
			}
			matched++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

func (c *sqliteCollection) Replace(ctx context.Context, pred Predicate, doc Document) (int, error) {
	matched := 0
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		rows, docs, err := c.rows(ctx, tx)
		if err != nil {
			return err
		}
		for i, existing := range docs {
			if pred(existing) {
				matched = 1
				return c.replace(ctx, tx, rows[i].PK, doc)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

func (c *sqliteCollection) Delete(ctx context.Context, pred Predicate) (int, error) {
	removed := 0
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		rows, docs, err := c.rows(ctx, tx)
		if err != nil {
			return err
		}
		for i, doc := range docs {
			if !pred(doc) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE pk = ?`, rows[i].PK); err != nil {
				return fmt.Errorf("delete %s: %w", c.name, err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (c *sqliteCollection) Upsert(ctx context.Context, pred Predicate, doc Document) (bool, error) {
	created := false
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		rows, docs, err := c.rows(ctx, tx)
		if err != nil {
			return err
		}
		for i, existing := range docs {
			if pred(existing) {
				mergeInto(existing, doc)
				return c.replace(ctx, tx, rows[i].PK, existing)
			}
		}
		created = true
		return c.insert(ctx, tx, doc)
	})
	return created, err
}
