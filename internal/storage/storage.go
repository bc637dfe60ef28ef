package storage

import (
	"context"
	"errors"
	"fmt"

	"guesthouse/internal/config"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by FindOne and typed lookups when nothing matches.
var ErrNotFound = errors.New("document not found")

// Document is one record of a collection as stored on disk.
type Document map[string]any

// Predicate selects documents.
type Predicate func(Document) bool

// Patch is merged shallowly into matching documents.
type Patch map[string]any

// Collection is the uniform CRUD contract implemented by every backend.
// All methods return storage errors instead of swallowing them.
type Collection interface {
	Name() string
	Read(ctx context.Context) ([]Document, error)
	Write(ctx context.Context, docs []Document) error
	Append(ctx context.Context, doc Document) error
	Find(ctx context.Context, pred Predicate) ([]Document, error)
	FindOne(ctx context.Context, pred Predicate) (Document, error)
	Update(ctx context.Context, pred Predicate, patch Patch) (int, error)
	// Replace swaps the first match for doc, dropping fields doc lacks.
	Replace(ctx context.Context, pred Predicate, doc Document) (int, error)
	Delete(ctx context.Context, pred Predicate) (int, error)
	// Upsert merges doc into the first match or appends it; created reports which.
	Upsert(ctx context.Context, pred Predicate, doc Document) (created bool, err error)
}

// Store hands out collections for one backend.
type Store interface {
	Backend() string
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close() error
}

// Match builds an equality predicate on a top-level field.
func Match(field string, value any) Predicate {
	want := fmt.Sprint(value)
	return func(doc Document) bool {
		v, ok := doc[field]
		if !ok || v == nil {
			return false
		}
		return fmt.Sprint(v) == want
	}
}

// All matches every document.
func All() Predicate {
	return func(Document) bool { return true }
}

// Open selects a backend. In auto mode the sqlite store is probed and the
// JSON file store is used when the probe fails.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zerolog.Logger) (Store, error) {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "storage").Logger()
	}

	switch cfg.Backend {
	case config.BackendFile:
		return openFile(cfg, &log)
	case config.BackendSQLite:
		store, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("backend", store.Backend()).Str("path", cfg.SQLitePath).Msg("storage ready")
		return store, nil
	default:
		store, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err == nil {
			if err = store.Ping(ctx); err == nil {
				log.Info().Str("backend", store.Backend()).Str("path", cfg.SQLitePath).Msg("storage ready")
				return store, nil
			}
			_ = store.Close()
		}
		log.Warn().Err(err).Msg("document store unavailable, falling back to file storage")
		return openFile(cfg, &log)
	}
}

func openFile(cfg config.StorageConfig, log *zerolog.Logger) (Store, error) {
	store, err := NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", store.Backend()).Str("dir", cfg.DataDir).Msg("storage ready")
	return store, nil
}

func mergeInto(doc Document, patch map[string]any) {
	for k, v := range patch {
		doc[k] = v
	}
}

func filter(docs []Document, pred Predicate) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if pred(doc) {
			out = append(out, doc)
		}
	}
	return out
}
