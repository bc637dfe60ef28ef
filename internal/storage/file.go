package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps one pretty-printed JSON array per collection in dir.
type FileStore struct {
	dir  string
	lock *KeyedLock
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, lock: NewKeyedLock(0)}, nil
}

func (s *FileStore) Backend() string { return "file" }

func (s *FileStore) Collection(name string) Collection {
	return &fileCollection{
		name: name,
		path: filepath.Join(s.dir, name+".json"),
		lock: s.lock,
	}
}

func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

type fileCollection struct {
	name string
	path string
	lock *KeyedLock
}

func (c *fileCollection) Name() string { return c.name }

// withLock runs fn while holding the per-file lock.
func (c *fileCollection) withLock(ctx context.Context, fn func() error) error {
	if err := c.lock.Acquire(ctx, c.path); err != nil {
		return fmt.Errorf("lock %s: %w", c.name, err)
	}
	defer c.lock.Release(c.path)
	return fn()
}

// mutate is a read-modify-write cycle under the lock.
func (c *fileCollection) mutate(ctx context.Context, fn func([]Document) ([]Document, error)) error {
	return c.withLock(ctx, func() error {
		docs, err := c.load()
		if err != nil {
			return err
		}
		next, err := fn(docs)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return c.save(next)
	})
}

func (c *fileCollection) load() ([]Document, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.name, err)
	}
	if len(data) == 0 {
		return []Document{}, nil
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// save replaces the file through a temp file and rename so readers never see a partial array.
func (c *fileCollection) save(docs []Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), c.name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", c.name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", c.name, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", c.name, err)
	}
	return nil
}

func (c *fileCollection) Read(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := c.withLock(ctx, func() error {
		var err error
		docs, err = c.load()
		return err
	})
	return docs, err
}

func (c *fileCollection) Write(ctx context.Context, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	return c.withLock(ctx, func() error { return c.save(docs) })
}

func (c *fileCollection) Append(ctx context.Context, doc Document) error {
	return c.mutate(ctx, func(docs []Document) ([]Document, error) {
		return append(docs, doc), nil
	})
}

func (c *fileCollection) Find(ctx context.Context, pred Predicate) ([]Document, error) {
	docs, err := c.Read(ctx)
	if err != nil {
		return nil, err
	}
	return filter(docs, pred), nil
}

func (c *fileCollection) FindOne(ctx context.Context, pred Predicate) (Document, error) {
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

func (c *fileCollection) Update(ctx context.Context, pred Predicate, patch Patch) (int, error) {
	matched := 0
	err := c.mutate(ctx, func(docs []Document) ([]Document, error) {
		for _, doc := range docs {
			if pred(doc) {
				mergeInto(doc, patch)
				matched++
			}
		}
		if matched == 0 {
			return nil, nil
		}
		return docs, nil
	})
	return matched, err
}

func (c *fileCollection) Replace(ctx context.Context, pred Predicate, doc Document) (int, error) {
	matched := 0
	err := c.mutate(ctx, func(docs []Document) ([]Document, error) {
		for i, existing := range docs {
			if pred(existing) {
				docs[i] = doc
				matched = 1
				return docs, nil
			}
		}
		return nil, nil
	})
	return matched, err
}

func (c *fileCollection) Delete(ctx context.Context, pred Predicate) (int, error) {
	removed := 0
	err := c.mutate(ctx, func(docs []Document) ([]Document, error) {
		kept := make([]Document, 0, len(docs))
		for _, doc := range docs {
			if pred(doc) {
				removed++
				continue
			}
			kept = append(kept, doc)
		}
		if removed == 0 {
			return nil, nil
		}
		return kept, nil
	})
	return removed, err
}

func (c *fileCollection) Upsert(ctx context.Context, pred Predicate, doc Document) (bool, error) {
	created := false
	err := c.mutate(ctx, func(docs []Document) ([]Document, error) {
		for _, existing := range docs {
			if pred(existing) {
				mergeInto(existing, doc)
				return docs, nil
			}
		}
		created = true
		return append(docs, doc), nil
	})
	return created, err
}
