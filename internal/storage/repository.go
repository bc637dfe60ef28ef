package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Repository maps a collection onto a typed record keyed by one field.
type Repository[T any] struct {
	coll Collection
	key  string
}

func NewRepository[T any](coll Collection, key string) *Repository[T] {
	return &Repository[T]{coll: coll, key: key}
}

func (r *Repository[T]) Collection() Collection { return r.coll }

func (r *Repository[T]) All(ctx context.Context) ([]T, error) {
	docs, err := r.coll.Read(ctx)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

func (r *Repository[T]) Filter(ctx context.Context, pred Predicate) ([]T, error) {
	docs, err := r.coll.Find(ctx, pred)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

// Get returns ErrNotFound when no record has the key.
func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := r.coll.FindOne(ctx, Match(r.key, id))
	if err != nil {
		return nil, err
	}
	return Decode[T](doc)
}

func (r *Repository[T]) Insert(ctx context.Context, v *T) error {
	doc, err := Encode(v)
	if err != nil {
		return err
	}
	return r.coll.Append(ctx, doc)
}

// Save replaces the stored record with the same key, so fields cleared on v
// are cleared on disk too. Missing records are reported as ErrNotFound.
func (r *Repository[T]) Save(ctx context.Context, id string, v *T) error {
	doc, err := Encode(v)
	if err != nil {
		return err
	}
	n, err := r.coll.Replace(ctx, Match(r.key, id), doc)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository[T]) Upsert(ctx context.Context, id string, v *T) (bool, error) {
	doc, err := Encode(v)
	if err != nil {
		return false, err
	}
	return r.coll.Upsert(ctx, Match(r.key, id), doc)
}

func (r *Repository[T]) Remove(ctx context.Context, id string) (int, error) {
	return r.coll.Delete(ctx, Match(r.key, id))
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

func Decode[T any](doc Document) (*T, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &v, nil
}

func decodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := Decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
