package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"guesthouse/internal/models"
	"guesthouse/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const visitorCounterKey = "visitor_count"

// StoreVisitorCounter keeps the count in the visitorCounter collection.
type StoreVisitorCounter struct {
	coll  storage.Collection
	locks *storage.KeyedLock
}

func NewStoreVisitorCounter(store storage.Store) *StoreVisitorCounter {
	return &StoreVisitorCounter{
		coll:  store.Collection(models.CollectionVisitorCounter),
		locks: storage.NewKeyedLock(5 * time.Millisecond),
	}
}

func (c *StoreVisitorCounter) Get(ctx context.Context) (int64, error) {
	doc, err := c.coll.FindOne(ctx, storage.Match("id", models.VisitorCounterID))
	if storage.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read visitor counter: %w", err)
	}
	counter, err := storage.Decode[models.VisitorCounter](doc)
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}

func (c *StoreVisitorCounter) Increment(ctx context.Context) (int64, error) {
	if err := c.locks.Acquire(ctx, models.VisitorCounterID); err != nil {
		return 0, err
	}
	defer c.locks.Release(models.VisitorCounterID)

	count, err := c.Get(ctx)
	if err != nil {
		return 0, err
	}
	count++
	if err := c.set(ctx, count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *StoreVisitorCounter) set(ctx context.Context, count int64) error {
	doc, err := storage.Encode(models.VisitorCounter{ID: models.VisitorCounterID, Count: count})
	if err != nil {
		return err
	}
	if _, err := c.coll.Upsert(ctx, storage.Match("id", models.VisitorCounterID), doc); err != nil {
		return fmt.Errorf("write visitor counter: %w", err)
	}
	return nil
}

// raise stores count unless a higher value is already persisted.
func (c *StoreVisitorCounter) raise(ctx context.Context, count int64) error {
	if err := c.locks.Acquire(ctx, models.VisitorCounterID); err != nil {
		return err
	}
	defer c.locks.Release(models.VisitorCounterID)

	current, err := c.Get(ctx)
	if err != nil {
		return err
	}
	if current >= count {
		return nil
	}
	return c.set(ctx, count)
}

// RedisVisitorCounter counts with INCR and writes the value through to the
// store so the count survives a Redis flush.
type RedisVisitorCounter struct {
	client *redis.Client
	store  *StoreVisitorCounter
	logger *zerolog.Logger
}

func NewRedisVisitorCounter(client *redis.Client, store *StoreVisitorCounter, logger *zerolog.Logger) *RedisVisitorCounter {
	return &RedisVisitorCounter{client: client, store: store, logger: logger}
}

// seed copies the persisted count into Redis when the key is missing.
func (c *RedisVisitorCounter) seed(ctx context.Context) error {
	persisted, err := c.store.Get(ctx)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, visitorCounterKey, persisted, 0).Err()
}

func (c *RedisVisitorCounter) Get(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, visitorCounterKey).Result()
	if errors.Is(err, redis.Nil) {
		return c.store.Get(ctx)
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (c *RedisVisitorCounter) Increment(ctx context.Context) (int64, error) {
	exists, err := c.client.Exists(ctx, visitorCounterKey).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		if err := c.seed(ctx); err != nil {
			return 0, err
		}
	}

	count, err := c.client.Incr(ctx, visitorCounterKey).Result()
	if err != nil {
		return 0, err
	}
	if err := c.store.raise(ctx, count); err != nil {
		c.logger.Warn().Err(err).Int64("count", count).Msg("failed to persist visitor count")
	}
	return count, nil
}
