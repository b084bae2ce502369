package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("reconstructions")

// BoltCache implements Cache on a local bbolt file, for environments
// without a Redis instance. Expiry is checked lazily on read.
type BoltCache struct {
	db     *bolt.DB
	logger *slog.Logger
}

type boltEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewBoltCache opens (or creates) the cache file at path.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	logger := slog.Default().With("component", "boltcache")
	logger.Info("bolt cache opened", "path", path)

	return &BoltCache{db: db, logger: logger}, nil
}

// Get retrieves a cached value, treating expired entries as misses.
func (c *BoltCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	var entry boltEntry
	var found bool

	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("corrupt cache entry for key %s: %w", key, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !found || time.Now().After(entry.ExpiresAt) {
		c.logger.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	c.logger.Debug("cache hit", "key", key)
	return entry.Value, true, nil
}

// Set stores a value with the given TTL (DefaultTTL when zero).
func (c *BoltCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(boltEntry{Value: value, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry for key %s: %w", key, err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), raw)
	})
}

// Close closes the underlying bolt file.
func (c *BoltCache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close bolt cache: %w", err)
	}
	c.logger.Info("bolt cache closed")
	return nil
}
