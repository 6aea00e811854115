// Package infocache keeps detailed yt-dlp lookups in a bbolt file so source
// enrichment does not re-query every listing entry on each poller pass.
//
// A nil *Cache is valid and behaves as an always-empty cache.
package infocache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"vibetube/internal/services/ytdlp"
)

var bucketInfo = []byte("info")

type entry struct {
	FetchedAt time.Time   `json:"fetched_at"`
	Info      *ytdlp.Info `json:"info"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache stores detailed lookups keyed by external id.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens or creates the cache file at path.
func Open(path string, ttl time.Duration, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metadata cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open metadata cache: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketInfo)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init metadata cache: %w", err)
	}
	cache := &Cache{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// Get returns a fresh cached lookup.
func (c *Cache) Get(id string) (*ytdlp.Info, bool) {
	if c == nil || c.db == nil || id == "" {
		return nil, false
	}
	var data []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketInfo).Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Info == nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.FetchedAt) > c.ttl {
		return nil, false
	}
	return e.Info, true
}

// Put records a lookup as fetched now.
func (c *Cache) Put(id string, info *ytdlp.Info) error {
	if c == nil || c.db == nil || id == "" || info == nil {
		return nil
	}
	data, err := json.Marshal(entry{FetchedAt: c.now().UTC(), Info: info})
	if err != nil {
		return fmt.Errorf("encode metadata entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInfo).Put([]byte(id), data)
	})
}

// Prune deletes expired entries and returns how many were removed.
func (c *Cache) Prune() (int, error) {
	if c == nil || c.db == nil || c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketInfo).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var e entry
			if err := json.Unmarshal(v, &e); err == nil && !e.FetchedAt.Before(cutoff) {
				continue
			}
			if err := cursor.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	if c == nil || c.db == nil {
		return 0
	}
	n := 0
	_ = c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketInfo).Stats().KeyN
		return nil
	})
	return n
}

// Close releases the cache file.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
