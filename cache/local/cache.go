package local

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// entry holds a cached string value with an optional expiry.
type entry struct {
	data     string
	expireAt time.Time
	noExpiry bool
}

func (e *entry) expired() bool {
	return !e.noExpiry && time.Now().After(e.expireAt)
}

func newEntry(value string, ttl time.Duration) *entry {
	e := &entry{data: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	} else {
		e.noExpiry = true
	}
	return e
}

// LocalCache is an in-process cache implementing the Cache interface.
type LocalCache struct {
	mu         sync.Mutex // serializes read-modify-write ops (SetNX, CompareAndDelete, Incr)
	kv         sync.Map   // key → *entry
	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine.
func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopGC) })
	return nil
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.kv.Range(func(k, v interface{}) bool {
				if e, ok := v.(*entry); ok && e.expired() {
					c.kv.Delete(k)
				}
				return true
			})
		case <-c.stopGC:
			return
		}
	}
}

func (c *LocalCache) load(key string) (*entry, bool) {
	v, ok := c.kv.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if e.expired() {
		c.kv.Delete(key)
		return nil, false
	}
	return e, true
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	e, ok := c.load(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.kv.Store(key, newEntry(value, ttl))
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.kv.Delete(k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.load(key)
	return ok, nil
}

func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.load(key); ok {
		return false, nil
	}
	c.kv.Store(key, newEntry(value, ttl))
	return true, nil
}

// CompareAndDelete removes key only while it still holds value.
func (c *LocalCache) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(key)
	if !ok || e.data != value {
		return false, nil
	}
	c.kv.Delete(key)
	return true, nil
}

func (c *LocalCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(key)
	if !ok {
		return ErrNotFound
	}
	c.kv.Store(key, newEntry(e.data, ttl))
	return nil
}

// Incr adds one to the integer stored at key, starting from zero.
func (c *LocalCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	e, ok := c.load(key)
	if ok {
		var err error
		if n, err = strconv.ParseInt(e.data, 10, 64); err != nil {
			return 0, err
		}
	}
	n++
	next := newEntry(strconv.FormatInt(n, 10), 0)
	if ok && !e.noExpiry {
		next.noExpiry = false
		next.expireAt = e.expireAt
	}
	c.kv.Store(key, next)
	return n, nil
}
