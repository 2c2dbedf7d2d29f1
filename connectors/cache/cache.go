// Package cache keeps successful vendor billing responses in process so repeated
// dashboard refreshes do not hit rate-limited upstream APIs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultMaxCost bounds the total size of cached bodies in bytes.
const DefaultMaxCost = 64 << 20

// Cache wraps a ristretto cache of raw response bodies.
type Cache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// New creates a cache holding at most maxCostBytes of bodies for ttl each.
// A non-positive ttl yields a cache that never stores anything.
func New(maxCostBytes int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Key identifies one upstream call. The credential is hashed so secrets never sit in memory as keys.
func Key(provider, credential string, parts ...string) string {
	sum := sha256.Sum256([]byte(credential))
	return strings.Join(append([]string{provider, hex.EncodeToString(sum[:8])}, parts...), "|")
}

func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.c.Get(key)
}

// Set stores value and waits until it is visible to Get.
func (c *Cache) Set(key string, value []byte) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.c.SetWithTTL(key, value, int64(len(value)), c.ttl)
	c.c.Wait()
}

func (c *Cache) Delete(key string) {
	if c == nil {
		return
	}
	c.c.Del(key)
}

func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.c.Close()
}
