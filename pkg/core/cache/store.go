// Package cache memoizes upstream API responses in an external key-value store.
//
// A Store is the raw get/set-with-expiry contract; the Accessor layered on top
// derives keys from a function name and its arguments, encodes payloads with
// msgpack and decides what happens when the store itself is unreachable.
package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Store is a key-value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. found is false for missing or expired keys.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Purger is implemented by stores that keep expired rows until asked to drop them.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// maxKeyLen bounds readable keys; longer argument lists are hashed.
const maxKeyLen = 200

// Key builds a deterministic cache key from a function name and its arguments.
func Key(fn string, args ...string) string {
	escaped := make([]string, 0, len(args)+1)
	escaped = append(escaped, fn)
	for _, a := range args {
		escaped = append(escaped, url.QueryEscape(a))
	}
	key := strings.Join(escaped, ":")
	if len(key) <= maxKeyLen {
		return key
	}
	return fn + ":md5:" + ContentHash(strings.Join(escaped[1:], ":"))
}

// ContentHash returns the MD5 hex digest of content.
func ContentHash(content string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(content)))
}
