// Package params resolves logical resource names (queue topics, bucket and
// table names) to physical identifiers. Resolution results are stable for
// the lifetime of the process, so callers go through a read-through cache
// populated on first use.
package params

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Resolver maps a logical name to a physical identifier.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Cached wraps a Resolver with a process-scoped, lazily-populated cache.
// Safe for concurrent use.
type Cached struct {
	inner Resolver

	mu    sync.RWMutex
	cache map[string]string
}

// NewCached constructs a caching wrapper around the supplied resolver.
func NewCached(inner Resolver) *Cached {
	return &Cached{
		inner: inner,
		cache: make(map[string]string),
	}
}

// Resolve returns the cached identifier for name, resolving through the
// inner resolver on first use.
func (c *Cached) Resolve(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	if v, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err := c.inner.Resolve(ctx, name)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cache[name] = v
	c.mu.Unlock()
	return v, nil
}

// ResolveDefault resolves name, falling back to def when no value is
// configured. Failed lookups are not cached, so a value that appears later
// is still picked up.
func (c *Cached) ResolveDefault(ctx context.Context, name, def string) string {
	v, err := c.Resolve(ctx, name)
	if err != nil {
		return def
	}
	return v
}

// EnvResolver resolves logical names from environment variables. A name
// like "orders/table" is looked up as "<prefix>ORDERS_TABLE".
type EnvResolver struct {
	Prefix string
}

// Resolve implements Resolver.
func (r EnvResolver) Resolve(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("params: name is required")
	}

	key := r.Prefix + envKey(name)
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("params: %s is not set (logical name %q)", key, name)
	}
	return strings.TrimSpace(v), nil
}

func envKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(key)
	return key
}
