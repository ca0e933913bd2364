package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus_marketplace/platform/config"
	"campus_marketplace/platform/logger"

	"golang.org/x/sync/singleflight"
)

// sharedComputeTimeout bounds a computation shared by concurrent misses. It
// runs detached from the leader's context so one caller's cancellation
// cannot fail the others.
const sharedComputeTimeout = 30 * time.Second

var keyPartEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`)

// Namespace partitions the key space. Each namespace has its own TTL.
type Namespace string

const (
	NamespaceSearch         Namespace = "search"
	NamespaceAutocomplete   Namespace = "autocomplete"
	NamespaceTrending       Namespace = "trending"
	NamespaceRecommended    Namespace = "recommended"
	NamespaceRecentlyViewed Namespace = "recently-viewed"
	NamespaceSimilar        Namespace = "similar"
)

// Namespaces lists every namespace the service writes to.
var Namespaces = []Namespace{
	NamespaceSearch,
	NamespaceAutocomplete,
	NamespaceTrending,
	NamespaceRecommended,
	NamespaceRecentlyViewed,
	NamespaceSimilar,
}

// ParseNamespace validates a namespace name coming from the outside.
func ParseNamespace(value string) (Namespace, bool) {
	for _, ns := range Namespaces {
		if string(ns) == strings.ToLower(strings.TrimSpace(value)) {
			return ns, true
		}
	}
	return "", false
}

// ResultCache memoizes computed results per namespace. It is a pure
// accelerator: any store failure falls through to the computation.
type ResultCache struct {
	store  Store
	prefix string
	ttls   map[Namespace]time.Duration
	group  singleflight.Group
	log    *logger.Logger
}

// New builds a ResultCache. Namespaces without a positive TTL are not cached.
func New(store Store, cfg config.CacheConfig, log *logger.Logger) *ResultCache {
	ttls := make(map[Namespace]time.Duration, len(Namespaces))
	for name, ttl := range cfg.GetCacheTTLs() {
		ttls[Namespace(name)] = ttl
	}
	prefix := strings.TrimSpace(cfg.GetCachePrefix())
	if prefix == "" {
		prefix = "cache"
	}
	return &ResultCache{store: store, prefix: prefix, ttls: ttls, log: log}
}

// TTL reports the configured lifetime for ns.
func (c *ResultCache) TTL(ns Namespace) time.Duration {
	return c.ttls[ns]
}

func (c *ResultCache) fullKey(ns Namespace, key string) string {
	return c.prefix + ":" + string(ns) + ":" + key
}

// Key joins already-normalized parts into a cache key. Separators inside a
// part are escaped, so distinct part lists never produce the same key.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = keyPartEscaper.Replace(part)
	}
	return strings.Join(escaped, "|")
}

// GetOrCompute returns the cached value for key or runs compute and stores the
// result. Concurrent misses for the same key share one compute call. The
// boolean reports whether the value came from the store.
func GetOrCompute[T any](ctx context.Context, c *ResultCache, ns Namespace, key string, compute func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	if c == nil || c.TTL(ns) <= 0 {
		v, err := compute(ctx)
		return v, false, err
	}

	full := c.fullKey(ns, key)

	if data, err := c.store.Get(ctx, full); err == nil {
		var v T
		decodeErr := json.Unmarshal(data, &v)
		if decodeErr == nil {
			return v, true, nil
		}
		c.logError(ns, "decode", decodeErr)
	} else if !errors.Is(err, ErrMiss) {
		c.logError(ns, "get", err)
	}

	raw, err, _ := c.group.Do(full, func() (interface{}, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedComputeTimeout)
		defer cancel()

		v, err := compute(sharedCtx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode cached value: %w", err)
		}
		if err := c.store.Set(sharedCtx, full, data, c.TTL(ns)); err != nil {
			c.logError(ns, "set", err)
		}
		return data, nil
	})
	if err != nil {
		return zero, false, err
	}

	// Each caller decodes its own copy so shared results are never aliased.
	var v T
	if err := json.Unmarshal(raw.([]byte), &v); err != nil {
		return zero, false, fmt.Errorf("decode computed value: %w", err)
	}
	return v, false, nil
}

// Put overwrites the entry for key. Used by the cache warmer.
func Put[T any](ctx context.Context, c *ResultCache, ns Namespace, key string, value T) error {
	if c == nil || c.TTL(ns) <= 0 {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	return c.store.Set(ctx, c.fullKey(ns, key), data, c.TTL(ns))
}

// Invalidate drops every entry in ns and returns how many were removed.
func (c *ResultCache) Invalidate(ctx context.Context, ns Namespace) (int, error) {
	if c == nil {
		return 0, nil
	}
	n, err := c.store.DeletePrefix(ctx, c.prefix+":"+string(ns)+":")
	if err != nil {
		return n, fmt.Errorf("invalidate %s: %w", ns, err)
	}
	return n, nil
}

func (c *ResultCache) logError(ns Namespace, op string, err error) {
	if c.log != nil {
		c.log.CacheError(string(ns), op, err)
	}
}
