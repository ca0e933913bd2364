package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campus_marketplace/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testCacheConfig struct {
	ttls map[string]time.Duration
}

func (c testCacheConfig) GetCacheTTLs() map[string]time.Duration { return c.ttls }
func (c testCacheConfig) GetCachePrefix() string                 { return "test" }

type page struct {
	IDs   []int `json:"ids"`
	Total int   `json:"total"`
}

func newTestCache(t *testing.T) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testCacheConfig{ttls: map[string]time.Duration{
		string(NamespaceSearch):   time.Minute,
		string(NamespaceTrending): 15 * time.Minute,
	}}
	return New(NewRedisStore(client), cfg, logger.NewWithHandler(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestGetOrComputeStoresAndReplays(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (page, error) {
		calls++
		return page{IDs: []int{15, 30}, Total: 2}, nil
	}

	first, hit, err := GetOrCompute(ctx, c, NamespaceSearch, "k", compute)
	if err != nil || hit {
		t.Fatalf("expected computed miss, got hit=%v err=%v", hit, err)
	}
	second, hit, err := GetOrCompute(ctx, c, NamespaceSearch, "k", compute)
	if err != nil || !hit {
		t.Fatalf("expected cache hit, got hit=%v err=%v", hit, err)
	}

	if calls != 1 {
		t.Fatalf("expected a single computation, got %d", calls)
	}
	if first.Total != second.Total || len(second.IDs) != 2 || second.IDs[0] != 15 || second.IDs[1] != 30 {
		t.Fatalf("replayed value differs: %+v vs %+v", first, second)
	}
}

func TestGetOrComputeExpiresAfterTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (page, error) {
		calls++
		return page{Total: calls}, nil
	}

	if _, _, err := GetOrCompute(ctx, c, NamespaceSearch, "k", compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	v, hit, err := GetOrCompute(ctx, c, NamespaceSearch, "k", compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit || v.Total != 2 {
		t.Fatalf("expected recomputation after ttl, got hit=%v total=%d", hit, v.Total)
	}
}

func TestGetOrComputeNamespacesAreIsolated(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, _, _ = GetOrCompute(ctx, c, NamespaceSearch, "same", func(context.Context) (page, error) { return page{Total: 1}, nil })
	v, hit, _ := GetOrCompute(ctx, c, NamespaceTrending, "same", func(context.Context) (page, error) { return page{Total: 2}, nil })

	if hit || v.Total != 2 {
		t.Fatalf("namespaces must not share entries, got hit=%v total=%d", hit, v.Total)
	}
	if ttl := mr.TTL("test:trending:same"); ttl != 15*time.Minute {
		t.Fatalf("expected trending ttl 15m, got %s", ttl)
	}
}

func TestGetOrComputeUncachedNamespaceAlwaysComputes(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	for i := 0; i < 3; i++ {
		_, hit, _ := GetOrCompute(context.Background(), c, NamespaceSimilar, "k", func(context.Context) (page, error) {
			calls++
			return page{}, nil
		})
		if hit {
			t.Fatal("namespace without ttl must never hit")
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 computations, got %d", calls)
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("store down")

	if _, _, err := GetOrCompute(ctx, c, NamespaceSearch, "k", func(context.Context) (page, error) { return page{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	v, hit, err := GetOrCompute(ctx, c, NamespaceSearch, "k", func(context.Context) (page, error) { return page{Total: 7}, nil })
	if err != nil || hit || v.Total != 7 {
		t.Fatalf("expected fresh computation after error, got %+v hit=%v err=%v", v, hit, err)
	}
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(t)
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = GetOrCompute(context.Background(), c, NamespaceSearch, "hot", func(context.Context) (page, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return page{Total: 1}, nil
			})
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected concurrent misses to share one computation, got %d", got)
	}
}

func TestInvalidateDropsOnlyNamespace(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	_ = Put(ctx, c, NamespaceSearch, "a", page{Total: 1})
	_ = Put(ctx, c, NamespaceSearch, "b", page{Total: 1})
	_ = Put(ctx, c, NamespaceTrending, "a", page{Total: 1})

	n, err := c.Invalidate(ctx, NamespaceSearch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deletions, got %d", n)
	}
	if !mr.Exists("test:trending:a") {
		t.Fatal("trending entry must survive search invalidation")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingStore) DeletePrefix(context.Context, string) (int, error) { return 0, errors.New("down") }

func TestGetOrComputeFallsThroughWhenStoreFails(t *testing.T) {
	cfg := testCacheConfig{ttls: map[string]time.Duration{string(NamespaceSearch): time.Minute}}
	c := New(failingStore{}, cfg, logger.NewWithHandler(slog.NewTextHandler(io.Discard, nil)))

	v, hit, err := GetOrCompute(context.Background(), c, NamespaceSearch, "k", func(context.Context) (page, error) {
		return page{Total: 3}, nil
	})
	if err != nil || hit || v.Total != 3 {
		t.Fatalf("expected computed value despite store failure, got %+v hit=%v err=%v", v, hit, err)
	}
}

func TestParseNamespace(t *testing.T) {
	if ns, ok := ParseNamespace(" Recently-Viewed "); !ok || ns != NamespaceRecentlyViewed {
		t.Fatalf("expected recently-viewed, got %q ok=%v", ns, ok)
	}
	if _, ok := ParseNamespace("sessions"); ok {
		t.Fatal("unknown namespace must be rejected")
	}
}

func TestKeyEscapesSeparators(t *testing.T) {
	shifted := Key("x|all", "y")
	split := Key("x", "all|y")
	if shifted == split {
		t.Fatalf("distinct parts collided on %q", shifted)
	}
	if got := Key("a", "b"); got != "a|b" {
		t.Fatalf("plain parts must join unchanged, got %q", got)
	}
	if Key(`a\`, "b") == Key("a", `\b`) {
		t.Fatal("escape characters must be escaped too")
	}
}

func TestGetOrComputeSurvivesLeaderCancellation(t *testing.T) {
	c, _ := newTestCache(t)
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	compute := func(ctx context.Context) (page, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return page{Total: 7}, nil
		case <-ctx.Done():
			return page{}, ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _, _ = GetOrCompute(leaderCtx, c, NamespaceSearch, "shared", compute)
	}()
	<-started

	type result struct {
		v   page
		err error
	}
	followerDone := make(chan result, 1)
	go func() {
		v, _, err := GetOrCompute(context.Background(), c, NamespaceSearch, "shared", compute)
		followerDone <- result{v: v, err: err}
	}()

	time.Sleep(50 * time.Millisecond)
	cancelLeader()
	time.Sleep(50 * time.Millisecond)
	close(release)

	got := <-followerDone
	<-leaderDone
	if got.err != nil {
		t.Fatalf("follower failed after the leader was cancelled: %v", got.err)
	}
	if got.v.Total != 7 {
		t.Fatalf("unexpected follower value %+v", got.v)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one shared computation, got %d", n)
	}
}
