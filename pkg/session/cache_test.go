package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// countingChannel answers every send with its lines and counts round trips.
type countingChannel struct {
	sends int
	fail  error
}

func (c *countingChannel) Send(_ context.Context, lines []string, _ bool) (string, error) {
	c.sends++
	if c.fail != nil {
		return "", c.fail
	}
	return cacheKey(lines) + " output", nil
}

func TestCachedChannel(t *testing.T) {
	ctx := context.Background()
	inner := &countingChannel{}
	ch := NewCachedChannel("R1", inner, NewMemoryCache())

	show := []string{"show running-config | section hostname"}
	for i := 0; i < 3; i++ {
		out, err := ch.Send(ctx, show, true)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if out != show[0]+" output" {
			t.Errorf("Send() = %q", out)
		}
	}
	if inner.sends != 1 {
		t.Errorf("inner sends = %d, want 1 (cached)", inner.sends)
	}

	if _, err := ch.Send(ctx, []string{"configure terminal", "hostname R2", "end"}, false); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, err := ch.Send(ctx, show, true); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if inner.sends != 3 {
		t.Errorf("inner sends = %d, want 3 (write invalidates cache)", inner.sends)
	}
}

func TestCachedChannelDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := &countingChannel{fail: errors.New("broken pipe")}
	cache := NewMemoryCache()
	ch := NewCachedChannel("R1", inner, cache)

	if _, err := ch.Send(ctx, []string{"show version"}, true); err == nil {
		t.Fatal("Send() should fail")
	}
	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries after a failed send", cache.Len())
	}
}

func TestCachedChannelClearsOnFailedWrite(t *testing.T) {
	ctx := context.Background()
	inner := &countingChannel{}
	cache := NewMemoryCache()
	ch := NewCachedChannel("R1", inner, cache)

	ch.Send(ctx, []string{"show version"}, true)
	inner.fail = errors.New("timeout")
	ch.Send(ctx, []string{"configure terminal", "end"}, false)
	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries after a write", cache.Len())
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedisCacheWithClient(client, "R1", time.Minute)
	other := NewRedisCacheWithClient(client, "R2", time.Minute)

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if _, ok, err := c.Get(ctx, "show version"); err != nil || ok {
		t.Fatalf("Get() on empty cache = %v, %v", ok, err)
	}
	if err := c.Set(ctx, "show version", "15.2(4)M"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := other.Set(ctx, "show version", "VRP V800"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, ok, err := c.Get(ctx, "show version")
	if err != nil || !ok || v != "15.2(4)M" {
		t.Errorf("Get() = %q, %v, %v", v, ok, err)
	}

	key := c.key("show version")
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "show version"); ok {
		t.Error("entry survived Clear")
	}
	if v, ok, _ := other.Get(ctx, "show version"); !ok || v != "VRP V800" {
		t.Error("Clear removed another device's entries")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := other.Get(ctx, "show version"); ok {
		t.Error("entry survived its TTL")
	}
}

func TestRedisCacheBehindChannel(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	inner := &countingChannel{}
	ch := NewCachedChannel("R1", inner, NewRedisCacheWithClient(client, "R1", 0))

	ch.Send(ctx, []string{"show vlan brief"}, true)
	ch.Send(ctx, []string{"show vlan brief"}, true)
	if inner.sends != 1 {
		t.Errorf("inner sends = %d, want 1", inner.sends)
	}
}

func TestCachedChannelSkipsRejectedResponses(t *testing.T) {
	ctx := context.Background()
	sends := 0
	inner := ChannelFunc(func(_ context.Context, lines []string, _ bool) (string, error) {
		sends++
		if lines[0] == "show bogus" {
			return "% Invalid input detected at '^' marker.\n", nil
		}
		return "hostname R1\n", nil
	})
	cache := NewMemoryCache()
	ch := NewCachedChannel("R1", inner, cache).WithErrorPatterns(MustErrorPatternSet(`^% Invalid input`))

	for i := 0; i < 2; i++ {
		if _, err := ch.Send(ctx, []string{"show bogus"}, true); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if sends != 2 {
		t.Errorf("rejected show sent %d times, want 2", sends)
	}
	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries after a rejected show", cache.Len())
	}

	for i := 0; i < 2; i++ {
		if _, err := ch.Send(ctx, []string{"show running-config"}, true); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if sends != 3 || cache.Len() != 1 {
		t.Errorf("sends = %d, cached = %d, want 3 and 1", sends, cache.Len())
	}
}
