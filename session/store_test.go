package session

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/kv/redispool"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, cfg StoreConfig) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pool := redispool.NewFromClient(rdb)
	t.Cleanup(func() {
		_ = pool.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return NewStore(pool, cfg), mr
}

type cartItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

func TestSetGetRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, StoreConfig{})
	ctx := context.Background()
	const sid = "roundtrip"

	cases := []struct {
		name  string
		value any
		dst   func() any
	}{
		{"string", "hello", func() any { return new(string) }},
		{"int", 42, func() any { return new(int) }},
		{"bool", true, func() any { return new(bool) }},
		{"map", map[string]any{"a": "x", "b": map[string]any{"c": true}}, func() any { return new(map[string]any) }},
		{"list", []string{"x", "y", "z"}, func() any { return new([]string) }},
		{"struct", cartItem{SKU: "sku-1", Qty: 3}, func() any { return new(cartItem) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := store.Set(ctx, sid, tc.name, tc.value, time.Minute); err != nil {
				t.Fatalf("set: %v", err)
			}
			v, ok, err := store.Get(ctx, sid, tc.name)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !ok {
				t.Fatal("expected value to be present")
			}
			dst := tc.dst()
			if err := v.Decode(dst); err != nil {
				t.Fatalf("decode: %v", err)
			}
			got := reflect.ValueOf(dst).Elem().Interface()
			if !reflect.DeepEqual(got, tc.value) {
				t.Fatalf("round trip mismatch: got %#v want %#v", got, tc.value)
			}
		})
	}
}

func TestExistsLifecycle(t *testing.T) {
	store, _ := newRedisStore(t, StoreConfig{})
	ctx := context.Background()
	const sid = "lifecycle"

	exists, err := store.Exists(ctx, sid)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected unused id not to exist")
	}

	if err := store.Set(ctx, sid, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if exists, _ = store.Exists(ctx, sid); !exists {
		t.Fatal("expected record after set")
	}

	cleared, err := store.Clear(ctx, sid)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !cleared {
		t.Fatal("expected clear to report removal")
	}
	if exists, _ = store.Exists(ctx, sid); exists {
		t.Fatal("expected record gone after clear")
	}
	if _, ok, err := store.Get(ctx, sid, "k"); err != nil || ok {
		t.Fatalf("expected absent after clear, ok=%v err=%v", ok, err)
	}
}

func TestGetAllMissingIsEmptyMap(t *testing.T) {
	store, _ := newRedisStore(t, StoreConfig{})

	all, err := store.GetAll(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", all)
	}
}

func TestHasAgreesWithGetAll(t *testing.T) {
	store, _ := newRedisStore(t, StoreConfig{})
	ctx := context.Background()
	const sid = "membership"

	check := func(stage string) {
		t.Helper()
		all, err := store.GetAll(ctx, sid)
		if err != nil {
			t.Fatalf("%s: get all: %v", stage, err)
		}
		for _, field := range []string{"a", "b", "c"} {
			has, err := store.Has(ctx, sid, field)
			if err != nil {
				t.Fatalf("%s: has %s: %v", stage, field, err)
			}
			_, member := all[field]
			if has != member {
				t.Fatalf("%s: has(%s)=%v but membership=%v", stage, field, has, member)
			}
		}
	}

	check("empty")
	_ = store.Set(ctx, sid, "a", 1, time.Minute)
	_ = store.Set(ctx, sid, "b", 2, time.Minute)
	check("two fields")
	if _, err := store.Delete(ctx, sid, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	check("after delete")
	_, _ = store.Clear(ctx, sid)
	check("after clear")
}

func TestSetRefreshesTTL(t *testing.T) {
	store, mr := newRedisStore(t, StoreConfig{})
	ctx := context.Background()

	if err := store.Set(ctx, "ttl", "a", 1, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(50 * time.Second)
	if got := mr.TTL(store.Key("ttl")); got != 10*time.Second {
		t.Fatalf("expected 10s remaining, got %v", got)
	}

	if err := store.Set(ctx, "ttl", "b", 2, time.Minute); err != nil {
		t.Fatalf("second set: %v", err)
	}
	if got := mr.TTL(store.Key("ttl")); got != time.Minute {
		t.Fatalf("expected ttl reset to 1m, got %v", got)
	}

	mr.FastForward(61 * time.Second)
	if exists, _ := store.Exists(ctx, "ttl"); exists {
		t.Fatal("expected record to expire")
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	store := NewStore(nil, StoreConfig{})
	if got := store.Key("abc"); got != "SESSION:abc" {
		t.Fatalf("unexpected default key %q", got)
	}
	custom := NewStore(nil, StoreConfig{KeyPrefix: "app:sess:"})
	if got := custom.Key("abc"); got != "app:sess:abc" {
		t.Fatalf("unexpected custom key %q", got)
	}
}

func TestStoredLayoutIsOneHashPerSession(t *testing.T) {
	store, mr := newRedisStore(t, StoreConfig{})
	ctx := context.Background()

	if err := store.Set(ctx, "layout", "cart_count", 3, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := mr.HGet("SESSION:layout", "cart_count"); got != "3" {
		t.Fatalf("expected JSON 3 in hash field, got %q", got)
	}
}

func TestGobCodecRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, StoreConfig{Codec: GobCodec{}})
	ctx := context.Background()

	want := cartItem{SKU: "g", Qty: 9}
	if err := store.Set(ctx, "gob", "item", want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := store.Get(ctx, "gob", "item")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	var got cartItem
	if err := v.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestDecodeMismatchIsSerializationError(t *testing.T) {
	store, _ := newRedisStore(t, StoreConfig{})
	ctx := context.Background()

	_ = store.Set(ctx, "mismatch", "name", "alice", time.Minute)
	v, _, err := store.Get(ctx, "mismatch", "name")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var n int
	if err := v.Decode(&n); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestPing(t *testing.T) {
	store, _ := newRedisStore(t, StoreConfig{})
	if _, err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
