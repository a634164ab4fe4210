// Package kvtest is a conformance suite for kv.Pool implementations.
package kvtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/kv"
)

// Harness is one freshly created backend under test.
type Harness struct {
	Pool kv.Pool
	// Advance moves the backend clock forward so TTL expiry can be observed
	// without sleeping.
	Advance func(d time.Duration)
}

// Factory creates a new, empty backend for each subtest. Cleanup is the
// factory's responsibility (t.Cleanup).
type Factory func(t *testing.T) Harness

// RunConnTests runs the complete kv conformance suite against the factory.
func RunConnTests(t *testing.T, factory Factory) {
	t.Run("Hash_SetGetRoundTrip", func(t *testing.T) { testSetGet(t, factory) })
	t.Run("Hash_SetReportsNewField", func(t *testing.T) { testSetReportsNew(t, factory) })
	t.Run("Hash_GetMissing", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("Hash_GetAllMissingIsEmpty", func(t *testing.T) { testGetAllMissing(t, factory) })
	t.Run("Hash_GetAllReturnsEveryField", func(t *testing.T) { testGetAll(t, factory) })
	t.Run("Hash_DelLastFieldRemovesKey", func(t *testing.T) { testDelLastField(t, factory) })
	t.Run("Hash_Exists", func(t *testing.T) { testHExists(t, factory) })
	t.Run("Key_DelRemovesAllFields", func(t *testing.T) { testDel(t, factory) })
	t.Run("Key_ExpireMissingKey", func(t *testing.T) { testExpireMissing(t, factory) })
	t.Run("Key_ExpireRemovesRecord", func(t *testing.T) { testExpireRemoves(t, factory) })
	t.Run("Key_WriteAfterExpiryStartsFresh", func(t *testing.T) { testWriteAfterExpiry(t, factory) })
	t.Run("Lease_ReleaseIdempotent", func(t *testing.T) { testReleaseIdempotent(t, factory) })
	t.Run("Lease_DiscardThenRelease", func(t *testing.T) { testDiscardThenRelease(t, factory) })
	t.Run("Lease_UseAfterRelease", func(t *testing.T) { testUseAfterRelease(t, factory) })
	t.Run("Pool_ConcurrentBorrowers", func(t *testing.T) { testConcurrentBorrowers(t, factory) })
}

func acquire(t *testing.T, h Harness) kv.Conn {
	t.Helper()
	conn, err := h.Pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	return conn
}

func testSetGet(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	if _, err := conn.HSet(ctx, "k1", "f", []byte("v1")); err != nil {
		t.Fatalf("hset: %v", err)
	}
	got, ok, err := conn.HGet(ctx, "k1", "f")
	if err != nil {
		t.Fatalf("hget: %v", err)
	}
	if !ok || string(got) != "v1" {
		t.Fatalf("expected v1, got %q (ok=%v)", got, ok)
	}

	if _, err := conn.HSet(ctx, "k1", "f", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, err = conn.HGet(ctx, "k1", "f")
	if err != nil {
		t.Fatalf("hget after overwrite: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func testSetReportsNew(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	created, err := conn.HSet(ctx, "k", "f", []byte("a"))
	if err != nil {
		t.Fatalf("hset: %v", err)
	}
	if !created {
		t.Fatal("expected first write to create the field")
	}
	created, err = conn.HSet(ctx, "k", "f", []byte("b"))
	if err != nil {
		t.Fatalf("hset: %v", err)
	}
	if created {
		t.Fatal("expected overwrite to report an existing field")
	}
}

func testGetMissing(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	if _, ok, err := conn.HGet(ctx, "nope", "f"); err != nil || ok {
		t.Fatalf("expected absent field on missing key, ok=%v err=%v", ok, err)
	}
	if _, err := conn.HSet(ctx, "k", "other", []byte("x")); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if _, ok, err := conn.HGet(ctx, "k", "f"); err != nil || ok {
		t.Fatalf("expected absent field on existing key, ok=%v err=%v", ok, err)
	}
}

func testGetAllMissing(t *testing.T, factory Factory) {
	h := factory(t)
	conn := acquire(t, h)
	defer conn.Release()

	all, err := conn.HGetAll(context.Background(), "nope")
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if all == nil {
		t.Fatal("expected empty map, got nil")
	}
	if len(all) != 0 {
		t.Fatalf("expected no fields, got %v", all)
	}
}

func testGetAll(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for f, v := range want {
		if _, err := conn.HSet(ctx, "k", f, []byte(v)); err != nil {
			t.Fatalf("hset %s: %v", f, err)
		}
	}
	all, err := conn.HGetAll(ctx, "k")
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(all))
	}
	for f, v := range want {
		if string(all[f]) != v {
			t.Fatalf("field %s: expected %q, got %q", f, v, all[f])
		}
	}
}

func testDelLastField(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	if _, err := conn.HSet(ctx, "k", "only", []byte("x")); err != nil {
		t.Fatalf("hset: %v", err)
	}
	removed, err := conn.HDel(ctx, "k", "only")
	if err != nil {
		t.Fatalf("hdel: %v", err)
	}
	if !removed {
		t.Fatal("expected hdel to report removal")
	}
	exists, err := conn.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected key to disappear with its last field")
	}
	removed, err = conn.HDel(ctx, "k", "only")
	if err != nil {
		t.Fatalf("second hdel: %v", err)
	}
	if removed {
		t.Fatal("expected second hdel to report nothing removed")
	}
}

func testHExists(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	if ok, err := conn.HExists(ctx, "k", "f"); err != nil || ok {
		t.Fatalf("expected missing field, ok=%v err=%v", ok, err)
	}
	if _, err := conn.HSet(ctx, "k", "f", []byte("")); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if ok, err := conn.HExists(ctx, "k", "f"); err != nil || !ok {
		t.Fatalf("expected present field, ok=%v err=%v", ok, err)
	}
}

func testDel(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	for i := 0; i < 5; i++ {
		if _, err := conn.HSet(ctx, "k", fmt.Sprintf("f%d", i), []byte("v")); err != nil {
			t.Fatalf("hset: %v", err)
		}
	}
	removed, err := conn.Del(ctx, "k")
	if err != nil {
		t.Fatalf("del: %v", err)
	}
	if !removed {
		t.Fatal("expected del to report removal")
	}
	all, err := conn.HGetAll(ctx, "k")
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no fields after del, got %v", all)
	}
	removed, err = conn.Del(ctx, "k")
	if err != nil {
		t.Fatalf("second del: %v", err)
	}
	if removed {
		t.Fatal("expected second del to report nothing removed")
	}
}

func testExpireMissing(t *testing.T, factory Factory) {
	h := factory(t)
	conn := acquire(t, h)
	defer conn.Release()

	ok, err := conn.Expire(context.Background(), "nope", time.Minute)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if ok {
		t.Fatal("expected expire on a missing key to report false")
	}
}

func testExpireRemoves(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	if _, err := conn.HSet(ctx, "k", "f", []byte("v")); err != nil {
		t.Fatalf("hset: %v", err)
	}
	ok, err := conn.Expire(ctx, "k", 10*time.Second)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !ok {
		t.Fatal("expected expire on an existing key to report true")
	}

	h.Advance(5 * time.Second)
	if exists, err := conn.Exists(ctx, "k"); err != nil || !exists {
		t.Fatalf("expected key alive before ttl, exists=%v err=%v", exists, err)
	}

	h.Advance(6 * time.Second)
	if exists, err := conn.Exists(ctx, "k"); err != nil || exists {
		t.Fatalf("expected key expired after ttl, exists=%v err=%v", exists, err)
	}
	if _, ok, err := conn.HGet(ctx, "k", "f"); err != nil || ok {
		t.Fatalf("expected expired field to be absent, ok=%v err=%v", ok, err)
	}
}

func testWriteAfterExpiry(t *testing.T, factory Factory) {
	h := factory(t)
	ctx := context.Background()
	conn := acquire(t, h)
	defer conn.Release()

	if _, err := conn.HSet(ctx, "k", "old", []byte("v")); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if _, err := conn.Expire(ctx, "k", time.Second); err != nil {
		t.Fatalf("expire: %v", err)
	}
	h.Advance(2 * time.Second)

	if _, err := conn.HSet(ctx, "k", "new", []byte("v")); err != nil {
		t.Fatalf("hset after expiry: %v", err)
	}
	all, err := conn.HGetAll(ctx, "k")
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if _, ok := all["old"]; ok {
		t.Fatal("expected expired field not to resurrect")
	}
	if _, ok := all["new"]; !ok {
		t.Fatal("expected new field to be present")
	}
}

func testReleaseIdempotent(t *testing.T, factory Factory) {
	h := factory(t)
	conn := acquire(t, h)
	conn.Release()
	conn.Release()

	// The pool must still hand out working connections.
	next := acquire(t, h)
	defer next.Release()
	if _, err := next.HSet(context.Background(), "k", "f", []byte("v")); err != nil {
		t.Fatalf("hset on fresh lease: %v", err)
	}
}

func testDiscardThenRelease(t *testing.T, factory Factory) {
	h := factory(t)
	conn := acquire(t, h)
	conn.Discard()
	conn.Release()
	conn.Discard()

	next := acquire(t, h)
	defer next.Release()
	if _, err := next.Exists(context.Background(), "k"); err != nil {
		t.Fatalf("exists on fresh lease: %v", err)
	}
}

func testUseAfterRelease(t *testing.T, factory Factory) {
	h := factory(t)
	conn := acquire(t, h)
	conn.Release()

	_, err := conn.Exists(context.Background(), "k")
	if !errors.Is(err, kv.ErrLeaseFinished) {
		t.Fatalf("expected ErrLeaseFinished, got %v", err)
	}
}

func testConcurrentBorrowers(t *testing.T, factory Factory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const (
		workers = 16
		rounds  = 20
	)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(worker int) {
			defer wg.Done()
			<-start
			for r := 0; r < rounds; r++ {
				conn, err := h.Pool.Acquire(ctx)
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				field := fmt.Sprintf("w%d-r%d", worker, r)
				if _, err := conn.HSet(ctx, "shared", field, []byte(field)); err != nil {
					conn.Discard()
					t.Errorf("hset: %v", err)
					return
				}
				conn.Release()
			}
		}(w)
	}
	close(start)
	wg.Wait()

	conn := acquire(t, h)
	defer conn.Release()
	all, err := conn.HGetAll(ctx, "shared")
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if len(all) != workers*rounds {
		t.Fatalf("expected %d fields, got %d", workers*rounds, len(all))
	}
}
