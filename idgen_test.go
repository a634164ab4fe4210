package goSession

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/kv/memkv"
)

func TestNanoIDGeneratorShape(t *testing.T) {
	gen := NanoIDGenerator{}
	for _, length := range []int{8, 26, 128} {
		id, err := gen.Generate(length)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", length, err)
		}
		if len(id) != length {
			t.Fatalf("expected length %d, got %d", length, len(id))
		}
		if !internal.IsAlphanumeric(id) {
			t.Fatalf("id %q contains symbols outside the alphabet", id)
		}
	}
}

func TestNanoIDGeneratorRejectsNonPositiveLength(t *testing.T) {
	if _, err := (NanoIDGenerator{}).Generate(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestNanoIDGeneratorConcurrentUnique(t *testing.T) {
	const goroutines = 50
	const perG = 100

	gen := NanoIDGenerator{}
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, goroutines*perG)
		wg   sync.WaitGroup
	)
	errs := make(chan error, goroutines)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				id, err := gen.Generate(26)
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(seen) != goroutines*perG {
		t.Fatalf("expected %d distinct ids, got %d", goroutines*perG, len(seen))
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abcDEF12", true},
		{"abcDEF1", false},
		{"abcDEF123", false},
		{"abc-EF12", false},
		{"abcdéf12", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := validID(tc.id, 8); got != tc.want {
			t.Fatalf("validID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestStartConcurrentIDsUnique(t *testing.T) {
	const goroutines = 30
	const perG = 100

	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	engine, err := New().WithConfig(cfg).WithPool(memkv.New(memkv.Config{Size: 8})).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, goroutines*perG)
		wg   sync.WaitGroup
	)
	errs := make(chan error, goroutines)
	start := make(chan struct{})

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < perG; j++ {
				m, err := engine.Start(context.Background(), fakeRequest{}, &recordingResponse{})
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				seen[m.ID()] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Start failed: %v", err)
	}
	if len(seen) != goroutines*perG {
		t.Fatalf("expected %d distinct ids, got %d", goroutines*perG, len(seen))
	}
	if n := engine.MetricsSnapshot().Counters[MetricIDCollision]; n != 0 {
		t.Fatalf("expected no collisions, got %d", n)
	}
}
