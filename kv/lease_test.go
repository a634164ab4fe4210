package kv

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestLeaseFinishOnlyOnce(t *testing.T) {
	var l Lease
	if l.Finished() {
		t.Fatal("zero lease must be active")
	}
	if !l.Finish() {
		t.Fatal("first Finish must win")
	}
	if l.Finish() {
		t.Fatal("second Finish must be a no-op")
	}
	if !l.Finished() {
		t.Fatal("expected finished lease")
	}
}

func TestLeaseFinishConcurrent(t *testing.T) {
	var (
		l    Lease
		wins atomic.Int64
		wg   sync.WaitGroup
	)

	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.Finish() {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}
