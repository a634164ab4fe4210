package kv

import "sync/atomic"

// Lease guards the single hand-back of a borrowed connection. The zero value is
// an active lease.
type Lease struct {
	finished atomic.Bool
}

// Finish marks the lease finished and reports whether this call did so. Only
// the caller that receives true may return or drop the connection.
func (l *Lease) Finish() bool {
	return l.finished.CompareAndSwap(false, true)
}

// Finished reports whether Release or Discard already ran.
func (l *Lease) Finished() bool {
	return l.finished.Load()
}
