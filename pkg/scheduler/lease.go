package scheduler

import (
	"github.com/ultrasearch/ultrasearch/pkg/errs"
)

// WriterLease bounds the number of concurrent content-index writers
// (spec §4.6: "at most 1–2 outstanding) prevents concurrent writers").
type WriterLease struct {
	slots chan struct{}
}

// NewWriterLease builds a lease with the given capacity (1 or 2 per
// spec §4.6).
func NewWriterLease(capacity int) *WriterLease {
	if capacity <= 0 {
		capacity = 1
	}
	return &WriterLease{slots: make(chan struct{}, capacity)}
}

// TryAcquire attempts to take a writer slot without blocking, returning
// an *errs.Error with Kind WriterLeaseDenied if none are free.
func (l *WriterLease) TryAcquire() error {
	select {
	case l.slots <- struct{}{}:
		return nil
	default:
		return errs.New(errs.WriterLeaseDenied, "content-writer lease exhausted")
	}
}

// Release returns a writer slot to the lease.
func (l *WriterLease) Release() {
	select {
	case <-l.slots:
	default:
	}
}
