package status

import (
	"sync/atomic"
)

// AtomicString holds a string behind an atomic pointer. Zero value reads
// as the empty string. Intended for low-rate state labels (sync state,
// active scene name), not hot-path counters.
type AtomicString struct {
	ptr atomic.Pointer[string]
}

func (s *AtomicString) Store(val string) {
	s.ptr.Store(&val)
}

func (s *AtomicString) Load() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
