// Package render owns the fixed-rate evaluation loop and the lock-free
// frame handoff between the engine tick and the output streamer.
package render

import (
	"sync/atomic"
)

// sharedDirty marks the pending slot as unread. It rides in the same
// atomic word as the slot index so the flag and the slot always move
// together; a consumer can never swap against a stale flag and receive
// a slot the producer still owns.
const sharedDirty = 0x4

// TripleBuffer exchanges values between one producer and one consumer
// without locks and without either side ever waiting. Three slots
// rotate roles: one owned by the producer, one owned by the consumer,
// and one pending in the shared word. Publishing replaces the pending
// slot, so a slow consumer sees the newest value, never a queue.
//
// WriteSlot and Publish belong to the producer goroutine; TrySwapRead
// and ReadSlot to the consumer goroutine.
type TripleBuffer[T any] struct {
	slots    [3]T
	writeIdx int32
	readIdx  int32
	shared   atomic.Int32 // pending slot index, possibly with sharedDirty
}

// NewTripleBuffer builds a buffer with three slots from alloc. The
// buffer starts clean: TrySwapRead reports false until the first
// Publish.
func NewTripleBuffer[T any](alloc func() T) *TripleBuffer[T] {
	tb := &TripleBuffer[T]{writeIdx: 0, readIdx: 2}
	for i := range tb.slots {
		tb.slots[i] = alloc()
	}
	tb.shared.Store(1)
	return tb
}

// WriteSlot returns the slot the producer currently owns. The producer
// fills it, then calls Publish.
func (tb *TripleBuffer[T]) WriteSlot() T {
	return tb.slots[tb.writeIdx]
}

// Publish hands the filled write slot to the shared word, marked dirty,
// and adopts whichever slot was pending there. Publishing over an
// unread frame overwrites it.
func (tb *TripleBuffer[T]) Publish() {
	old := tb.shared.Swap(tb.writeIdx | sharedDirty)
	tb.writeIdx = old &^ sharedDirty
}

// Write replaces the producer slot with v and publishes it. Producers
// that fill a slot in place use WriteSlot and Publish instead.
func (tb *TripleBuffer[T]) Write(v T) {
	tb.slots[tb.writeIdx] = v
	tb.Publish()
}

// TrySwapRead exchanges the consumer's slot for the pending one when a
// new frame has been published. It reports false and leaves the read
// slot untouched when the pending slot is clean.
func (tb *TripleBuffer[T]) TrySwapRead() bool {
	if tb.shared.Load()&sharedDirty == 0 {
		return false
	}
	old := tb.shared.Swap(tb.readIdx)
	tb.readIdx = old &^ sharedDirty
	return true
}

// ReadSlot returns the slot the consumer currently owns. Its contents
// are stable until the next TrySwapRead that returns true.
func (tb *TripleBuffer[T]) ReadSlot() T {
	return tb.slots[tb.readIdx]
}
