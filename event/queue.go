package event

import (
	"sync/atomic"

	"github.com/lixenwraith/helios/parameter"
)

// Queue is a lock-free MPSC ring buffer.
//
// Thread-safety:
//   - Push: lock-free CAS, any number of producers
//   - Consume: single consumer only
//   - Published flags prevent reading a slot mid-write
//
// Overflow: oldest events are overwritten when full.
type Queue struct {
	events    [parameter.EventQueueSize]Event
	published [parameter.EventQueueSize]atomic.Bool // true = slot fully written
	head      atomic.Uint64                         // read index
	tail      atomic.Uint64                         // write index
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push adds an event. Safe for concurrent producers.
func (q *Queue) Push(ev Event) {
	for {
		currentTail := q.tail.Load()
		nextTail := currentTail + 1

		if q.tail.CompareAndSwap(currentTail, nextTail) {
			idx := currentTail & parameter.EventBufferMask

			q.events[idx] = ev
			q.published[idx].Store(true) // must follow the slot write

			// Advance head if overwriting unread events
			currentHead := q.head.Load()
			if nextTail-currentHead > parameter.EventQueueSize {
				q.head.CompareAndSwap(currentHead, nextTail-parameter.EventQueueSize)
			}
			return
		}
	}
}

// Emit is Push with construction inline.
func (q *Queue) Emit(t Type, payload any) {
	q.Push(Event{Type: t, Payload: payload})
}

// Consume returns all pending events in FIFO order and advances the head.
// Single-consumer only. Stops early at a slot a writer has claimed but not
// yet published.
func (q *Queue) Consume() []Event {
	for {
		currentHead := q.head.Load()
		currentTail := q.tail.Load()

		if currentTail == currentHead {
			return nil
		}

		maxAvailable := currentTail - currentHead
		if maxAvailable > parameter.EventQueueSize {
			maxAvailable = parameter.EventQueueSize
			currentHead = currentTail - parameter.EventQueueSize
		}

		result := make([]Event, 0, maxAvailable)
		for i := uint64(0); i < maxAvailable; i++ {
			idx := (currentHead + i) & parameter.EventBufferMask

			if !q.published[idx].Load() {
				break // writer incomplete
			}

			result = append(result, q.events[idx])
			q.published[idx].Store(false)
		}

		newHead := currentHead + uint64(len(result))
		if q.head.CompareAndSwap(currentHead, newHead) {
			if len(result) == 0 {
				return nil
			}
			return result
		}
	}
}

// Pending reports the number of queued events. Approximate under
// concurrent pushes.
func (q *Queue) Pending() int {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail < head {
		return 0
	}
	n := tail - head
	if n > parameter.EventQueueSize {
		n = parameter.EventQueueSize
	}
	return int(n)
}
