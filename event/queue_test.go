package event

import (
	"sync"
	"testing"

	"github.com/lixenwraith/helios/parameter"
)

// TestQueueFIFO verifies single-producer ordering
func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Emit(TypeNodeUp, &NodePayload{Key: "a"})
	q.Emit(TypeNodeLost, &NodePayload{Key: "b"})
	q.Emit(TypeTempoChanged, &TempoPayload{BPM: 128})

	got := q.Consume()
	if len(got) != 3 {
		t.Fatalf("drained %d events, want 3", len(got))
	}
	if got[0].Type != TypeNodeUp || got[1].Type != TypeNodeLost || got[2].Type != TypeTempoChanged {
		t.Errorf("order: %v %v %v", got[0].Type, got[1].Type, got[2].Type)
	}
	if p := got[2].Payload.(*TempoPayload); p.BPM != 128 {
		t.Errorf("payload: got %v", p.BPM)
	}
}

// TestQueueEmptyConsume verifies draining an empty queue returns nil
func TestQueueEmptyConsume(t *testing.T) {
	q := NewQueue()
	if got := q.Consume(); got != nil {
		t.Errorf("got %v, want nil", got)
	}

	q.Emit(TypeFrameDrop, nil)
	q.Consume()
	if got := q.Consume(); got != nil {
		t.Errorf("second drain: got %v, want nil", got)
	}
}

// TestQueueConcurrentProducers verifies no events are lost under contention
func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const producers = 8
	const perProducer = 50 // well under queue capacity

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Emit(TypeTempoChanged, nil)
			}
		}()
	}
	wg.Wait()

	total := 0
	for {
		batch := q.Consume()
		if len(batch) == 0 {
			break
		}
		total += len(batch)
	}
	if total != producers*perProducer {
		t.Errorf("drained %d, want %d", total, producers*perProducer)
	}
}

// TestQueueOverflowKeepsNewest verifies oldest events give way when full
func TestQueueOverflowKeepsNewest(t *testing.T) {
	q := NewQueue()
	overfill := parameter.EventQueueSize + 10
	for i := 0; i < overfill; i++ {
		q.Push(Event{Type: TypeFrameDrop, Payload: i})
	}

	got := q.Consume()
	if len(got) != parameter.EventQueueSize {
		t.Fatalf("drained %d, want %d", len(got), parameter.EventQueueSize)
	}
	// The newest event must have survived
	last := got[len(got)-1].Payload.(int)
	if last != overfill-1 {
		t.Errorf("last payload: got %d, want %d", last, overfill-1)
	}
}

type recordingHandler struct {
	types []Type
	seen  []Event
}

func (h *recordingHandler) HandleEvent(ev Event) { h.seen = append(h.seen, ev) }
func (h *recordingHandler) EventTypes() []Type   { return h.types }

// TestRouterDispatch verifies routing by declared type
func TestRouterDispatch(t *testing.T) {
	q := NewQueue()
	r := NewRouter(q)

	nodeHandler := &recordingHandler{types: []Type{TypeNodeUp, TypeNodeLost}}
	tempoHandler := &recordingHandler{types: []Type{TypeTempoChanged}}
	r.Register(nodeHandler)
	r.Register(tempoHandler)

	q.Emit(TypeNodeUp, nil)
	q.Emit(TypeTempoChanged, nil)
	q.Emit(TypeSceneApplied, nil) // no handler registered
	r.DispatchAll()

	if len(nodeHandler.seen) != 1 || nodeHandler.seen[0].Type != TypeNodeUp {
		t.Errorf("node handler saw %v", nodeHandler.seen)
	}
	if len(tempoHandler.seen) != 1 {
		t.Errorf("tempo handler saw %v", tempoHandler.seen)
	}
	if !r.HasHandlers(TypeNodeLost) {
		t.Error("HasHandlers(TypeNodeLost) = false")
	}
	if r.HasHandlers(TypeSceneApplied) {
		t.Error("HasHandlers(TypeSceneApplied) = true with none registered")
	}
}

// TestTypeString verifies event names for log output
func TestTypeString(t *testing.T) {
	if got := TypeNodeUp.String(); got != "node_up" {
		t.Errorf("got %q", got)
	}
	if got := Type(99).String(); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
