package event

// Handler processes the event types it declares.
type Handler interface {
	HandleEvent(ev Event)
	EventTypes() []Type
}

// Router dispatches drained events to registered handlers.
// Dispatch is single-threaded; handlers for the same type run in
// registration order.
type Router struct {
	handlers map[Type][]Handler
	queue    *Queue
}

func NewRouter(queue *Queue) *Router {
	return &Router{
		handlers: make(map[Type][]Handler),
		queue:    queue,
	}
}

// Register adds a handler for its declared event types.
func (r *Router) Register(handler Handler) {
	for _, t := range handler.EventTypes() {
		r.handlers[t] = append(r.handlers[t], handler)
	}
}

// DispatchAll consumes all pending events and routes them in FIFO order.
func (r *Router) DispatchAll() {
	for _, ev := range r.queue.Consume() {
		for _, h := range r.handlers[ev.Type] {
			h.HandleEvent(ev)
		}
	}
}

func (r *Router) HasHandlers(t Type) bool {
	return len(r.handlers[t]) > 0
}
