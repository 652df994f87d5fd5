package parameter

// Event queue sizing, must be a power of two for mask indexing
const (
	EventQueueSize  = 1024
	EventBufferMask = EventQueueSize - 1
)
