package parameter

import (
	"time"
)

// Config watcher
const (
	WatchDebounce = 150 * time.Millisecond // editors fire bursts of writes per save
)
