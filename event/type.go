// Package event carries cross-subsystem notifications on a lock-free
// queue. Producers (discovery, beat clocks, scene control, render engine)
// push from any goroutine; a single consumer drains per tick or per UI
// refresh.
package event

// Type identifies an engine event.
type Type int

const (
	// TypeNodeUp signals a node seen for the first time or back from expiry
	// Producer: artnet discovery | Payload: *NodePayload
	TypeNodeUp Type = iota

	// TypeNodeLost signals a node unseen past the liveness timeout
	// Producer: artnet discovery sweep | Payload: *NodePayload
	TypeNodeLost

	// TypeSyncStateChanged signals an external-sync state transition
	// Producer: beat.Sync poll | Payload: *SyncStatePayload
	TypeSyncStateChanged

	// TypeTempoChanged signals a bpm change from tap, sync, or direct set
	// Producer: sync wrapper, tempo controls | Payload: *TempoPayload
	TypeTempoChanged

	// TypeSceneApplied signals a whole-scene replace on the stack
	// Producer: scene control, config hot-reload | Payload: *ScenePayload
	TypeSceneApplied

	// TypeFrameDrop signals the render tick fell behind its deadline
	// Producer: render engine | Payload: *FrameDropPayload
	TypeFrameDrop

	// TypeConfigReloaded signals a config file change was applied
	// Producer: config watcher | Payload: *ConfigPayload
	TypeConfigReloaded
)

func (t Type) String() string {
	switch t {
	case TypeNodeUp:
		return "node_up"
	case TypeNodeLost:
		return "node_lost"
	case TypeSyncStateChanged:
		return "sync_state_changed"
	case TypeTempoChanged:
		return "tempo_changed"
	case TypeSceneApplied:
		return "scene_applied"
	case TypeFrameDrop:
		return "frame_drop"
	case TypeConfigReloaded:
		return "config_reloaded"
	default:
		return "unknown"
	}
}

// Event pairs a type with its payload. Payload types are documented on
// the Type constants; a nil payload is valid for types that carry none.
type Event struct {
	Type    Type
	Payload any
}
