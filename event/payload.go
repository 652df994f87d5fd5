package event

import "time"

// NodePayload describes the node a discovery event refers to.
type NodePayload struct {
	Key       string // mac, or ip when mac is unknown
	IP        string
	ShortName string
	Universes []int
}

// SyncStatePayload carries an external-sync transition.
type SyncStatePayload struct {
	From string
	To   string
}

// TempoPayload carries a tempo change and where it came from.
type TempoPayload struct {
	BPM    float64
	Source string // "tap", "sync", "midi", "set"
}

// ScenePayload names the scene that replaced the stack.
type ScenePayload struct {
	Name   string
	Layers int
}

// FrameDropPayload reports how far the render tick fell behind.
type FrameDropPayload struct {
	FrameNumber uint64
	Behind      time.Duration
}

// ConfigPayload names the reloaded file.
type ConfigPayload struct {
	Path string
}
