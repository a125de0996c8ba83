package events

// Event type constants for kelindar/event.
const (
	TypeConfigApplied uint32 = iota + 1
	TypeConfigSaved
	TypeBufferResized
	TypePauseChanged
	TypeInputSource
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ConfigAppliedEvent is published after an output configuration document has
// been processed, whether it was accepted or replaced with regenerated
// defaults.
type ConfigAppliedEvent struct {
	Accepted   bool `json:"accepted"`
	TotalBytes int  `json:"total_bytes"`
}

// Type returns the event type identifier for ConfigAppliedEvent.
func (e ConfigAppliedEvent) Type() uint32 { return TypeConfigApplied }

// ConfigSavedEvent is published after a deferred configuration flush.
type ConfigSavedEvent struct {
	OK bool `json:"ok"`
}

// Type returns the event type identifier for ConfigSavedEvent.
func (e ConfigSavedEvent) Type() uint32 { return TypeConfigSaved }

// BufferResizedEvent is published whenever the frame buffer windows are
// reassigned and the valid fill length changes.
type BufferResizedEvent struct {
	TotalBytes int `json:"total_bytes"`
}

// Type returns the event type identifier for BufferResizedEvent.
func (e BufferResizedEvent) Type() uint32 { return TypeBufferResized }

// PauseChangedEvent is published when rendering is paused or resumed.
type PauseChangedEvent struct {
	Paused bool `json:"paused"`
}

// Type returns the event type identifier for PauseChangedEvent.
func (e PauseChangedEvent) Type() uint32 { return TypePauseChanged }

// InputSourceEvent is published when the sACN receiver starts hearing a new
// source.
type InputSourceEvent struct {
	Source   string `json:"source"`
	Address  string `json:"address"`
	Universe int    `json:"universe"`
}

// Type returns the event type identifier for InputSourceEvent.
func (e InputSourceEvent) Type() uint32 { return TypeInputSource }
