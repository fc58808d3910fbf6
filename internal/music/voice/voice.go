// Package voice declares the chat-platform capabilities the music player
// depends on. Discord adapters implement them in production, tests use fakes.
package voice

import (
	"context"
	"errors"
)

var ErrNotConnected = errors.New("voice connection is not established")

// EventType is the kind of lifecycle event emitted by a Dispatcher.
type EventType int

const (
	EventStart EventType = iota
	EventFinish
	EventStop
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventFinish:
		return "finish"
	case EventStop:
		return "stop"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by a Dispatcher. Err is set only for EventError.
type Event struct {
	Type EventType
	Err  error
}

// EventHandler receives dispatcher events. It may be called from any goroutine.
type EventHandler func(Event)

// TextChannel is where status messages go.
type TextChannel interface {
	ID() string
	Send(text string) error
}

// VoiceChannel can be joined to obtain a Connection.
type VoiceChannel interface {
	ID() string
	Join(ctx context.Context) (Connection, error)
}

// Connection is an open voice connection.
type Connection interface {
	// Play starts streaming url and returns a handle to the stream.
	// After a start event, exactly one of finish, stop or error follows.
	Play(url string, events EventHandler) (Dispatcher, error)
	Disconnect() error
}

// Dispatcher controls a stream in progress.
type Dispatcher interface {
	Pause()
	Resume()
	// End terminates the stream. It emits a stop event unless the stream
	// already terminated.
	End()
	SetVolumeLogarithmic(level float64)
}
