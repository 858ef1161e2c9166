package socket

import "fmt"

// State is the connectivity state of the push-event channel.
// It is one of Connecting, Connected, Disconnected or Failed.
type State interface {
	fmt.Stringer
	isState()
}

// Connecting is reported before every dial attempt.
type Connecting struct {
	Attempt int
}

// Connected is reported once the socket is open and rooms are rejoined.
type Connected struct{}

// Disconnected is reported when the socket drops or the connection is closed.
// Err is nil for a local close.
type Disconnected struct {
	Err error
}

// Failed is terminal: every reconnection attempt was used up.
type Failed struct {
	Err error
}

func (Connecting) isState()   {}
func (Connected) isState()    {}
func (Disconnected) isState() {}
func (Failed) isState()       {}

func (s Connecting) String() string { return fmt.Sprintf("connecting (attempt %d)", s.Attempt) }
func (Connected) String() string    { return "connected" }

func (s Disconnected) String() string {
	if s.Err != nil {
		return "disconnected: " + s.Err.Error()
	}
	return "disconnected"
}

func (s Failed) String() string {
	if s.Err != nil {
		return "failed: " + s.Err.Error()
	}
	return "failed"
}

// IsConnected reports whether s permits emitting.
func IsConnected(s State) bool {
	_, ok := s.(Connected)
	return ok
}
