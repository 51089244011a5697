package stream

import "fmt"

// Kind tags the variant of an Event.
type Kind int

const (
	KindOpened Kind = iota + 1
	KindMessage
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindOpened:
		return "opened"
	case KindMessage:
		return "message"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is the translated form of one transport notification. Body is set for
// KindMessage, Description for KindError; Opened carries nothing.
type Event struct {
	Kind        Kind
	Body        string
	Description string
}

// Opened returns the event for an open notification.
func Opened() Event { return Event{Kind: KindOpened} }

// Message returns a message event carrying body.
func Message(body string) Event { return Event{Kind: KindMessage, Body: body} }

// ErrorEvent returns an error event with a rendered description.
func ErrorEvent(description string) Event { return Event{Kind: KindError, Description: description} }

func (e Event) String() string {
	switch e.Kind {
	case KindMessage:
		return fmt.Sprintf("message(%q)", e.Body)
	case KindError:
		return fmt.Sprintf("error(%q)", e.Description)
	}
	return e.Kind.String()
}

// ControlFlow is a Handler's decision after seeing an Event.
type ControlFlow int

const (
	Continue ControlFlow = iota
	Stop
)

func (c ControlFlow) String() string {
	if c == Stop {
		return "stop"
	}
	return "continue"
}

// Handler is invoked once per Event, never concurrently for the same Connection.
// Returning Stop closes the connection; a Handler must not call Close on its own
// connection.
type Handler func(Event) ControlFlow

// State of a Connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name, so JSON shows "open" rather than 1.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
