package wsclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDataAvailable means the Node dropped the connection without a
	// close frame while a reply was outstanding.
	ErrNoDataAvailable = errors.New("no data available")
	// ErrConnectionClosed is reported after Close has been called.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrBrokenConnection wraps failures to write to, or use, a dead socket.
	ErrBrokenConnection = errors.New("connection broken")
	// ErrConversationUsed is returned when a conversation is asked to carry
	// a second two-way exchange.
	ErrConversationUsed = errors.New("conversation has already been used")
)

// ConnectError reports that no counterpart accepted the connection. A missing
// listener and a listener that rejects the subprotocol look the same.
type ConnectError struct {
	Port uint16
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("No Node or Daemon is listening on port %d: %v", e.Port, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// OneWayError is returned, without any I/O, when a one-way message is handed
// to Transact.
type OneWayError struct {
	Opcode string
}

func (e *OneWayError) Error() string {
	return fmt.Sprintf("'%s' message is one-way only; can't transact() with it", e.Opcode)
}

// UnexpectedFrameError reports a non-text frame where a text frame was
// expected.
type UnexpectedFrameError struct {
	Kind string
	Code int
}

func (e *UnexpectedFrameError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("expected text; received %s (code %d)", e.Kind, e.Code)
	}
	return fmt.Sprintf("expected text; received %s", e.Kind)
}

// DeserializationProblem wraps inbound text that did not decode as an
// envelope.
type DeserializationProblem struct {
	Err error
}

func (e *DeserializationProblem) Error() string {
	return fmt.Sprintf("Deserialization problem: %v", e.Err)
}

func (e *DeserializationProblem) Unwrap() error {
	return e.Err
}

// ContextIDMismatchError reports a reply routed to the wrong conversation.
type ContextIDMismatchError struct {
	Want uint64
	Got  uint64
}

func (e *ContextIDMismatchError) Error() string {
	return fmt.Sprintf("reply for conversation %d delivered to conversation %d", e.Got, e.Want)
}
