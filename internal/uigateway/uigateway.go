package uigateway

import (
	"encoding/json"
	"fmt"
)

// DefaultUIPort is the port a Node or Daemon listens on for UI connections.
const DefaultUIPort uint16 = 5333

// MessagePath says whether a message stands alone or belongs to a
// conversation. The zero value is OneWay.
type MessagePath struct {
	twoWay    bool
	contextID uint64
}

// OneWay returns the path of a message that never expects a reply.
func OneWay() MessagePath {
	return MessagePath{}
}

// TwoWay returns the path of a message tied to the conversation contextID.
func TwoWay(contextID uint64) MessagePath {
	return MessagePath{twoWay: true, contextID: contextID}
}

// IsTwoWay reports whether the path carries a correlation id.
func (p MessagePath) IsTwoWay() bool {
	return p.twoWay
}

// ContextID returns the correlation id, or 0 for OneWay paths.
func (p MessagePath) ContextID() uint64 {
	return p.contextID
}

func (p MessagePath) String() string {
	if !p.twoWay {
		return "OneWay"
	}
	return fmt.Sprintf("TwoWay(%d)", p.contextID)
}

// MessageTarget addresses an inbound message to one client or to all of them.
type MessageTarget struct {
	all      bool
	clientID uint64
}

// ClientID targets a single client.
func ClientID(id uint64) MessageTarget {
	return MessageTarget{clientID: id}
}

// AllClients targets every connected client (a broadcast).
func AllClients() MessageTarget {
	return MessageTarget{all: true}
}

// IsBroadcast reports whether the target is AllClients.
func (t MessageTarget) IsBroadcast() bool {
	return t.all
}

// ClientID returns the addressed client, or 0 for broadcasts.
func (t MessageTarget) ClientID() uint64 {
	return t.clientID
}

func (t MessageTarget) String() string {
	if t.all {
		return "AllClients"
	}
	return fmt.Sprintf("ClientId(%d)", t.clientID)
}

// PayloadError is an application-level failure reported by the remote peer.
type PayloadError struct {
	Code    uint64
	Message string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("error %X: %s", e.Code, e.Message)
}

// MessageBody is the wire unit shared by both directions. Exactly one of
// Payload and Error is set.
type MessageBody struct {
	Opcode  string
	Path    MessagePath
	Payload json.RawMessage
	Error   *PayloadError
}

// SuccessBody builds a body carrying a JSON success payload.
func SuccessBody(opcode string, path MessagePath, payload json.RawMessage) MessageBody {
	return MessageBody{Opcode: opcode, Path: path, Payload: payload}
}

// ErrorBody builds a body carrying an application error.
func ErrorBody(opcode string, path MessagePath, code uint64, message string) MessageBody {
	return MessageBody{Opcode: opcode, Path: path, Error: &PayloadError{Code: code, Message: message}}
}

// IsError reports whether the body carries an application error.
func (b MessageBody) IsError() bool {
	return b.Error != nil
}

// NodeFromUiMessage travels from a UI client to the Node. ClientID is filled
// in by the receiving side.
type NodeFromUiMessage struct {
	ClientID uint64
	Body     MessageBody
}

// NodeToUiMessage travels from the Node to one UI client or to all of them.
type NodeToUiMessage struct {
	Target MessageTarget
	Body   MessageBody
}
