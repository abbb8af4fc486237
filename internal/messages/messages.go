package messages

import (
	"encoding/json"
	"fmt"

	"github.com/lydakis/masq/internal/uigateway"
)

// NodeUIProtocol is the websocket subprotocol a UI must request, and the
// Node must echo, for a connection to count as established.
const NodeUIProtocol = "MASQNode-UIv2"

// Message is implemented by every application-level message type.
// Opcode must not depend on the receiver's field values.
type Message interface {
	Opcode() string
	IsTwoWay() bool
}

// BadOpcodeError reports a body whose opcode is not the one the caller
// expected to decode.
type BadOpcodeError struct {
	Expected string
	Actual   string
}

func (e *BadOpcodeError) Error() string {
	return fmt.Sprintf("BadOpcode: expected '%s', got '%s'", e.Expected, e.Actual)
}

// DecodeError reports a success payload that does not fit the expected type.
type DecodeError struct {
	Opcode string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("DeserializationError: '%s' payload: %v", e.Opcode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ToBody encodes m into a body. Two-way messages are tagged with contextID;
// one-way messages ignore it.
func ToBody(m Message, contextID uint64) uigateway.MessageBody {
	payload, err := json.Marshal(m)
	if err != nil {
		panic(fmt.Sprintf("encoding '%s' payload: %v", m.Opcode(), err))
	}
	path := uigateway.OneWay()
	if m.IsTwoWay() {
		path = uigateway.TwoWay(contextID)
	}
	return uigateway.SuccessBody(m.Opcode(), path, payload)
}

// NewNodeFromUi wraps m for sending. The context id is left at zero; a
// conversation stamps its own id on the way out.
func NewNodeFromUi(m Message) uigateway.NodeFromUiMessage {
	return uigateway.NodeFromUiMessage{Body: ToBody(m, 0)}
}

// NewNodeToUi wraps m as a reply addressed to client 0 within contextID.
func NewNodeToUi(m Message, contextID uint64) uigateway.NodeToUiMessage {
	return uigateway.NodeToUiMessage{Target: uigateway.ClientID(0), Body: ToBody(m, contextID)}
}

// FromBody decodes body into T and returns the body's context id (0 for
// one-way bodies). An error payload is returned as *uigateway.PayloadError.
func FromBody[T Message](body uigateway.MessageBody) (T, uint64, error) {
	var out T
	if body.Opcode != out.Opcode() {
		return out, 0, &BadOpcodeError{Expected: out.Opcode(), Actual: body.Opcode}
	}
	if body.Error != nil {
		return out, 0, body.Error
	}

	if err := json.Unmarshal(body.Payload, &out); err != nil {
		var zero T
		return zero, 0, &DecodeError{Opcode: body.Opcode, Err: err}
	}
	return out, body.Path.ContextID(), nil
}
