package wsclient

import (
	"context"

	"github.com/lydakis/masq/internal/traffic"
	"github.com/lydakis/masq/internal/uigateway"
)

type conversationState int

const (
	stateIdle conversationState = iota
	stateSent
	stateDone
	stateFailed
)

// Conversation is one logical exchange on a Connection, identified by a
// context id. It carries at most one two-way request and its reply; one-way
// messages may be sent on it at any time. A Conversation is not safe for
// concurrent use.
type Conversation struct {
	conn      *Connection
	contextID uint64
	replies   chan inbound
	state     conversationState
}

// ContextID returns the id stamped on this conversation's two-way messages.
func (cv *Conversation) ContextID() uint64 {
	return cv.contextID
}

// Send writes msg. Two-way messages are re-tagged with this conversation's
// context id; one-way messages go out unchanged.
func (cv *Conversation) Send(ctx context.Context, msg uigateway.NodeFromUiMessage) error {
	twoWay := msg.Body.Path.IsTwoWay()
	if twoWay {
		if cv.state != stateIdle {
			return ErrConversationUsed
		}
		msg.Body.Path = uigateway.TwoWay(cv.contextID)
	}

	if err := cv.conn.writeText(ctx, traffic.MarshalFromUI(msg)); err != nil {
		if twoWay {
			cv.state = stateFailed
		}
		return err
	}
	if twoWay {
		cv.state = stateSent
	}
	return nil
}

// Receive waits for the reply addressed to this conversation. It may be
// called without a prior Send.
func (cv *Conversation) Receive(ctx context.Context) (uigateway.NodeToUiMessage, error) {
	if cv.state == stateDone {
		return uigateway.NodeToUiMessage{}, ErrConversationUsed
	}

	select {
	case in := <-cv.replies:
		return cv.accept(in)
	case <-cv.conn.done:
		select {
		case in := <-cv.replies:
			return cv.accept(in)
		default:
		}
		cv.state = stateFailed
		return uigateway.NodeToUiMessage{}, cv.conn.Err()
	case <-ctx.Done():
		return uigateway.NodeToUiMessage{}, ctx.Err()
	}
}

// Transact sends a two-way message and waits for its reply. An application
// error from the Node is not a Go error here: it arrives in the reply's
// Body.Error.
func (cv *Conversation) Transact(ctx context.Context, msg uigateway.NodeFromUiMessage) (uigateway.NodeToUiMessage, error) {
	if !msg.Body.Path.IsTwoWay() {
		return uigateway.NodeToUiMessage{}, &OneWayError{Opcode: msg.Body.Opcode}
	}
	if err := cv.Send(ctx, msg); err != nil {
		return uigateway.NodeToUiMessage{}, err
	}
	return cv.Receive(ctx)
}

// Close unregisters the conversation. Replies arriving later are dropped.
func (cv *Conversation) Close() {
	cv.conn.forget(cv)
}

func (cv *Conversation) accept(in inbound) (uigateway.NodeToUiMessage, error) {
	if in.err != nil {
		cv.state = stateFailed
		return uigateway.NodeToUiMessage{}, in.err
	}
	if got := in.msg.Body.Path.ContextID(); got != cv.contextID {
		cv.state = stateFailed
		return uigateway.NodeToUiMessage{}, &ContextIDMismatchError{Want: cv.contextID, Got: got}
	}
	cv.state = stateDone
	return in.msg, nil
}
