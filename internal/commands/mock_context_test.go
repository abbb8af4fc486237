package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/lydakis/masq/internal/cmdcontext"
	"github.com/lydakis/masq/internal/messages"
	"github.com/lydakis/masq/internal/uigateway"
)

type mockReply struct {
	body uigateway.MessageBody
	err  error
}

// mockContext records what commands ask of it and answers from a queue.
type mockContext struct {
	transacts []messages.Message
	sends     []messages.Message
	replies   []mockReply
	sendErr   error
	stdin     io.Reader
	stdout    bytes.Buffer
	stderr    bytes.Buffer
	closed    bool
}

var _ cmdcontext.Context = (*mockContext)(nil)

func newMockContext() *mockContext {
	return &mockContext{stdin: strings.NewReader("")}
}

func (m *mockContext) queueReply(msg messages.Message) *mockContext {
	m.replies = append(m.replies, mockReply{body: messages.ToBody(msg, 1)})
	return m
}

func (m *mockContext) queueError(err error) *mockContext {
	m.replies = append(m.replies, mockReply{err: err})
	return m
}

func (m *mockContext) Transact(_ context.Context, msg messages.Message) (uigateway.MessageBody, error) {
	m.transacts = append(m.transacts, msg)
	if len(m.replies) == 0 {
		return uigateway.MessageBody{}, &cmdcontext.Error{Message: "no reply queued", Err: errors.New("no reply queued")}
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next.body, next.err
}

func (m *mockContext) Send(_ context.Context, msg messages.Message) error {
	m.sends = append(m.sends, msg)
	return m.sendErr
}

func (m *mockContext) Stdin() io.Reader  { return m.stdin }
func (m *mockContext) Stdout() io.Writer { return &m.stdout }
func (m *mockContext) Stderr() io.Writer { return &m.stderr }
func (m *mockContext) Close()            { m.closed = true }
