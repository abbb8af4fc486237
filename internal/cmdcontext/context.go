// Package cmdcontext is what commands see of the outside world: a way to
// talk to the Node and the process's standard streams.
package cmdcontext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lydakis/masq/internal/messages"
	"github.com/lydakis/masq/internal/uigateway"
	"github.com/lydakis/masq/internal/wsclient"
)

// Context is the per-invocation facade handed to commands. Every failure it
// reports is an *Error.
type Context interface {
	// Transact performs one two-way exchange and returns the reply body.
	// Error payloads from the Node come back as errors, not bodies.
	Transact(ctx context.Context, msg messages.Message) (uigateway.MessageBody, error)
	// Send fires a message without waiting for any reply.
	Send(ctx context.Context, msg messages.Message) error
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer
	// Close releases the connection. Calling it again does nothing.
	Close()
}

// Error is the single failure type a Context reports.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transact sends req through c and decodes the reply as Resp.
func Transact[Resp messages.Message](ctx context.Context, c Context, req messages.Message) (Resp, error) {
	var zero Resp
	body, err := c.Transact(ctx, req)
	if err != nil {
		return zero, err
	}
	resp, _, err := messages.FromBody[Resp](body)
	if err != nil {
		return zero, &Error{Message: fmt.Sprintf("Deserialization problem: %v", err), Err: err}
	}
	return resp, nil
}

// Streams groups the standard streams a Context exposes.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Real is a Context backed by a live websocket connection.
type Real struct {
	conn            *wsclient.Connection
	streams         Streams
	transactTimeout time.Duration
	log             zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewReal wraps an established connection. A zero transactTimeout waits for
// replies indefinitely.
func NewReal(conn *wsclient.Connection, streams Streams, transactTimeout time.Duration, logger zerolog.Logger) *Real {
	streams.Stderr = &lockedWriter{w: streams.Stderr}
	r := &Real{
		conn:            conn,
		streams:         streams,
		transactTimeout: transactTimeout,
		log:             logger,
	}
	conn.SetBroadcastHandler(r.handleBroadcast)
	return r
}

func (r *Real) Transact(ctx context.Context, msg messages.Message) (uigateway.MessageBody, error) {
	r.mustBeOpen()
	if r.transactTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.transactTimeout)
		defer cancel()
	}

	cv := r.conn.StartConversation()
	defer cv.Close()
	r.log.Debug().Str("opcode", msg.Opcode()).Uint64("context_id", cv.ContextID()).Msg("transact")

	reply, err := cv.Transact(ctx, messages.NewNodeFromUi(msg))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && r.transactTimeout > 0 {
			return uigateway.MessageBody{}, &Error{
				Message: fmt.Sprintf("No reply to '%s' from Daemon or Node within %s", msg.Opcode(), r.transactTimeout),
				Err:     err,
			}
		}
		return uigateway.MessageBody{}, &Error{Message: err.Error(), Err: err}
	}
	if perr := reply.Body.Error; perr != nil {
		return uigateway.MessageBody{}, &Error{
			Message: fmt.Sprintf("Daemon or Node reports error %X: %s", perr.Code, perr.Message),
			Err:     perr,
		}
	}
	return reply.Body, nil
}

func (r *Real) Send(ctx context.Context, msg messages.Message) error {
	r.mustBeOpen()
	cv := r.conn.StartConversation()
	defer cv.Close()
	r.log.Debug().Str("opcode", msg.Opcode()).Msg("send")

	if err := cv.Send(ctx, messages.NewNodeFromUi(msg)); err != nil {
		return &Error{Message: err.Error(), Err: err}
	}
	return nil
}

func (r *Real) Stdin() io.Reader {
	r.mustBeOpen()
	return r.streams.Stdin
}

func (r *Real) Stdout() io.Writer {
	r.mustBeOpen()
	return r.streams.Stdout
}

func (r *Real) Stderr() io.Writer {
	r.mustBeOpen()
	return r.streams.Stderr
}

// Close sends a close frame to the Node and drops the connection.
func (r *Real) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.conn.Close()
}

func (r *Real) mustBeOpen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		panic("cmdcontext: Context used after Close")
	}
}

func (r *Real) handleBroadcast(msg uigateway.NodeToUiMessage) {
	r.log.Info().Str("opcode", msg.Body.Opcode).Msg("broadcast received")
	switch msg.Body.Opcode {
	case messages.UiNewPasswordBroadcast{}.Opcode():
		fmt.Fprintln(r.streams.Stderr, "\nThe Node's database password has changed.")
	default:
		fmt.Fprintf(r.streams.Stderr, "\nReceived unsolicited '%s' message from the Node.\n", msg.Body.Opcode)
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
