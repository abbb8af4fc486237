// Package wsclient keeps a websocket connection to a Node or Daemon and
// carries request/response conversations over it.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lydakis/masq/internal/messages"
	"github.com/lydakis/masq/internal/traffic"
	"github.com/lydakis/masq/internal/uigateway"
)

// BroadcastContextID is never handed to a conversation. Inbound messages
// carrying it go to the broadcast handler.
const BroadcastContextID uint64 = 0

const closeGrace = time.Second

// Config controls how Connect dials.
type Config struct {
	Host             string
	Protocol         string
	HandshakeTimeout time.Duration
	Logger           zerolog.Logger
}

// DefaultConfig returns the settings used by the CLI when none are given.
func DefaultConfig() Config {
	return Config{
		Host:             "127.0.0.1",
		Protocol:         messages.NodeUIProtocol,
		HandshakeTimeout: 5 * time.Second,
		Logger:           zerolog.Nop(),
	}
}

// BroadcastHandler receives unsolicited messages. It runs on the reader
// goroutine and must not block on the Connection.
type BroadcastHandler func(msg uigateway.NodeToUiMessage)

// Connection is one websocket to a Node or Daemon. It is safe for concurrent
// use; conversations started on it may run in parallel.
type Connection struct {
	ws   *websocket.Conn
	port uint16
	log  zerolog.Logger

	writeMu sync.Mutex

	mu            sync.Mutex
	nextContextID uint64
	pending       map[uint64]*Conversation
	onBroadcast   BroadcastHandler
	err           error

	done      chan struct{}
	closeOnce sync.Once
}

type inbound struct {
	msg uigateway.NodeToUiMessage
	err error
}

// Connect dials ws://host:port/ requesting cfg.Protocol. The connection only
// counts as established if the server echoes that protocol back.
func Connect(ctx context.Context, port uint16, cfg Config) (*Connection, error) {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Protocol == "" {
		cfg.Protocol = def.Protocol
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}

	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(cfg.Host, strconv.Itoa(int(port))), Path: "/"}
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     []string{cfg.Protocol},
	}

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, &ConnectError{Port: port, Err: err}
	}
	if got := ws.Subprotocol(); got != cfg.Protocol {
		ws.Close()
		return nil, &ConnectError{Port: port, Err: fmt.Errorf("server accepted subprotocol %q, want %q", got, cfg.Protocol)}
	}

	c := &Connection{
		ws:            ws,
		port:          port,
		log:           cfg.Logger.With().Str("component", "wsclient").Uint16("port", port).Logger(),
		nextContextID: BroadcastContextID + 1,
		pending:       make(map[uint64]*Conversation),
		done:          make(chan struct{}),
	}
	c.log.Debug().Str("url", u.String()).Msg("connected")

	go c.readLoop()
	return c, nil
}

// Port returns the port this connection was dialed on.
func (c *Connection) Port() uint16 {
	return c.port
}

// SetBroadcastHandler installs fn for one-way and context-0 messages. A nil
// fn drops them.
func (c *Connection) SetBroadcastHandler(fn BroadcastHandler) {
	c.mu.Lock()
	c.onBroadcast = fn
	c.mu.Unlock()
}

// StartConversation allocates the next context id. Ids are never reused on a
// connection.
func (c *Connection) StartConversation() *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextContextID
	c.nextContextID++
	cv := &Conversation{
		conn:      c,
		contextID: id,
		replies:   make(chan inbound, 1),
	}
	c.pending[id] = cv
	return cv
}

// Done is closed once the connection can no longer receive.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection stopped, or nil while it is alive.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame, waits briefly for the peer to answer, and then
// drops the socket. Failures are swallowed. Close is idempotent.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = ErrConnectionClosed
		}
		c.mu.Unlock()

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace)); err == nil {
			select {
			case <-c.done:
			case <-time.After(closeGrace):
			}
		}
		_ = c.ws.Close()
		<-c.done
		c.log.Debug().Msg("closed")
	})
}

func (c *Connection) readLoop() {
	defer close(c.done)
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			c.terminate(readError(err))
			return
		}
		if kind != websocket.TextMessage {
			c.failPending(&UnexpectedFrameError{Kind: frameName(kind)})
			continue
		}
		c.route(string(data))
	}
}

func (c *Connection) route(raw string) {
	msg, err := traffic.UnmarshalToUI(raw, uigateway.ClientID(0))
	if err != nil {
		problem := &DeserializationProblem{Err: err}
		var derr *traffic.DeserializationError
		if errors.As(err, &derr) && !derr.Critical() && derr.Path.IsTwoWay() && derr.Path.ContextID() != BroadcastContextID {
			if c.deliver(derr.Path.ContextID(), inbound{err: problem}) {
				return
			}
		}
		c.log.Warn().Err(err).Msg("undecodable message")
		c.failPending(problem)
		return
	}

	path := msg.Body.Path
	if !path.IsTwoWay() || path.ContextID() == BroadcastContextID {
		msg.Target = uigateway.AllClients()
		c.broadcast(msg)
		return
	}
	if !c.deliver(path.ContextID(), inbound{msg: msg}) {
		c.log.Warn().
			Uint64("context_id", path.ContextID()).
			Str("opcode", msg.Body.Opcode).
			Msg("dropping reply for unknown conversation")
	}
}

func (c *Connection) deliver(contextID uint64, in inbound) bool {
	c.mu.Lock()
	cv, ok := c.pending[contextID]
	if ok {
		delete(c.pending, contextID)
	}
	c.mu.Unlock()

	if ok {
		cv.replies <- in
	}
	return ok
}

func (c *Connection) failPending(err error) {
	c.mu.Lock()
	waiting := c.pending
	c.pending = make(map[uint64]*Conversation)
	c.mu.Unlock()

	for _, cv := range waiting {
		cv.replies <- inbound{err: err}
	}
}

func (c *Connection) broadcast(msg uigateway.NodeToUiMessage) {
	c.mu.Lock()
	fn := c.onBroadcast
	c.mu.Unlock()

	if fn == nil {
		c.log.Debug().Str("opcode", msg.Body.Opcode).Msg("no broadcast handler; dropping")
		return
	}
	fn(msg)
}

func (c *Connection) terminate(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	c.log.Debug().Err(err).Msg("reader stopped")
}

func (c *Connection) forget(cv *Conversation) {
	c.mu.Lock()
	if c.pending[cv.contextID] == cv {
		delete(c.pending, cv.contextID)
	}
	c.mu.Unlock()
}

func (c *Connection) writeText(ctx context.Context, raw string) error {
	if err := c.Err(); err != nil {
		if errors.Is(err, ErrConnectionClosed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrBrokenConnection, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
		defer c.ws.SetWriteDeadline(time.Time{}) //nolint: errcheck
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		return fmt.Errorf("%w: %w", ErrBrokenConnection, err)
	}
	return nil
}

func readError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Code == websocket.CloseAbnormalClosure {
			return ErrNoDataAvailable
		}
		if ce.Code == websocket.CloseNoStatusReceived {
			return &UnexpectedFrameError{Kind: "close"}
		}
		return &UnexpectedFrameError{Kind: "close", Code: ce.Code}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrNoDataAvailable
	}
	return fmt.Errorf("%w: %w", ErrBrokenConnection, err)
}

func frameName(kind int) string {
	switch kind {
	case websocket.BinaryMessage:
		return "binary"
	case websocket.CloseMessage:
		return "close"
	case websocket.PingMessage:
		return "ping"
	case websocket.PongMessage:
		return "pong"
	default:
		return fmt.Sprintf("frame type %d", kind)
	}
}
