// Package mocknode is a scripted websocket Node for tests. Every frame it
// receives is recorded and answered with the next queued response.
package mocknode

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lydakis/masq/internal/messages"
	"github.com/lydakis/masq/internal/traffic"
	"github.com/lydakis/masq/internal/uigateway"
)

// Disconnect, queued as a raw string, makes the server drop the TCP
// connection without a close frame instead of answering.
const Disconnect = "disconnect"

// Request is one inbound frame. Message is set when the frame decoded as a
// NodeFromUiMessage; otherwise Raw holds the text or a description of the
// frame. Closed marks a close frame sent by the client.
type Request struct {
	Message *uigateway.NodeFromUiMessage
	Raw     string
	Closed  bool
}

type frame struct {
	kind int
	data []byte
}

// Server serves one websocket client at a time on 127.0.0.1.
type Server struct {
	// Protocol is the only subprotocol the server accepts.
	Protocol string

	mu        sync.Mutex
	responses [][]frame
	requests  []Request
	conn      *websocket.Conn
	stopping  bool

	httpSrv  *http.Server
	listener net.Listener
	group    errgroup.Group
	wg       sync.WaitGroup
}

// New returns a server speaking the Node UI protocol.
func New() *Server {
	return &Server{Protocol: messages.NodeUIProtocol}
}

// QueueResponse queues msg as the answer to the next unanswered request.
func (s *Server) QueueResponse(msg uigateway.NodeToUiMessage) *Server {
	return s.QueueString(traffic.MarshalToUI(msg))
}

// QueueString queues raw text, or Disconnect.
func (s *Server) QueueString(raw string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, []frame{{kind: websocket.TextMessage, data: []byte(raw)}})
	return s
}

// QueueBurst queues several messages sent back to back in answer to one
// request.
func (s *Server) QueueBurst(msgs ...uigateway.NodeToUiMessage) *Server {
	burst := make([]frame, 0, len(msgs))
	for _, msg := range msgs {
		burst = append(burst, frame{kind: websocket.TextMessage, data: []byte(traffic.MarshalToUI(msg))})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, burst)
	return s
}

// QueueBinary queues a binary frame.
func (s *Server) QueueBinary(data []byte) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, []frame{{kind: websocket.BinaryMessage, data: data}})
	return s
}

// Start listens on an ephemeral loopback port and returns it.
func (s *Server) Start() (uint16, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listening: %w", err)
	}
	s.listener = ln
	s.httpSrv = &http.Server{Handler: http.HandlerFunc(s.serveWS), ReadHeaderTimeout: 5 * time.Second}

	s.group.Go(func() error {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return uint16(ln.Addr().(*net.TCPAddr).Port), nil
}

// Stop sends a close frame to a connected client, shuts the server down and
// returns every request received.
func (s *Server) Stop() []Request {
	s.mu.Lock()
	s.stopping = true
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	}
	if s.httpSrv != nil {
		s.httpSrv.Close()
	}
	_ = s.group.Wait()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	s.wg.Add(1)
	defer s.wg.Done()

	if !slices.Contains(websocket.Subprotocols(r), s.Protocol) {
		http.Error(w, "No recognized protocol", http.StatusBadRequest)
		return
	}
	upgrader := websocket.Upgrader{
		Subprotocols: []string{s.Protocol},
		CheckOrigin:  func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer conn.Close()
	s.handleConn(conn)
}

func (s *Server) handleConn(conn *websocket.Conn) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
				s.mu.Lock()
				// An empty close after Stop is the client echoing ours.
				if !(s.stopping && ce.Code == websocket.CloseNoStatusReceived) {
					s.requests = append(s.requests, Request{Closed: true})
				}
				s.mu.Unlock()
			}
			return
		}

		s.record(kind, data)
		burst, ok := s.nextResponse()
		if !ok {
			continue
		}
		for _, f := range burst {
			if f.kind == websocket.TextMessage && string(f.data) == Disconnect {
				conn.UnderlyingConn().Close()
				return
			}
			if err := conn.WriteMessage(f.kind, f.data); err != nil {
				return
			}
		}
	}
}

func (s *Server) record(kind int, data []byte) {
	req := Request{Raw: string(data)}
	if kind == websocket.TextMessage {
		if msg, err := traffic.UnmarshalFromUI(string(data), 0); err == nil {
			req = Request{Message: &msg}
		}
	} else {
		req.Raw = fmt.Sprintf("non-text frame %d: %q", kind, data)
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
}

func (s *Server) nextResponse() ([]frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return nil, false
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next, true
}
