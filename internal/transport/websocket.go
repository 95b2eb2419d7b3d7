package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/gqlerror"

	builder "github.com/hanpama/opgen/internal/builder"
	eventbus "github.com/hanpama/opgen/internal/eventbus"
	events "github.com/hanpama/opgen/internal/events"
	reqid "github.com/hanpama/opgen/internal/reqid"
)

// Subprotocol is the graphql-transport-ws protocol name.
const Subprotocol = "graphql-transport-ws"

// graphql-transport-ws message types.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// DefaultAckTimeout bounds the wait for connection_ack.
const DefaultAckTimeout = 10 * time.Second

// ErrNoAck is returned when the server does not acknowledge the connection.
var ErrNoAck = errors.New("server did not acknowledge the connection")

type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebSocket opens one graphql-transport-ws connection per subscription.
type WebSocket struct {
	url         string
	header      http.Header
	dialer      *websocket.Dialer
	initPayload map[string]any
	ackTimeout  time.Duration
}

// WebSocketOption configures WebSocket.
type WebSocketOption func(*WebSocket)

// WithWSHeader adds a header to the upgrade request.
func WithWSHeader(key, value string) WebSocketOption {
	return func(w *WebSocket) { w.header.Add(key, value) }
}

// WithInitPayload sets the connection_init payload, commonly used for auth.
func WithInitPayload(p map[string]any) WebSocketOption {
	return func(w *WebSocket) { w.initPayload = p }
}

// WithAckTimeout replaces DefaultAckTimeout.
func WithAckTimeout(d time.Duration) WebSocketOption {
	return func(w *WebSocket) { w.ackTimeout = d }
}

func NewWebSocket(url string, opts ...WebSocketOption) *WebSocket {
	dialer := *websocket.DefaultDialer
	dialer.Subprotocols = []string{Subprotocol}
	w := &WebSocket{
		url:        url,
		header:     make(http.Header),
		dialer:     &dialer,
		ackTimeout: DefaultAckTimeout,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Subscribe opens a connection and starts req. Each next payload is sent on
// the returned channel, which is closed when the server completes the
// subscription, reports an error, or ctx is done. Server and connection
// errors arrive as a final Response carrying Errors.
func (w *WebSocket) Subscribe(ctx context.Context, req Request) (<-chan *Response, error) {
	conn, _, err := w.dialer.DialContext(ctx, w.url, w.header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", w.url, err)
	}
	if err := w.handshake(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	s := &subscription{
		conn: conn,
		id:   builder.Digest(req.Query),
		url:  w.url,
		out:  make(chan *Response),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if err := s.write(message{ID: s.id, Type: msgSubscribe, Payload: payload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	ctx, _ = reqid.Ensure(ctx)
	eventbus.Publish(ctx, events.SubscriptionStart{URL: w.url, ID: s.id})
	go s.run(ctx)
	return s.out, nil
}

func (w *WebSocket) handshake(ctx context.Context, conn *websocket.Conn) error {
	init := message{Type: msgConnectionInit}
	if w.initPayload != nil {
		data, err := json.Marshal(w.initPayload)
		if err != nil {
			return fmt.Errorf("encode init payload: %w", err)
		}
		init.Payload = data
	}
	if err := conn.WriteJSON(init); err != nil {
		return fmt.Errorf("connection_init: %w", err)
	}

	deadline := time.Now().Add(w.ackTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%w: %v", ErrNoAck, err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgPing:
			if err := conn.WriteJSON(message{Type: msgPong}); err != nil {
				return fmt.Errorf("pong: %w", err)
			}
		default:
			return fmt.Errorf("%w: got %q", ErrNoAck, msg.Type)
		}
	}
}

type subscription struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
	id      string
	url     string
	out     chan *Response
}

func (s *subscription) write(msg message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func isCloseError(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce) || errors.Is(err, websocket.ErrCloseSent)
}

// run owns the connection: it reads until the subscription ends and closes
// both the connection and the output channel.
func (s *subscription) run(ctx context.Context) {
	start := time.Now()
	var (
		count  int
		runErr error
	)
	defer func() {
		s.conn.Close()
		close(s.out)
		eventbus.Publish(ctx, events.SubscriptionFinish{
			URL:      s.url,
			ID:       s.id,
			Messages: count,
			Err:      runErr,
			Duration: time.Since(start),
		})
	}()

	stop := context.AfterFunc(ctx, func() {
		// unblocks the reader below
		s.write(message{ID: s.id, Type: msgComplete})
		s.conn.Close()
	})
	defer stop()

	for {
		var msg message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || isCloseError(err) {
				return
			}
			runErr = err
			s.deliver(ctx, &Response{Errors: gqlerror.List{gqlerror.Errorf("subscription %s: %v", s.id, err)}})
			return
		}
		switch msg.Type {
		case msgNext:
			var res Response
			if err := json.Unmarshal(msg.Payload, &res); err != nil {
				runErr = fmt.Errorf("decode next payload: %w", err)
				s.deliver(ctx, &Response{Errors: gqlerror.List{gqlerror.Errorf("%v", runErr)}})
				return
			}
			count++
			if !s.deliver(ctx, &res) {
				return
			}
		case msgError:
			var errs gqlerror.List
			if err := json.Unmarshal(msg.Payload, &errs); err != nil {
				errs = gqlerror.List{gqlerror.Errorf("subscription %s failed", s.id)}
			}
			runErr = errs
			s.deliver(ctx, &Response{Errors: errs})
			return
		case msgComplete:
			return
		case msgPing:
			if err := s.write(message{Type: msgPong}); err != nil {
				runErr = err
				return
			}
		case msgPong, msgConnectionAck:
		default:
			runErr = fmt.Errorf("unexpected message type %q", msg.Type)
			return
		}
	}
}

func (s *subscription) deliver(ctx context.Context, res *Response) bool {
	select {
	case s.out <- res:
		return true
	case <-ctx.Done():
		return false
	}
}
