package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// wsServer speaks the server side of graphql-transport-ws. serve runs after
// the subscribe message has been read.
func wsServer(t *testing.T, serve func(conn *websocket.Conn, sub message)) *httptest.Server {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var init message
		if err := conn.ReadJSON(&init); err != nil || init.Type != msgConnectionInit {
			t.Errorf("expected connection_init, got %+v (%v)", init, err)
			return
		}
		conn.WriteJSON(message{Type: msgPing})
		var pong message
		if err := conn.ReadJSON(&pong); err != nil || pong.Type != msgPong {
			t.Errorf("expected pong, got %+v (%v)", pong, err)
			return
		}
		conn.WriteJSON(message{Type: msgConnectionAck})

		var sub message
		if err := conn.ReadJSON(&sub); err != nil || sub.Type != msgSubscribe {
			t.Errorf("expected subscribe, got %+v (%v)", sub, err)
			return
		}
		serve(conn, sub)
	}))
}

func wsURL(srv *httptest.Server) string { return "ws" + strings.TrimPrefix(srv.URL, "http") }

func collect(t *testing.T, ch <-chan *Response) []*Response {
	t.Helper()
	var out []*Response
	timeout := time.After(5 * time.Second)
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, res)
		case <-timeout:
			t.Fatal("subscription did not finish")
		}
	}
}

func TestWebSocketSubscribe(t *testing.T) {
	var query string
	srv := wsServer(t, func(conn *websocket.Conn, sub message) {
		var req Request
		json.Unmarshal(sub.Payload, &req)
		query = req.Query
		for _, h := range []int{1, 2} {
			payload, _ := json.Marshal(map[string]any{"data": map[string]any{"newBlockMined": map[string]any{"height": h}}})
			conn.WriteJSON(message{ID: sub.ID, Type: msgNext, Payload: payload})
		}
		conn.WriteJSON(message{ID: sub.ID, Type: msgComplete})
	})
	defer srv.Close()

	ch, err := NewWebSocket(wsURL(srv)).Subscribe(context.Background(), Request{Query: "subscription { newBlockMined { height } }"})
	require.NoError(t, err)
	got := collect(t, ch)
	require.Len(t, got, 2)
	require.JSONEq(t, `{"newBlockMined":{"height":1}}`, string(got[0].Data))
	require.JSONEq(t, `{"newBlockMined":{"height":2}}`, string(got[1].Data))
	require.Equal(t, "subscription { newBlockMined { height } }", query)
}

func TestWebSocketError(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn, sub message) {
		conn.WriteJSON(message{ID: sub.ID, Type: msgError, Payload: json.RawMessage(`[{"message":"denied"}]`)})
	})
	defer srv.Close()

	ch, err := NewWebSocket(wsURL(srv)).Subscribe(context.Background(), Request{Query: "subscription { a }"})
	require.NoError(t, err)
	got := collect(t, ch)
	require.Len(t, got, 1)
	require.ErrorContains(t, got[0].Err(), "denied")
}

func TestWebSocketCancel(t *testing.T) {
	completed := make(chan string, 1)
	srv := wsServer(t, func(conn *websocket.Conn, sub message) {
		conn.WriteJSON(message{ID: sub.ID, Type: msgNext, Payload: json.RawMessage(`{"data":{"a":1}}`)})
		var msg message
		if err := conn.ReadJSON(&msg); err == nil {
			completed <- msg.Type
		}
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewWebSocket(wsURL(srv)).Subscribe(ctx, Request{Query: "subscription { a }"})
	require.NoError(t, err)

	first := <-ch
	require.JSONEq(t, `{"a":1}`, string(first.Data))
	cancel()
	require.Empty(t, collect(t, ch))

	select {
	case typ := <-completed:
		require.Equal(t, msgComplete, typ)
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw complete")
	}
}

func TestWebSocketNoAck(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var init message
		conn.ReadJSON(&init)
		conn.WriteJSON(message{Type: msgComplete})
	}))
	defer srv.Close()

	_, err := NewWebSocket(wsURL(srv), WithAckTimeout(time.Second)).Subscribe(context.Background(), Request{Query: "subscription { a }"})
	require.ErrorIs(t, err, ErrNoAck)
}
