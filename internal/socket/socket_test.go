package socket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahitposter/Brovado/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitState(t *testing.T, c *Conn, want State) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-c.States():
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func waitFrame(t *testing.T, c *Conn) models.Frame {
	t.Helper()
	select {
	case f := <-c.Frames():
		return f
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for a frame")
		return nil
	}
}

func TestDialCarriesTokenAndDeliversFrames(t *testing.T) {
	gotToken := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken <- r.URL.Query().Get("authorization")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		payload, _ := json.Marshal(map[string]any{
			"type":       "receivedMessage",
			"chatRoomId": "0xaaa",
			"text":       "hello",
			"timestamp":  1000,
		})
		ws.WriteMessage(websocket.TextMessage, payload)

		// Keep the connection up until the client goes away.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c := Dial(wsURL(server), "tok123", time.Hour)
	defer c.Close()

	waitState(t, c, StateOpen)

	select {
	case token := <-gotToken:
		if token != "tok123" {
			t.Fatalf("authorization query param = %q, want tok123", token)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server never saw the handshake")
	}

	frame := waitFrame(t, c)
	push, ok := frame.(models.ReceivedMessageFrame)
	if !ok {
		t.Fatalf("frame type = %T, want ReceivedMessageFrame", frame)
	}
	if push.ChatRoomID != "0xaaa" || push.Text != "hello" {
		t.Fatalf("frame = %+v", push)
	}
}

func TestPingCadence(t *testing.T) {
	pings := make(chan struct{}, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var action struct {
				Action string `json:"action"`
			}
			if json.Unmarshal(data, &action) == nil && action.Action == "ping" {
				pings <- struct{}{}
			}
		}
	}))
	defer server.Close()

	c := Dial(wsURL(server), "tok", 20*time.Millisecond)
	defer c.Close()
	waitState(t, c, StateOpen)

	for i := 0; i < 2; i++ {
		select {
		case <-pings:
		case <-time.After(3 * time.Second):
			t.Fatalf("missed ping %d", i+1)
		}
	}
}

func TestSendDeliversQueuedActions(t *testing.T) {
	received := make(chan models.RequestMessagesAction, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var action models.RequestMessagesAction
			if json.Unmarshal(data, &action) == nil && action.Action == models.ActionRequestMessages {
				received <- action
			}
		}
	}))
	defer server.Close()

	c := Dial(wsURL(server), "tok", time.Hour)
	defer c.Close()
	waitState(t, c, StateOpen)

	if err := c.Send(models.NewRequestMessages("0xaaa", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case action := <-received:
		if action.ChatRoomID != "0xaaa" || action.PageStart != nil {
			t.Fatalf("action = %+v", action)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server never received the action")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	var connects atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := connects.Add(1)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// Drop the first connection immediately to force a redial.
			ws.Close()
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c := Dial(wsURL(server), "tok", time.Hour)
	defer c.Close()

	waitState(t, c, StateOpen)
	waitState(t, c, StateClosed)
	waitState(t, c, StateOpen)

	if got := connects.Load(); got < 2 {
		t.Fatalf("connects = %d, want at least 2", got)
	}
}

func TestUnknownFramesAreSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"somethingNew","x":1}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"chatMessageResponse","status":"success"}`))

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c := Dial(wsURL(server), "tok", time.Hour)
	defer c.Close()
	waitState(t, c, StateOpen)

	frame := waitFrame(t, c)
	ack, ok := frame.(models.SendAckFrame)
	if !ok {
		t.Fatalf("frame type = %T, want SendAckFrame", frame)
	}
	if !ack.OK() {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestCloseStopsTraffic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c := Dial(wsURL(server), "tok", time.Hour)
	waitState(t, c, StateOpen)

	c.Close()
	waitState(t, c, StateClosed)

	if err := c.Send(models.NewPing()); err == nil {
		t.Fatalf("Send after Close must fail")
	}
}
