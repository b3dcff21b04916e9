// Package socket owns the one persistent connection to the messaging
// endpoint: dialing with the bearer token, the liveness ping, reconnection
// with backoff, and decoding raw frames into the models tagged union. One
// Conn exists per logged-in identity; switching identities tears the old one
// down and dials fresh.
package socket

import (
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahitposter/Brovado/internal/models"
)

// State is the connection readiness signal surfaced to the UI.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	writeWait      = 10 * time.Second
	dialWait       = 15 * time.Second
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

var errClosed = errors.New("socket closed")

type Conn struct {
	endpoint     string
	pingInterval time.Duration

	frames  chan models.Frame
	states  chan State
	actions chan any

	done      chan struct{}
	closeOnce sync.Once
}

// Dial starts the connection manager for one identity. The bearer token is
// a connection-time credential passed as a query parameter; there is no
// per-message re-authentication.
func Dial(socketURL, token string, pingInterval time.Duration) *Conn {
	u, err := url.Parse(socketURL)
	if err == nil {
		q := u.Query()
		q.Set("authorization", token)
		u.RawQuery = q.Encode()
		socketURL = u.String()
	}

	c := &Conn{
		endpoint:     socketURL,
		pingInterval: pingInterval,
		frames:       make(chan models.Frame, 64),
		states:       make(chan State, 16),
		actions:      make(chan any, 64),
		done:         make(chan struct{}),
	}
	go c.run()
	return c
}

// Frames delivers decoded server frames in arrival order.
func (c *Conn) Frames() <-chan models.Frame { return c.frames }

// States delivers readiness transitions: connecting, open, closed, then
// connecting again until Close.
func (c *Conn) States() <-chan State { return c.states }

// Send enqueues one outgoing action. The action is written only while the
// socket is open; queued actions survive a reconnect.
func (c *Conn) Send(action any) error {
	select {
	case <-c.done:
		return errClosed
	case c.actions <- action:
		return nil
	default:
		return errors.New("socket send queue full")
	}
}

// Close tears the connection down for good; no further reconnects.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) setState(s State) {
	select {
	case c.states <- s:
	default:
		// UI fell behind on state signals; the latest read wins anyway.
	}
}

func (c *Conn) run() {
	backoff := initialBackoff

	for {
		select {
		case <-c.done:
			c.setState(StateClosed)
			return
		default:
		}

		c.setState(StateConnecting)
		dialer := websocket.Dialer{HandshakeTimeout: dialWait}
		ws, _, err := dialer.Dial(c.endpoint, nil)
		if err != nil {
			log.Printf("socket: dial failed: %v (retrying in %s)", err, backoff)
			select {
			case <-c.done:
				c.setState(StateClosed)
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		c.setState(StateOpen)

		writerDone := make(chan struct{})
		go c.writePump(ws, writerDone)
		c.readPump(ws)

		// The reader owns teardown: closing the conn stops the writer.
		ws.Close()
		<-writerDone
		c.setState(StateClosed)

		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}
	}
}

// writePump drains outgoing actions and keeps the liveness ping going while
// the socket is open. The ping is an application-level frame, not a ws
// control ping: the server expects {"action":"ping"} text.
func (c *Conn) writePump(ws *websocket.Conn, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	write := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteMessage(websocket.TextMessage, data)
	}

	for {
		select {
		case <-c.done:
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case action := <-c.actions:
			if err := write(action); err != nil {
				log.Printf("socket: write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := write(models.NewPing()); err != nil {
				log.Printf("socket: ping failed: %v", err)
				return
			}
		}
	}
}

// readPump decodes incoming frames until the connection drops. Unknown frame
// types are skipped; a socket error is transient and handled by the caller's
// reconnect loop.
func (c *Conn) readPump(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("socket: read failed: %v", err)
			}
			return
		}

		frame, err := models.DecodeFrame(data)
		if err != nil {
			if !errors.Is(err, models.ErrUnknownFrame) {
				log.Printf("socket: bad frame: %v", err)
			}
			continue
		}

		select {
		case <-c.done:
			return
		case c.frames <- frame:
		}
	}
}
