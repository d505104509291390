package channel

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Laisky/syncd/internal/syncd"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// inboundFrame is the wire shape of a client-originated event, per
// spec §4.5.
type inboundFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	AckID   string          `json:"ackId"`
}

// ackFrame is the acknowledgment envelope, per spec §4.5.
type ackFrame struct {
	AckID   string      `json:"ackId"`
	Success bool        `json:"success"`
	Hash    string      `json:"hash,omitempty"`
	Error   *ackErrBody `json:"error,omitempty"`
}

type ackErrBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// outboundFrame carries a room broadcast, per spec §6.
type outboundFrame struct {
	Event   syncd.EventName `json:"event"`
	Payload map[string]any  `json:"payload"`
}

// Conn is one live channel connection. Its identity is assigned once,
// at handshake completion, and never mutated afterward — an immutable
// value threaded through every handler call, per spec §9's rejection
// of "augmenting transport objects with per-connection state".
type Conn struct {
	ws       *websocket.Conn
	identity syncd.Identity
	send     chan []byte
	done     chan struct{}
}

func newConn(ws *websocket.Conn, identity syncd.Identity) *Conn {
	return &Conn{
		ws:       ws,
		identity: identity,
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// writePump serializes every write onto a single goroutine, since a
// *websocket.Conn is not safe for concurrent writers.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue drops the message instead of blocking when a peer's send
// buffer is full, per spec §5's cancellation/back-pressure guidance:
// a slow or dead peer must never stall broadcast to the rest of the
// room.
func (c *Conn) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Conn) ack(a ackFrame) {
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Conn) broadcast(ev syncd.Event) {
	payload, err := json.Marshal(outboundFrame{Event: ev.Name, Payload: ev.Payload})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Conn) close() {
	close(c.done)
	_ = c.ws.Close()
}
