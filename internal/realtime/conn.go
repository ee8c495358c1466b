// Package realtime carries live relationship events to clients over websockets
// and keeps the presence registry in step with connects and disconnects.
package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope is the frame written for every live event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Conn is the presence handle for a single websocket. Writes are serialized
// because gorilla/websocket supports one concurrent writer.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// Send writes the event as a JSON text frame.
func (c *Conn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(Envelope{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (c *Conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Close sends a close frame and releases the socket. It is safe to call more
// than once and concurrently with Send.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.writeTimeout))
	return c.ws.Close()
}
