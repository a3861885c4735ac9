// Package hub owns the websocket connection lifecycle: one read pump and
// one write pump per client. A Client is the live connection handle the
// registry tracks; all outbound delivery funnels through its buffered
// send channel so a slow peer never blocks a broadcaster.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rekew/web-dev-project/internal/config"
	"github.com/rekew/web-dev-project/pkg/log"
)

type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	cfg  config.WebSocketConfig

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded websocket connection.
func NewClient(id string, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	bufSize := cfg.SendBufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, bufSize),
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// ID uniquely identifies the connection.
func (c *Client) ID() string { return c.id }

// Send marshals and enqueues one event for the write pump. Delivery is
// best effort: when the buffer is full the event is dropped rather than
// blocking the caller.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return nil
	case c.send <- data:
		return nil
	default:
		log.L().Warn().Str(log.FieldClientID, c.id).Msg("send buffer full, dropping event")
		return nil
	}
}

// Close force-closes the connection. Safe to call more than once and
// from any goroutine.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

// ReadPump reads inbound events until the connection drops, invoking
// handler for each raw frame. onDisconnect fires exactly once when the
// pump exits, covering both explicit and implicit disconnects.
func (c *Client) ReadPump(handler func(*Client, []byte), onDisconnect func(*Client)) {
	defer func() {
		onDisconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.L().Debug().Str(log.FieldClientID, c.id).Err(err).Msg("websocket read error")
			}
			return
		}

		handler(c, message)
	}
}

// WritePump drains the send channel to the connection and keeps the
// peer alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(c.cfg.WriteWait))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
