package main

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one websocket connection. The id is assigned server-side at
// upgrade time and is the only identity the dispatcher trusts.
//
// room and closed are session bindings owned exclusively by the
// dispatcher goroutine; the pumps never touch them.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan any

	room   string
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan any, 16),
	}
}

// readPump parses inbound frames into typed events and hands them to the
// dispatcher. It exits on the first read error, which covers both clean
// closes and dropped connections; either way the dispatcher receives
// exactly one disconnect event.
func (c *Client) readPump(d *Dispatcher) {
	defer func() {
		d.events <- event{client: c, msg: clientGone{}}
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := decodeClientMessage(data)
		if err != nil {
			// Unknown or malformed frames are dropped at the boundary.
			continue
		}

		d.events <- event{client: c, msg: msg}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
