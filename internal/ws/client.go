package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 120 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket connection with its de-duplicated topic set.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]bool
	closed bool
}

// closeSend marks the client evicted and closes its send channel exactly
// once. Only the hub goroutine calls this; enqueue checks the flag under
// the same mutex so a live read pump can never send on the closed channel.
func (c *Client) closeSend() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *Client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic]
}

func (c *Client) subscribe(topic string) {
	c.mu.Lock()
	c.topics[topic] = true
	c.mu.Unlock()
}

func (c *Client) unsubscribe(topic string) {
	c.mu.Lock()
	delete(c.topics, topic)
	c.mu.Unlock()
}

// inbound is the client→server message shape:
// {action: subscribe|unsubscribe|ping, symbol?, type?}.
type inbound struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
}

// ServeWS upgrades the request and runs the connection's pumps.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		topics: make(map[string]bool),
	}
	hub.register <- c
	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(newReply("", "", "invalid message"))
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Action {
	case "ping":
		c.enqueue(newReply("pong", "", ""))

	case "subscribe":
		topic, ok := resolveTopic(msg)
		if !ok {
			c.enqueue(newReply("", "", "unknown subscription target"))
			return
		}
		c.subscribe(topic)
		c.enqueue(newReply("subscribed", topic, ""))

	case "unsubscribe":
		topic, ok := resolveTopic(msg)
		if !ok {
			c.enqueue(newReply("", "", "unknown subscription target"))
			return
		}
		c.unsubscribe(topic)
		c.enqueue(newReply("unsubscribed", topic, ""))

	default:
		c.enqueue(newReply("", "", "unknown action"))
	}
}

func resolveTopic(msg inbound) (string, bool) {
	if msg.Type == TopicMovers {
		return TopicMovers, true
	}
	if sym := strings.ToUpper(strings.TrimSpace(msg.Symbol)); sym != "" {
		return TickerTopic(sym), true
	}
	return "", false
}

func (c *Client) enqueue(r reply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// Gone connections clean themselves up via the read pump;
			// stop writing immediately either way.
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
