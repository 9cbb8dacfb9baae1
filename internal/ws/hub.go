package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TopicMovers receives a push whenever the ranked movers view is refreshed.
// Ticker topics are "ticker:<SYMBOL>".
const TopicMovers = "movers"

func TickerTopic(symbol string) string { return "ticker:" + symbol }

type pushMessage struct {
	topic   string
	payload []byte
}

// Hub owns the connection registry and fans pushes out to subscribers.
// Clients register on connect and are evicted on disconnect, on a failed
// write, or when their send buffer stays full.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	push       chan pushMessage
	done       chan struct{}
	closeOnce  sync.Once
	log        *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		push:       make(chan pushMessage, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the hub event loop; call it as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.closeSend()
				c.conn.Close()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debugf("ws client connected, %d active", n)

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.push:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Publish sends payload to every client subscribed to topic. Best-effort,
// single attempt per connection.
func (h *Hub) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warnf("ws publish marshal failed: %v", err)
		return
	}
	select {
	case h.push <- pushMessage{topic: topic, payload: data}:
	case <-h.done:
	default:
		h.log.Warn("ws push queue full, dropping event")
	}
}

func (h *Hub) fanOut(msg pushMessage) {
	h.mu.RLock()
	var stale []*Client
	for c := range h.clients {
		if !c.subscribed(msg.topic) {
			continue
		}
		select {
		case c.send <- msg.payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	// A full buffer means the reader on the other end is gone or stuck;
	// drop the connection rather than queue behind it.
	for _, c := range stale {
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.closeSend()
		// Dropping the connection lets the read pump exit too instead of
		// idling until its deadline on an already evicted client.
		c.conn.Close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debugf("ws client disconnected, %d active", n)
}

// ClientCount reports active connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type reply struct {
	Type      string `json:"type,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newReply(typ, topic, errMsg string) reply {
	return reply{Type: typ, Topic: topic, Error: errMsg, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}
