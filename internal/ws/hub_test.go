package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	hub := NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(hub, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "expected no message, got %s", data)
}

func TestPingPongGoesOnlyToSender(t *testing.T) {
	_, url := newTestHub(t)
	a := dial(t, url)
	b := dial(t, url)

	require.NoError(t, a.WriteJSON(map[string]string{"action": "ping"}))

	reply := readJSON(t, a)
	assert.Equal(t, "pong", reply["type"])
	assert.NotEmpty(t, reply["timestamp"])

	expectSilence(t, b)
}

func TestSubscribeAndFanOut(t *testing.T) {
	hub, url := newTestHub(t)
	sub := dial(t, url)
	other := dial(t, url)

	require.NoError(t, sub.WriteJSON(map[string]string{"action": "subscribe", "symbol": "AAPL"}))
	ack := readJSON(t, sub)
	assert.Equal(t, "subscribed", ack["type"])
	assert.Equal(t, "ticker:AAPL", ack["topic"])

	hub.Publish(TickerTopic("AAPL"), map[string]interface{}{"type": "ticker", "symbol": "AAPL", "price": 187.44})

	push := readJSON(t, sub)
	assert.Equal(t, "ticker", push["type"])
	assert.Equal(t, "AAPL", push["symbol"])

	expectSilence(t, other)
}

func TestUnsubscribeStopsPushes(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "type": "movers"}))
	ack := readJSON(t, conn)
	assert.Equal(t, TopicMovers, ack["topic"])

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "unsubscribe", "type": "movers"}))
	ack = readJSON(t, conn)
	assert.Equal(t, "unsubscribed", ack["type"])

	hub.Publish(TopicMovers, map[string]interface{}{"type": "movers_refresh"})
	expectSilence(t, conn)
}

func TestUnknownActionReturnsError(t *testing.T) {
	_, url := newTestHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "frobnicate"}))
	reply := readJSON(t, conn)
	assert.Equal(t, "unknown action", reply["error"])
}

func TestDisconnectEvictsClient(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	readJSON(t, conn)
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestEvictedClientIgnoresLateReplies(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	hub := NewHub(log)

	// Raw connection with no pumps attached so the send buffer stays full.
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- c
	}))
	t.Cleanup(srv.Close)
	dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	conn := <-accepted
	t.Cleanup(func() { conn.Close() })

	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 1),
		topics: map[string]bool{TopicMovers: true},
	}
	hub.clients[c] = true
	c.send <- []byte(`{}`)

	hub.fanOut(pushMessage{topic: TopicMovers, payload: []byte(`{}`)})
	require.Equal(t, 0, hub.ClientCount())

	// The read pump may still be delivering a reply when the hub evicts;
	// it must be dropped, not sent on the closed channel.
	require.NotPanics(t, func() { c.enqueue(newReply("pong", "", "")) })
	require.NotPanics(t, func() { hub.remove(c) })
}
