// Package telemetry provides an optional WebSocket fan-out of the control
// loop's reports and actuator commands for observer/C2 front ends. It sits
// outside the mission/autopilot/COLREG core: once it is listening, closing
// it or a client error never affects control. A Listen failure is returned
// to the caller.
package telemetry

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Envelope wraps a report payload with a kind tag naming the report or
// command type, so a single feed can multiplex every report/command kind.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Feed broadcasts Envelopes to every connected WebSocket client.
type Feed struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast chan *Envelope
	upgrader  websocket.Upgrader
	log       *logrus.Logger
	listener  net.Listener
	server    *http.Server
}

type client struct {
	conn *websocket.Conn
	send chan *Envelope
	id   string
}

// NewFeed builds a Feed with no listener yet bound.
func NewFeed(log *logrus.Logger) *Feed {
	f := &Feed{
		clients:   make(map[*client]bool),
		broadcast: make(chan *Envelope, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
	go f.run()
	return f
}

// Listen starts an HTTP server on addr serving the websocket at "/".
func (f *Feed) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	f.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleWebSocket)
	f.server = &http.Server{Handler: mux}

	go func() {
		if err := f.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			f.log.WithError(err).Warn("telemetry: websocket server stopped")
		}
	}()
	return nil
}

// Broadcast encodes v as the payload of a kind-tagged Envelope and queues it
// for every connected client. A full broadcast buffer drops the oldest
// pending envelope rather than block the control loop.
func (f *Feed) Broadcast(kind string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		f.log.WithError(err).WithField("kind", kind).Warn("telemetry: failed to encode envelope")
		return
	}
	env := &Envelope{Kind: kind, Timestamp: time.Now(), Payload: payload}

	select {
	case f.broadcast <- env:
	default:
		select {
		case <-f.broadcast:
		default:
		}
		f.broadcast <- env
	}
}

func (f *Feed) run() {
	for env := range f.broadcast {
		f.mu.RLock()
		for c := range f.clients {
			select {
			case c.send <- env:
			default:
				// slow client, drop this envelope for it
			}
		}
		f.mu.RUnlock()
	}
}

func (f *Feed) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.WithError(err).Warn("telemetry: websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan *Envelope, 64), id: r.RemoteAddr}
	f.register(c)
	f.log.WithField("client", c.id).Info("telemetry: client connected")

	go f.writePump(c)
	go f.readPump(c)
}

func (f *Feed) register(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[c] = true
}

func (f *Feed) unregister(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

func (f *Feed) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			data, err := json.Marshal(env)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is broadcast-only, but we must
// drain reads to notice the client going away and keep pong handling alive.
func (f *Feed) readPump(c *client) {
	defer func() {
		f.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close stops accepting connections and disconnects every client.
func (f *Feed) Close() {
	if f.server != nil {
		f.server.Close()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		c.conn.Close()
		close(c.send)
		delete(f.clients, c)
	}
}
