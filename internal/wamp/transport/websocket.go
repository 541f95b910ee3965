// Package transport provides the WebSocket framing layer cmd/router
// runs the WAMP router session over: one `wamp.2.json` text frame per
// WAMP message, matching spec.md §6's "WAMP here runs over WebSocket or
// an in-process duplex stream only."
package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/internal/wamp/peer"
	"github.com/nmxmxh/battlerealm/internal/wamp/router"
	"github.com/nmxmxh/battlerealm/pkg/logger"
	"go.uber.org/zap"
)

func zapError(err error) zap.Field { return zap.Error(err) }

// Subprotocol is the WAMP subprotocol name this transport negotiates,
// matching the reference implementation's JSON serialization choice.
const Subprotocol = "wamp.2.json"

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	Subprotocols:    []string{Subprotocol},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// connSender adapts a *websocket.Conn to router.Sender, serializing
// writes since gorilla/websocket forbids concurrent writers on one
// connection.
type connSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *connSender) Send(msg wamp.Message) error {
	data, err := wamp.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Handler upgrades incoming HTTP connections to WebSocket and drives one
// router.Session per connection for its lifetime.
type Handler struct {
	rt  *router.Router
	log logger.Logger
}

// NewHandler creates a Handler bound to a bootstrapped Router.
func NewHandler(rt *router.Router, log logger.Logger) *Handler {
	return &Handler{rt: rt, log: log}
}

// ServeHTTP implements http.Handler, upgrading the request and blocking
// until the connection closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zapError(err))
		return
	}
	h.serve(conn)
}

func (h *Handler) serve(conn *websocket.Conn) {
	defer conn.Close()

	sender := &connSender{conn: conn}
	sess := h.rt.NewSession(sender, h.log)
	defer sess.CleanUp()

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(sender, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := wamp.Decode(data)
		if err != nil {
			h.log.Warn("dropping malformed frame", zapError(err))
			continue
		}
		if err := sess.HandleMessage(msg); err != nil {
			h.log.Debug("session handling ended", zapError(err))
			return
		}
		if sess.Closed() {
			return
		}
	}
}

// DialClient connects to a router's WebSocket endpoint as a WAMP peer,
// wires the connection's inbound frames into session.HandleMessage for
// the lifetime of the connection, and returns a peer.Sender bound to
// it. cmd/matchmaker's Reconnector.Dialer calls this once per (re)dial
// (spec.md §5 "Reconnection").
func DialClient(ctx context.Context, url string, session *peer.Session, log logger.Logger) (peer.Sender, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	sender := &connSender{conn: conn}

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go func() {
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := wamp.Decode(data)
			if err != nil {
				log.Warn("dropping malformed frame", zapError(err))
				continue
			}
			if err := session.HandleMessage(msg); err != nil {
				return
			}
			if session.Closed() {
				return
			}
		}
	}()

	return sender, nil
}

func (h *Handler) pingLoop(sender *connSender, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			sender.mu.Lock()
			_ = sender.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := sender.conn.WriteMessage(websocket.PingMessage, nil)
			sender.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
