// Package web broadcasts live timer events to websocket clients.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = pongWait * 9 / 10
	defaultSendBuffer = 64
	broadcastBuffer   = 256
	connectedBuffer   = 16
)

// Options configure a Server.
type Options struct {
	Logger logrus.FieldLogger
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	// OnClients is called from the hub goroutine whenever the number of
	// connected clients changes.
	OnClients func(n int)
	// SendBuffer is the number of messages queued per client before the
	// client is dropped.
	SendBuffer int
}

// Client is one connected websocket.
type Client struct {
	ID   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

type outgoing struct {
	// to is nil for a broadcast.
	to  *Client
	msg []byte
}

// Server fans broadcast messages out to every client. A client whose
// queue is full is disconnected so that it cannot stall the others.
type Server struct {
	upgrader   websocket.Upgrader
	log        logrus.FieldLogger
	metrics    http.Handler
	onClients  func(int)
	sendBuffer int

	register   chan *Client
	unregister chan *Client
	broadcast  chan outgoing
	connected  chan *Client
	done       chan struct{}
}

// NewServer returns a server. Run must be started before clients connect.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.OnClients == nil {
		opts.OnClients = func(int) {}
	}
	return &Server{
		upgrader: websocket.Upgrader{
			// Overlays are served from file:// and other local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:        opts.Logger,
		metrics:    opts.Metrics,
		onClients:  opts.OnClients,
		sendBuffer: opts.SendBuffer,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outgoing, broadcastBuffer),
		connected:  make(chan *Client, connectedBuffer),
		done:       make(chan struct{}),
	}
}

// Handler serves the websocket at / and metrics at /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveWS)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Connected yields every newly registered client. The channel is
// buffered; notifications are dropped when nobody drains it.
func (s *Server) Connected() <-chan *Client {
	return s.connected
}

// Broadcast queues msg for every client. It never blocks; messages are
// dropped when the hub is behind.
func (s *Server) Broadcast(msg []byte) {
	s.enqueue(outgoing{msg: msg})
}

// SendTo queues msg for c alone, with the same guarantees as Broadcast.
func (s *Server) SendTo(c *Client, msg []byte) {
	s.enqueue(outgoing{to: c, msg: msg})
}

func (s *Server) enqueue(o outgoing) {
	select {
	case s.broadcast <- o:
	case <-s.done:
	default:
		s.log.Debug("Broadcast queue full, dropping message")
	}
}

// Run owns the client set until ctx is done.
func (s *Server) Run(ctx context.Context) {
	defer close(s.done)
	clients := make(map[*Client]struct{})
	drop := func(c *Client) {
		if _, ok := clients[c]; !ok {
			return
		}
		delete(clients, c)
		close(c.send)
		s.onClients(len(clients))
	}
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			return
		case c := <-s.register:
			clients[c] = struct{}{}
			s.onClients(len(clients))
			s.log.WithField("client", c.ID.String()).Info("Client connected")
			select {
			case s.connected <- c:
			default:
			}
		case c := <-s.unregister:
			drop(c)
			s.log.WithField("client", c.ID.String()).Info("Client disconnected")
		case o := <-s.broadcast:
			for c := range clients {
				if o.to != nil && o.to != c {
					continue
				}
				select {
				case c.send <- o.msg:
				default:
					s.log.WithField("client", c.ID.String()).Warn("Client too slow, disconnecting")
					drop(c)
				}
			}
		}
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("failed to upgrade connection")
		return
	}
	c := &Client{ID: uuid.New(), conn: conn, send: make(chan []byte, s.sendBuffer)}
	select {
	case s.register <- c:
	case <-s.done:
		_ = conn.Close()
		return
	}
	go s.writePump(c)
	s.readPump(c)
}

// readPump discards incoming messages and unregisters the client once the
// connection fails.
func (s *Server) readPump(c *Client) {
	defer func() {
		select {
		case s.unregister <- c:
		case <-s.done:
		}
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.WithError(err).Debug("failed to write message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
