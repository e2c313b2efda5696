// Package remote exposes a deepzoom session over a websocket.
//
// Clients send JSON-encoded deepzoom.Gesture values to /ws and receive
// Status messages that the host broadcasts after rendering.
package remote

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gogpu/deepzoom"
)

// writeTimeout bounds one Status write to a slow client.
const writeTimeout = 2 * time.Second

// Status is the host's view of the session, sent to every client.
type Status struct {
	Mode       deepzoom.Mode `json:"mode"`
	View       string        `json:"view"` // deepzoom.EncodeViewState token
	Zoom       float64       `json:"zoom"`
	Iterations int           `json:"iterations"`
	Health     float64       `json:"health"`
	Level      string        `json:"level"`
	Busy       bool          `json:"busy"`
}

// Server decodes gestures from websocket clients into a channel.
//
// Gestures are delivered in arrival order per client. When the consumer
// falls behind and the channel is full, new gestures are dropped.
type Server struct {
	gestures chan deepzoom.Gesture
	origins  []string

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// client is one connection plus its pending Status. A writer goroutine
// drains status; a client slower than the broadcast rate only ever sees
// the latest Status.
type client struct {
	conn   *websocket.Conn
	status chan Status
}

func newClient(c *websocket.Conn) *client {
	return &client{conn: c, status: make(chan Status, 1)}
}

// offer replaces any undelivered Status with st. Never blocks.
func (cl *client) offer(st Status) {
	for {
		select {
		case cl.status <- st:
			return
		default:
		}
		select {
		case <-cl.status:
		default:
		}
	}
}

// NewServer creates a server whose gesture channel holds buffer entries.
// origins lists accepted Origin patterns; nil accepts same-origin only.
func NewServer(buffer int, origins ...string) *Server {
	return &Server{
		gestures: make(chan deepzoom.Gesture, max(buffer, 1)),
		origins:  origins,
		clients:  make(map[*client]struct{}),
	}
}

// Gestures returns the channel of decoded gestures.
func (s *Server) Gestures() <-chan deepzoom.Gesture { return s.gestures }

// Handler returns the HTTP handler serving the /ws endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		deepzoom.Logger().Warn("remote: accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	cl := newClient(c)
	if !s.track(cl) {
		c.Close(websocket.StatusGoingAway, "server closed")
		return
	}
	defer s.untrack(cl)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writeLoop(ctx, cl)

	deepzoom.Logger().Info("remote: client connected", "remote", r.RemoteAddr)
	err = s.readLoop(ctx, c)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		deepzoom.Logger().Info("remote: client disconnected", "remote", r.RemoteAddr)
	default:
		deepzoom.Logger().Warn("remote: client dropped", "remote", r.RemoteAddr, "err", err)
		c.Close(websocket.StatusPolicyViolation, "bad gesture")
	}
}

func (s *Server) readLoop(ctx context.Context, c *websocket.Conn) error {
	for {
		var g deepzoom.Gesture
		if err := wsjson.Read(ctx, c, &g); err != nil {
			return err
		}
		if g.Kind == "" {
			return errors.New("remote: gesture without kind")
		}
		select {
		case s.gestures <- g:
		default:
			deepzoom.Logger().Warn("remote: gesture dropped", "kind", g.Kind)
		}
	}
}

// writeLoop sends queued Status values until ctx ends. A failed write
// closes the connection, which ends the read loop and untracks the client.
func (s *Server) writeLoop(ctx context.Context, cl *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-cl.status:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, cl.conn, st)
			cancel()
			if err != nil {
				deepzoom.Logger().Warn("remote: status write failed", "err", err)
				cl.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *Server) track(cl *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[cl] = struct{}{}
	return true
}

func (s *Server) untrack(cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, cl)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast queues st for every client and returns without waiting on the
// network. A client still writing an earlier Status gets st in its place.
func (s *Server) Broadcast(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cl := range s.clients {
		cl.offer(st)
	}
}

// Close disconnects every client and refuses new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()
	for cl := range clients {
		cl.conn.Close(websocket.StatusGoingAway, "server closed")
	}
}

// StatusOf snapshots a session for Broadcast.
func StatusOf(s *deepzoom.Session) Status {
	h := s.Health()
	return Status{
		Mode:       s.Mode(),
		View:       deepzoom.EncodeViewState(s.ViewState()),
		Zoom:       s.View().Zoom(),
		Iterations: s.Renderer().Stats().Iterations,
		Health:     h.Score,
		Level:      h.Level.String(),
		Busy:       s.Busy(),
	}
}
