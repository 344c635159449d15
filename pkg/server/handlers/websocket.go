package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader is the default gorilla/websocket upgrader. CheckOrigin accepts
// every origin, and the server's CORS middleware only sets response
// headers, so no origin is rejected.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// statsTick is one frame pushed to every connected /ws/stats client.
type statsTick struct {
	Time        string `json:"time"`
	Size        int    `json:"size"`
	Capacity    int    `json:"capacity"`
	LockedPages int    `json:"lockedPages"`
}

// StatsStream periodically pushes buffer pool occupancy to every connected
// WebSocket client. Connection bookkeeping (map + mutex, register/
// unregister on connect/disconnect) is adapted from the teacher's
// pkg/server/handlers/websocket.go ChangeStreamManager, with the
// oplog-tailing change-stream payload replaced by a buffer pool snapshot.
type StatsStream struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	stop    chan struct{}
}

// NewStatsStream creates an empty stream with no connected clients.
func NewStatsStream() *StatsStream {
	return &StatsStream{clients: make(map[*websocket.Conn]struct{})}
}

// Handler upgrades the request to a WebSocket and registers the connection
// to receive periodic stats ticks until it disconnects.
func (s *StatsStream) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("stats stream: upgrade failed: %v", err)
			return
		}
		s.add(conn)
		defer s.remove(conn)

		// Drain (and ignore) client messages so the read side notices a
		// close frame and we can unregister promptly.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (s *StatsStream) add(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = struct{}{}
}

func (s *StatsStream) remove(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
	conn.Close()
}

// Broadcast sends tick to every currently connected client, dropping any
// that fail to write (the read goroutine will unregister them).
func (s *StatsStream) broadcast(tick statsTick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(tick); err != nil {
			go s.remove(conn)
		}
	}
}

// Run starts the periodic broadcast loop; it blocks until Stop is called,
// so call it in its own goroutine.
func (s *StatsStream) Run(h *Handlers, interval time.Duration) {
	s.stop = make(chan struct{})
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			stats := h.Pool.Stats()
			s.broadcast(statsTick{
				Time:        time.Now().Format(time.RFC3339),
				Size:        stats.Size,
				Capacity:    stats.Capacity,
				LockedPages: h.Pool.LockTable().Size(),
			})
		}
	}
}

// Stop ends the broadcast loop started by Run.
func (s *StatsStream) Stop() {
	if s.stop != nil {
		close(s.stop)
	}
}
