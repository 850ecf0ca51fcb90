package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"luntera-pos-services/internal/netstatus"
)

var upgrader = websocket.Upgrader{
	// The control plane binds to loopback only, the UI shell is the
	// single expected origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PendingCounter reports how many invoices still wait for fiscal
// acknowledgement.
type PendingCounter interface {
	PendingCount() int
}

type statusMessage struct {
	Type            string           `json:"type"`
	Network         netstatus.Status `json:"network"`
	PendingInvoices int              `json:"pendingInvoices"`
	At              time.Time        `json:"at"`
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

// Server streams connectivity transitions and pending queue depth to the
// UI shell. Every client gets the current snapshot on connect, then a
// push on each network transition and a periodic heartbeat.
type Server struct {
	Monitor      *netstatus.Monitor
	Pending      PendingCounter
	Logger       *zap.Logger
	PushInterval time.Duration

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	started sync.Once
}

func New(monitor *netstatus.Monitor, pending PendingCounter, logger *zap.Logger, pushInterval time.Duration) *Server {
	if pushInterval <= 0 {
		pushInterval = 10 * time.Second
	}
	return &Server{
		Monitor:      monitor,
		Pending:      pending,
		Logger:       logger,
		PushInterval: pushInterval,
		clients:      make(map[*wsClient]struct{}),
	}
}

func (s *Server) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("ws upgrade failed", zap.Error(err))
		}
		return
	}
	s.ensureStarted()

	client := &wsClient{conn: conn}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	_ = client.writeJSON(s.snapshot())

	// Read loop only detects the close; the UI never sends payloads.
	go func() {
		defer s.drop(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) ensureStarted() {
	s.started.Do(func() {
		transitions := s.Monitor.Subscribe()
		go func() {
			ticker := time.NewTicker(s.PushInterval)
			defer ticker.Stop()
			for {
				select {
				case <-transitions:
				case <-ticker.C:
				}
				s.broadcast(s.snapshot())
			}
		}()
	})
}

func (s *Server) snapshot() statusMessage {
	pending := 0
	if s.Pending != nil {
		pending = s.Pending.PendingCount()
	}
	return statusMessage{
		Type:            "status",
		Network:         s.Monitor.Current(),
		PendingInvoices: pending,
		At:              time.Now().UTC(),
	}
}

func (s *Server) broadcast(message statusMessage) {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			s.drop(c)
		}
	}
}

func (s *Server) drop(client *wsClient) {
	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
	_ = client.conn.Close()
}
