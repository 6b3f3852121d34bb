// Package server exposes the gauge over HTTP: a WebSocket stream of
// dashboard frames plus a small JSON API for mode and rescan commands.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nobody-OS/OBDII-Gauge/internal/logger"
	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

// Frame is the JSON structure sent to WebSocket clients and returned
// by GET /api/state.
type Frame struct {
	Connection string  `json:"connection"`
	Mode       string  `json:"mode"`
	RPM        float64 `json:"rpm"`
	Speed      float64 `json:"speed"`
	Coolant    float64 `json:"coolant"`
	MAF        float64 `json:"maf"`
	FuelRate   float64 `json:"fuelRate"`
	Gear       int     `json:"gear"`
	Indicator  string  `json:"indicator"`
	Backlight  string  `json:"backlight"`
	DTC        string  `json:"dtc"`   // space-separated codes, empty when clear
	Stamp      int64   `json:"stamp"` // Unix ms
}

// Commands is implemented by the system so the HTTP surface can issue
// the same operations as the Redis command lists.
type Commands interface {
	SetMode(mode string) error
	Rescan() error
	CurrentFrame() Frame
}

type Server struct {
	listenAddr string
	commands   Commands
	logger     *logger.Logger

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func New(listenAddr string, commands Commands, l *logger.Logger) *Server {
	return &Server{
		listenAddr: listenAddr,
		commands:   commands,
		logger:     l.WithTag("server"),
		clients:    make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run blocks serving HTTP until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/rescan", s.handleRescan)

	srv := &http.Server{
		Addr:    s.listenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.logger.Infof("Listening on %s", s.listenAddr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Infof("Client connected (%d total)", total)

	// Seed the new client with the current frame so the gauge renders
	// before the next broadcast tick.
	if data, err := json.Marshal(s.commands.CurrentFrame()); err == nil {
		client.send <- data
	}

	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			s.logger.Infof("Client disconnected (%d total)", total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.commands.CurrentFrame())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(body, &req); err != nil || !types.ValidMode(req.Mode) {
		http.Error(w, "invalid mode", http.StatusBadRequest)
		return
	}
	if err := s.commands.SetMode(req.Mode); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.commands.Rescan(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Broadcast sends the frame to every connected client, dropping it for
// clients whose send queue is full.
func (s *Server) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}
