/*
File Name:  API.go

Read-only status API, grounded in the reference core's webapi package:
a gorilla/mux router exposing JSON endpoints plus a gorilla/websocket
upgrade for live updates. Unlike the reference webapi, this surface is
entirely read-only and only ever reads state the transfer core already
maintains (the receiving-file list, the audit ledger) — it never
influences protocol behavior and is off by default (enabled only when
a listen address is configured).
*/

package statusapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/genonullfree/teleporter/ledger"
	"github.com/genonullfree/teleporter/transfer"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server exposes the read-only status endpoints over HTTP.
type Server struct {
	List      *transfer.ReceivingList
	Ledger    ledger.Store
	StartedAt time.Time
	Addr      string

	router   *mux.Router
	upgrader websocket.Upgrader
}

// NewServer builds a Server bound to list/store, ready to Router().
func NewServer(addr string, list *transfer.ReceivingList, store ledger.Store) *Server {
	s := &Server{
		List:      list,
		Ledger:    store,
		StartedAt: time.Now(),
		Addr:      addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/status/receiving", s.handleReceiving).Methods(http.MethodGet)
	s.router.HandleFunc("/status/ws", s.handleWebsocket)
	return s
}

// Router returns the http.Handler to mount (or run standalone via ListenAndServe).
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe blocks, serving the status API on s.Addr.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.Addr, s.router)
}

type statusResponse struct {
	Addr               string  `json:"addr"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
	CompletedTransfers int     `json:"completed_transfers"`
	InFlightReceives   int     `json:"in_flight_receives"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	completed := 0
	if s.Ledger != nil {
		if records, err := s.Ledger.List(); err == nil {
			completed = len(records)
		}
	}

	resp := statusResponse{
		Addr:               s.Addr,
		UptimeSeconds:      time.Since(s.StartedAt).Seconds(),
		CompletedTransfers: completed,
		InFlightReceives:   len(s.List.Snapshot()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleReceiving(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.List.Snapshot())
}

// handleWebsocket upgrades the connection and pushes the receiving-file list every time it
// changes, mirroring the reference webapi's live search-result stream pattern.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMutex sync.Mutex
	write := func(snapshot []string) error {
		writeMutex.Lock()
		defer writeMutex.Unlock()
		return conn.WriteJSON(snapshot)
	}

	if err := write(s.List.Snapshot()); err != nil {
		return
	}

	updates, unsubscribe := s.List.Subscribe()
	defer unsubscribe()
	for snapshot := range updates {
		if err := write(snapshot); err != nil {
			return
		}
	}
}
