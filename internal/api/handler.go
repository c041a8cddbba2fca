package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/repo"
)

// Server provides the local HTTP API the MCP server binary calls back
// into. It binds to localhost only.
type Server struct {
	signalRepo  repo.SignalRepo
	messageRepo repo.MessageRepo

	server *http.Server
	port   int
}

// NewServer creates a new API server
func NewServer(signalRepo repo.SignalRepo, messageRepo repo.MessageRepo, port int) *Server {
	return &Server{
		signalRepo:  signalRepo,
		messageRepo: messageRepo,
		port:        port,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/send", s.handleSend)
	mux.HandleFunc("/api/groups", s.handleGroups)
	mux.HandleFunc("/api/messages", s.handleMessages)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: mux,
	}
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SendRequest is the body of POST /api/send
type SendRequest struct {
	Recipient string `json:"recipient,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	Message   string `json:"message"`
}

// SendResponse is the reply of POST /api/send
type SendResponse struct {
	Success     bool   `json:"success"`
	Unconfirmed bool   `json:"unconfirmed,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SendResponse{Error: "invalid body"})
		return
	}
	if req.Message == "" || (req.Recipient == "" && req.GroupID == "") {
		writeJSON(w, http.StatusBadRequest, SendResponse{Error: "message and recipient or group_id required"})
		return
	}

	var confirmed bool
	var err error
	if req.GroupID != "" {
		confirmed, err = s.signalRepo.SendGroup(r.Context(), req.GroupID, req.Message)
	} else {
		confirmed, err = s.signalRepo.Send(r.Context(), req.Recipient, req.Message)
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, SendResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, SendResponse{Success: true, Unconfirmed: !confirmed})
}

// GroupEntry is one group in the GET /api/groups reply
type GroupEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groups, err := s.signalRepo.ListGroups(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	out := make([]GroupEntry, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupEntry{ID: g.ID, Name: g.Name, Members: len(g.Members)})
	}
	writeJSON(w, http.StatusOK, out)
}

// MessageEntry is one message in the GET /api/messages reply
type MessageEntry struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// A group id, or a "dm:<sender>" key for direct-message history.
	// "group" is accepted as an alias. An empty key matches nothing.
	conversation := r.URL.Query().Get("conversation")
	if conversation == "" {
		conversation = r.URL.Query().Get("group")
	}
	limit := 20
	if val := r.URL.Query().Get("limit"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	msgs, err := s.messageRepo.Recent(r.Context(), conversation, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	out := make([]MessageEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageEntry{
			Sender:    m.SenderName,
			Text:      m.Text,
			Timestamp: m.Timestamp.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
