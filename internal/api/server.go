// Package api is the local HTTP surface the register UI and tillctl talk
// to. It runs on the terminal itself; the central sale API is a separate
// collaborator reached through the upstream client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/till/internal/logbuf"
	"github.com/tillpoint/till/internal/sales"
	"github.com/tillpoint/till/pkg/pos"
)

// SaleService is what the API needs from the submission orchestrator.
type SaleService interface {
	Submit(ctx context.Context, sale pos.Sale) pos.SubmitResult
	SyncQueued(ctx context.Context) (sales.Report, error)
	Status() sales.Snapshot
}

// TicketReader exposes read access to the local queue.
type TicketReader interface {
	ListAll() []pos.Ticket
	Get(ticketID string) (pos.Ticket, bool)
}

// ReceiptRenderer renders printable receipts.
type ReceiptRenderer interface {
	Render(sale pos.Sale, ticketID string, invoice *pos.Invoice) string
	RenderTicket(t pos.Ticket) string
}

// Config holds API server configuration.
type Config struct {
	Host     string
	Port     int
	Key      string // bearer key, empty disables auth
	Terminal string
}

// Server is the tilld local API server.
type Server struct {
	svc      SaleService
	tickets  TicketReader
	receipts ReceiptRenderer
	cfg      Config
	logger   *slog.Logger
	logs     *logbuf.Buffer
	hub      *hub
	srv      *http.Server
}

// NewServer creates the API server. logs may be nil.
func NewServer(svc SaleService, tickets TicketReader, receipts ReceiptRenderer, cfg Config, logger *slog.Logger, logs *logbuf.Buffer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:      svc,
		tickets:  tickets,
		receipts: receipts,
		cfg:      cfg,
		logger:   logger,
		logs:     logs,
		hub:      newHub(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sales", s.requireAuth(s.handleSubmitSale))
	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("GET /api/tickets/{id}", s.requireAuth(s.handleGetTicket))
	mux.HandleFunc("GET /api/tickets/{id}/receipt", s.requireAuth(s.handleTicketReceipt))
	mux.HandleFunc("GET /api/status", s.requireAuth(s.handleStatus))
	mux.HandleFunc("POST /api/sync", s.requireAuth(s.handleSync))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleLogs))
	mux.HandleFunc("GET /api/ws", s.requireAuth(s.handleWS))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// BroadcastStatus pushes the current status snapshot to every connected
// WebSocket client. Wire it to the orchestrator's change hook.
func (s *Server) BroadcastStatus() {
	s.hub.broadcast(s.svc.Status())
}

// --- Middleware ---

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "terminal": s.cfg.Terminal})
}

type submitSaleResponse struct {
	pos.SubmitResult
	Receipt string `json:"receipt"`
}

func (s *Server) handleSubmitSale(w http.ResponseWriter, r *http.Request) {
	var sale pos.Sale
	if err := json.NewDecoder(r.Body).Decode(&sale); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(sale.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	if sale.Total <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "total must be positive"})
		return
	}
	if sale.Currency == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "currency is required"})
		return
	}
	if sale.Reference == "" {
		sale.Reference = uuid.NewString()
	}
	if sale.SoldAt == 0 {
		sale.SoldAt = time.Now().UnixMilli()
	}

	result := s.svc.Submit(r.Context(), sale)
	writeJSON(w, http.StatusCreated, submitSaleResponse{
		SubmitResult: result,
		Receipt:      s.receipts.Render(sale, result.TicketID, result.Invoice),
	})
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets := s.tickets.ListAll()
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := tickets[:0:0]
		for _, t := range tickets {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		tickets = filtered
	}
	if tickets == nil {
		tickets = []pos.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tickets.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTicketReceipt(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tickets.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.receipts.RenderTicket(t))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Status().Online {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "terminal is offline"})
		return
	}

	rep, err := s.svc.SyncQueued(r.Context())
	if errors.Is(err, sales.ErrSyncInFlight) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "sync already in progress"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	minLevel := logbuf.ParseLevel(r.URL.Query().Get("level"))
	if r.URL.Query().Get("level") == "" {
		minLevel = logbuf.ParseLevel("debug")
	}

	entries := s.logs.Query(minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
