// Package http is the demo request dispatcher for the matching engine: it
// is explicitly outside the core per spec.md section 1 ("the HTTP/JSON
// request dispatcher, URL routing, JSON codec wiring ... are external
// collaborators") and exists to give gorilla/mux, rs/cors, and
// prometheus/client_golang a concrete home while exercising the engine
// end-to-end. No request authentication, rate limiting, or persistence
// lives here.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/ddxclob/internal/clob"
	"github.com/uhyunpark/ddxclob/internal/clobtypes"
	"github.com/uhyunpark/ddxclob/internal/engine"
	"github.com/uhyunpark/ddxclob/internal/transport/ws"
)

var (
	submitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "engine_submit_duration_seconds",
		Help: "Latency of the order submission pipeline.",
	})
	fillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_fills_total",
		Help: "Total number of fills produced across all submissions.",
	})
)

// Server wraps the engine behind an HTTP API following the route layout
// of the teacher's pkg/api/server.go, repointed at spec.md section 6's
// operation set instead of the teacher's perpetual-futures routes.
type Server struct {
	eng    *engine.Engine
	router *mux.Router
	log    *zap.SugaredLogger
	hub    *ws.Hub
}

// New builds a Server around an already-constructed Engine. The returned
// Server owns a WebSocket hub broadcasting L2 snapshots after every
// submission that produces at least one fill; the caller is responsible
// for starting hub.Run in its own goroutine (cmd/engined does this).
func New(eng *engine.Engine, log *zap.SugaredLogger) *Server {
	s := &Server{eng: eng, router: mux.NewRouter(), log: log, hub: ws.NewHub(log)}
	s.setupRoutes()
	return s
}

// Hub exposes the WebSocket hub so the caller can start its Run loop.
func (s *Server) Hub() *ws.Hub { return s.hub }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.correlationID)

	api.HandleFunc("/accounts", s.handleCreateAccount).Methods("POST")
	api.HandleFunc("/accounts/{address}", s.handleGetAccount).Methods("GET")
	api.HandleFunc("/accounts/{address}", s.handleDeleteAccount).Methods("DELETE")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/{hash}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{hash}", s.handleCancelOrder).Methods("DELETE")

	api.HandleFunc("/l2", s.handleL2Snapshot).Methods("GET")

	s.router.HandleFunc("/ws", s.hub.ServeHTTP)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully-wrapped http.Handler (CORS applied), suitable
// for http.ListenAndServe or httptest.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})
	return c.Handler(s.router)
}

func (s *Server) correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		if s.log != nil {
			s.log.Infow("request", "id", id, "method", r.Method, "path", r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var acc clobtypes.Account
	if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := s.eng.CreateAccount(acc)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]clobtypes.Address{"address": addr})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr := clobtypes.Address{}
	addr.SetBytes(hexToBytes(mux.Vars(r)["address"]))
	acc, err := s.eng.GetAccount(addr)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, acc)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	addr := clobtypes.Address{}
	addr.SetBytes(hexToBytes(mux.Vars(r)["address"]))
	if err := s.eng.DeleteAccount(addr); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var order clobtypes.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	fills, err := s.eng.Submit(order)
	submitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	fillsTotal.Add(float64(len(fills)))
	if len(fills) > 0 {
		s.hub.BroadcastL2(s.eng.L2Snapshot())
	}
	respondJSON(w, http.StatusOK, fills)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	hash := clobtypes.Hash{}
	hash.SetBytes(hexToBytes(mux.Vars(r)["hash"]))
	order, err := s.eng.GetOrder(hash)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	hash := clobtypes.Hash{}
	hash.SetBytes(hexToBytes(mux.Vars(r)["hash"]))
	if err := s.eng.Cancel(hash); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleL2Snapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.eng.L2Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor translates an engine error kind to a protocol status code per
// spec.md section 7: client errors for Duplicate/NotFound/NegativeBalance/
// InsufficientBalance, server errors only for invariant violations, which
// must never occur in a correct implementation.
func statusFor(err error) int {
	var kind clob.Kind
	if k, ok := clob.KindOf(err); ok {
		kind = k
	} else {
		return http.StatusInternalServerError
	}
	switch kind {
	case clob.KindAccountNotFound, clob.KindOrderNotFound:
		return http.StatusNotFound
	case clob.KindAccountAlreadyExists, clob.KindDuplicateOrder:
		return http.StatusConflict
	case clob.KindNegativeBalance, clob.KindInsufficientBalance:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func hexToBytes(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b := make([]byte, len(s)/2)
	for i := range b {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		b[i] = hi<<4 | lo
	}
	return b
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
