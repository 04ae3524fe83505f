package api

import (
	"net/http"

	"github.com/draftly/draftly/internal/log"
	"github.com/draftly/draftly/internal/session"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store *session.Store, logger log.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK once the store is wired. The store is
// in-memory, so readiness is really "did setup finish".
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.store == nil {
		http.Error(w, "store not configured", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
