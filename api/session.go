package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/draftly/draftly/internal/log"
	"github.com/draftly/draftly/internal/session"
)

// SessionHandler exposes read access to the session list and the
// current-session/current-artifact pointers.
type SessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *session.Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("GET /api/sessions/current", h.current)
	mux.HandleFunc("GET /api/sessions/events", h.events)
	mux.HandleFunc("GET /api/sessions/{index}", h.at)
	mux.HandleFunc("POST /api/sessions/select", h.selectPointers)
}

// ListResponse is the body for GET /api/sessions.
type ListResponse struct {
	Sessions []session.Session `json:"sessions"`
}

func (h *SessionHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ListResponse{Sessions: h.store.Sessions()})
}

func (h *SessionHandler) current(w http.ResponseWriter, _ *http.Request) {
	sess, err := h.store.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, "NO_SESSION", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) at(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INDEX", "index must be an integer")
		return
	}
	sess, err := h.store.At(index)
	if err != nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SelectRequest is the body for POST /api/sessions/select. A negative
// index leaves that pointer unchanged.
type SelectRequest struct {
	Session  int `json:"session"`
	Artifact int `json:"artifact"`
}

func (h *SessionHandler) selectPointers(w http.ResponseWriter, r *http.Request) {
	req := SelectRequest{Session: -1, Artifact: -1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Session >= 0 {
		if err := h.store.SelectSession(req.Session); err != nil {
			writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
			return
		}
	}
	if req.Artifact >= 0 {
		if err := h.store.SelectArtifact(req.Artifact); err != nil {
			status := http.StatusNotFound
			if errors.Is(err, session.ErrNoCurrentSession) {
				status = http.StatusConflict
			}
			writeError(w, status, "ARTIFACT_NOT_FOUND", err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArtifactEvent is the payload of one "update" SSE event: the mutation key
// plus a fresh snapshot of the touched artifact.
type ArtifactEvent struct {
	SessionID  string           `json:"session_id"`
	ArtifactID string           `json:"artifact_id"`
	Artifact   session.Artifact `json:"artifact"`
}

// events streams every artifact mutation to the client as it happens.
// Consumers re-render per event; a dropped update is recovered by the next
// one or a snapshot read.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}

	updates, cancel := h.store.Watch()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			sess, err := h.store.Get(u.SessionID)
			if err != nil {
				continue
			}
			for _, a := range sess.Artifacts {
				if a.ID == u.ArtifactID {
					writeSSE(w, flusher, SSEEvent{Event: "update", Data: ArtifactEvent{
						SessionID:  u.SessionID.String(),
						ArtifactID: u.ArtifactID,
						Artifact:   a,
					}})
					break
				}
			}
		}
	}
}
