package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/draftly/draftly/internal/generate"
	"github.com/draftly/draftly/internal/log"
	"github.com/draftly/draftly/internal/session"
)

// GenerateHandler drives the generation pipeline over HTTP.
type GenerateHandler struct {
	orch   *generate.Orchestrator
	store  *session.Store
	logger log.Logger
}

// NewGenerateHandler creates a new generation handler.
func NewGenerateHandler(orch *generate.Orchestrator, store *session.Store, logger log.Logger) *GenerateHandler {
	return &GenerateHandler{orch: orch, store: store, logger: logger}
}

// RegisterRoutes registers generation routes on the given mux.
func (h *GenerateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate", h.submit)
	mux.HandleFunc("POST /api/generate/answer", h.answer)
	mux.HandleFunc("POST /api/generate/confirm", h.confirm)
	mux.HandleFunc("GET /api/generate/status", h.status)
	mux.HandleFunc("POST /api/variations", h.variations)
	mux.HandleFunc("POST /api/variations/apply", h.applyVariation)
}

// SubmitRequest is the body for POST /api/generate.
type SubmitRequest struct {
	Prompt string `json:"prompt"`
}

// SubmitResponse carries the clarifying questions, or the session ID when
// clarification was skipped and generation already started.
type SubmitResponse struct {
	Questions []session.ClarifyingQuestion `json:"questions,omitempty"`
	SessionID string                       `json:"session_id,omitempty"`
	Phase     generate.Phase               `json:"phase"`
}

func (h *GenerateHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	questions, err := h.orch.Submit(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, generate.ErrEmptyPrompt) {
			writeError(w, http.StatusBadRequest, "EMPTY_PROMPT", "prompt is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "SUBMIT_FAILED", err.Error())
		return
	}

	resp := SubmitResponse{Questions: questions, Phase: h.orch.Phase()}
	if len(questions) == 0 {
		// Clarification degraded; a session already exists.
		if sess, err := h.store.Current(); err == nil {
			resp.SessionID = sess.ID.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AnswerRequest is the body for POST /api/generate/answer.
type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	Option     string `json:"option"`
}

func (h *GenerateHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := h.orch.AnswerQuestion(req.QuestionID, req.Option); err != nil {
		switch {
		case errors.Is(err, generate.ErrWrongPhase):
			writeError(w, http.StatusConflict, "WRONG_PHASE", err.Error())
		case errors.Is(err, generate.ErrUnknownQuestion):
			writeError(w, http.StatusNotFound, "UNKNOWN_QUESTION", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "ANSWER_FAILED", err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmResponse is the body for POST /api/generate/confirm.
type ConfirmResponse struct {
	SessionID string `json:"session_id"`
}

func (h *GenerateHandler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := h.orch.ConfirmGeneration(r.Context())
	if err != nil {
		if errors.Is(err, generate.ErrWrongPhase) {
			writeError(w, http.StatusConflict, "WRONG_PHASE", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "CONFIRM_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{SessionID: id.String()})
}

// StatusResponse is the body for GET /api/generate/status.
type StatusResponse struct {
	Phase     generate.Phase               `json:"phase"`
	Questions []session.ClarifyingQuestion `json:"questions,omitempty"`
}

func (h *GenerateHandler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Phase:     h.orch.Phase(),
		Questions: h.orch.Questions(),
	})
}

// variations streams decoded variant records for the current artifact as
// SSE events, one "variant" event per record as its closing brace arrives.
func (h *GenerateHandler) variations(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}

	count := 0
	_, err := h.orch.RequestVariations(r.Context(), func(v session.Variation) {
		count++
		writeSSE(w, flusher, SSEEvent{Event: "variant", Data: v})
	})
	if err != nil {
		h.logger.Warn("variations request failed", "error", err, "delivered", count)
		writeSSE(w, flusher, SSEEvent{Event: "error", Data: ErrorResponse{
			Error:   "VARIATIONS_FAILED",
			Message: err.Error(),
		}})
		return
	}
	writeSSE(w, flusher, SSEEvent{Event: "done", Data: map[string]int{"count": count}})
}

// ApplyVariationRequest is the body for POST /api/variations/apply.
type ApplyVariationRequest struct {
	HTML string `json:"html"`
}

func (h *GenerateHandler) applyVariation(w http.ResponseWriter, r *http.Request) {
	var req ApplyVariationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.HTML == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_HTML", "html is required")
		return
	}
	if err := h.orch.ApplyVariation(req.HTML); err != nil {
		writeError(w, http.StatusConflict, "APPLY_FAILED", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
