package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/log"
	"github.com/ashaai/asha/internal/pipeline"
)

const maxRequestBody = 1 << 20 // 1MB

// Responder runs one conversational turn. Implemented by pipeline.Pipeline.
type Responder interface {
	Respond(ctx context.Context, sessionID, message string) (*pipeline.TurnResult, error)
}

// BiasChecker assesses a single text for gendered assumptions. Implemented
// by bias.Classifier.
type BiasChecker interface {
	Assess(ctx context.Context, query string) bias.Assessment
}

// QueryRequest is the POST /api/v1/query body.
type QueryRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// BiasInfo is the bias section of a query response.
type BiasInfo struct {
	Detected bool   `json:"detected"`
	Category string `json:"category,omitempty"`
	Severity string `json:"severity,omitempty"`
	Reframed string `json:"reframed,omitempty"`
}

// QueryResponse is the POST /api/v1/query reply.
type QueryResponse struct {
	SessionID        string   `json:"session_id"`
	Answer           string   `json:"answer"`
	Intent           string   `json:"intent"`
	Bias             BiasInfo `json:"bias"`
	Sources          []string `json:"sources"`
	DocumentsUsed    int      `json:"documents_used"`
	Degraded         bool     `json:"degraded"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

type queryHandler struct {
	responder Responder
	logger    log.Logger
}

// send handles POST /api/v1/query. A missing session_id starts a new
// session; the generated ID comes back in the response for follow-ups.
func (h *queryHandler) send(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	res, err := h.responder.Respond(r.Context(), req.SessionID, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", "message must not be empty", h.logger)
		return
	case errors.Is(err, pipeline.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, "generation_failed", "the assistant could not produce a response", h.logger)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "the request timed out", h.logger)
		return
	default:
		h.logger.Error("query turn failed", "error", err, "session_id", req.SessionID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	resp := QueryResponse{
		SessionID:     req.SessionID,
		Answer:        res.Answer,
		Intent:        string(res.Intent),
		Sources:       res.Sources,
		DocumentsUsed: res.DocumentsUsed,
		Degraded:      res.Degraded,

		ProcessingTimeMs: res.Elapsed.Milliseconds(),
	}
	if res.Assessment.Biased {
		resp.Bias = BiasInfo{
			Detected: true,
			Category: res.Assessment.Category,
			Severity: res.Assessment.Severity,
			Reframed: res.Assessment.Reframed,
		}
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// BiasCheckRequest is the POST /api/v1/bias-check body.
type BiasCheckRequest struct {
	Text string `json:"text"`
}

// BiasCheckResponse exposes the full assessment for a single text.
type BiasCheckResponse struct {
	Biased    bool   `json:"biased"`
	Category  string `json:"category,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Reframed  string `json:"reframed,omitempty"`
	Rationale string `json:"rationale,omitempty"`
	Layer     string `json:"layer,omitempty"`
}

type biasHandler struct {
	checker BiasChecker
	logger  log.Logger
}

func (h *biasHandler) check(w http.ResponseWriter, r *http.Request) {
	var req BiasCheckRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "empty_text", "text must not be empty", h.logger)
		return
	}

	a := h.checker.Assess(r.Context(), req.Text)
	resp := BiasCheckResponse{Biased: a.Biased}
	if a.Biased {
		resp.Category = a.Category
		resp.Severity = a.Severity
		resp.Reframed = a.Reframed
		resp.Rationale = a.Rationale
		resp.Layer = a.Layer
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}
