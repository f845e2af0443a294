package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/ingest"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/pipeline"
)

type stubResponder struct {
	result *pipeline.TurnResult
	err    error

	sessionIDs []string
	messages   []string
}

func (s *stubResponder) Respond(_ context.Context, sessionID, message string) (*pipeline.TurnResult, error) {
	s.sessionIDs = append(s.sessionIDs, sessionID)
	s.messages = append(s.messages, message)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubChecker struct {
	assessment bias.Assessment
}

func (s *stubChecker) Assess(_ context.Context, _ string) bias.Assessment {
	return s.assessment
}

type stubSearcher struct {
	results []knowledge.Result
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	return s.results, s.err
}

type stubLister struct {
	events []ingest.Event
}

func (s *stubLister) Upcoming(_ context.Context, _ time.Time, limit int) ([]ingest.Event, error) {
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func okResult() *pipeline.TurnResult {
	return &pipeline.TurnResult{
		Answer:        "Here are some openings.",
		Intent:        intent.JobSearch,
		Sources:       []string{"job-1"},
		DocumentsUsed: 1,
		Stage:         pipeline.StageReturned,
		Elapsed:       120 * time.Millisecond,
	}
}

func testServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	if cfg.Responder == nil {
		cfg.Responder = &stubResponder{result: okResult()}
	}
	if cfg.Bias == nil {
		cfg.Bias = &stubChecker{}
	}
	if cfg.Searcher == nil {
		cfg.Searcher = &stubSearcher{}
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestNewServerMissingResponder(t *testing.T) {
	t.Parallel()

	_, err := NewServer(ServerConfig{Bias: &stubChecker{}, Searcher: &stubSearcher{}})
	if err == nil {
		t.Fatal("NewServer(nil responder) expected error, got nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ServerConfig{})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestQueryEndpoint(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{result: okResult()}
	srv := testServer(t, ServerConfig{Responder: responder})

	body := strings.NewReader(`{"session_id":"abc","message":"List job openings in marketing"}`)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/query", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID != "abc" {
		t.Errorf("session_id = %q, want abc", resp.SessionID)
	}
	if resp.Answer != "Here are some openings." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.Intent != "JOB_SEARCH" {
		t.Errorf("intent = %q", resp.Intent)
	}
	if resp.ProcessingTimeMs != 120 {
		t.Errorf("processing_time_ms = %d, want 120", resp.ProcessingTimeMs)
	}
	if len(responder.messages) != 1 || responder.messages[0] != "List job openings in marketing" {
		t.Errorf("responder received %v", responder.messages)
	}
}

func TestQueryGeneratesSessionID(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{result: okResult()}
	srv := testServer(t, ServerConfig{Responder: responder})

	body := strings.NewReader(`{"message":"hello"}`)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/query", body))

	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("missing generated session_id")
	}
	if len(responder.sessionIDs) != 1 || responder.sessionIDs[0] != resp.SessionID {
		t.Errorf("responder session = %v, response session = %q", responder.sessionIDs, resp.SessionID)
	}
}

func TestQueryErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty message", pipeline.ErrEmptyMessage, http.StatusBadRequest},
		{"generation failed", pipeline.ErrGenerationFailed, http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := testServer(t, ServerConfig{Responder: &stubResponder{err: tt.err}})
			body := strings.NewReader(`{"session_id":"s","message":"x"}`)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/query", body))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestQueryInvalidBody(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ServerConfig{})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("{not json")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestBiasCheckEndpoint(t *testing.T) {
	t.Parallel()

	checker := &stubChecker{assessment: bias.Assessment{
		Biased:   true,
		Category: bias.CategoryHiringJustification,
		Severity: "high",
		Reframed: "What are the performance benefits of gender-diverse tech teams?",
		Layer:    "lexical",
	}}
	srv := testServer(t, ServerConfig{Bias: checker})

	body := strings.NewReader(`{"text":"Why should we even hire women for tech roles?"}`)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/bias-check", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp BiasCheckResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Biased || resp.Category != bias.CategoryHiringJustification {
		t.Errorf("response = %+v", resp)
	}
}

func TestJobsEndpoint(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{results: []knowledge.Result{
		{
			Document: knowledge.Document{
				ID:         "job-1",
				SourceType: knowledge.SourceTypeJob,
				Metadata:   map[string]string{"job_title": "Marketing Manager", "company": "TechCorp"},
			},
			Similarity: 0.91,
		},
	}}
	srv := testServer(t, ServerConfig{Searcher: searcher})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?query=marketing", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].ID != "job-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestJobsMissingQuery(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ServerConfig{})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestJobsIndexUnavailable(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ServerConfig{Searcher: &stubSearcher{err: errors.New("connection refused")}})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?query=x", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestEventsUpcomingListing(t *testing.T) {
	t.Parallel()

	lister := &stubLister{events: []ingest.Event{
		{ID: "1", Title: "Resume Workshop", Date: "2026-09-25"},
		{ID: "2", Title: "Leadership Meetup", Date: "2026-10-03"},
	}}
	srv := testServer(t, ServerConfig{Events: lister})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Resume Workshop") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRateLimitEnforced(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ServerConfig{RateBurst: 2})

	var last int
	for range 5 {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?query=x", nil)
		r.RemoteAddr = "203.0.113.7:1234"
		srv.Handler().ServeHTTP(w, r)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("final status = %d, want 429", last)
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ServerConfig{})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events?query=x", nil))

	if w.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ServerConfig{CORSOrigins: []string{"http://localhost:4200"}})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/query", nil)
	r.Header.Set("Origin", "http://localhost:4200")
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"direct", "192.0.2.1:5000", "", false, "192.0.2.1"},
		{"proxy ignored when untrusted", "192.0.2.1:5000", "198.51.100.9", false, "192.0.2.1"},
		{"forwarded-for honored", "192.0.2.1:5000", "198.51.100.9", true, "198.51.100.9"},
		{"forwarded-for list takes first", "192.0.2.1:5000", "198.51.100.9, 10.0.0.1", true, "198.51.100.9"},
		{"bad forwarded-for falls back", "192.0.2.1:5000", "not-an-ip", true, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
