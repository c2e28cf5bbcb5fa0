// internal/gateway/server_test.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-assistant/internal/common/config"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/common/observability"
	"research-assistant/internal/history"
	analyzeresume "research-assistant/internal/workers/assistant/analyze-resume"
	normalizeagentresponse "research-assistant/internal/workers/assistant/normalize-agent-response"
	relaychatmessage "research-assistant/internal/workers/assistant/relay-chat-message"
)

const resumeID = "abcdefghij0123456789XYZ"

// ==========================
// Test Helpers
// ==========================

type fixture struct {
	handler http.Handler
	store   history.Store
}

func agents(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /wiki", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Hello from the wiki"))
	})
	mux.HandleFunc("POST /resume", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":{"overview":"Great candidate.","skills":["Go"]}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func appConfig(baseURL string) *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{MaxBodyBytes: 4096},
		Webhook: config.WebhookConfig{Timeout: 1000, Backoff: 1},
		Panels: map[string]config.PanelConfig{
			"wiki-search": {
				Title:      "Wiki Search",
				WebhookURL: baseURL + "/wiki",
				Payload:    config.PayloadMessage,
				Timeout:    1000,
				Welcome:    "Ask me anything about the wiki.",
			},
			analyzeresume.PanelID: {
				Title:      "Resume Analyzer",
				WebhookURL: baseURL + "/resume",
				Payload:    config.PayloadResume,
				Timeout:    1000,
			},
		},
	}
}

func newFixture(t *testing.T, store history.Store, reg *prometheus.Registry) *fixture {
	t.Helper()
	app := appConfig(agents(t).URL)
	log := logger.NewTestLogger(t)
	if store == nil {
		store = history.NewMemoryStore(history.Options{})
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	relay := relaychatmessage.NewService(relaychatmessage.ServiceDependencies{History: store, Logger: log}, relaychatmessage.NewConfig(app))
	resume := analyzeresume.NewService(analyzeresume.ServiceDependencies{History: store, Logger: log}, analyzeresume.NewConfig(app))
	normalize := normalizeagentresponse.NewService(normalizeagentresponse.NewConfig(app), log)

	s := New(Dependencies{
		Config:        app,
		Relay:         relay,
		Resume:        resume,
		Normalize:     normalize,
		History:       store,
		Observability: observability.NewWithRegisterer("gateway-test", reg),
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:        log,
	})
	return &fixture{handler: s.Handler(), store: store}
}

func (f *fixture) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(v))
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	assert.NotEmpty(t, body.Message)
	return body.Code
}

// ==========================
// Panels & Chat
// ==========================

func TestPanels(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodGet, "/api/panels", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Panels []panelView `json:"panels"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Panels, 2)
	assert.Equal(t, analyzeresume.PanelID, body.Panels[0].ID)
	assert.Equal(t, "wiki-search", body.Panels[1].ID)
	assert.Equal(t, "Ask me anything about the wiki.", body.Panels[1].Welcome)
}

func TestChat(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodPost, "/api/chat/wiki-search", "application/json", `{"message":"hi","sessionId":"s-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out relaychatmessage.Output
	decode(t, rec, &out)
	assert.Equal(t, "Hello from the wiki", out.Reply)
	assert.Equal(t, "text", out.Shape)
	assert.Equal(t, "wiki-search", out.Panel)
	assert.Equal(t, "s-1", out.SessionID)
	assert.False(t, out.Failed)
}

func TestChat_Errors(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"unknown panel", "/api/chat/nope", `{"message":"hi"}`, http.StatusNotFound, "PANEL_NOT_FOUND"},
		{"missing message", "/api/chat/wiki-search", `{"sessionId":"s"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"blank message", "/api/chat/wiki-search", `{"message":"   "}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"not json", "/api/chat/wiki-search", `{"message":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"too large", "/api/chat/wiki-search", `{"message":"` + strings.Repeat("x", 5000) + `"}`, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.target, "application/json", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCodeOf(t, rec))
		})
	}
}

// ==========================
// History & Transcript
// ==========================

func TestHistory(t *testing.T) {
	f := newFixture(t, nil, nil)

	var view historyView
	rec := f.do(t, http.MethodGet, "/api/chat/wiki-search/history?sessionId=s-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, history.KindWelcome, view.Messages[0].Kind)
	assert.Equal(t, "Ask me anything about the wiki.", view.Messages[0].Text)

	f.do(t, http.MethodPost, "/api/chat/wiki-search", "application/json", `{"message":"hi","sessionId":"s-1"}`)

	rec = f.do(t, http.MethodGet, "/api/chat/wiki-search/history?sessionId=s-1", "", "")
	view = historyView{}
	decode(t, rec, &view)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, history.RoleUser, view.Messages[0].Role)
	assert.Equal(t, "Hello from the wiki", view.Messages[1].Text)

	rec = f.do(t, http.MethodGet, "/api/chat/wiki-search/history?sessionId=s-1&limit=1", "", "")
	view = historyView{}
	decode(t, rec, &view)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, history.RoleAssistant, view.Messages[0].Role)

	rec = f.do(t, http.MethodDelete, "/api/chat/wiki-search/history?sessionId=s-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view = historyView{}
	decode(t, rec, &view)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, history.KindWelcome, view.Messages[0].Kind)

	rec = f.do(t, http.MethodGet, "/api/chat/wiki-search/history?sessionId=s-1", "", "")
	view = historyView{}
	decode(t, rec, &view)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, history.KindWelcome, view.Messages[0].Kind)
}

func TestHistory_BadParams(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"missing session", http.MethodGet, "/api/chat/wiki-search/history", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/chat/wiki-search/history?sessionId=s&limit=abc", http.StatusBadRequest},
		{"negative limit", http.MethodGet, "/api/chat/wiki-search/history?sessionId=s&limit=-2", http.StatusBadRequest},
		{"unknown panel", http.MethodGet, "/api/chat/nope/history?sessionId=s", http.StatusNotFound},
		{"clear unknown panel", http.MethodDelete, "/api/chat/nope/history?sessionId=s", http.StatusNotFound},
		{"transcript without session", http.MethodGet, "/api/chat/wiki-search/transcript", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, f.do(t, tt.method, tt.target, "", "").Code)
		})
	}
}

func TestTranscript(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.do(t, http.MethodPost, "/api/chat/wiki-search", "application/json", `{"message":"What is RAG?","sessionId":"s-2"}`)

	rec := f.do(t, http.MethodGet, "/api/chat/wiki-search/transcript?sessionId=s-2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))

	text := rec.Body.String()
	assert.True(t, strings.HasPrefix(text, "## Wiki Search\n\n### "), text)
	assert.Contains(t, text, "**You**")
	assert.Contains(t, text, "What is RAG?")
	assert.Contains(t, text, "Hello from the wiki")
}

// ==========================
// Resume & Normalize
// ==========================

func TestResume(t *testing.T) {
	store := history.NewMemoryStore(history.Options{})
	f := newFixture(t, store, nil)

	rec := f.do(t, http.MethodPost, "/api/resume/analyze", "application/json", `{"resumeId":"`+resumeID+`","sessionId":"r-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out analyzeresume.Output
	decode(t, rec, &out)
	assert.False(t, out.Failed)
	assert.Equal(t, "Great candidate.", out.Summary)
	require.Len(t, out.Sections, len(analyzeresume.Sections))
	assert.Equal(t, "- Go", out.Sections[1].Content)

	rec = f.do(t, http.MethodGet, "/api/chat/"+analyzeresume.PanelID+"/history?sessionId=r-1", "", "")
	var view historyView
	decode(t, rec, &view)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, history.KindStatus, view.Messages[0].Kind)
}

func TestChat_ResumePanel(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodPost, "/api/chat/"+analyzeresume.PanelID, "application/json", `{"message":"hello","sessionId":"r-2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out analyzeresume.Output
	decode(t, rec, &out)
	assert.Equal(t, analyzeresume.NoResumeMsg, out.Summary)

	rec = f.do(t, http.MethodPost, "/api/chat/"+analyzeresume.PanelID, "application/json", `{"message":"`+resumeID+`","sessionId":"r-2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out = analyzeresume.Output{}
	decode(t, rec, &out)
	assert.Equal(t, "Great candidate.", out.Summary)
}

func TestResume_Invalid(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodPost, "/api/resume/analyze", "application/json", `{"resumeId":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RESUME_ID", errorCodeOf(t, rec))

	rec = f.do(t, http.MethodPost, "/api/resume/analyze", "application/json", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCodeOf(t, rec))
}

func TestNormalize(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		text        string
		shape       string
	}{
		{"json error", "/api/normalize", "application/json", `{"error":"boom"}`, "Error: boom. Please try again or rephrase your question.", "error"},
		{"plain text", "/api/normalize", "text/plain", "just words", "just words", "text"},
		{"html", "/api/normalize", "text/html", "<html><body><h2>Result</h2><p>Found it</p></body></html>", "## Result\n\nFound it", "text"},
		{"empty output", "/api/normalize?panel=wiki-search", "application/json", `{"output":{}}`, "The response was empty.", "empty_output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.target, tt.contentType, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var out normalizeagentresponse.Output
			decode(t, rec, &out)
			assert.Equal(t, tt.text, out.Text)
			assert.Equal(t, tt.shape, out.Shape)
		})
	}

	rec := f.do(t, http.MethodPost, "/api/normalize?panel=nope", "application/json", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==========================
// Health, Readiness & Metrics
// ==========================

func TestHealth(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestReady(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, history.NewRedisStore(client, history.Options{}), nil)

	rec := f.do(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)

	mr.Close()
	rec = f.do(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"not_ready"`)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReady_Broker(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"broker up", nil, http.StatusOK},
		{"broker down", fmt.Errorf("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Dependencies{
				Config:  appConfig("http://localhost:1"),
				History: history.NewMemoryStore(history.Options{}),
				Broker:  pingerFunc(func(context.Context) error { return tt.err }),
				Metrics: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
			})
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.err != nil {
				assert.Contains(t, rec.Body.String(), `"broker":"connection refused"`)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, nil, reg)

	f.do(t, http.MethodGet, "/health", "", "")
	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_server_requests")
	assert.Contains(t, rec.Body.String(), `route="GET /health"`)
}
