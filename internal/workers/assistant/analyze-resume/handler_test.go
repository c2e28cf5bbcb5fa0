// internal/workers/assistant/analyze-resume/handler_test.go
package analyzeresume

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-assistant/internal/common/config"
	"research-assistant/internal/common/errors"
	commonhttp "research-assistant/internal/common/http"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/history"
	"research-assistant/internal/normalizer"
)

const validID = "1a2b3c4d5e6f7g8h9i0jKLMN"

// ==========================
// Test Helpers
// ==========================

func analyzer(t *testing.T, status int, body string) (*httptest.Server, func() []map[string]interface{}) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		captured = append(captured, req)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, func() []map[string]interface{} {
		mu.Lock()
		defer mu.Unlock()
		return append([]map[string]interface{}(nil), captured...)
	}
}

func testConfig(url string) *Config {
	cfg := DefaultConfig()
	cfg.Panel = config.PanelConfig{Title: "Resume Analyzer", WebhookURL: url, Timeout: 1000}
	cfg.Webhook = config.WebhookConfig{Timeout: 1000, Backoff: 1}
	return cfg
}

func newTestService(t *testing.T, url string, store history.Store) *Service {
	t.Helper()
	return NewService(ServiceDependencies{History: store, Logger: logger.NewTestLogger(t)}, testConfig(url))
}

func sectionByID(t *testing.T, out *Output, id string) Section {
	t.Helper()
	for _, s := range out.Sections {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("section %q not found", id)
	return Section{}
}

// ==========================
// Execute Tests
// ==========================

func TestService_Execute_ReplyShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		summary  string
		overview string
		skills   string
	}{
		{
			name:     "plain string",
			body:     `"Strong backend profile."`,
			summary:  "Strong backend profile.",
			overview: "Strong backend profile.",
			skills:   MissingSection,
		},
		{
			name:     "output string",
			body:     `{"output":"Seasoned data engineer."}`,
			summary:  "Seasoned data engineer.",
			overview: "Seasoned data engineer.",
			skills:   MissingSection,
		},
		{
			name:     "output object",
			body:     `{"output":{"overview":"Senior Go developer.","skills":["Go","Kubernetes"]}}`,
			summary:  "Senior Go developer.",
			overview: "Senior Go developer.",
			skills:   "- Go\n- Kubernetes",
		},
		{
			name:     "bare analysis",
			body:     `{"skills":"SQL, Python","education":"BSc"}`,
			summary:  DefaultSummary,
			overview: MissingSection,
			skills:   "SQL, Python",
		},
		{
			name:     "empty overview falls back",
			body:     `{"overview":"","experience":"5 years"}`,
			summary:  DefaultSummary,
			overview: MissingSection,
			skills:   MissingSection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := analyzer(t, http.StatusOK, tt.body)
			svc := newTestService(t, server.URL, nil)

			out, err := svc.Execute(context.Background(), &Input{ResumeID: validID})
			require.NoError(t, err)
			assert.False(t, out.Failed)
			assert.Equal(t, tt.summary, out.Summary)
			require.Len(t, out.Sections, len(Sections))
			assert.Equal(t, tt.overview, sectionByID(t, out, "overview").Content)
			assert.Equal(t, tt.skills, sectionByID(t, out, "skills").Content)

			requests := captured()
			require.Len(t, requests, 1)
			assert.Equal(t, map[string]interface{}{"id": validID}, requests[0])
		})
	}
}

func TestService_Execute_SectionAvailability(t *testing.T) {
	server, _ := analyzer(t, http.StatusOK, `{"overview":"ok","experience":{"years":7},"recommendations":null}`)
	svc := newTestService(t, server.URL, nil)

	out, err := svc.Execute(context.Background(), &Input{ResumeID: validID})
	require.NoError(t, err)

	assert.True(t, sectionByID(t, out, "overview").Available)
	experience := sectionByID(t, out, "experience")
	assert.True(t, experience.Available)
	assert.Contains(t, experience.Content, "years")

	rec := sectionByID(t, out, "recommendations")
	assert.False(t, rec.Available)
	assert.Equal(t, MissingSection, rec.Content)
	assert.Equal(t, "Recommendations", rec.Label)
}

func TestService_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		summary string
		code    errors.ErrorCode
	}{
		{"agent error", http.StatusOK, `{"error":"resume not found"}`, "Error analyzing resume: resume not found", errors.ErrCodeResumeAnalysisFailed},
		{"null reply", http.StatusOK, `null`, "Error analyzing resume: Received invalid response format", errors.ErrCodeInvalidResponseFormat},
		{"number reply", http.StatusOK, `12`, "Error analyzing resume: Received invalid response format", errors.ErrCodeInvalidResponseFormat},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, "Error analyzing resume: Server error (500): boom", errors.ErrCodeWebhookHTTPError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := analyzer(t, tt.status, tt.body)
			store := history.NewMemoryStore(history.Options{})
			svc := newTestService(t, server.URL, store)

			out, err := svc.Execute(context.Background(), &Input{ResumeID: validID, SessionID: "s"})
			require.NoError(t, err)
			assert.True(t, out.Failed)
			assert.Equal(t, tt.summary, out.Summary)
			assert.Equal(t, string(tt.code), out.ErrorCode)
			assert.Empty(t, out.Sections)

			msgs, err := store.List(context.Background(), PanelID, "s", 0)
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, history.KindError, msgs[1].Kind)
			assert.Equal(t, tt.summary, msgs[1].Text)
		})
	}
}

func TestService_Execute_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	svc := newTestService(t, url, nil)
	out, err := svc.Execute(context.Background(), &Input{ResumeID: validID})
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Equal(t, FailurePrefix+commonhttp.MessageUnreachable, out.Summary)
}

func TestService_Execute_InvalidResumeID(t *testing.T) {
	svc := newTestService(t, "http://localhost", nil)

	for _, id := range []string{"", "short", "has spaces in it 1234567", "bad$chars_bad$chars_bad"} {
		_, err := svc.Execute(context.Background(), &Input{ResumeID: id})
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidResumeID), "id %q", id)
	}

	_, err := svc.Execute(context.Background(), nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
}

func TestService_Execute_RecordsStatus(t *testing.T) {
	server, _ := analyzer(t, http.StatusOK, `{"overview":"Good fit."}`)
	store := history.NewMemoryStore(history.Options{})
	svc := newTestService(t, server.URL, store)

	out, err := svc.Execute(context.Background(), &Input{ResumeID: validID})
	require.NoError(t, err)
	assert.Len(t, out.SessionID, 36)

	msgs, err := store.List(context.Background(), PanelID, out.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, history.KindStatus, msgs[0].Kind)
	assert.Equal(t, "Analyzing resume with ID: "+validID+"...", msgs[0].Text)
	assert.Equal(t, history.KindReply, msgs[1].Kind)
	assert.Equal(t, "Good fit.", msgs[1].Text)
	assert.Equal(t, "analysis", msgs[1].Shape)
}

// ==========================
// Analysis Tests
// ==========================

func TestExtractAnalysis(t *testing.T) {
	decode := func(s string) normalizer.Value {
		v, err := normalizer.Decode([]byte(s))
		require.NoError(t, err)
		return v
	}

	v, err := extractAnalysis(decode(`{"output":true}`))
	require.NoError(t, err)
	assert.True(t, v.IsObject())
	assert.Equal(t, 0, v.Len())

	_, err = extractAnalysis(decode(`{"output":"","error":"nope"}`))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeResumeAnalysisFailed))

	_, err = extractAnalysis(decode(`{"error":{"reason":"quota"}}`))
	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, `{"reason":"quota"}`, stdErr.Details)

	_, err = extractAnalysis(normalizer.Undefined())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidResponseFormat))
}

func TestRenderSection(t *testing.T) {
	n := normalizer.New(normalizer.Options{})
	assert.Equal(t, "plain", renderSection(normalizer.String("plain"), n))
	assert.Equal(t, "- a\n- 2", renderSection(normalizer.Array(normalizer.String("a"), normalizer.Number("2")), n))
	assert.Equal(t, "true", renderSection(normalizer.Bool(true), n))
}

// ==========================
// Handler Tests
// ==========================

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		code      errors.ErrorCode
	}{
		{"valid", `{"resumeId":"` + validID + `","sessionId":"s"}`, ""},
		{"not json", `{`, errors.ErrCodeInvalidRequest},
		{"missing id", `{"sessionId":"s"}`, errors.ErrCodeInvalidResumeID},
		{"short id", `{"resumeId":"abc"}`, errors.ErrCodeInvalidResumeID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := parseInput(tt.variables)
			if tt.code != "" {
				assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, validID, in.ResumeID)
			assert.Equal(t, "s", in.SessionID)
		})
	}
}

// ==========================
// Config Tests
// ==========================

func TestNewConfig(t *testing.T) {
	app := &config.Config{
		Panels: map[string]config.PanelConfig{
			PanelID: {Title: "Resume Analyzer", WebhookURL: "http://localhost/resume", Timeout: 60000},
		},
		Workers: map[string]config.WorkerConfig{
			TaskType: {Enabled: true, MaxJobsActive: 3, Timeout: 90000},
		},
	}

	cfg := NewConfig(app)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.MaxJobsActive)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "http://localhost/resume", cfg.Panel.WebhookURL)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, NewConfig(nil).Validate())
}

func TestService_Converse(t *testing.T) {
	server, captured := analyzer(t, http.StatusOK, `{"overview":"Solid."}`)
	store := history.NewMemoryStore(history.Options{})
	svc := newTestService(t, server.URL, store)
	ctx := context.Background()

	out, err := svc.Converse(ctx, "c-1", "what do you think?")
	require.NoError(t, err)
	assert.Equal(t, NoResumeMsg, out.Summary)
	assert.Empty(t, captured())

	out, err = svc.Converse(ctx, "c-1", "  "+validID+" ")
	require.NoError(t, err)
	assert.Equal(t, "Solid.", out.Summary)
	assert.Equal(t, validID, out.ResumeID)
	require.Len(t, captured(), 1)

	out, err = svc.Converse(ctx, "c-1", "is this person senior?")
	require.NoError(t, err)
	assert.Equal(t, FollowUpMsg, out.Summary)

	msgs, err := store.List(ctx, PanelID, "c-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 7)
	assert.Equal(t, history.RoleUser, msgs[0].Role)
	assert.Equal(t, history.KindStatus, msgs[3].Kind)

	_, err = svc.Converse(ctx, "c-1", " ")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
}
