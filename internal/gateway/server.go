// internal/gateway/server.go

// Package gateway exposes the assistant panels over HTTP.
package gateway

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"research-assistant/internal/common/config"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/common/observability"
	"research-assistant/internal/history"
	analyzeresume "research-assistant/internal/workers/assistant/analyze-resume"
	normalizeagentresponse "research-assistant/internal/workers/assistant/normalize-agent-response"
	relaychatmessage "research-assistant/internal/workers/assistant/relay-chat-message"
)

const defaultMaxBodyBytes = 1 << 20

// Pinger is a dependency /ready probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Config        *config.Config
	Relay         *relaychatmessage.Service
	Resume        *analyzeresume.Service
	Normalize     *normalizeagentresponse.Service
	History       history.Store
	// Broker is checked by /ready when the Zeebe workers are running.
	Broker        Pinger
	Observability *observability.Observability
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
	Logger  logger.Logger
}

type Server struct {
	cfg       *config.Config
	relay     *relaychatmessage.Service
	resume    *analyzeresume.Service
	normalize *normalizeagentresponse.Service
	history   history.Store
	broker    Pinger
	obs       *observability.Observability
	metrics   http.Handler
	logger    logger.Logger

	mux        *http.ServeMux
	httpServer *http.Server
}

func New(deps Dependencies) *Server {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	s := &Server{
		cfg:       cfg,
		relay:     deps.Relay,
		resume:    deps.Resume,
		normalize: deps.Normalize,
		history:   deps.History,
		broker:    deps.Broker,
		obs:       deps.Observability,
		metrics:   metricsHandler,
		logger:    log.WithFields(map[string]interface{}{"component": "gateway"}),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("GET /api/panels", s.handlePanels)
	s.handle("POST /api/chat/{panel}", s.handleChat)
	s.handle("GET /api/chat/{panel}/history", s.handleHistory)
	s.handle("DELETE /api/chat/{panel}/history", s.handleClearHistory)
	s.handle("GET /api/chat/{panel}/transcript", s.handleTranscript)
	s.handle("POST /api/resume/analyze", s.handleResume)
	s.handle("POST /api/normalize", s.handleNormalize)

	s.handle("GET /health", s.handleHealth)
	s.handle("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", s.metrics)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	gw := s.cfg.Gateway
	s.httpServer = &http.Server{
		Addr:         gw.Address,
		Handler:      s.mux,
		ReadTimeout:  config.GetDuration(gw.ReadTimeout),
		WriteTimeout: config.GetDuration(gw.WriteTimeout),
	}
	s.logger.Info("gateway listening", map[string]interface{}{"address": gw.Address})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) maxBodyBytes() int64 {
	if s.cfg.Gateway.MaxBodyBytes > 0 {
		return s.cfg.Gateway.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

type panelView struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Payload string   `json:"payload"`
	Welcome string   `json:"welcome,omitempty"`
	Metrics []metric `json:"metrics,omitempty"`
}

type metric struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) panelList() []panelView {
	ids := make([]string, 0, len(s.cfg.Panels))
	for id := range s.cfg.Panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	views := make([]panelView, 0, len(ids))
	for _, id := range ids {
		p := s.cfg.Panels[id]
		v := panelView{ID: id, Title: p.Title, Payload: p.Payload, Welcome: p.Welcome}
		for _, m := range p.Metrics {
			v.Metrics = append(v.Metrics, metric{ID: m.ID, Name: m.Name})
		}
		views = append(views, v)
	}
	return views
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	body := map[string]string{}
	checks := map[string]Pinger{"broker": s.broker}
	if s.history != nil {
		checks["history"] = s.history
	}
	for name, dep := range checks {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			status, code = "not_ready", http.StatusServiceUnavailable
			body[name] = err.Error()
			s.logger.Warn("readiness check failed", map[string]interface{}{"dependency": name, "error": err.Error()})
		}
	}
	body["status"] = status
	body["time"] = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, code, body)
}
