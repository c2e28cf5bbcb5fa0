// internal/gateway/handlers.go
package gateway

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"research-assistant/internal/common/errors"
	commonhttp "research-assistant/internal/common/http"
	"research-assistant/internal/common/validation"
	"research-assistant/internal/history"
	analyzeresume "research-assistant/internal/workers/assistant/analyze-resume"
	normalizeagentresponse "research-assistant/internal/workers/assistant/normalize-agent-response"
	relaychatmessage "research-assistant/internal/workers/assistant/relay-chat-message"
)

var (
	chatValidator   = validation.MustValidator(validation.ChatRequestSchema)
	resumeValidator = validation.MustValidator(validation.ResumeRequestSchema)
)

type historyView struct {
	Panel     string            `json:"panel"`
	SessionID string            `json:"sessionId"`
	Messages  []history.Message `json:"messages"`
}

func (s *Server) handlePanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"panels": s.panelList()})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	panel := r.PathValue("panel")
	if _, ok := s.relay.Panel(panel); !ok {
		writeError(w, errors.NewPanelNotFoundError(panel))
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if result := chatValidator.ValidateDocument(body); !result.Valid {
		writeError(w, errors.NewInvalidRequestError(result.Summary()))
		return
	}

	var in relaychatmessage.Input
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, errors.NewInvalidRequestError(err.Error()))
		return
	}
	in.Panel = panel

	if panel == analyzeresume.PanelID && s.resume != nil {
		out, err := s.resume.Converse(r.Context(), in.SessionID, in.Message)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	out, err := s.relay.Execute(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	panel, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errors.NewInvalidRequestError(fmt.Sprintf("limit must be a non-negative integer, got %q", raw)))
			return
		}
		limit = n
	}

	msgs, err := s.history.List(r.Context(), panel, sessionID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(msgs) == 0 {
		msgs = []history.Message{s.welcome(panel, sessionID)}
	}
	writeJSON(w, http.StatusOK, historyView{Panel: panel, SessionID: sessionID, Messages: msgs})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	panel, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	if err := s.history.Clear(r.Context(), panel, sessionID); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("history cleared", map[string]interface{}{"panel": panel, "sessionId": sessionID})
	writeJSON(w, http.StatusOK, historyView{
		Panel:     panel,
		SessionID: sessionID,
		Messages:  []history.Message{s.welcome(panel, sessionID)},
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	panel, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	msgs, err := s.history.List(r.Context(), panel, sessionID, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	p := s.cfg.Panels[panel]
	text := history.Transcript(msgs, history.TranscriptOptions{
		Title:      p.Title,
		DateFormat: s.cfg.History.DateFormat,
		TimeFormat: s.cfg.History.TimeFormat,
	})
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if result := resumeValidator.ValidateDocument(body); !result.Valid {
		if result.HasErrors("resumeId") {
			var partial struct {
				ResumeID string `json:"resumeId"`
			}
			_ = json.Unmarshal(body, &partial)
			writeError(w, errors.NewInvalidResumeIDError(partial.ResumeID))
			return
		}
		writeError(w, errors.NewInvalidRequestError(result.Summary()))
		return
	}

	var in analyzeresume.Input
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, errors.NewInvalidRequestError(err.Error()))
		return
	}
	out, err := s.resume.Execute(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNormalize treats the request body as a captured webhook reply, so an
// HTML body goes through the same markdown conversion a live reply would.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	raw := commonhttp.DecodeBody(&commonhttp.Response{StatusCode: http.StatusOK, Header: r.Header, Body: body})
	out, err := s.normalize.Execute(r.Context(), &normalizeagentresponse.Input{
		Panel:       r.URL.Query().Get("panel"),
		RawResponse: raw,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sessionParams(w http.ResponseWriter, r *http.Request) (panel, sessionID string, ok bool) {
	panel = r.PathValue("panel")
	if _, known := s.cfg.Panels[panel]; !known {
		writeError(w, errors.NewPanelNotFoundError(panel))
		return "", "", false
	}
	sessionID = strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		writeError(w, errors.NewInvalidRequestError("sessionId query parameter is required"))
		return "", "", false
	}
	return panel, sessionID, true
}

func (s *Server) welcome(panel, sessionID string) history.Message {
	return history.Welcome(panel, sessionID, s.cfg.Panels[panel].Welcome)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewInvalidRequestError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("read body: %v", err))
	}
	return body, nil
}
