// internal/workers/assistant/analyze-resume/service.go
package analyzeresume

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"research-assistant/internal/common/errors"
	commonhttp "research-assistant/internal/common/http"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/common/metrics"
	"research-assistant/internal/history"
	"research-assistant/internal/normalizer"
)

type ServiceDependencies struct {
	Client  *commonhttp.Client
	History history.Store
	Logger  logger.Logger
}

type Service struct {
	config     *Config
	client     *commonhttp.Client
	normalizer *normalizer.Normalizer
	history    history.Store
	logger     logger.Logger
}

func NewService(deps ServiceDependencies, cfg *Config) *Service {
	base := deps.Client
	if base == nil {
		base = commonhttp.NewClient(commonhttp.DefaultTimeout)
	}
	store := deps.History
	if store == nil {
		store = history.NewMemoryStore(history.Options{})
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Service{
		config: cfg,
		client: base.WithOptions(commonhttp.Options{
			Timeout:    time.Duration(cfg.Panel.Timeout) * time.Millisecond,
			MaxRetries: cfg.Panel.MaxRetries,
			Backoff:    time.Duration(cfg.Webhook.Backoff) * time.Millisecond,
			Headers:    cfg.Webhook.Headers,
		}),
		normalizer: normalizer.New(cfg.Panel.NormalizerOptions(cfg.Normalizer)),
		history:    store,
		logger:     log.WithFields(map[string]interface{}{"component": "resume", "panel": PanelID}),
	}
}

// Execute returns an error only for an invalid resume id. Analyzer and
// transport failures come back as a failed Output carrying the chat text.
func (s *Service) Execute(ctx context.Context, in *Input) (*Output, error) {
	if in == nil {
		return nil, errors.NewInvalidRequestError("resumeId is required")
	}
	id := strings.TrimSpace(in.ResumeID)
	if !ResumeIDPattern.MatchString(id) {
		return nil, errors.NewInvalidResumeIDError(in.ResumeID)
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}

	log := s.logger.WithFields(map[string]interface{}{"sessionId": in.SessionID, "resumeId": id})
	s.record(ctx, log, in.SessionID,
		history.NewMessage(PanelID, in.SessionID, history.RoleAssistant, history.KindStatus, fmt.Sprintf(StatusTemplate, id)))

	start := time.Now()
	resp, err := s.client.PostJSON(ctx, s.config.Panel.WebhookURL, webhookPayload{ID: id}, s.config.Panel.Headers)
	elapsed := time.Since(start)

	out := &Output{ResumeID: id, SessionID: in.SessionID, DurationMs: elapsed.Milliseconds()}

	var analysis normalizer.Value
	if err != nil {
		metrics.ObserveWebhook(PanelID, outcomeFor(err), elapsed)
	} else {
		metrics.ObserveWebhook(PanelID, metrics.OutcomeSuccess, elapsed)
		analysis, err = extractAnalysis(commonhttp.DecodeBody(resp))
	}

	if err != nil {
		out.Failed = true
		out.Summary = FailurePrefix + failureText(err)
		if stdErr, ok := errors.As(err); ok {
			out.ErrorCode = string(stdErr.Code)
		}
		log.Warn("resume analysis failed", map[string]interface{}{"error": err.Error(), "errorCode": out.ErrorCode})
		s.record(ctx, log, in.SessionID,
			history.NewMessage(PanelID, in.SessionID, history.RoleAssistant, history.KindError, out.Summary))
		return out, nil
	}

	out.Sections = buildSections(analysis, s.normalizer)
	out.Summary = DefaultSummary
	if overview := out.Sections[0]; overview.Available {
		out.Summary = overview.Content
	}

	log.Info("resume analyzed", map[string]interface{}{"elapsedMs": out.DurationMs})
	reply := history.NewMessage(PanelID, in.SessionID, history.RoleAssistant, history.KindReply, out.Summary)
	reply.Shape = ShapeAnalysis
	s.record(ctx, log, in.SessionID, reply)
	return out, nil
}

// Converse handles a typed chat message: a resume id starts an analysis,
// anything else gets a canned reply depending on whether the session already
// holds an analysis.
func (s *Service) Converse(ctx context.Context, sessionID, message string) (*Output, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return nil, errors.NewInvalidRequestError("message is required")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := s.logger.WithFields(map[string]interface{}{"sessionId": sessionID})
	s.record(ctx, log, sessionID,
		history.NewMessage(PanelID, sessionID, history.RoleUser, history.KindMessage, message))

	if ResumeIDPattern.MatchString(text) {
		return s.Execute(ctx, &Input{ResumeID: text, SessionID: sessionID})
	}

	out := &Output{SessionID: sessionID, Summary: NoResumeMsg}
	if s.hasAnalysis(ctx, sessionID) {
		out.Summary = FollowUpMsg
	}
	s.record(ctx, log, sessionID,
		history.NewMessage(PanelID, sessionID, history.RoleAssistant, history.KindReply, out.Summary))
	return out, nil
}

func (s *Service) hasAnalysis(ctx context.Context, sessionID string) bool {
	msgs, err := s.history.List(ctx, PanelID, sessionID, 0)
	if err != nil {
		metrics.HistoryErrors.WithLabelValues("list").Inc()
		return false
	}
	for _, m := range msgs {
		if m.Shape == ShapeAnalysis {
			return true
		}
	}
	return false
}

func failureText(err error) string {
	stdErr, ok := errors.As(err)
	if !ok {
		return err.Error()
	}
	switch stdErr.Code {
	case errors.ErrCodeResumeAnalysisFailed:
		return stdErr.Details
	case errors.ErrCodeInvalidResponseFormat:
		return InvalidFormatMsg
	default:
		return commonhttp.FailureMessage(err)
	}
}

func (s *Service) record(ctx context.Context, log logger.Logger, sessionID string, msgs ...history.Message) {
	if err := s.history.Append(ctx, PanelID, sessionID, msgs...); err != nil {
		metrics.HistoryErrors.WithLabelValues("append").Inc()
		log.Warn("failed to record history", map[string]interface{}{"error": err.Error()})
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.HasCode(err, errors.ErrCodeWebhookHTTPError):
		return metrics.OutcomeHTTPError
	case errors.HasCode(err, errors.ErrCodeWebhookTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeUnreachable
	}
}
