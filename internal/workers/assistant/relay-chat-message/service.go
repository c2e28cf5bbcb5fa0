// internal/workers/assistant/relay-chat-message/service.go
package relaychatmessage

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"research-assistant/internal/common/config"
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

type panelRuntime struct {
	config     config.PanelConfig
	client     *commonhttp.Client
	normalizer *normalizer.Normalizer
}

// Service relays one chat message to a panel webhook and normalizes the reply.
type Service struct {
	panels  map[string]panelRuntime
	history history.Store
	logger  logger.Logger
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

	panels := make(map[string]panelRuntime, len(cfg.Panels))
	for id, p := range cfg.Panels {
		panels[id] = panelRuntime{
			config: p,
			client: base.WithOptions(commonhttp.Options{
				Timeout:    time.Duration(p.Timeout) * time.Millisecond,
				MaxRetries: p.MaxRetries,
				Backoff:    time.Duration(cfg.Webhook.Backoff) * time.Millisecond,
				Headers:    cfg.Webhook.Headers,
			}),
			normalizer: normalizer.New(p.NormalizerOptions(cfg.Normalizer)),
		}
	}

	return &Service{
		panels:  panels,
		history: store,
		logger:  log.WithFields(map[string]interface{}{"component": "relay"}),
	}
}

// Panel returns the configuration of a known panel.
func (s *Service) Panel(id string) (config.PanelConfig, bool) {
	p, ok := s.panels[id]
	return p.config, ok
}

// Validate checks the parts of the input the schema cannot: the panel must exist.
func (s *Service) Validate(in *Input) error {
	if in == nil || strings.TrimSpace(in.Message) == "" {
		return errors.NewInvalidRequestError("message is required")
	}
	if _, ok := s.panels[in.Panel]; !ok {
		return errors.NewPanelNotFoundError(in.Panel)
	}
	return nil
}

// Execute returns an error only for invalid input. Webhook failures become a
// reply with Failed set so the conversation can show them.
func (s *Service) Execute(ctx context.Context, in *Input) (*Output, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	panel := s.panels[in.Panel]
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}

	log := s.logger.WithFields(map[string]interface{}{
		"panel":     in.Panel,
		"sessionId": in.SessionID,
	})

	s.record(ctx, log, in.Panel, in.SessionID,
		history.NewMessage(in.Panel, in.SessionID, history.RoleUser, history.KindMessage, in.Message))

	payload := BuildPayload(panel.config, in)
	start := time.Now()
	resp, err := panel.client.PostJSON(ctx, panel.config.WebhookURL, payload, panel.config.Headers)
	elapsed := time.Since(start)

	out := &Output{
		Panel:      in.Panel,
		SessionID:  in.SessionID,
		DurationMs: elapsed.Milliseconds(),
	}
	if analytics, ok := payload.(analyticsPayload); ok && analytics.Metric != nil {
		out.Metric = *analytics.Metric
	}
	if resp != nil {
		out.StatusCode = resp.StatusCode
		out.Attempts = resp.Attempts
	}

	kind := history.KindReply
	if err != nil {
		metrics.ObserveWebhook(in.Panel, outcomeFor(err), elapsed)
		kind = history.KindError
		out.Failed = true
		out.Shape = ShapeTransportError
		out.Reply = commonhttp.FailureMessage(err)
		if stdErr, ok := errors.As(err); ok {
			out.ErrorCode = string(stdErr.Code)
		}
		log.Warn("webhook call failed", map[string]interface{}{
			"error":     err.Error(),
			"errorCode": out.ErrorCode,
			"elapsedMs": out.DurationMs,
		})
	} else {
		metrics.ObserveWebhook(in.Panel, metrics.OutcomeSuccess, elapsed)
		result := panel.normalizer.Classify(commonhttp.DecodeBody(resp))
		if strings.TrimSpace(result.Text) == "" {
			result = normalizer.Result{Text: panel.normalizer.Options().EmptyNotice, Shape: normalizer.ShapeEmptyOutput}
		}
		metrics.NormalizedResponses.WithLabelValues(in.Panel, string(result.Shape)).Inc()
		out.Reply = result.Text
		out.Shape = string(result.Shape)
		log.Info("webhook reply normalized", map[string]interface{}{
			"shape":     out.Shape,
			"attempts":  out.Attempts,
			"elapsedMs": out.DurationMs,
		})
	}

	reply := history.NewMessage(in.Panel, in.SessionID, history.RoleAssistant, kind, out.Reply)
	reply.Shape = out.Shape
	out.MessageID = reply.ID
	s.record(ctx, log, in.Panel, in.SessionID, reply)

	return out, nil
}

// record never fails the relay; history is best effort.
func (s *Service) record(ctx context.Context, log logger.Logger, panel, sessionID string, msgs ...history.Message) {
	if err := s.history.Append(ctx, panel, sessionID, msgs...); err != nil {
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
