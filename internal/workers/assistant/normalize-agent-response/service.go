// internal/workers/assistant/normalize-agent-response/service.go
package normalizeagentresponse

import (
	"context"

	"research-assistant/internal/common/errors"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/common/metrics"
	"research-assistant/internal/normalizer"
)

type Service struct {
	global *normalizer.Normalizer
	panels map[string]*normalizer.Normalizer
	logger logger.Logger
}

func NewService(cfg *Config, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	panels := make(map[string]*normalizer.Normalizer, len(cfg.Panels))
	for id, p := range cfg.Panels {
		panels[id] = normalizer.New(p.NormalizerOptions(cfg.Normalizer))
	}
	return &Service{
		global: normalizer.New(cfg.Normalizer),
		panels: panels,
		logger: log.WithFields(map[string]interface{}{"component": "normalize"}),
	}
}

// NormalizerFor returns the panel's normalizer, or the global one for an empty id.
func (s *Service) NormalizerFor(panel string) (*normalizer.Normalizer, error) {
	if panel == "" {
		return s.global, nil
	}
	n, ok := s.panels[panel]
	if !ok {
		return nil, errors.NewPanelNotFoundError(panel)
	}
	return n, nil
}

func (s *Service) Execute(_ context.Context, in *Input) (*Output, error) {
	if in == nil {
		return nil, errors.NewInvalidRequestError("input is required")
	}
	n, err := s.NormalizerFor(in.Panel)
	if err != nil {
		return nil, err
	}

	result := n.Classify(in.RawResponse)
	label := in.Panel
	if label == "" {
		label = "none"
	}
	metrics.NormalizedResponses.WithLabelValues(label, string(result.Shape)).Inc()

	s.logger.Debug("response normalized", map[string]interface{}{
		"panel": in.Panel,
		"kind":  in.RawResponse.Kind().String(),
		"shape": string(result.Shape),
	})
	return &Output{Text: result.Text, Shape: string(result.Shape), Panel: in.Panel}, nil
}
