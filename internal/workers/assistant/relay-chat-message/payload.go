// internal/workers/assistant/relay-chat-message/payload.go
package relaychatmessage

import (
	"strings"

	"research-assistant/internal/common/config"
)

// BuildPayload shapes the webhook body the way the panel's agent expects it.
func BuildPayload(panel config.PanelConfig, in *Input) interface{} {
	switch panel.Payload {
	case config.PayloadQuery:
		return queryPayload{Query: in.Message}

	case config.PayloadDocument:
		return documentPayload{
			Query:                 in.Message,
			DocumentContext:       in.DocumentContext,
			IsDocumentSearch:      true,
			UseStructuredResponse: true,
		}

	case config.PayloadAnalytics:
		p := analyticsPayload{
			Query:     in.Message,
			TimeRange: in.TimeRange,
			Filter:    in.Filter,
		}
		if metric := ResolveMetric(panel.Metrics, in.Message, in.Metric); metric != "" {
			p.Metric = &metric
		}
		if p.TimeRange == "" {
			p.TimeRange = DefaultTimeRange
		}
		if p.Filter == "" {
			p.Filter = DefaultFilter
		}
		return p

	case config.PayloadResume:
		return resumePayload{ID: strings.TrimSpace(in.Message)}

	default:
		return messagePayload{Message: in.Message}
	}
}

// ResolveMetric returns the first configured metric whose name or id the
// message mentions, else the explicitly selected one.
func ResolveMetric(metrics []config.MetricConfig, message, selected string) string {
	lower := strings.ToLower(message)
	for _, m := range metrics {
		if m.Name != "" && strings.Contains(lower, strings.ToLower(m.Name)) {
			return m.ID
		}
		if m.ID != "" && strings.Contains(lower, strings.ToLower(m.ID)) {
			return m.ID
		}
	}
	return selected
}
