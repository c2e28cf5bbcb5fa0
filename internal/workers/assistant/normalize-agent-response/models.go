// internal/workers/assistant/normalize-agent-response/models.go
package normalizeagentresponse

import "research-assistant/internal/normalizer"

// Input carries the raw reply as an order-preserving Value. An absent
// rawResponse stays Undefined.
type Input struct {
	Panel       string
	RawResponse normalizer.Value
}

type Output struct {
	Text  string `json:"text"`
	Shape string `json:"shape"`
	Panel string `json:"panel,omitempty"`
}
