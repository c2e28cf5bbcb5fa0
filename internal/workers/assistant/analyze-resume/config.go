// internal/workers/assistant/analyze-resume/config.go
package analyzeresume

import (
	"fmt"
	"time"

	"research-assistant/internal/common/config"
	"research-assistant/internal/normalizer"
)

// PanelID is the panel whose webhook performs the analysis.
const PanelID = "resume-analyzer"

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	Panel         config.PanelConfig
	Webhook       config.WebhookConfig
	Normalizer    normalizer.Options
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       75 * time.Second,
	}
}

func NewConfig(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}

	if wcfg, ok := app.Workers[TaskType]; ok {
		cfg.Enabled = wcfg.Enabled
		if wcfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = wcfg.MaxJobsActive
		}
		if wcfg.Timeout > 0 {
			cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
		}
	}

	if p, ok := app.Panel(PanelID); ok {
		cfg.Panel = p
	}
	cfg.Webhook = app.Webhook
	cfg.Normalizer = app.Normalizer
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Panel.WebhookURL == "" {
		return fmt.Errorf("panel %q with a webhook_url is required", PanelID)
	}
	return nil
}
