// internal/workers/assistant/relay-chat-message/config.go
package relaychatmessage

import (
	"fmt"
	"time"

	"research-assistant/internal/common/config"
	"research-assistant/internal/normalizer"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	Panels        map[string]config.PanelConfig
	Webhook       config.WebhookConfig
	Normalizer    normalizer.Options
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       45 * time.Second,
		Panels:        map[string]config.PanelConfig{},
	}
}

// NewConfig takes the panels and transport settings from the application config.
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

	cfg.Panels = app.Panels
	cfg.Webhook = app.Webhook
	cfg.Normalizer = app.Normalizer
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if len(c.Panels) == 0 {
		return fmt.Errorf("at least one panel is required")
	}
	return nil
}
