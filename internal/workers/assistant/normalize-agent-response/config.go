// internal/workers/assistant/normalize-agent-response/config.go
package normalizeagentresponse

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
	// Panels supplies per-panel wording overrides; a job without a panel uses Normalizer alone.
	Panels     map[string]config.PanelConfig
	Normalizer normalizer.Options
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       10 * time.Second,
		Panels:        map[string]config.PanelConfig{},
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
	if app.Panels != nil {
		cfg.Panels = app.Panels
	}
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
	return nil
}
