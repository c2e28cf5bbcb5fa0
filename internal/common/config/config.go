// internal/common/config/config.go
package config

import "research-assistant/internal/normalizer"

// Payload styles understood by the relay. Each matches the request body one
// of the chat panels sends to its webhook.
const (
	PayloadMessage   = "message"
	PayloadQuery     = "query"
	PayloadDocument  = "document"
	PayloadAnalytics = "analytics"
	PayloadResume    = "resume"
)

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Gateway    GatewayConfig           `mapstructure:"gateway"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Redis      RedisConfig             `mapstructure:"redis"`
	History    HistoryConfig           `mapstructure:"history"`
	Webhook    WebhookConfig           `mapstructure:"webhook"`
	Normalizer normalizer.Options      `mapstructure:"normalizer"`
	Panels     map[string]PanelConfig  `mapstructure:"panels"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Logging    LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type GatewayConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HistoryConfig controls how much conversation is kept per panel session.
type HistoryConfig struct {
	TTL         int    `mapstructure:"ttl"` // milliseconds
	MaxMessages int    `mapstructure:"max_messages"`
	DateFormat  string `mapstructure:"date_format"`
	TimeFormat  string `mapstructure:"time_format"`
}

// WebhookConfig holds transport defaults; panels may override them.
type WebhookConfig struct {
	Timeout      int               `mapstructure:"timeout"` // milliseconds
	MaxRetries   int               `mapstructure:"max_retries"`
	Backoff      int               `mapstructure:"backoff"` // milliseconds, doubled per retry
	MaxBodyBytes int64             `mapstructure:"max_body_bytes"`
	Headers      map[string]string `mapstructure:"headers"`
}

// PanelConfig describes one chat panel and the webhook behind it.
type PanelConfig struct {
	Title      string            `mapstructure:"title"`
	WebhookURL string            `mapstructure:"webhook_url"`
	Payload    string            `mapstructure:"payload"`
	Timeout    int               `mapstructure:"timeout"` // milliseconds, 0 means webhook.timeout
	MaxRetries int               `mapstructure:"max_retries"`
	Headers    map[string]string `mapstructure:"headers"`
	Welcome    string            `mapstructure:"welcome"`
	// Metrics are the analytics metrics a message may mention by id or name.
	Metrics    []MetricConfig     `mapstructure:"metrics"`
	Normalizer normalizer.Options `mapstructure:"normalizer"`
}

type MetricConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// NormalizerOptions returns the panel wording layered over the global options.
func (p PanelConfig) NormalizerOptions(global normalizer.Options) normalizer.Options {
	return p.Normalizer.Merge(global)
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Panel looks up a configured panel.
func (c *Config) Panel(id string) (PanelConfig, bool) {
	p, ok := c.Panels[id]
	return p, ok
}
