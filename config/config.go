// Package config defines the environment-driven configuration for the
// cleanscribe service.
package config

import (
	"github.com/pitabwire/frame/config"
)

// CleanscribeConfig holds configuration for the cleanscribe service.
type CleanscribeConfig struct {
	config.ConfigurationDefault

	// Transcript engine
	MaxSpeakers  int `envDefault:"8"  env:"MAX_SPEAKERS"`
	MaxPhraseLen int `envDefault:"10" env:"MAX_PHRASE_LEN"`

	// Speaker alias rules, hot reloaded from YAML files.
	AliasRuleDir   string `envDefault:"./rules" env:"ALIAS_RULE_DIR"`
	DefaultRuleSet string `envDefault:""        env:"DEFAULT_RULE_SET"`

	// Device uploads
	MaxUploadBytes  int64 `envDefault:"104857600" env:"MAX_UPLOAD_BYTES"`
	MaxSegmentCount int   `envDefault:"50000"     env:"MAX_SEGMENT_COUNT"`

	// Optional enrichment hook, called with each cleaned transcript.
	EnrichHookURL        string `envDefault:""   env:"ENRICH_HOOK_URL"`
	EnrichHookAuthType   string `envDefault:""   env:"ENRICH_HOOK_AUTH_TYPE"`
	EnrichHookSecret     string `envDefault:""   env:"ENRICH_HOOK_SECRET"`
	EnrichHookTimeoutSec int    `envDefault:"10" env:"ENRICH_HOOK_TIMEOUT_SEC"`

	// Webhooks
	WebhookWorkers    int `envDefault:"16"  env:"WEBHOOK_WORKERS"`
	WebhookMaxRetries int `envDefault:"5"   env:"WEBHOOK_MAX_RETRIES"`
	WebhookTimeoutSec int `envDefault:"10"  env:"WEBHOOK_TIMEOUT_SEC"`
	WebhookBackoffSec int `envDefault:"1"   env:"WEBHOOK_BACKOFF_INITIAL_SEC"`
	WebhookBackoffMax int `envDefault:"300" env:"WEBHOOK_BACKOFF_MAX_SEC"`
	CBFailThreshold   int `envDefault:"5"   env:"CB_FAILURE_THRESHOLD"`
	CBResetTimeoutSec int `envDefault:"60"  env:"CB_RESET_TIMEOUT_SEC"`
}
