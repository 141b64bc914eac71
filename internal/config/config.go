// Package config loads taskloom's process-wide configuration via Viper,
// the same struct-of-config-groups layout the rest of the codebase uses.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// WebhookEndpoint is one destination in an environment's webhook profile.
type WebhookEndpoint struct {
	URL      string
	Username string
	Password string
}

// WebhookProfiles holds the environment-keyed endpoint lists from §6 of the
// spec: "local"/"develop" fan out to the integration+stage+test endpoints,
// "production" only notifies the prod endpoint.
type WebhookProfiles struct {
	Local      []WebhookEndpoint
	Develop    []WebhookEndpoint
	Production []WebhookEndpoint
}

// EndpointsFor returns the configured endpoints for the named environment,
// defaulting to the "local" profile for any unrecognized value.
func (w WebhookProfiles) EndpointsFor(environment string) []WebhookEndpoint {
	switch strings.ToLower(environment) {
	case "production", "prod":
		return w.Production
	case "develop", "development":
		return w.Develop
	default:
		return w.Local
	}
}

// LLMConfig configures the default LLM client adapter.
type LLMConfig struct {
	Provider string // "anthropic" or "openai"
	APIKey   string
	BaseURL  string
	Model    string
}

// NATSConfig configures the embedded or external JetStream broker that backs
// the distributed task queue.
type NATSConfig struct {
	URL      string // empty => start an embedded in-process server
	StoreDir string
}

// Config is taskloom's full process configuration, loaded once at startup.
type Config struct {
	HTTPPort     int
	DatabaseURL  string
	TemplatesDir string
	PromptsDir   string
	ScheduleFile string
	Debug        bool
	Environment  string // "local", "develop", "production"

	Webhooks WebhookProfiles
	LLM      LLMConfig
	NATS     NATSConfig
}

// Load reads configuration from environment variables (via Viper's env
// binding), applying the same defaults a fresh checkout would run with.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("taskloom_http_port", 8090)
	v.SetDefault("taskloom_database_url", "taskloom.db")
	v.SetDefault("taskloom_templates_dir", "templates")
	v.SetDefault("taskloom_prompts_dir", "prompts")
	v.SetDefault("taskloom_schedule_file", "")
	v.SetDefault("taskloom_debug", false)
	v.SetDefault("environment", "local")
	v.SetDefault("taskloom_llm_provider", "anthropic")
	v.SetDefault("taskloom_nats_url", "")

	// CELERY_BROKER_URL is honored as the broker URL when TASKLOOM_NATS_URL
	// is not set.
	natsURL := v.GetString("taskloom_nats_url")
	if natsURL == "" {
		natsURL = v.GetString("celery_broker_url")
	}

	environment := v.GetString("environment")
	if environment != "local" && environment != "develop" && environment != "production" {
		return nil, fmt.Errorf("invalid ENVIRONMENT %q: must be local, develop or production", environment)
	}

	cfg := &Config{
		HTTPPort:     v.GetInt("taskloom_http_port"),
		DatabaseURL:  v.GetString("taskloom_database_url"),
		TemplatesDir: v.GetString("taskloom_templates_dir"),
		PromptsDir:   v.GetString("taskloom_prompts_dir"),
		ScheduleFile: v.GetString("taskloom_schedule_file"),
		Debug:        v.GetBool("taskloom_debug"),
		Environment:  environment,
		LLM: LLMConfig{
			Provider: v.GetString("taskloom_llm_provider"),
			APIKey:   v.GetString("taskloom_llm_api_key"),
			BaseURL:  v.GetString("taskloom_llm_base_url"),
			Model:    v.GetString("taskloom_llm_model"),
		},
		NATS: NATSConfig{
			URL:      natsURL,
			StoreDir: v.GetString("taskloom_nats_store_dir"),
		},
		Webhooks: webhookProfilesFromEnv(),
	}

	return cfg, nil
}

func webhookProfilesFromEnv() WebhookProfiles {
	integration := WebhookEndpoint{
		URL:      os.Getenv("WEBHOOK_INTEGRATION"),
		Username: os.Getenv("WEBHOOK_USERNAME"),
		Password: os.Getenv("WEBHOOK_PASSWORD"),
	}
	stage := WebhookEndpoint{
		URL:      os.Getenv("WEBHOOK_STAGE"),
		Username: os.Getenv("WEBHOOK_USERNAME"),
		Password: os.Getenv("WEBHOOK_PASSWORD"),
	}
	test := WebhookEndpoint{
		URL:      os.Getenv("WEBHOOK_TEST"),
		Username: os.Getenv("WEBHOOK_USERNAME"),
		Password: os.Getenv("WEBHOOK_PASSWORD"),
	}
	prod := WebhookEndpoint{
		URL:      os.Getenv("WEBHOOK_PROD"),
		Username: os.Getenv("WEBHOOK_USERNAME"),
		Password: os.Getenv("WEBHOOK_PASSWORD"),
	}

	local := []WebhookEndpoint{integration, stage, test}
	return WebhookProfiles{
		Local:      local,
		Develop:    local,
		Production: []WebhookEndpoint{prod},
	}
}
