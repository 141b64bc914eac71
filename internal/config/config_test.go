package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsToLocalEnvironment(t *testing.T) {
	os.Unsetenv("ENVIRONMENT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, 8090, cfg.HTTPPort)
}

func TestLoad_RejectsUnknownEnvironment(t *testing.T) {
	os.Setenv("ENVIRONMENT", "staging")
	defer os.Unsetenv("ENVIRONMENT")

	_, err := Load()
	assert.Error(t, err)
}

func TestWebhookProfiles_EndpointsFor(t *testing.T) {
	profiles := WebhookProfiles{
		Local:      []WebhookEndpoint{{URL: "local"}},
		Develop:    []WebhookEndpoint{{URL: "develop"}},
		Production: []WebhookEndpoint{{URL: "prod"}},
	}

	assert.Equal(t, "prod", profiles.EndpointsFor("production")[0].URL)
	assert.Equal(t, "develop", profiles.EndpointsFor("develop")[0].URL)
	assert.Equal(t, "local", profiles.EndpointsFor("unknown")[0].URL)
}
