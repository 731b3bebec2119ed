package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prospecta/leads-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.False(t, cfg.Auth.Enabled)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.Equal(t, 5, cfg.Webhook.BreakerFailures)
	assert.Equal(t, 200, cfg.Enrichment.MaxBulkItems)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/health")
	assert.Equal(t, "0 * * * * *", cfg.Jobs.CampaignSchedule)
	assert.Equal(t, 500, cfg.Jobs.RescoreBatchSize)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("ADMIN_API_KEY", "from-env")
	t.Setenv("SEARCH_WEBHOOK_URL", "https://hooks.example.com/search")
	t.Setenv("FOLLOWUP_WEBHOOK_URL", "https://hooks.example.com/followup")
	t.Setenv("CNPJ_LOOKUP_URL", "https://lookup.example.com")
	t.Setenv("REGISTRY_ENABLED", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "from-env", cfg.Auth.APIKey)
	assert.Equal(t, "https://hooks.example.com/search", cfg.Webhook.SearchURL)
	assert.Equal(t, "https://hooks.example.com/followup", cfg.Webhook.FollowUpURL)
	assert.Equal(t, "https://lookup.example.com", cfg.Enrichment.LookupURL)
	assert.True(t, cfg.Registry.Enabled)
}

func TestDurations(t *testing.T) {
	server := config.ServerConfig{ReadTimeout: 30, WriteTimeout: 60, IdleTimeout: 120}
	assert.Equal(t, 30*time.Second, server.ReadTimeoutDuration())
	assert.Equal(t, time.Minute, server.WriteTimeoutDuration())
	assert.Equal(t, 2*time.Minute, server.IdleTimeoutDuration())

	hooks := config.WebhookConfig{Timeout: 10, BreakerTimeout: 45}
	assert.Equal(t, 10*time.Second, hooks.TimeoutDuration())
	assert.Equal(t, 45*time.Second, hooks.BreakerTimeoutDuration())

	db := config.DatabaseConfig{ConnMaxLifetime: 300}
	assert.Equal(t, 5*time.Minute, db.ConnMaxLifetimeDuration())
}

func TestConnectionString(t *testing.T) {
	db := config.DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "leads", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=leads sslmode=require", db.ConnectionString())
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := f[secretName]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Password = "old"
	cfg.Auth.APIKey = "keep-me"
	t.Setenv("DATABASE_SSLMODE", "verify-full")

	config.ApplySecrets(context.Background(), cfg, fakeSecrets{
		"POSTGRES-PASSWORD": "vault-password",
		"WEBHOOK-TOKEN":     "vault-token",
		"JWT-SECRET":        "vault-jwt",
		"ADMIN-API-KEY":     "",
	})

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "vault-password", cfg.Database.Password)
	assert.Equal(t, "vault-token", cfg.Webhook.Token)
	assert.Equal(t, "vault-jwt", cfg.Auth.JWTSecret)
	assert.Equal(t, "keep-me", cfg.Auth.APIKey, "empty secrets must not overwrite")
	assert.Equal(t, "verify-full", cfg.Database.SSLMode)
}
