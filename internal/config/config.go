package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prospecta/leads-api/internal/secrets"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Registry   RegistryConfig
	Webhook    WebhookConfig
	Enrichment EnrichmentConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Secrets    SecretsConfig
	Logging    LoggingConfig
	Server     ServerConfig
	CORS       CORSConfig
	Security   SecurityConfig
	RateLimit  RateLimitConfig
	Jobs       JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	// AutoMigrate creates the schema from the models at startup instead of
	// relying on cmd/migrate. Meant for local development.
	AutoMigrate bool
}

// RegistryConfig holds the read-only SQL Server warehouse that mirrors the
// federal company registry. It is optional and only used for enrichment.
type RegistryConfig struct {
	Enabled bool
	// URL is host:port/database
	URL             string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
	QueryTimeout    int // seconds
	// Table holds one row per establishment keyed by the 14-digit CNPJ
	Table string
}

// WebhookConfig configures the external automation webhooks used for
// company search and follow-up delivery.
type WebhookConfig struct {
	SearchURL   string
	FollowUpURL string
	Token       string
	Timeout     int // seconds
	// Source is the value sent as "source" on follow-up payloads
	Source string
	// BreakerFailures is the number of consecutive failures before the circuit opens
	BreakerFailures int
	BreakerTimeout  int // seconds
}

type EnrichmentConfig struct {
	LookupURL string
	Token     string
	Timeout   int // seconds
	// RequestsPerSecond paces bulk enrichment against the lookup service
	RequestsPerSecond float64
	MaxBulkItems      int
}

type AuthConfig struct {
	Enabled   bool
	APIKey    string
	JWTSecret string
	Issuer    string
	Audience  string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout   int
	WriteTimeout  int
	IdleTimeout   int
	EnableSwagger bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	WhitelistIPs      []string
	WhitelistPaths    []string
}

// JobsConfig holds cron expressions for background jobs. An empty
// expression disables the job.
type JobsConfig struct {
	Enabled          bool
	CampaignSchedule string
	RescoreSchedule  string
	RescoreBatchSize int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (r *RegistryConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(r.ConnMaxLifetime) * time.Second
}

// QueryTimeoutDuration returns query timeout as duration
func (r *RegistryConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(r.QueryTimeout) * time.Second
}

func (w *WebhookConfig) TimeoutDuration() time.Duration {
	return time.Duration(w.Timeout) * time.Second
}

func (w *WebhookConfig) BreakerTimeoutDuration() time.Duration {
	return time.Duration(w.BreakerTimeout) * time.Second
}

func (e *EnrichmentConfig) TimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// IdleTimeoutDuration returns idle timeout as duration
func (s *ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// Load loads configuration from file and environment variables.
// Secrets are not resolved from Key Vault; use LoadWithSecrets for that.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Webhook.SearchURL == "" {
		cfg.Webhook.SearchURL = v.GetString("SEARCH_WEBHOOK_URL")
	}
	if cfg.Webhook.FollowUpURL == "" {
		cfg.Webhook.FollowUpURL = v.GetString("FOLLOWUP_WEBHOOK_URL")
	}
	if cfg.Enrichment.LookupURL == "" {
		cfg.Enrichment.LookupURL = v.GetString("CNPJ_LOOKUP_URL")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if v.GetBool("REGISTRY_ENABLED") {
		cfg.Registry.Enabled = true
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and overlays secrets from the
// configured source. Key Vault is used when USE_AZURE_KEY_VAULT=true and the
// environment is staging or production. Registry credentials are always read
// from Key Vault when the registry is enabled and a vault is named.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if cfg.Registry.Enabled && cfg.Secrets.KeyVaultName != "" {
		if err := loadRegistrySecrets(ctx, cfg, logger); err != nil {
			// registry is optional, keep starting
			logger.Warn("Failed to load registry secrets from Key Vault",
				zap.Error(err),
				zap.String("environment", cfg.App.Environment),
			)
		}
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled outside staging/production, using environment variables",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	logger.Info("Loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)
	ApplySecrets(ctx, cfg, provider)
	logger.Info("Secrets loaded from vault successfully")

	return cfg, nil
}

// SecretSource is the subset of secrets.Provider used to overlay config.
type SecretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envVar string) (string, error)
}

// ApplySecrets overlays every secret-backed field that resolves to a
// non-empty value.
func ApplySecrets(ctx context.Context, cfg *Config, src SecretSource) {
	overlay := func(dst *string, secretName, envVar string) {
		if val, err := src.GetSecretOrEnv(ctx, secretName, envVar); err == nil && val != "" {
			*dst = val
		}
	}

	overlay(&cfg.Database.Host, "POSTGRES-HOST", "DATABASE_HOST")
	overlay(&cfg.Database.User, "POSTGRES-USER", "DATABASE_USER")
	overlay(&cfg.Database.Password, "POSTGRES-PASSWORD", "DATABASE_PASSWORD")
	overlay(&cfg.Webhook.Token, "WEBHOOK-TOKEN", "WEBHOOK_TOKEN")
	overlay(&cfg.Enrichment.Token, "CNPJ-LOOKUP-TOKEN", "ENRICHMENT_TOKEN")
	overlay(&cfg.Auth.APIKey, "ADMIN-API-KEY", "ADMIN_API_KEY")
	overlay(&cfg.Auth.JWTSecret, "JWT-SECRET", "AUTH_JWTSECRET")
	overlay(&cfg.Storage.CloudConnectionString, "STORAGE-CONNECTION-STRING", "STORAGE_CLOUDCONNECTIONSTRING")

	// SSL mode is environment specific and never stored in the vault
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
}

func loadRegistrySecrets(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client for registry: %w", err)
	}

	url, err := provider.GetSecret(ctx, "REGISTRY-URL")
	if err != nil {
		return fmt.Errorf("failed to get REGISTRY-URL from Key Vault: %w", err)
	}
	user, err := provider.GetSecret(ctx, "REGISTRY-USERNAME")
	if err != nil {
		return fmt.Errorf("failed to get REGISTRY-USERNAME from Key Vault: %w", err)
	}
	password, err := provider.GetSecret(ctx, "REGISTRY-PASSWORD")
	if err != nil {
		return fmt.Errorf("failed to get REGISTRY-PASSWORD from Key Vault: %w", err)
	}

	cfg.Registry.URL = url
	cfg.Registry.User = user
	cfg.Registry.Password = password

	logger.Info("Registry credentials loaded from Key Vault")
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Prospecta Leads API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "prospecta")
	v.SetDefault("database.user", "prospecta")
	v.SetDefault("database.password", "prospecta")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.autoMigrate", false)

	v.SetDefault("registry.enabled", false)
	v.SetDefault("registry.maxOpenConns", 10)
	v.SetDefault("registry.maxIdleConns", 2)
	v.SetDefault("registry.connMaxLifetime", 300)
	v.SetDefault("registry.queryTimeout", 30)
	v.SetDefault("registry.table", "dbo.estabelecimentos")

	v.SetDefault("webhook.timeout", 30)
	v.SetDefault("webhook.source", "ProspectaB2B")
	v.SetDefault("webhook.breakerFailures", 5)
	v.SetDefault("webhook.breakerTimeout", 60)

	v.SetDefault("enrichment.timeout", 15)
	v.SetDefault("enrichment.requestsPerSecond", 2)
	v.SetDefault("enrichment.maxBulkItems", 200)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.issuer", "prospecta")
	v.SetDefault("auth.audience", "prospecta-dashboard")

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "exports")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.idleTimeout", 120)
	v.SetDefault("server.enableSwagger", true)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.campaignSchedule", "0 * * * * *")
	v.SetDefault("jobs.rescoreSchedule", "0 */15 * * * *")
	v.SetDefault("jobs.rescoreBatchSize", 500)
}
