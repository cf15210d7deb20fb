package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	KV        KVConfig
	Redis     RedisConfig
	DB        DBConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Tracking  TrackingConfig
	CRM       CRMConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Metrics   MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RENTALCRM_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTALCRM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RENTALCRM_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"RENTALCRM_LOG_FORMAT" default:"json"`
	LogFile      string `envconfig:"RENTALCRM_LOG_FILE"`
	LogWarnStack bool   `envconfig:"RENTALCRM_LOG_WARN_STACK" default:"false"`

	// CORSOrigins defaults to any origin: the tracker runs on storefront pages.
	CORSOrigins []string `envconfig:"RENTALCRM_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type KVConfig struct {
	Backend string `envconfig:"RENTALCRM_KV_BACKEND" default:"memory"`
}

// Normalized returns the lower-cased backend name.
func (k KVConfig) Normalized() string {
	return strings.ToLower(strings.TrimSpace(k.Backend))
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTALCRM_REDIS_URL"`
	Address      string        `envconfig:"RENTALCRM_REDIS_ADDR"`
	Password     string        `envconfig:"RENTALCRM_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTALCRM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTALCRM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTALCRM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTALCRM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTALCRM_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"RENTALCRM_REDIS_WRITE_TIMEOUT" default:"3s"`
	ScanCount    int64         `envconfig:"RENTALCRM_REDIS_SCAN_COUNT" default:"200"`
}

// Configured reports whether any redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type DBConfig struct {
	DSN             string        `envconfig:"RENTALCRM_DB_DSN"`
	Driver          string        `envconfig:"RENTALCRM_DB_DRIVER" default:"postgres"`
	MaxOpenConns    int           `envconfig:"RENTALCRM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTALCRM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTALCRM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTALCRM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"RENTALCRM_DB_AUTO_MIGRATE" default:"false"`
}

type JWTConfig struct {
	Secret string `envconfig:"RENTALCRM_JWT_SECRET"`
	Issuer string `envconfig:"RENTALCRM_JWT_ISSUER" default:"rentalcrm"`
}

// Enabled reports whether bearer tokens can be verified.
func (j JWTConfig) Enabled() bool {
	return strings.TrimSpace(j.Secret) != ""
}

type RateLimitConfig struct {
	TrackWindow  time.Duration `envconfig:"RENTALCRM_RATE_LIMIT_TRACK_WINDOW" default:"1m"`
	TrackIPLimit int           `envconfig:"RENTALCRM_RATE_LIMIT_TRACK_IP_LIMIT" default:"120"`
}

type TrackingConfig struct {
	Mode               string        `envconfig:"RENTALCRM_TRACKING_MODE" default:"sync"`
	Topic              string        `envconfig:"RENTALCRM_TRACKING_TOPIC" default:"crm-tracking-events"`
	Subscription       string        `envconfig:"RENTALCRM_TRACKING_SUBSCRIPTION" default:"crm-tracking-events-worker"`
	IdempotencyTTL     time.Duration `envconfig:"RENTALCRM_TRACKING_IDEMPOTENCY_TTL" default:"72h"`
	ChatPreviewLength  int           `envconfig:"RENTALCRM_TRACKING_CHAT_PREVIEW_LENGTH" default:"100"`
	MaxBodyBytes       int64         `envconfig:"RENTALCRM_TRACKING_MAX_BODY_BYTES" default:"65536"`
	ProcessingDeadline time.Duration `envconfig:"RENTALCRM_TRACKING_PROCESSING_DEADLINE" default:"10s"`
}

// Async reports whether envelopes are handed to the worker through Pub/Sub.
func (t TrackingConfig) Async() bool {
	return strings.EqualFold(strings.TrimSpace(t.Mode), TrackingModeAsync)
}

type CRMConfig struct {
	ResolveLock         bool          `envconfig:"RENTALCRM_CRM_RESOLVE_LOCK" default:"false"`
	ResolveLockTTL      time.Duration `envconfig:"RENTALCRM_CRM_RESOLVE_LOCK_TTL" default:"5s"`
	ResolveLockWait     time.Duration `envconfig:"RENTALCRM_CRM_RESOLVE_LOCK_WAIT" default:"2s"`
	AllowClear          bool          `envconfig:"RENTALCRM_CRM_ALLOW_CLEAR" default:"false"`
	DefaultAssignee     string        `envconfig:"RENTALCRM_CRM_DEFAULT_ASSIGNEE" default:"sales_team"`
	AbandonedBookingSLA time.Duration `envconfig:"RENTALCRM_CRM_ABANDONED_BOOKING_SLA" default:"1h"`
}

// ClearAllowed reports whether the bulk-clear escape hatch may run in this environment.
func (c CRMConfig) ClearAllowed(app AppConfig) bool {
	return c.AllowClear || !app.IsProd()
}

type GCPConfig struct {
	ProjectID string `envconfig:"RENTALCRM_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	TaskAlertTopic   string        `envconfig:"RENTALCRM_TASK_ALERT_TOPIC"`
	TaskAlertTimeout time.Duration `envconfig:"RENTALCRM_TASK_ALERT_TIMEOUT" default:"5s"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"RENTALCRM_METRICS_ENABLED" default:"true"`
}

func (c *Config) validate() error {
	switch c.KV.Normalized() {
	case KVBackendMemory:
	case KVBackendRedis:
		if !c.Redis.Configured() {
			return fmt.Errorf("%s=redis requires %s or %s", EnvKVBackend, EnvRedisURL, EnvRedisAddr)
		}
	case KVBackendPostgres, KVBackendSQLite:
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("%s=%s requires %s", EnvKVBackend, c.KV.Normalized(), EnvDBDSN)
		}
		c.DB.Driver = c.KV.Normalized()
	default:
		return fmt.Errorf("unsupported %s %q", EnvKVBackend, c.KV.Backend)
	}

	switch strings.ToLower(strings.TrimSpace(c.Tracking.Mode)) {
	case TrackingModeSync:
	case TrackingModeAsync:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s=async requires %s", EnvTrackingMode, EnvGCPProjectID)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvTrackingMode, c.Tracking.Mode)
	}

	if c.CRM.ResolveLock && !c.Redis.Configured() {
		return fmt.Errorf("%s requires %s or %s", EnvCRMResolveLock, EnvRedisURL, EnvRedisAddr)
	}
	if c.CRM.AbandonedBookingSLA <= 0 {
		return fmt.Errorf("abandoned booking sla must be positive")
	}
	return nil
}
